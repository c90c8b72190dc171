package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadcrm_backend/internal/imports"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/leadstest"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	files map[string][]byte
	err   error
}

func (a *fakeArchive) Archive(_ context.Context, companyID uuid.UUID, fileName, _ string, content []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	key := companyID.String() + "/" + fileName
	if a.files == nil {
		a.files = map[string][]byte{}
	}
	a.files[key] = content
	return key, nil
}

const sampleCSV = "Name,Mobile,Country,Status\n" +
	"Asha,123,India,registered\n" +
	"Ben,,India,fresh\n" +
	"Chen,456,China,mystery\n"

func TestImportFileParsesDistributesAndArchives(t *testing.T) {
	f := newFixture(t)
	a := f.users.Add(leadstest.Salesperson(f.companyID, "Asha"))
	archive := &fakeArchive{}
	importer := NewFileImporter(imports.NewParser(imports.DefaultAliases, time.UTC), f.svc, archive, logger.Nop())

	res, err := importer.ImportFile(context.Background(), f.admin, "batch.csv", "text/csv", []byte(sampleCSV))
	require.NoError(t, err)

	require.Len(t, res.Leads, 2)
	assert.Equal(t, domain.StatusClosed, res.Leads[0].Status)
	assert.NotNil(t, res.Leads[0].ClosedAt)
	assert.Equal(t, domain.StatusFresh, res.Leads[1].Status)
	assert.Equal(t, 2, res.PerOwner[a.ID])

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Row)
	assert.Equal(t, f.companyID.String()+"/batch.csv", res.ArchiveKey)
	assert.Contains(t, archive.files, res.ArchiveKey)
}

func TestImportFileSurvivesArchiveFailure(t *testing.T) {
	f := newFixture(t)
	importer := NewFileImporter(imports.NewParser(imports.DefaultAliases, time.UTC), f.svc,
		&fakeArchive{err: errors.New("bucket gone")}, logger.Nop())

	res, err := importer.ImportFile(context.Background(), f.admin, "batch.csv", "text/csv", []byte(sampleCSV))
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveKey)
	assert.Len(t, res.Leads, 2)
	assert.Equal(t, 2, res.Unassigned)
}

func TestImportFileRejectsBadFileWithoutWriting(t *testing.T) {
	f := newFixture(t)
	importer := NewFileImporter(imports.NewParser(imports.DefaultAliases, time.UTC), f.svc, nil, logger.Nop())

	_, err := importer.ImportFile(context.Background(), f.admin, "batch.csv", "text/csv", []byte("name,email\nx,y\n"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, f.bus.Named("leads.imported"))
}

func TestImportFileRequiresManager(t *testing.T) {
	f := newFixture(t)
	importer := NewFileImporter(imports.NewParser(imports.DefaultAliases, time.UTC), f.svc, nil, logger.Nop())
	sales := domain.Actor{UserID: uuid.New(), Role: domain.RoleSalesperson, CompanyID: f.companyID}

	_, err := importer.ImportFile(context.Background(), sales, "batch.csv", "text/csv", []byte(sampleCSV))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
