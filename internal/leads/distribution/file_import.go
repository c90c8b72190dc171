package distribution

import (
	"context"

	"leadcrm_backend/internal/imports"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/metrics"
)

// FileImportResult is an import batch plus the rows the parser rejected.
type FileImportResult struct {
	ImportResult
	Skipped    []imports.Skipped
	ArchiveKey string
}

// FileImporter parses an uploaded spreadsheet and feeds its rows through
// Import in file order.
type FileImporter struct {
	parser  *imports.Parser
	svc     *Service
	archive ports.ImportArchive
	log     *logger.Logger
}

// NewFileImporter wires the parser and the distribution service. archive
// may be nil when object storage is not configured.
func NewFileImporter(parser *imports.Parser, svc *Service, archive ports.ImportArchive, log *logger.Logger) *FileImporter {
	return &FileImporter{parser: parser, svc: svc, archive: archive, log: log}
}

func (f *FileImporter) ImportFile(ctx context.Context, actor domain.Actor, fileName, contentType string, content []byte) (FileImportResult, error) {
	if !actor.IsManager() {
		return FileImportResult{}, apperr.Forbidden("only admins and accountants can import leads")
	}

	parsed, err := f.parser.Parse(fileName, content)
	if err != nil {
		return FileImportResult{}, err
	}
	metrics.RecordImport("skipped", len(parsed.Skipped))

	var archiveKey string
	if f.archive != nil {
		archiveKey, err = f.archive.Archive(ctx, actor.CompanyID, fileName, contentType, content)
		if err != nil {
			f.log.WithContext(ctx).Warn("import archive failed", "file", fileName, "error", err)
			archiveKey = ""
		}
	}

	drafts := make([]Draft, len(parsed.Records))
	for i, rec := range parsed.Records {
		drafts[i] = DraftFromRecord(rec)
	}

	result, err := f.svc.Import(ctx, actor, drafts)
	if err != nil {
		metrics.RecordImport("failed", len(drafts))
		return FileImportResult{}, err
	}
	metrics.RecordImport("created", len(result.Leads))

	return FileImportResult{ImportResult: result, Skipped: parsed.Skipped, ArchiveKey: archiveKey}, nil
}

// DraftFromRecord coerces a parsed row into a draft. Unknown statuses
// become fresh.
func DraftFromRecord(rec imports.Record) Draft {
	return Draft{
		Name:    rec.Name,
		Email:   rec.Email,
		Phone:   rec.Phone,
		Country: rec.Country,
		Product: rec.Product,
		Source:  rec.Source,
		Status:  domain.ParseStatusOrFresh(rec.Status),
		Date:    rec.Date,
	}
}
