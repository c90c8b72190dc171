package adapters

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"leadcrm_backend/internal/adapters/storage"
	"leadcrm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// LeadImportArchive stores uploaded import files in object storage under
// <company>/<yyyy>/<mm>/.
type LeadImportArchive struct {
	storage storage.StorageService
	bucket  string
	now     func() time.Time
}

// NewLeadImportArchive creates the archive adapter for the given bucket.
func NewLeadImportArchive(svc storage.StorageService, bucket string) *LeadImportArchive {
	return &LeadImportArchive{storage: svc, bucket: bucket, now: time.Now}
}

// Archive uploads the file and returns its object key.
func (a *LeadImportArchive) Archive(ctx context.Context, companyID uuid.UUID, fileName, contentType string, content []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.storage.ValidateContentType(contentType); err != nil {
		return "", err
	}
	if err := a.storage.ValidateFileSize(int64(len(content))); err != nil {
		return "", err
	}

	folder := fmt.Sprintf("%s/%s", companyID, a.now().UTC().Format("2006/01"))
	return a.storage.UploadFile(ctx, a.bucket, folder, fileName, contentType, bytes.NewReader(content), int64(len(content)))
}

// Compile-time check.
var _ ports.ImportArchive = (*LeadImportArchive)(nil)
