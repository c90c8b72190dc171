package ports

import (
	"context"

	"github.com/google/uuid"
)

// ReportInvalidator drops a company's cached reports. Writers call it after
// the mutation commits, before returning to the caller.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, companyID uuid.UUID)
}
