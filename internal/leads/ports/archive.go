package ports

import (
	"context"

	"github.com/google/uuid"
)

// ImportArchive keeps a copy of every uploaded import file.
type ImportArchive interface {
	// Archive stores the file and returns its object key.
	Archive(ctx context.Context, companyID uuid.UUID, fileName, contentType string, content []byte) (string, error)
}
