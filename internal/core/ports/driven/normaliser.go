package driven

import (
	"context"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// Normaliser extracts plain text from raw file content. Implementations
// handle one or more file formats, selected by filename extension.
// Everything runs in-process; file content never leaves the device.
type Normaliser interface {
	// Supports reports whether this normaliser handles the file.
	Supports(filename string) bool

	// Normalise extracts a title and plain text from the raw bytes.
	// Returns ErrInvalidInput when the content does not parse as the
	// expected format.
	Normalise(ctx context.Context, filename string, data []byte) (*domain.ExtractedFile, error)
}
