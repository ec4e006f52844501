package normalise

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure Plaintext implements the interface.
var _ driven.Normaliser = (*Plaintext)(nil)

var plaintextExtensions = map[string]bool{
	".txt":  true,
	".text": true,
	".csv":  true,
	".log":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".xml":  true,
}

// Plaintext handles files whose content is already readable text.
type Plaintext struct{}

// NewPlaintext creates a plain text normaliser.
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

// Supports reports whether the file is a recognised text format.
func (n *Plaintext) Supports(filename string) bool {
	return hasExtension(filename, plaintextExtensions)
}

// Normalise passes the content through unchanged apart from trimming.
// Binary content is rejected rather than stored as garbage.
func (n *Plaintext) Normalise(_ context.Context, filename string, data []byte) (*domain.ExtractedFile, error) {
	if !utf8.Valid(data) {
		return nil, domain.ErrInvalidInput
	}

	return &domain.ExtractedFile{
		Title: titleFromFilename(filename),
		Text:  strings.TrimSpace(string(data)),
	}, nil
}
