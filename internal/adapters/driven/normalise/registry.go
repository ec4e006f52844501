// Package normalise converts raw local files into plain text for the
// document store. Each normaliser handles one format family, selected
// by filename extension; the registry fronts them with a single
// Normaliser interface.
package normalise

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.Normaliser = (*Registry)(nil)

// Registry routes a file to the first registered normaliser that
// supports it. Registration order decides precedence.
type Registry struct {
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry over the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	return &Registry{normalisers: normalisers}
}

// Defaults returns a registry with all built-in format normalisers.
// Plaintext goes last so the specific formats win for their own
// extensions.
func Defaults() *Registry {
	return NewRegistry(
		NewMarkdown(),
		NewHTML(),
		NewEML(),
		NewDOCX(),
		NewPlaintext(),
	)
}

// Register appends a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.normalisers = append(r.normalisers, n)
}

// Supports reports whether any registered normaliser handles the file.
func (r *Registry) Supports(filename string) bool {
	for _, n := range r.normalisers {
		if n.Supports(filename) {
			return true
		}
	}
	return false
}

// Normalise extracts text using the first normaliser that supports the
// file.
func (r *Registry) Normalise(ctx context.Context, filename string, data []byte) (*domain.ExtractedFile, error) {
	for _, n := range r.normalisers {
		if n.Supports(filename) {
			return n.Normalise(ctx, filename, data)
		}
	}
	return nil, fmt.Errorf("%w: unsupported file type %q",
		domain.ErrInvalidInput, filepath.Ext(filename))
}

// hasExtension reports whether the filename carries one of the given
// lowercase extensions.
func hasExtension(filename string, extensions map[string]bool) bool {
	return extensions[strings.ToLower(filepath.Ext(filename))]
}

// titleFromFilename derives a readable title from the file name.
func titleFromFilename(filename string) string {
	name := filepath.Base(filename)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
