package normalise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

func TestRegistry_Defaults_RoutesByExtension(t *testing.T) {
	registry := Defaults()

	assert.True(t, registry.Supports("receipt.txt"))
	assert.True(t, registry.Supports("notes.md"))
	assert.True(t, registry.Supports("invoice.HTML"))
	assert.True(t, registry.Supports("statement.eml"))
	assert.True(t, registry.Supports("contract.docx"))
	assert.False(t, registry.Supports("photo.jpg"))
	assert.False(t, registry.Supports("archive"))
}

func TestRegistry_Normalise_UnsupportedFile(t *testing.T) {
	registry := Defaults()

	_, err := registry.Normalise(context.Background(), "photo.jpg", []byte{0xff})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestRegistry_Normalise_SpecificFormatWinsOverPlaintext(t *testing.T) {
	registry := Defaults()

	extracted, err := registry.Normalise(context.Background(), "notes.md",
		[]byte("# Renovation Notes\n\nSome **bold** plans."))
	require.NoError(t, err)

	assert.Equal(t, "Renovation Notes", extracted.Title)
	assert.NotContains(t, extracted.Text, "**")
}

func TestPlaintext_Normalise(t *testing.T) {
	n := NewPlaintext()

	extracted, err := n.Normalise(context.Background(), "grocery_receipt.txt",
		[]byte("  Kroger receipt total $15.00\n"))
	require.NoError(t, err)

	assert.Equal(t, "grocery receipt", extracted.Title)
	assert.Equal(t, "Kroger receipt total $15.00", extracted.Text)
}

func TestPlaintext_Normalise_RejectsBinaryContent(t *testing.T) {
	n := NewPlaintext()

	_, err := n.Normalise(context.Background(), "data.txt", []byte{0xff, 0xfe, 0x00})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"grocery_receipt.txt", "grocery receipt"},
		{"home-depot-invoice.html", "home depot invoice"},
		{"/tmp/imports/statement.eml", "statement"},
		{"notes", "notes"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFromFilename(tt.filename), tt.filename)
	}
}
