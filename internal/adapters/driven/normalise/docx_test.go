package normalise

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// buildDocx assembles a minimal Word archive from named XML parts.
func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const docxBody = `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>Contractor invoice for kitchen repairs.</t></r></p>
    <p><r><t>Amount due: </t></r><r><t>$4,500.00</t></r></p>
  </body>
</document>`

func TestDOCX_Normalise(t *testing.T) {
	n := NewDOCX()
	data := buildDocx(t, map[string]string{
		"word/document.xml": docxBody,
		"docProps/core.xml": `<?xml version="1.0"?><coreProperties><title>Kitchen Invoice</title></coreProperties>`,
	})

	extracted, err := n.Normalise(context.Background(), "invoice.docx", data)
	require.NoError(t, err)

	assert.Equal(t, "Kitchen Invoice", extracted.Title)
	assert.Contains(t, extracted.Text, "Contractor invoice for kitchen repairs.")
	assert.Contains(t, extracted.Text, "Amount due: $4,500.00")
}

func TestDOCX_Normalise_RunsWithinParagraphConcatenate(t *testing.T) {
	n := NewDOCX()
	data := buildDocx(t, map[string]string{"word/document.xml": docxBody})

	extracted, err := n.Normalise(context.Background(), "invoice.docx", data)
	require.NoError(t, err)

	lines := bytes.Split([]byte(extracted.Text), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "Amount due: $4,500.00", string(lines[1]))
}

func TestDOCX_Normalise_TitleFallsBackToFilename(t *testing.T) {
	n := NewDOCX()
	data := buildDocx(t, map[string]string{"word/document.xml": docxBody})

	extracted, err := n.Normalise(context.Background(), "kitchen_invoice.docx", data)
	require.NoError(t, err)

	assert.Equal(t, "kitchen invoice", extracted.Title)
}

func TestDOCX_Normalise_MissingBodyYieldsEmptyText(t *testing.T) {
	n := NewDOCX()
	data := buildDocx(t, map[string]string{"other.xml": "<x/>"})

	extracted, err := n.Normalise(context.Background(), "empty.docx", data)
	require.NoError(t, err)
	assert.Empty(t, extracted.Text)
}

func TestDOCX_Normalise_NotAZip(t *testing.T) {
	n := NewDOCX()

	_, err := n.Normalise(context.Background(), "broken.docx", []byte("plain text"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
