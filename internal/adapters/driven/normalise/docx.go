package normalise

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure DOCX implements the interface.
var _ driven.Normaliser = (*DOCX)(nil)

var docxExtensions = map[string]bool{
	".docx": true,
}

// DOCX handles Word documents. A .docx file is a ZIP archive; the body
// text lives in word/document.xml and the title in docProps/core.xml.
type DOCX struct{}

// NewDOCX creates a DOCX normaliser.
func NewDOCX() *DOCX {
	return &DOCX{}
}

// Supports reports whether the file is a Word document.
func (n *DOCX) Supports(filename string) bool {
	return hasExtension(filename, docxExtensions)
}

// Normalise extracts paragraph text from the document archive.
func (n *DOCX) Normalise(_ context.Context, filename string, data []byte) (*domain.ExtractedFile, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid docx archive", domain.ErrInvalidInput)
	}

	text, err := docxBodyText(reader)
	if err != nil {
		return nil, err
	}

	title := docxTitle(reader)
	if title == "" {
		title = titleFromFilename(filename)
	}

	return &domain.ExtractedFile{
		Title: title,
		Text:  text,
	}, nil
}

// wordDocument mirrors the parts of word/document.xml we read.
type wordDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// coreProperties mirrors docProps/core.xml.
type coreProperties struct {
	Title string `xml:"title"`
}

// docxBodyText extracts paragraph text from word/document.xml.
func docxBodyText(reader *zip.Reader) (string, error) {
	content, err := readArchiveFile(reader, "word/document.xml")
	if err != nil || content == nil {
		return "", err
	}

	var doc wordDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: malformed document body", domain.ErrInvalidInput)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// docxTitle reads the document title property, if set.
func docxTitle(reader *zip.Reader) string {
	content, err := readArchiveFile(reader, "docProps/core.xml")
	if err != nil || content == nil {
		return ""
	}

	var core coreProperties
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// readArchiveFile returns the named file's content, or nil when the
// archive does not contain it.
func readArchiveFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable archive entry", domain.ErrInvalidInput)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable archive entry", domain.ErrInvalidInput)
		}
		return content, nil
	}
	return nil, nil
}
