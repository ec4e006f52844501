package normalise

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure EML implements the interface.
var _ driven.Normaliser = (*EML)(nil)

var emlExtensions = map[string]bool{
	".eml": true,
}

// EML handles RFC 822 email files. Receipts and invoices commonly
// arrive as email, so the headers are kept in the extracted text where
// the entity heuristics can see vendor names and dates.
type EML struct{}

// NewEML creates an EML normaliser.
func NewEML() *EML {
	return &EML{}
}

// Supports reports whether the file is an email message.
func (n *EML) Supports(filename string) bool {
	return hasExtension(filename, emlExtensions)
}

// Normalise parses the message and flattens headers plus body into
// plain text. The subject becomes the title.
func (n *EML) Normalise(_ context.Context, filename string, data []byte) (*domain.ExtractedFile, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid email message", domain.ErrInvalidInput)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	date := msg.Header.Get("Date")

	body, err := extractMailBody(msg)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, header := range []struct{ name, value string }{
		{"From", from},
		{"Date", date},
		{"Subject", subject},
	} {
		if header.value != "" {
			fmt.Fprintf(&text, "%s: %s\n", header.name, header.value)
		}
	}
	text.WriteString("\n")
	text.WriteString(body)

	title := subject
	if title == "" {
		title = titleFromFilename(filename)
	}

	return &domain.ExtractedFile{
		Title: title,
		Text:  strings.TrimSpace(text.String()),
	}, nil
}

// decodeHeader decodes RFC 2047 encoded header values, returning the
// raw value when decoding fails.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractMailBody pulls the text content out of a message, walking
// multipart structures and preferring plain text parts over HTML.
func extractMailBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", fmt.Errorf("%w: unreadable message body", domain.ErrInvalidInput)
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", fmt.Errorf("%w: unreadable message body", domain.ErrInvalidInput)
	}
	if mediaType == "text/html" {
		return stripHTML(string(body)), nil
	}
	return string(body), nil
}

// extractMultipart collects text parts from a multipart body,
// recursing into nested multiparts.
func extractMultipart(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripHTML(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested, nestedErr := extractMultipart(bytes.NewReader(content), params["boundary"]); nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}
