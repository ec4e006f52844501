package normalise

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure HTML implements the interface.
var _ driven.Normaliser = (*HTML)(nil)

var htmlExtensions = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
}

// Pre-compiled expressions for tag stripping.
var (
	htmlTitleTag   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlScriptTag  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlStyleTag   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlHeadTag    = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockClose = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlBlockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlBreakTag   = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	htmlAnyTag     = regexp.MustCompile(`<[^>]+>`)
	htmlSpaces     = regexp.MustCompile(`[ \t]+`)
)

// HTML handles HTML files, extracting readable text with tags
// stripped.
type HTML struct{}

// NewHTML creates an HTML normaliser.
func NewHTML() *HTML {
	return &HTML{}
}

// Supports reports whether the file is an HTML document.
func (n *HTML) Supports(filename string) bool {
	return hasExtension(filename, htmlExtensions)
}

// Normalise strips tags and decodes entities. The title comes from the
// <title> element when present, otherwise the filename.
func (n *HTML) Normalise(_ context.Context, filename string, data []byte) (*domain.ExtractedFile, error) {
	content := string(data)

	title := ""
	if m := htmlTitleTag.FindStringSubmatch(content); len(m) > 1 {
		title = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	if title == "" {
		title = titleFromFilename(filename)
	}

	return &domain.ExtractedFile{
		Title: title,
		Text:  stripHTML(content),
	}, nil
}

// stripHTML removes markup and keeps block boundaries as newlines so
// the extracted text reads roughly like the rendered page.
func stripHTML(content string) string {
	content = htmlScriptTag.ReplaceAllString(content, "")
	content = htmlStyleTag.ReplaceAllString(content, "")
	content = htmlHeadTag.ReplaceAllString(content, "")
	content = htmlComment.ReplaceAllString(content, "")

	content = htmlBlockOpen.ReplaceAllString(content, "\n")
	content = htmlBlockClose.ReplaceAllString(content, "\n")
	content = htmlBreakTag.ReplaceAllString(content, "\n")
	content = htmlAnyTag.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = htmlSpaces.ReplaceAllString(content, " ")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
