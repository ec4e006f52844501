package normalise

import (
	"context"
	"regexp"
	"strings"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure Markdown implements the interface.
var _ driven.Normaliser = (*Markdown)(nil)

var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// Pre-compiled expressions for markdown stripping.
var (
	mdCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode   = regexp.MustCompile("`[^`]+`")
	mdImage        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	mdRule         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdListMarker   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	mdNewlines     = regexp.MustCompile(`\n{3,}`)
)

// Markdown handles Markdown files. Formatting is stripped rather than
// rendered; the search index wants plain words, not structure.
type Markdown struct{}

// NewMarkdown creates a Markdown normaliser.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Supports reports whether the file is a Markdown document.
func (n *Markdown) Supports(filename string) bool {
	return hasExtension(filename, markdownExtensions)
}

// Normalise strips markdown formatting and takes the first H1 heading
// as the title, falling back to the filename.
func (n *Markdown) Normalise(_ context.Context, filename string, data []byte) (*domain.ExtractedFile, error) {
	content := string(data)

	title := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			break
		}
	}
	if title == "" {
		title = titleFromFilename(filename)
	}

	return &domain.ExtractedFile{
		Title: title,
		Text:  stripMarkdown(content),
	}, nil
}

// stripMarkdown removes common markdown formatting. Deliberately
// simple: odd constructs degrade to slightly noisy text, never to an
// error.
func stripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdListMarker.ReplaceAllString(content, "")
	content = mdNumberedList.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	content = mdNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
