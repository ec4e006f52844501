package domain

// ExtractedFile is the result of normalising a raw file: a title and
// the plain text content that goes into the document store.
type ExtractedFile struct {
	// Title is the human-readable title derived from the file.
	Title string

	// Text is the extracted plain text content.
	Text string
}
