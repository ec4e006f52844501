package domain

import "time"

// Document represents a stored document with its extracted text and
// derived entity fields. The document store owns the record; the core
// only reads it and writes back the entity fields.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Text is the full extracted text content (OCR output or import).
	Text string

	// Vendor is the derived merchant/counterparty name, if extracted.
	Vendor string

	// Amount is the derived monetary amount, if extracted.
	Amount *float64

	// TxnDate is the derived transaction date, if extracted.
	TxnDate *time.Time

	// Category is the derived spending category, if extracted.
	Category string

	// EntityConfidence is the confidence of the entity extraction (0-1).
	EntityConfidence float64

	// EntitiesExtractedAt is when entity extraction last ran.
	// Nil means the document has never been reprocessed.
	EntitiesExtractedAt *time.Time

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// EntityUpdate carries the derived entity fields written back to the
// document store after extraction. Nil pointers leave the stored value
// unchanged; empty strings clear it.
type EntityUpdate struct {
	Vendor     string
	Amount     *float64
	TxnDate    *time.Time
	Category   string
	Confidence float64
}

// DocumentFilter is a parameterized filter over the document store.
// Field values are bound as query parameters by the store adapter;
// raw user text never becomes part of a query template.
type DocumentFilter struct {
	// Vendor matches documents whose vendor equals this value
	// (case-insensitive). Empty means no vendor constraint.
	Vendor string

	// Category matches documents with this category. Empty means any.
	Category string

	// MinAmount and MaxAmount bound the transaction amount when set.
	MinAmount *float64
	MaxAmount *float64

	// DateFrom and DateTo bound the transaction date when set.
	DateFrom *time.Time
	DateTo   *time.Time

	// Limit caps the number of returned documents. Zero means no cap.
	Limit int
}

// Empty reports whether the filter constrains nothing.
func (f DocumentFilter) Empty() bool {
	return f.Vendor == "" && f.Category == "" &&
		f.MinAmount == nil && f.MaxAmount == nil &&
		f.DateFrom == nil && f.DateTo == nil
}
