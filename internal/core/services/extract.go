package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// The cue tables below are policy, not contract: they are expected to
// be tuned over time while the three-way classification and the
// degradation behaviour stay fixed.

// amountPattern matches currency amounts: "$12.34", "$1,299", "45.00".
var amountPattern = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|\b\d+\.\d{2}\b`)

// yearPattern matches explicit four-digit years.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// datePattern matches common numeric date layouts.
var datePattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{4}\b`)

// monthPattern matches month names as whole words, so "maybe" never
// reads as May. The leftmost mention wins when a query names several.
var monthPattern = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)

// monthNames maps month words to their calendar month.
var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// DefaultVendors seeds the known-vendor list used for cue detection
// and entity extraction. The document corpus extends this list over
// time as vendors are extracted.
var DefaultVendors = []string{
	"Kroger", "Walmart", "Target", "Costco", "Safeway", "Aldi",
	"Home Depot", "Lowe's", "Walgreens", "CVS", "Amazon", "Best Buy",
	"Starbucks", "Shell", "Chevron",
}

// categoryKeywords maps a spending category to the words that imply it.
var categoryKeywords = map[string][]string{
	"groceries":     {"grocery", "groceries", "supermarket"},
	"dining":        {"restaurant", "dining", "cafe", "coffee", "lunch", "dinner"},
	"transport":     {"gas", "fuel", "parking", "transit", "rideshare"},
	"utilities":     {"electric", "electricity", "water bill", "internet", "phone bill", "utility"},
	"healthcare":    {"pharmacy", "prescription", "doctor", "clinic", "dental"},
	"home":          {"repair", "repairs", "hardware", "plumbing", "furniture", "appliance"},
	"entertainment": {"movie", "cinema", "concert", "streaming", "subscription"},
}

// aggregationCues imply the query wants a numeric summary.
var aggregationCues = []string{
	"how much", "how many", "total", "sum of", "average", "spent", "spend",
}

// analyticalCues imply open-ended reasoning beyond filters and ranking.
// "how much"/"how many" are aggregation cues, not analytical ones, and
// are stripped before this table is consulted.
var analyticalCues = []string{
	"why", "compare", "comparison", "trend", "analyze", "analyse",
	"analysis", "summarize", "summarise", "insight", "explain",
	"breakdown", "how ",
}

// QueryCues are the structured signals recognised in a query.
type QueryCues struct {
	// Vendor is the first known vendor mentioned, if any.
	Vendor string

	// Amounts are the currency amounts mentioned, in order.
	Amounts []float64

	// DateFrom and DateTo bound the recognised date expression.
	DateFrom *time.Time
	DateTo   *time.Time

	// Category is the recognised spending category, if any.
	Category string

	// WantsAggregation reports whether the query implies a numeric
	// summary (sum, average).
	WantsAggregation bool

	// Analytical reports open-ended analytical language.
	Analytical bool
}

// Strong reports whether at least one strong structured cue was found.
// A category keyword alone is weak: descriptive phrases mention
// category words constantly ("documents about home repairs") and those
// belong to semantic ranking, not exact filters.
func (c QueryCues) Strong() bool {
	return c.Vendor != "" || len(c.Amounts) > 0 || c.DateFrom != nil
}

// Extractor recognises vendors, amounts, dates and categories in free
// text. It backs both the router's query classification and the
// reprocessing pipeline's entity extraction.
type Extractor struct {
	vendors []string
	now     func() time.Time
}

// NewExtractor creates an extractor over the given known-vendor list.
// An empty list falls back to DefaultVendors.
func NewExtractor(vendors []string) *Extractor {
	if len(vendors) == 0 {
		vendors = DefaultVendors
	}
	return &Extractor{vendors: vendors, now: time.Now}
}

// ExtractCues inspects a sanitised query for structured cues.
func (x *Extractor) ExtractCues(query string) QueryCues {
	lower := strings.ToLower(query)

	cues := QueryCues{
		Vendor:   x.matchVendor(lower),
		Amounts:  parseAmounts(query),
		Category: matchCategory(lower),
	}
	cues.DateFrom, cues.DateTo = x.parseDateRange(lower)

	for _, cue := range aggregationCues {
		if strings.Contains(lower, cue) {
			cues.WantsAggregation = true
			break
		}
	}

	// Aggregation phrasing is exact-filter territory; strip it before
	// scanning for open-ended language so "how much" does not trip
	// the generic "how " cue.
	scrubbed := strings.ReplaceAll(lower, "how much", "")
	scrubbed = strings.ReplaceAll(scrubbed, "how many", "")
	for _, cue := range analyticalCues {
		if strings.Contains(scrubbed, cue) {
			cues.Analytical = true
			break
		}
	}

	return cues
}

// ExtractEntities derives entity fields from document text. The
// returned confidence reflects how many fields were recognised; zero
// means nothing was found and a generative fallback may help.
func (x *Extractor) ExtractEntities(text string) (domain.EntityUpdate, float64) {
	lower := strings.ToLower(text)

	update := domain.EntityUpdate{
		Vendor:   x.matchVendor(lower),
		Category: matchCategory(lower),
	}

	if amounts := parseAmounts(text); len(amounts) > 0 {
		// The largest amount on a receipt is usually the total.
		max := amounts[0]
		for _, a := range amounts[1:] {
			if a > max {
				max = a
			}
		}
		update.Amount = &max
	}

	if d := parseAbsoluteDate(text); d != nil {
		update.TxnDate = d
	}

	found := 0
	for _, ok := range []bool{
		update.Vendor != "", update.Amount != nil,
		update.TxnDate != nil, update.Category != "",
	} {
		if ok {
			found++
		}
	}
	update.Confidence = float64(found) / 4.0

	return update, update.Confidence
}

// matchVendor returns the first known vendor mentioned in lower-cased
// text.
func (x *Extractor) matchVendor(lower string) string {
	for _, v := range x.vendors {
		if strings.Contains(lower, strings.ToLower(v)) {
			return v
		}
	}
	return ""
}

// matchCategory returns the first category whose keywords appear in
// lower-cased text.
func matchCategory(lower string) string {
	for _, category := range []string{
		"groceries", "dining", "transport", "utilities",
		"healthcare", "home", "entertainment",
	} {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return ""
}

// parseAmounts extracts currency amounts from text, in order.
func parseAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range amountPattern.FindAllString(text, -1) {
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(m)
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
			amounts = append(amounts, v)
		}
	}
	return amounts
}

// parseAbsoluteDate extracts the first explicit date from text.
func parseAbsoluteDate(text string) *time.Time {
	m := datePattern.FindString(text)
	if m == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "1/2/2006", "01/02/2006"} {
		if t, err := time.Parse(layout, m); err == nil {
			return &t
		}
	}
	return nil
}

// parseDateRange recognises absolute and relative date expressions in
// a lower-cased query and returns the implied [from, to] bounds.
func (x *Extractor) parseDateRange(lower string) (*time.Time, *time.Time) {
	now := x.now()

	switch {
	case strings.Contains(lower, "last month"):
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return &first, &last
	case strings.Contains(lower, "this month"):
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return &first, &last
	case strings.Contains(lower, "last year"):
		first := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(now.Year()-1, time.December, 31, 23, 59, 59, 0, time.UTC)
		return &first, &last
	case strings.Contains(lower, "this year"):
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, time.UTC)
		return &first, &last
	}

	// "january 2024" or bare month name.
	if word := monthPattern.FindString(lower); word != "" {
		month := monthNames[word]
		year := now.Year()
		if y := yearPattern.FindString(lower); y != "" {
			if v, err := strconv.Atoi(y); err == nil {
				year = v
			}
		}
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, 0).Add(-time.Nanosecond)
		return &first, &last
	}

	// Bare year: "in 2024".
	if y := yearPattern.FindString(lower); y != "" {
		if v, err := strconv.Atoi(y); err == nil {
			first := time.Date(v, time.January, 1, 0, 0, 0, 0, time.UTC)
			last := time.Date(v, time.December, 31, 23, 59, 59, 0, time.UTC)
			return &first, &last
		}
	}

	return nil, nil
}
