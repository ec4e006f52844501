package domain

import "time"

// RateLimitStats reports an actor's remaining quota without consuming
// any of it.
type RateLimitStats struct {
	RemainingMinute int
	RemainingHour   int
}

// ReprocessingSummary reports the outcome of an entity reprocessing
// sweep over the corpus.
type ReprocessingSummary struct {
	Total     int
	Processed int
	Skipped   int
	Errored   int
	Duration  time.Duration
}
