package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Activity is one recorded rewrite or analysis, kept for the recent-activity
// feed.
type Activity struct {
	ID           string
	Owner        string
	Action       string // "rewrite", "analyze", or "clean"
	Format       string
	Engine       string // "heuristic" or "external"
	CharsIn      int
	CharsOut     int
	ReductionPct float64
	CreatedAt    time.Time
}
