package ledger

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Attempt is one entry in an item's append-only attempt history.
type Attempt struct {
	At     time.Time `json:"at"`
	Error  string    `json:"error"`
	Status Status    `json:"status"`
}

// Metrics captures transfer statistics recorded when an item completes.
type Metrics struct {
	Bytes   int64
	Seconds float64
}

// BytesPerSecond derives the average transfer speed, 0 when duration is unknown.
func (m Metrics) BytesPerSecond() float64 {
	if m.Seconds <= 0 {
		return 0
	}
	return float64(m.Bytes) / m.Seconds
}

// Seed carries the manifest fields needed to create a work item.
type Seed struct {
	ID        string
	Kind      string
	SourceURL string
	Language  string
	Title     string
}

// Item represents a work item persisted in SQLite.
type Item struct {
	ID          string
	Kind        string
	SourceURL   string
	Language    string
	Title       string
	Status      Status
	RetryCount  int
	LastError   string
	Attempts    []Attempt
	Bytes       int64
	Seconds     float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Terminal reports whether the item needs no further work in this run.
func (i *Item) Terminal() bool {
	return i.Status == StatusDone
}

// StaleSince reports whether an in_progress item was started before cutoff,
// meaning the worker that owned it likely died without recording an outcome.
func (i *Item) StaleSince(cutoff time.Time) bool {
	if i.Status != StatusInProgress {
		return false
	}
	if i.StartedAt == nil {
		return true
	}
	return i.StartedAt.Before(cutoff)
}
