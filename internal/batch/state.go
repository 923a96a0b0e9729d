package batch

import (
	"drmeter/pkg/audioengine"
)

// Status is the lifecycle stage of one submitted file.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	// StatusSkipped marks files never started because the run was cancelled.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the item will not change again in this run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Item is one file of a batch. Result is set only for StatusCompleted, Err
// only for StatusFailed.
type Item struct {
	Path   string
	Status Status
	Result audioengine.Result
	Err    error
	// Digest is the file fingerprint when digests are enabled.
	Digest string

	claimed bool
}

// State is a consistent snapshot of a batch.
type State struct {
	// Items in submission order.
	Items []Item
	// Overall folds every completed item; valid only when HasOverall.
	Overall    audioengine.Result
	HasOverall bool

	Completed int
	Failed    int
	Skipped   int
	Total     int

	seq uint64
}

// Done reports whether every item is terminal.
func (s State) Done() bool {
	return s.Completed+s.Failed+s.Skipped == s.Total
}

// Terminal is the number of items that reached a final status.
func (s State) Terminal() int {
	return s.Completed + s.Failed + s.Skipped
}
