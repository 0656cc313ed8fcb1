package spacetravelling

import (
	"context"
	"time"
)

// Page is one generated artefact, addressed by its URL path. Pages are
// immutable; regeneration replaces them.
type Page struct {
	Key         string    `json:"key"`
	Kind        string    `json:"kind"`
	Body        []byte    `json:"body"`
	ContentType string    `json:"content_type"`
	GeneratedAt time.Time `json:"generated_at"`
	NotFound    bool      `json:"not_found,omitempty"`
}

// Target describes how to (re)generate the page at Key.
type Target struct {
	Key         string
	Kind        string
	ContentType string
	Render      func(ctx context.Context) ([]byte, error)
}

// State reports how a page request was answered.
type State int

const (
	// StateMiss: nothing cached, the page was (or is being) generated.
	StateMiss State = iota
	// StateFresh: cached and younger than the revalidation window.
	StateFresh
	// StateStale: cached but older than the window; a regeneration was started.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "miss"
	}
}

// BuildRun records one revalidation pass over the cached pages.
type BuildRun struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pages      int       `json:"pages"`
	Err        string    `json:"error,omitempty"`
}
