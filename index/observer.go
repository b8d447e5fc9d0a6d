package index

import (
	"context"
	"time"
)

// Result describes one finished EnsureOne call inside a run.
type Result struct {
	RunID    string
	Position int
	Request  IndexRequest
	Action   IndexAction // zero when Err is set
	Err      error
	Duration time.Duration
}

// Observer receives a Result for every request an Ensurer processes.
type Observer interface {
	OnResult(ctx context.Context, r Result) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r Result) error

func (f ObserverFunc) OnResult(ctx context.Context, r Result) error { return f(ctx, r) }
