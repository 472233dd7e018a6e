package model

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LogEvent is one structured entry recorded during a run.
type LogEvent struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// RunLog accumulates structured log events for the duration of one run and
// hands a read-only snapshot to the report writer. It implements slog.Handler
// so domain code can log through a standard *slog.Logger that tees into the
// run context.
type RunLog struct {
	mu     sync.Mutex
	events []LogEvent
}

// NewRunLog creates an empty RunLog.
func NewRunLog() *RunLog {
	return &RunLog{}
}

// Enabled implements slog.Handler. The run log keeps everything; filtering
// happens in the handlers that write to disk or console.
func (l *RunLog) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (l *RunLog) Handle(_ context.Context, record slog.Record) error {
	event := LogEvent{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   make(map[string]string, record.NumAttrs()),
	}

	record.Attrs(func(attr slog.Attr) bool {
		event.Attrs[attr.Key] = attr.Value.String()
		return true
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)

	return nil
}

// WithAttrs implements slog.Handler. The returned handler shares the event
// buffer so every logger derived from this run log feeds the same snapshot.
func (l *RunLog) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runLogChild{parent: l, attrs: attrs}
}

// WithGroup implements slog.Handler. Groups are flattened; the run log keeps
// a flat key space.
func (l *RunLog) WithGroup(_ string) slog.Handler {
	return l
}

// Snapshot returns a copy of the accumulated events.
func (l *RunLog) Snapshot() []LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make([]LogEvent, len(l.events))
	copy(snapshot, l.events)

	return snapshot
}

// runLogChild carries pre-bound attrs while appending to the parent buffer.
type runLogChild struct {
	parent *RunLog
	attrs  []slog.Attr
}

func (c *runLogChild) Enabled(ctx context.Context, level slog.Level) bool {
	return c.parent.Enabled(ctx, level)
}

func (c *runLogChild) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(c.attrs...)
	return c.parent.Handle(ctx, record)
}

func (c *runLogChild) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	merged = append(merged, c.attrs...)
	merged = append(merged, attrs...)

	return &runLogChild{parent: c.parent, attrs: merged}
}

func (c *runLogChild) WithGroup(_ string) slog.Handler {
	return c
}
