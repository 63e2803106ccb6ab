// Package changefeed is the in-process mutation signal: writers announce
// saved and deleted entities, observers receive them synchronously.
package changefeed

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// SaveFunc receives a saved entity; created distinguishes insert from update.
type SaveFunc[T any] func(ctx context.Context, v T, created bool)

// DeleteFunc receives an entity that was just removed.
type DeleteFunc[T any] func(ctx context.Context, v T)

// Feed fans mutation notifications of one entity type out to receivers in
// registration order. A panicking receiver is logged and skipped.
type Feed[T any] struct {
	mu       sync.RWMutex
	onSave   []SaveFunc[T]
	onDelete []DeleteFunc[T]
	log      *slog.Logger
}

// New creates a Feed for the named kind.
func New[T any](log *slog.Logger, kind string) *Feed[T] {
	return &Feed[T]{log: log.With("component", "changefeed", "kind", kind)}
}

// OnSave registers a receiver for save notifications.
func (f *Feed[T]) OnSave(fn SaveFunc[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSave = append(f.onSave, fn)
}

// OnDelete registers a receiver for delete notifications.
func (f *Feed[T]) OnDelete(fn DeleteFunc[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDelete = append(f.onDelete, fn)
}

// Saved notifies save receivers.
func (f *Feed[T]) Saved(ctx context.Context, v T, created bool) {
	f.mu.RLock()
	receivers := f.onSave
	f.mu.RUnlock()

	for _, fn := range receivers {
		f.call(ctx, "save", func() { fn(ctx, v, created) })
	}
}

// Deleted notifies delete receivers.
func (f *Feed[T]) Deleted(ctx context.Context, v T) {
	f.mu.RLock()
	receivers := f.onDelete
	f.mu.RUnlock()

	for _, fn := range receivers {
		f.call(ctx, "delete", func() { fn(ctx, v) })
	}
}

func (f *Feed[T]) call(ctx context.Context, signal string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.log.ErrorContext(ctx, "receiver panic recovered",
				slog.String("signal", signal),
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
