package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Callback receives an inbound message.
type Callback func(ctx context.Context, msg Message) error

// Filter decides from a message filter map whether a listener wants the
// message.
type Filter func(filter map[string]string) bool

type listener struct {
	cb     Callback
	filter Filter
}

// listeners is the callback set shared by every transport.
type listeners struct {
	mu    sync.RWMutex
	items []listener
}

func (l *listeners) add(cb Callback, filter Filter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, listener{cb: cb, filter: filter})
}

// notify calls every matching listener. A listener matches when either side
// has no filter or the listener filter accepts the message filter. One
// failing or panicking listener never stops the rest.
func (l *listeners) notify(ctx context.Context, msg Message) error {
	l.mu.RLock()
	items := make([]listener, len(l.items))
	copy(items, l.items)
	l.mu.RUnlock()

	var errs []error
	for i, it := range items {
		if it.filter != nil && len(msg.Filter) > 0 && !it.filter(msg.Filter) {
			continue
		}
		if err := invoke(ctx, it.cb, msg); err != nil {
			errs = append(errs, fmt.Errorf("listener %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func invoke(ctx context.Context, cb Callback, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cb(ctx, msg)
}
