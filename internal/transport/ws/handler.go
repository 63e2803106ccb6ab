package ws

import (
	"context"
	"fmt"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// Handler serves the requests addressed to one namespace. The returned value
// becomes the data of a 200 response; an error is mapped to a status.
type Handler interface {
	Handle(ctx context.Context, sc *scope.Scope) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, sc *scope.Scope) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, sc *scope.Scope) (any, error) {
	return f(ctx, sc)
}

// Actions routes a namespace by the request action.
type Actions map[string]HandlerFunc

func (a Actions) Handle(ctx context.Context, sc *scope.Scope) (any, error) {
	fn, ok := a[sc.Action()]
	if !ok {
		return nil, fmt.Errorf("action %q: %w", sc.Action(), domain.ErrNotFound)
	}
	return fn(ctx, sc)
}

type subscriber interface {
	Subscribe(ctx context.Context, sc *scope.Scope) error
	Unsubscribe(ctx context.Context, sc *scope.Scope) error
}

// SubscriptionHandler exposes subscribe and unsubscribe actions backed by a
// change dispatcher.
func SubscriptionHandler(d subscriber) Actions {
	return Actions{
		"subscribe": func(ctx context.Context, sc *scope.Scope) (any, error) {
			if err := d.Subscribe(ctx, sc); err != nil {
				return nil, err
			}
			return map[string]any{}, nil
		},
		"unsubscribe": func(ctx context.Context, sc *scope.Scope) (any, error) {
			if err := d.Unsubscribe(ctx, sc); err != nil {
				return nil, err
			}
			return map[string]any{}, nil
		},
	}
}
