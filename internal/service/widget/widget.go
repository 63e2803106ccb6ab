package widget

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/pkg/ctxutil"
)

// Create stores a new widget owned by the caller.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Widget, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	w, err := s.widgets.Create(ctx, &domain.Widget{
		ID:        uuid.New(),
		OwnerID:   userID,
		Name:      strings.TrimSpace(input.Name),
		Payload:   input.Payload,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create widget: %w", err)
	}

	s.log.InfoContext(ctx, "widget created",
		slog.String("user_id", userID.String()),
		slog.String("widget_id", w.ID.String()),
	)

	s.feed.Saved(ctx, w, true)
	return w, nil
}

// Get returns a widget the caller may read.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Widget, error) {
	w, err := s.authorize(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get widget: %w", err)
	}
	return w, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.Widget, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var name *string
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		name = &trimmed
	}

	var updated *domain.Widget
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.authorize(ctx, input.ID); err != nil {
			return err
		}
		var err error
		updated, err = s.widgets.Update(ctx, input.ID, name, input.Payload)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update widget: %w", err)
	}

	s.log.InfoContext(ctx, "widget updated", slog.String("widget_id", updated.ID.String()))

	s.feed.Saved(ctx, updated, false)
	return updated, nil
}

// Delete removes a widget and returns its last state.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*domain.Widget, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}

	var deleted *domain.Widget
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.authorize(ctx, id); err != nil {
			return err
		}
		var err error
		deleted, err = s.widgets.Delete(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete widget: %w", err)
	}

	s.log.InfoContext(ctx, "widget deleted", slog.String("widget_id", id.String()))

	s.feed.Deleted(ctx, deleted)
	return deleted, nil
}
