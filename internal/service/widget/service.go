// Package widget is the example change source: CRUD over widgets that
// announces every successful write on the widget change feed.
package widget

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/changefeed"
	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/pkg/ctxutil"
)

type widgetRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Widget, error)
	Create(ctx context.Context, w *domain.Widget) (*domain.Widget, error)
	Update(ctx context.Context, id uuid.UUID, name *string, payload json.RawMessage) (*domain.Widget, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Widget, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service provides widget operations.
type Service struct {
	widgets widgetRepo
	tx      txManager
	feed    *changefeed.Feed[*domain.Widget]
	log     *slog.Logger
}

// NewService creates a new widget service.
func NewService(
	log *slog.Logger,
	widgets widgetRepo,
	tx txManager,
	feed *changefeed.Feed[*domain.Widget],
) *Service {
	return &Service{
		widgets: widgets,
		tx:      tx,
		feed:    feed,
		log:     log.With("service", "widget"),
	}
}

// authorize loads the widget and checks that the caller owns it or is an admin.
func (s *Service) authorize(ctx context.Context, id uuid.UUID) (*domain.Widget, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	w, err := s.widgets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != userID && !ctxutil.IsAdminCtx(ctx) {
		return nil, domain.ErrForbidden
	}
	return w, nil
}
