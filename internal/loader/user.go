// Package loader batches user lookups made while rebuilding scopes received
// from other processes.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"

	"github.com/heartmarshall/roomcast/internal/domain"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

type userRepo interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
}

// UserLoader coalesces concurrent GetByID calls into one query. Results are
// never cached: a deleted user must stop resolving immediately.
type UserLoader struct {
	loader *dataloader.Loader[uuid.UUID, *domain.User]
}

// NewUserLoader creates a UserLoader backed by repo.
func NewUserLoader(repo userRepo) *UserLoader {
	return &UserLoader{
		loader: dataloader.NewBatchedLoader(
			newUsersBatchFn(repo),
			dataloader.WithWait[uuid.UUID, *domain.User](wait),
			dataloader.WithBatchCapacity[uuid.UUID, *domain.User](maxBatch),
			dataloader.WithCache[uuid.UUID, *domain.User](&dataloader.NoCache[uuid.UUID, *domain.User]{}),
		),
	}
}

// GetByID returns the user or an error wrapping domain.ErrNotFound.
func (l *UserLoader) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return l.loader.Load(ctx, id)()
}

func newUsersBatchFn(repo userRepo) dataloader.BatchFunc[uuid.UUID, *domain.User] {
	return func(ctx context.Context, keys []uuid.UUID) []*dataloader.Result[*domain.User] {
		results := make([]*dataloader.Result[*domain.User], len(keys))

		users, err := repo.GetByIDs(ctx, keys)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result[*domain.User]{Error: err}
			}
			return results
		}

		byID := make(map[uuid.UUID]*domain.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}

		for i, k := range keys {
			if u, ok := byID[k]; ok {
				results[i] = &dataloader.Result[*domain.User]{Data: u}
			} else {
				results[i] = &dataloader.Result[*domain.User]{Error: fmt.Errorf("user %s: %w", k, domain.ErrNotFound)}
			}
		}
		return results
	}
}
