package testhelper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/roomcast/internal/domain"
)

func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser inserts a user with unique email and username.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:        uuid.New(),
		Email:     "user-" + suffix + "@example.com",
		Username:  "user-" + suffix,
		Name:      "Test User " + suffix,
		Role:      domain.UserRoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, username, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.Username, user.Name, string(user.Role), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser: %v", err)
	}

	return user
}

// SeedWidget inserts a widget owned by ownerID.
func SeedWidget(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID) domain.Widget {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	w := domain.Widget{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      "widget-" + uniqueSuffix(),
		Payload:   json.RawMessage(`{}`),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO widgets (id, owner_id, name, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.OwnerID, w.Name, w.Payload, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedWidget: %v", err)
	}

	return w
}
