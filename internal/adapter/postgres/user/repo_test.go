package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/roomcast/internal/domain"
)

var userCols = []string{"id", "email", "username", "name", "role", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return New(mock), mock
}

func TestRepo_GetByID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
		check   func(t *testing.T, u *domain.User)
	}{
		{
			name: "found",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userCols).
					AddRow(id, "alice@example.com", "alice", "Alice", "admin", now, now)
				mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
					WithArgs(id).
					WillReturnRows(rows)
			},
			check: func(t *testing.T, u *domain.User) {
				assert.Equal(t, id, u.ID)
				assert.Equal(t, "alice", u.Username)
				assert.True(t, u.IsAdmin())
			},
		},
		{
			name: "not found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
					WithArgs(id).
					WillReturnRows(pgxmock.NewRows(userCols))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "no rows error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT`).
					WithArgs(id).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMockRepo(t)
			tt.setup(mock)

			got, err := repo.GetByID(context.Background(), id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestRepo_GetByIDs(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC()

	repo, mock := newMockRepo(t)
	rows := pgxmock.NewRows(userCols).
		AddRow(a, "a@example.com", "a", "A", "user", now, now).
		AddRow(b, "b@example.com", "b", "B", "user", now, now)
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = ANY\(\$1\)`).
		WithArgs([]uuid.UUID{a, b}).
		WillReturnRows(rows)

	got, err := repo.GetByIDs(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)
}

func TestRepo_GetByIDs_Empty(t *testing.T) {
	t.Parallel()

	repo, _ := newMockRepo(t)

	got, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepo_GetByIDs_QueryError(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	boom := errors.New("connection refused")
	mock.ExpectQuery(`SELECT`).WillReturnError(boom)

	_, err := repo.GetByIDs(context.Background(), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, boom)
}

func TestRepo_Upsert(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	id := uuid.New()

	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`(?s)INSERT INTO users .* ON CONFLICT \(email\) DO UPDATE SET updated_at = now\(\) RETURNING`).
		WithArgs(id, "dev@example.com", "dev", "Dev", "user").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "dev@example.com", "dev", "Dev", "user", now, now))

	got, err := repo.Upsert(context.Background(), domain.User{ID: id, Email: "dev@example.com", Username: "dev", Name: "Dev"})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.UserRoleUser, got.Role)
}

func TestRepo_Upsert_UsernameTaken(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "dev@example.com", "taken", "", "admin").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Upsert(context.Background(), domain.User{Email: "dev@example.com", Username: "taken", Role: domain.UserRoleAdmin})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRepo_SetRole(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	id := uuid.New()

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "promoted",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users SET role = \$2, updated_at = now\(\) WHERE email = \$1`).
					WithArgs("a@example.com", "admin").
					WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "a@example.com", "a", "A", "admin", now, now))
			},
		},
		{
			name: "unknown email",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users`).
					WithArgs("a@example.com", "admin").
					WillReturnRows(pgxmock.NewRows(userCols))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "role rejected by check",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE users`).
					WithArgs("a@example.com", "admin").
					WillReturnError(&pgconn.PgError{Code: "23514"})
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMockRepo(t)
			tt.setup(mock)

			got, err := repo.SetRole(context.Background(), "a@example.com", domain.UserRoleAdmin)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.IsAdmin())
		})
	}
}
