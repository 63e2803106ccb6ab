// Package user stores users in PostgreSQL.
package user

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/roomcast/internal/adapter/postgres"
	"github.com/heartmarshall/roomcast/internal/domain"
)

const (
	userColumns = `id, email, username, name, role, created_at, updated_at`
	selectUsers = `SELECT ` + userColumns + ` FROM users`
)

// Repo provides access to users.
type Repo struct {
	db postgres.Querier
}

// New creates a new user repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// GetByID returns a user by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var row userRow
	err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, selectUsers+` WHERE id = $1`, id)
	if err != nil {
		return nil, postgres.MapError(err, "user", id)
	}

	u := row.toDomain()
	return &u, nil
}

// GetByIDs returns the users with the given ids. Unknown ids are skipped;
// the result order is unspecified.
func (r *Repo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []userRow
	err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, selectUsers+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, postgres.MapError(err, "users", uuid.Nil)
	}

	users := make([]domain.User, len(rows))
	for i, row := range rows {
		users[i] = row.toDomain()
	}
	return users, nil
}

// Upsert inserts u, or returns the existing user with the same email.
func (r *Repo) Upsert(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = domain.UserRoleUser
	}

	var row userRow
	err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row,
		`INSERT INTO users (id, email, username, name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING `+userColumns,
		u.ID, u.Email, u.Username, u.Name, string(u.Role),
	)
	if err != nil {
		return nil, postgres.MapError(err, "user", u.ID)
	}

	out := row.toDomain()
	return &out, nil
}

// SetRole changes the role of the user with the given email.
func (r *Repo) SetRole(ctx context.Context, email string, role domain.UserRole) (*domain.User, error) {
	var row userRow
	err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row,
		`UPDATE users SET role = $2, updated_at = now() WHERE email = $1 RETURNING `+userColumns,
		email, string(role),
	)
	if err != nil {
		return nil, postgres.MapError(err, "user", uuid.Nil)
	}

	out := row.toDomain()
	return &out, nil
}

type userRow struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	Username  string    `db:"username"`
	Name      string    `db:"name"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row userRow) toDomain() domain.User {
	return domain.User{
		ID:        row.ID,
		Email:     row.Email,
		Username:  row.Username,
		Name:      row.Name,
		Role:      domain.UserRole(row.Role),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
