// Package widget implements the Widget repository using PostgreSQL.
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/roomcast/internal/adapter/postgres"
	"github.com/heartmarshall/roomcast/internal/domain"
)

const table = "widgets"

var columns = []string{"id", "owner_id", "name", "payload", "created_at", "updated_at"}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo provides widget persistence.
type Repo struct {
	db postgres.Querier
}

// New creates a new widget repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// GetByID returns a widget by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Widget, error) {
	query := psql.Select(columns...).From(table).Where(sq.Eq{"id": id})
	return r.one(ctx, query, id)
}

// Create inserts w and returns the stored row.
func (r *Repo) Create(ctx context.Context, w *domain.Widget) (*domain.Widget, error) {
	query := psql.Insert(table).
		Columns(columns...).
		Values(w.ID, w.OwnerID, w.Name, payloadOrEmpty(w.Payload), w.CreatedAt, w.UpdatedAt).
		Suffix(returning())
	return r.one(ctx, query, w.ID)
}

// Update changes the name and/or payload of a widget. Nil arguments leave
// the column untouched.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, name *string, payload json.RawMessage) (*domain.Widget, error) {
	query := psql.Update(table).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix(returning())
	if name != nil {
		query = query.Set("name", *name)
	}
	if payload != nil {
		query = query.Set("payload", payload)
	}
	return r.one(ctx, query, id)
}

// Delete removes a widget and returns the deleted row.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (*domain.Widget, error) {
	query := psql.Delete(table).Where(sq.Eq{"id": id}).Suffix(returning())
	return r.one(ctx, query, id)
}

func (r *Repo) one(ctx context.Context, query sq.Sqlizer, id uuid.UUID) (*domain.Widget, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build widget query: %w", err)
	}

	var w domain.Widget
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &w, sql, args...); err != nil {
		return nil, postgres.MapError(err, "widget", id)
	}
	return &w, nil
}

func returning() string {
	return "RETURNING " + strings.Join(columns, ", ")
}

func payloadOrEmpty(p json.RawMessage) json.RawMessage {
	if len(p) == 0 {
		return json.RawMessage(`{}`)
	}
	return p
}
