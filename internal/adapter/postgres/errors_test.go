package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/roomcast/internal/domain"
)

func TestMapError_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, MapError(nil, "widget", uuid.New()))
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		want    error
		notWant error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan row: %w", pgx.ErrNoRows), want: domain.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: domain.ErrAlreadyExists},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, want: domain.ErrNotFound},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: domain.ErrValidation},
		{name: "invalid text representation", err: &pgconn.PgError{Code: "22P02"}, want: domain.ErrValidation},
		{name: "wrapped pg error", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: domain.ErrAlreadyExists},
		{name: "deadline passes through", err: context.DeadlineExceeded, want: context.DeadlineExceeded, notWant: domain.ErrNotFound},
		{name: "canceled passes through", err: context.Canceled, want: context.Canceled, notWant: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := MapError(tt.err, "widget", uuid.New())
			require.ErrorIs(t, got, tt.want)
			if tt.notWant != nil {
				assert.NotErrorIs(t, got, tt.notWant)
			}
		})
	}
}

func TestMapError_UnknownPgErrorIsNotMapped(t *testing.T) {
	t.Parallel()

	got := MapError(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, "widget", uuid.New())

	var pgErr *pgconn.PgError
	require.ErrorAs(t, got, &pgErr)
	assert.NotErrorIs(t, got, domain.ErrNotFound)
	assert.NotErrorIs(t, got, domain.ErrAlreadyExists)
	assert.NotErrorIs(t, got, domain.ErrValidation)
}

func TestMapError_Message(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	original := errors.New("something unexpected")

	assert.Equal(t, fmt.Sprintf("widget %s: not found", id), MapError(pgx.ErrNoRows, "widget", id).Error())
	assert.Equal(t, fmt.Sprintf("user %s: something unexpected", id), MapError(original, "user", id).Error())
	assert.ErrorIs(t, MapError(original, "user", id), original)
}
