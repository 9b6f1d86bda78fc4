package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapPgError(t *testing.T) {
	t.Parallel()

	require.NoError(t, mapPgError(nil))
	require.ErrorIs(t, mapPgError(pgx.ErrNoRows), ErrNotFound)
	require.ErrorIs(t, mapPgError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
	require.ErrorIs(t, mapPgError(unique), ErrAlreadyExists)
	require.ErrorIs(t, mapPgError(fmt.Errorf("insert: %w", unique)), ErrAlreadyExists)

	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	got := mapPgError(fk)
	require.Same(t, fk, got)
	require.NotErrorIs(t, got, ErrAlreadyExists)

	other := errors.New("connection reset")
	require.Same(t, other, mapPgError(other))
}
