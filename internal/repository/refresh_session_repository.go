package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/session-service/internal/domain"
)

// RefreshSessionRepository manages refresh credential persistence. Only hashes are stored.
type RefreshSessionRepository interface {
	Create(ctx context.Context, session *domain.RefreshSession) error
	GetByHash(ctx context.Context, hash string) (*domain.RefreshSession, error)
	// Revoke marks the session revoked and reports whether it was active before the call.
	Revoke(ctx context.Context, hash string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type refreshSessionRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshSessionRepository constructs repository.
func NewRefreshSessionRepository(pool *pgxpool.Pool) RefreshSessionRepository {
	return &refreshSessionRepository{pool: pool}
}

func (r *refreshSessionRepository) Create(ctx context.Context, session *domain.RefreshSession) error {
	const query = `
        INSERT INTO refresh_sessions (user_id, token_hash, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
	return mapPgError(err)
}

func (r *refreshSessionRepository) GetByHash(ctx context.Context, hash string) (*domain.RefreshSession, error) {
	const query = `
        SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
        FROM refresh_sessions WHERE token_hash=$1`
	var session domain.RefreshSession
	if err := r.pool.QueryRow(ctx, query, hash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &session, nil
}

func (r *refreshSessionRepository) Revoke(ctx context.Context, hash string) (bool, error) {
	const query = `
        UPDATE refresh_sessions SET revoked_at=NOW()
        WHERE token_hash=$1 AND revoked_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, hash)
	if err != nil {
		return false, mapPgError(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *refreshSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM refresh_sessions WHERE expires_at < $1`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, mapPgError(err)
	}
	return cmd.RowsAffected(), nil
}
