package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/dbx"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
)

// PostgresRepository keeps refresh tokens in the refresh_tokens table. It
// works over *sql.DB as well as *sql.Tx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t models.RefreshToken) error {
	const q = `
		INSERT INTO refresh_tokens (digest, user_id, auth_time, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, q, t.Digest, t.UserID, t.AuthTime, t.ExpiresAt); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, digest string) (*models.RefreshToken, error) {
	const q = `
		SELECT digest, user_id, auth_time, expires_at
		FROM refresh_tokens
		WHERE digest = $1
	`
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, q, digest).Scan(&t.Digest, &t.UserID, &t.AuthTime, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, digest string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE digest = $1`, digest); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete refresh tokens of user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1 AND expires_at <= $2`, userID, now)
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return n, nil
}
