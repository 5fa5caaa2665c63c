package resetcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/dbx"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, code *models.ResetCode) error {
	query := `
		INSERT INTO reset_codes (code, user_id, email, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, code.Code, code.UserID, code.Email, code.Expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, code string) (*models.ResetCode, error) {
	query := `
		SELECT code, user_id, email, expires_at
		FROM reset_codes
		WHERE code = $1
	`
	rc := &models.ResetCode{}
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&rc.Code, &rc.UserID, &rc.Email, &rc.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rc, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, code string) error {
	query := `
		DELETE FROM reset_codes
		WHERE code = $1
	`
	if _, err := r.db.ExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
