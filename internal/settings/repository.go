package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"makerspace/internal/db"
)

var ErrSettingNotFound = errors.New("setting not found")

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetSetting(ctx context.Context, key string) (*Setting, error) {
	query := `
		SELECT key, value, updated_at
		FROM admin_settings
		WHERE key = $1
	`

	var s Setting
	err := db.Conn(ctx, r.db).GetContext(ctx, &s, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}

	return &s, nil
}

func (r *PostgresRepository) UpsertSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO admin_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := db.Conn(ctx, r.db).ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert setting %q: %w", key, err)
	}
	return nil
}

func (r *PostgresRepository) ListSettings(ctx context.Context) ([]Setting, error) {
	query := `
		SELECT key, value, updated_at
		FROM admin_settings
		ORDER BY key
	`

	settings := []Setting{}
	if err := db.Conn(ctx, r.db).SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}
