// Package settings_repo provides PostgreSQL persistence for key-value
// application settings.
package settings_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/settings"
	"stockbook/internal/infrastructure/storage/postgres"
)

const settingTable = "app_settings"

// Repo implements settings.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new settings repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// Get retrieves one setting.
func (r *Repo) Get(ctx context.Context, key string) (*settings.Setting, error) {
	sql := `SELECT key, value, updated_at FROM app_settings WHERE key = $1`

	s := &settings.Setting{}
	if err := pgxscan.Get(ctx, r.querier(ctx), s, sql, key); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(settingTable, key)
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return s, nil
}

// Upsert writes a setting, overwriting any existing value.
func (r *Repo) Upsert(ctx context.Context, key, value string) error {
	sql := `INSERT INTO app_settings (key, value, updated_at)
	        VALUES ($1, $2, NOW())
	        ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`

	if _, err := r.querier(ctx).Exec(ctx, sql, key, value); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// Delete removes a setting.
func (r *Repo) Delete(ctx context.Context, key string) error {
	sql := `DELETE FROM app_settings WHERE key = $1`

	result, err := r.querier(ctx).Exec(ctx, sql, key)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(settingTable, key)
	}
	return nil
}

// All returns every setting ordered by key.
func (r *Repo) All(ctx context.Context) ([]*settings.Setting, error) {
	sql := `SELECT key, value, updated_at FROM app_settings ORDER BY key ASC`

	var out []*settings.Setting
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return out, nil
}
