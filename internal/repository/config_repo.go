package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"controlling_shade/internal/config"
)

// ConfigSQLite keeps the settings as one JSON document in a single-row table.
type ConfigSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewConfigSQLite(db *sql.DB) *ConfigSQLite {
	return &ConfigSQLite{db: db, now: time.Now}
}

const (
	deviceConfigRowID = 1

	upsertConfigSQL = `
		INSERT INTO device_config (id, settings, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			settings=excluded.settings,
			updated_at=excluded.updated_at
	`

	selectConfigSQL = `SELECT settings FROM device_config WHERE id=?`
)

// Save replaces the stored settings.
func (r *ConfigSQLite) Save(ctx context.Context, s config.Settings) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, upsertConfigSQL, deviceConfigRowID, string(b), r.now().UTC()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Load decodes the stored settings over the factory defaults, so fields
// added since the row was written keep their default values.
func (r *ConfigSQLite) Load(ctx context.Context) (config.Settings, bool, error) {
	var raw string
	if err := r.db.QueryRowContext(ctx, selectConfigSQL, deviceConfigRowID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return config.Settings{}, false, nil
		}
		return config.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}

	s := config.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return config.Settings{}, false, fmt.Errorf("decode settings: %w", err)
	}
	return s.Normalize(), true, nil
}
