package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voltgate/internal/models"
)

const authorizationModeKey = "authorization_mode"

// SettingsRepository reads operational settings. The administrative surface
// writes them; the gateway re-reads on every use so out-of-band changes take
// effect without a restart.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository returns repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// AuthorizationSettings returns the authorization-mode singleton, falling
// back to strict defaults when no row exists yet.
func (r *SettingsRepository) AuthorizationSettings(ctx context.Context) (models.AuthorizationSettings, error) {
	const query = `
		SELECT value
		FROM settings
		WHERE key = $1
	`
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, authorizationModeKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultAuthorizationSettings(), nil
	}
	if err != nil {
		return models.AuthorizationSettings{}, err
	}

	settings := models.DefaultAuthorizationSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return models.AuthorizationSettings{}, fmt.Errorf("settings: decode %s: %w", authorizationModeKey, err)
	}
	return settings, nil
}
