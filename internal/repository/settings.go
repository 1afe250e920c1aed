package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch-go/internal/service/settings"
)

const deliverySettingsType = "delivery"

// SettingsRepo stores settings documents by type.
type SettingsRepo struct{ db *pgxpool.Pool }

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *pgxpool.Pool) *SettingsRepo { return &SettingsRepo{db: db} }

// GetDelivery - returns the stored dispatch settings, nil when never set.
func (r *SettingsRepo) GetDelivery(ctx context.Context) (*settings.DeliverySettings, error) {
	var raw []byte
	err := r.db.QueryRow(ctx,
		`SELECT value FROM settings WHERE type = $1`, deliverySettingsType,
	).Scan(&raw)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, upstream(err, "get delivery settings")
	}

	var s settings.DeliverySettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode delivery settings: %w", err)
	}
	return &s, nil
}

// SaveDelivery - upserts the dispatch settings document.
func (r *SettingsRepo) SaveDelivery(ctx context.Context, s settings.DeliverySettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode delivery settings: %w", err)
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO settings (type, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (type) DO UPDATE SET value = $2, updated_at = now()
    `, deliverySettingsType, raw)
	if err != nil {
		return upstream(err, "save delivery settings")
	}
	return nil
}
