package db

import (
	"context"
	"fmt"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateAsset(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (
			id, campaign_id, type, storage_path, content_type, byte_size
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		asset.ID, asset.CampaignID, asset.Type,
		asset.StoragePath, asset.ContentType, asset.ByteSize,
	).Scan(&asset.CreatedAt)
}

// GetCampaignAssets lists a campaign's uploads, oldest first.
func (db *DB) GetCampaignAssets(ctx context.Context, campaignID uuid.UUID) ([]models.Asset, error) {
	query := `
		SELECT id, campaign_id, type, storage_path, content_type, byte_size, created_at
		FROM assets
		WHERE campaign_id = $1
		ORDER BY created_at
	`

	rows, err := db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(
			&a.ID, &a.CampaignID, &a.Type, &a.StoragePath,
			&a.ContentType, &a.ByteSize, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}

	return assets, rows.Err()
}
