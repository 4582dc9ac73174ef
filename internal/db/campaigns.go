package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/trendcast/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const campaignColumns = `
	id, trend, category, status, brand_name, scene_count, auto_publish,
	hero_concept, slogan, social_post, moodboard, copy_source, image_urls,
	clip_paths, narration_path, video_path, render_stats, error_code, error_message,
	created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner, c *models.Campaign) error {
	return row.Scan(
		&c.ID, &c.Trend, &c.Category, &c.Status, &c.BrandName, &c.SceneCount,
		&c.AutoPublish, &c.HeroConcept, &c.Slogan, &c.SocialPost, &c.Moodboard,
		&c.CopySource, pq.Array(&c.ImageURLs), pq.Array(&c.ClipPaths), &c.NarrationPath, &c.VideoPath,
		&c.RenderStats, &c.ErrorCode, &c.ErrorMessage,
		&c.CreatedAt, &c.UpdatedAt,
	)
}

func (db *DB) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, trend, category, status, brand_name, scene_count, auto_publish
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		c.ID, c.Trend, c.Category, c.Status, c.BrandName, c.SceneCount, c.AutoPublish,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (db *DB) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c := &models.Campaign{}
	err := scanCampaign(db.QueryRowContext(ctx, query, id), c)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("campaign not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return c, nil
}

// ListCampaigns returns campaigns newest first, optionally filtered by status.
func (db *DB) ListCampaigns(ctx context.Context, status string, limit, offset int) ([]models.Campaign, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `SELECT ` + campaignColumns + ` FROM campaigns`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, rows.Err()
}

func (db *DB) CountCampaigns(ctx context.Context, status string) (int, error) {
	var count int
	var err error
	if status != "" {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns WHERE status = $1`, status).Scan(&count)
	} else {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return count, nil
}

// HasRecentCampaign reports whether the trend already produced a campaign
// in the last day, so the scheduler does not repeat itself.
func (db *DB) HasRecentCampaign(ctx context.Context, trend string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM campaigns
			WHERE lower(trend) = lower($1) AND created_at > NOW() - INTERVAL '24 hours'
		)
	`
	var exists bool
	if err := db.QueryRowContext(ctx, query, trend).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check recent campaigns: %w", err)
	}
	return exists, nil
}

func (db *DB) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status models.CampaignStatus) error {
	query := `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateCampaignError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE campaigns
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.CampaignStatusFailed, errorCode, errorMessage, id)
	return err
}

func (db *DB) SetCampaignCopy(ctx context.Context, id uuid.UUID, heroConcept, slogan, socialPost, moodboard, source string) error {
	query := `
		UPDATE campaigns
		SET hero_concept = $1, slogan = $2, social_post = $3, moodboard = $4,
			copy_source = $5, updated_at = NOW()
		WHERE id = $6
	`
	_, err := db.ExecContext(ctx, query, heroConcept, slogan, socialPost, moodboard, source, id)
	return err
}

func (db *DB) SetCampaignImages(ctx context.Context, id uuid.UUID, urls []string) error {
	query := `UPDATE campaigns SET image_urls = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, pq.Array(urls), id)
	return err
}

func (db *DB) SetCampaignClips(ctx context.Context, id uuid.UUID, paths []string) error {
	query := `UPDATE campaigns SET clip_paths = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, pq.Array(paths), id)
	return err
}

func (db *DB) SetCampaignNarration(ctx context.Context, id uuid.UUID, path string) error {
	query := `UPDATE campaigns SET narration_path = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, path, id)
	return err
}

func (db *DB) SetCampaignVideo(ctx context.Context, id uuid.UUID, path string, stats models.JSONB) error {
	query := `
		UPDATE campaigns
		SET video_path = $1, render_stats = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, path, stats, id)
	return err
}
