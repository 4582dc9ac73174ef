package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/trendcast/internal/models"
)

const postColumns = `
	id, post_id, campaign_id, trend, caption, media_url, media_type,
	permalink, status, created_at
`

func (db *DB) SavePost(ctx context.Context, p *models.Post) error {
	query := `
		INSERT INTO posts (
			id, post_id, campaign_id, trend, caption, media_url, media_type, permalink, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (post_id) DO UPDATE SET status = EXCLUDED.status
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		p.ID, p.PostID, p.CampaignID, p.Trend, p.Caption, p.MediaURL,
		p.MediaType, p.Permalink, p.Status,
	).Scan(&p.CreatedAt)
}

// ListPosts returns active posts newest first.
func (db *DB) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := db.QueryContext(ctx, query, models.PostStatusActive, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

func (db *DB) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE post_id = $1`

	p := &models.Post{}
	err := scanPost(db.QueryRowContext(ctx, query, postID), p)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func (db *DB) MarkPostDeleted(ctx context.Context, postID string) error {
	_, err := db.ExecContext(ctx, `UPDATE posts SET status = $1 WHERE post_id = $2`, models.PostStatusDeleted, postID)
	return err
}

func scanPost(row rowScanner, p *models.Post) error {
	return row.Scan(
		&p.ID, &p.PostID, &p.CampaignID, &p.Trend, &p.Caption, &p.MediaURL,
		&p.MediaType, &p.Permalink, &p.Status, &p.CreatedAt,
	)
}
