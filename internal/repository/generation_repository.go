package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/digkill/vidcrafter/internal/models"
)

type GenerationRepository struct {
	db *sqlx.DB
}

func NewGenerationRepository(db *sqlx.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) DB() *sqlx.DB {
	return r.db
}

func (r *GenerationRepository) Log(ctx context.Context, q Querier, entry *models.GenerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := q.Rebind(`
INSERT INTO generation_logs (id, user_id, video_type, status, reason, prompt, orientation, story_script, characters, response_data, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.VideoType, entry.Status, entry.Reason, entry.Prompt,
		entry.Orientation, entry.StoryScript, entry.Characters, entry.ResponseData, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	return nil
}

func (r *GenerationRepository) CountForUser(ctx context.Context, userID string, videoType models.VideoType, status models.GenerationStatus) (int, error) {
	query := r.db.Rebind(`
SELECT COUNT(*) FROM generation_logs
WHERE user_id = ? AND video_type = ? AND status = ?`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, videoType, status); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return count, nil
}

// ListForUser returns the user's logs newest first.
func (r *GenerationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.GenerationLog, error) {
	query := r.db.Rebind(`
SELECT id, user_id, video_type, status, reason, prompt, orientation, story_script, characters, response_data, created_at
FROM generation_logs
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`)
	logs := []models.GenerationLog{}
	if err := r.db.SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list generation logs: %w", err)
	}
	return logs, nil
}

// ListRecent returns the newest logs across all users with each owner's email.
func (r *GenerationRepository) ListRecent(ctx context.Context, limit int) ([]models.AdminGenerationLog, error) {
	query := r.db.Rebind(`
SELECT g.id, g.user_id, g.video_type, g.status, g.reason, g.prompt, g.orientation, g.story_script,
       g.characters, g.response_data, g.created_at, COALESCE(u.email, '') AS user_email
FROM generation_logs g
LEFT JOIN users u ON u.id = g.user_id
ORDER BY g.created_at DESC, g.id DESC
LIMIT ?`)
	logs := []models.AdminGenerationLog{}
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("list recent generation logs: %w", err)
	}
	return logs, nil
}

// CountByStatus counts all logs; an empty status counts every entry.
func (r *GenerationRepository) CountByStatus(ctx context.Context, status models.GenerationStatus) (int, error) {
	var count int
	var err error
	if status == "" {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM generation_logs`)
	} else {
		err = r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM generation_logs WHERE status = ?`), status)
	}
	if err != nil {
		return 0, fmt.Errorf("count generation logs: %w", err)
	}
	return count, nil
}
