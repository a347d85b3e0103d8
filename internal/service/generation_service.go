package service

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/digkill/vidcrafter/internal/metrics"
	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/repository"
)

const (
	// HistoryLimit caps the per-user generation history.
	HistoryLimit = 50
	// RecentLimit caps the administrative log view.
	RecentLimit = 100
)

// GenerationEntry is a client report of one generation attempt.
type GenerationEntry struct {
	VideoType    models.VideoType
	Status       models.GenerationStatus
	Reason       *string
	Prompt       *string
	Orientation  *string
	StoryScript  *string
	Characters   *string
	ResponseData *string
}

type GenerationService struct {
	users       *repository.UserRepository
	generations *repository.GenerationRepository
	log         *slog.Logger
	metrics     *metrics.Metrics
}

func NewGenerationService(users *repository.UserRepository, generations *repository.GenerationRepository, log *slog.Logger, m *metrics.Metrics) *GenerationService {
	return &GenerationService{
		users:       users,
		generations: generations,
		log:         log,
		metrics:     m,
	}
}

// Log appends a generation attempt. A successful cartoon also bumps the user's counter.
func (s *GenerationService) Log(ctx context.Context, userID string, entry GenerationEntry) (*models.GenerationLog, error) {
	if !entry.VideoType.Valid() {
		return nil, ErrInvalidVideoType
	}
	if !entry.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	record := &models.GenerationLog{
		UserID:       userID,
		VideoType:    entry.VideoType,
		Status:       entry.Status,
		Reason:       entry.Reason,
		Prompt:       entry.Prompt,
		Orientation:  entry.Orientation,
		StoryScript:  entry.StoryScript,
		Characters:   entry.Characters,
		ResponseData: entry.ResponseData,
	}
	err := repository.WithTx(ctx, s.generations.DB(), func(tx *sqlx.Tx) error {
		if err := s.generations.Log(ctx, tx, record); err != nil {
			return err
		}
		if record.VideoType == models.VideoTypeCartoon && record.Status == models.GenerationSuccess {
			return s.users.IncrementCartoonCount(ctx, tx, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.GenerationLogsTotal.WithLabelValues(string(record.VideoType), string(record.Status)).Inc()
	if record.Status == models.GenerationFailed {
		s.log.Warn("generation failed", "user_id", userID, "video_type", record.VideoType, "reason", deref(record.Reason))
	}
	return record, nil
}

// History returns the newest generation logs for the user.
func (s *GenerationService) History(ctx context.Context, userID string) ([]models.GenerationLog, error) {
	return s.generations.ListForUser(ctx, userID, HistoryLimit)
}

// Recent returns the newest logs across all users for the admin dashboard.
func (s *GenerationService) Recent(ctx context.Context) ([]models.AdminGenerationLog, error) {
	return s.generations.ListRecent(ctx, RecentLimit)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
