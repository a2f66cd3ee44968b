package workers

import (
	"context"
	"time"

	"api/internal/models"

	"gorm.io/gorm"
)

const (
	// ChallengeRetention is how long finished or abandoned login challenges
	// are kept before the row is deleted.
	ChallengeRetention = 24 * time.Hour
	ChallengeBatchSize = 500
)

// ChallengeCleanupWorker removes login challenge rows nobody can come back
// to: terminal flows, and flows whose restricted token expired long ago.
// Code credentials are left alone; their staleness is computed on read.
type ChallengeCleanupWorker struct {
	DB          *gorm.DB
	RunInterval time.Duration
}

func (w *ChallengeCleanupWorker) Start(ctx context.Context) {
	StartPeriodicWorker(ctx, "challenge_cleanup", w.RunInterval, []WorkerTask{
		{Name: "stale_challenges", Fn: w.cleanupStaleChallenges},
	})
}

func (w *ChallengeCleanupWorker) cleanupStaleChallenges(_ context.Context) (int, error) {
	threshold := time.Now().Add(-ChallengeRetention)

	batch := w.DB.Model(&models.LoginChallenge{}).
		Select("id").
		Where("updated_at < ?", threshold).
		Limit(ChallengeBatchSize)

	result := w.DB.
		Where("id IN (?)", batch).
		Delete(&models.LoginChallenge{})
	if result.Error != nil {
		return 0, result.Error
	}

	return int(result.RowsAffected), nil
}
