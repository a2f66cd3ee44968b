package workers

import (
	"context"
	"testing"
	"time"

	"api/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openChallengeDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// The production schema relies on gen_random_uuid(), which sqlite does
	// not have, so the test table is created by hand.
	err = db.Exec(`CREATE TABLE login_challenges (
		id TEXT PRIMARY KEY,
		realm TEXT NOT NULL,
		user_id TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error
	require.NoError(t, err)

	return db
}

func insertChallenge(t *testing.T, db *gorm.DB, state models.ChallengeState, updatedAt time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Exec(
		"INSERT INTO login_challenges (id, realm, user_id, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, "master", uuid.New(), state, updatedAt, updatedAt,
	).Error
	require.NoError(t, err)

	return id
}

func TestChallengeCleanup(t *testing.T) {
	t.Run("removes challenges past retention", func(t *testing.T) {
		db := openChallengeDB(t)

		stale := insertChallenge(t, db, models.ChallengeStateSucceeded, time.Now().Add(-48*time.Hour))
		insertChallenge(t, db, models.ChallengeStateAborted, time.Now().Add(-25*time.Hour))

		worker := &ChallengeCleanupWorker{DB: db}
		deleted, err := worker.cleanupStaleChallenges(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		var count int64
		require.NoError(t, db.Model(&models.LoginChallenge{}).Where("id = ?", stale).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("keeps recent challenges", func(t *testing.T) {
		db := openChallengeDB(t)

		insertChallenge(t, db, models.ChallengeStateAwaitingInput, time.Now().Add(-10*time.Minute))
		insertChallenge(t, db, models.ChallengeStateSucceeded, time.Now().Add(-time.Hour))

		worker := &ChallengeCleanupWorker{DB: db}
		deleted, err := worker.cleanupStaleChallenges(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 0, deleted)

		var count int64
		require.NoError(t, db.Model(&models.LoginChallenge{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("empty table is a no-op", func(t *testing.T) {
		db := openChallengeDB(t)

		worker := &ChallengeCleanupWorker{DB: db}
		deleted, err := worker.cleanupStaleChallenges(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})
}
