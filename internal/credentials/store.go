package credentials

import (
	"encoding/json"
	"errors"
	"time"

	"api/internal/cache"
	"api/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IStore reads and writes the single active code credential per user.
// Get returns (nil, nil) when the user has no code credential; only storage
// failures surface as errors.
type IStore interface {
	Get(realm string, userID uuid.UUID) (*models.Credential, error)
	Put(credential models.Credential) (models.Credential, error)
	Remove(realm string, userID uuid.UUID) error
}

// credentialView is the cached projection of a credential row. It lives in a
// separate struct because the secret value is excluded from the model's JSON.
type credentialView struct {
	Value      string    `json:"value"`
	IssuedAt   time.Time `json:"issued_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// GormStore persists credentials in Postgres with a read-through cache in
// front. The cache is optional; with a nil cache every read hits the database.
type GormStore struct {
	DB    *gorm.DB
	Cache cache.ICache
}

func NewGormStore(db *gorm.DB, c cache.ICache) *GormStore {
	return &GormStore{DB: db, Cache: c}
}

func (s *GormStore) Get(realm string, userID uuid.UUID) (*models.Credential, error) {
	if s.Cache != nil {
		payload, ok, err := s.Cache.GetCredentialView(realm, userID.String())
		if err != nil {
			zap.L().Warn("Credential cache read failed", zap.Error(err))
		} else if ok {
			var view credentialView
			if decodeErr := json.Unmarshal([]byte(payload), &view); decodeErr != nil {
				zap.L().Warn("Evicting undecodable credential cache entry", zap.Error(decodeErr))
				_ = s.Cache.DeleteCredentialView(realm, userID.String())
			} else {
				return &models.Credential{
					Realm:      realm,
					UserID:     userID,
					Type:       models.CredentialTypeCode,
					Value:      view.Value,
					IssuedAt:   view.IssuedAt,
					TTLSeconds: view.TTLSeconds,
				}, nil
			}
		}
	}

	var credential models.Credential
	err := s.DB.Where("realm = ? AND user_id = ? AND type = ?", realm, userID, models.CredentialTypeCode).
		First(&credential).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	s.fillCache(&credential)

	return &credential, nil
}

// Put upserts the user's code credential. The unique index on
// (realm, user_id, type) makes concurrent issues resolve last-write-wins, so
// at most one active code exists per user at any point.
func (s *GormStore) Put(credential models.Credential) (models.Credential, error) {
	credential.Type = models.CredentialTypeCode

	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "realm"}, {Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value", "issued_at", "ttl_seconds", "updated_at",
		}),
	}).Create(&credential).Error
	if err != nil {
		return models.Credential{}, err
	}

	// Write then invalidate. Evicting instead of updating keeps the cache a
	// pure projection of the row that was actually committed.
	s.evictCache(credential.Realm, credential.UserID)

	return credential, nil
}

func (s *GormStore) Remove(realm string, userID uuid.UUID) error {
	err := s.DB.Where("realm = ? AND user_id = ? AND type = ?", realm, userID, models.CredentialTypeCode).
		Delete(&models.Credential{}).Error
	if err != nil {
		return err
	}

	s.evictCache(realm, userID)

	return nil
}

func (s *GormStore) fillCache(credential *models.Credential) {
	if s.Cache == nil {
		return
	}

	view := credentialView{
		Value:      credential.Value,
		IssuedAt:   credential.IssuedAt,
		TTLSeconds: credential.TTLSeconds,
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return
	}

	// Cache entries live as long as the code can possibly be valid. A stale
	// entry past that point would only ever report "expired" anyway, but
	// bounding the TTL keeps dead users out of the cache.
	if err := s.Cache.SetCredentialView(credential.Realm, credential.UserID.String(), string(payload), credential.TTLSeconds); err != nil {
		zap.L().Warn("Credential cache write failed", zap.Error(err))
	}
}

func (s *GormStore) evictCache(realm string, userID uuid.UUID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.DeleteCredentialView(realm, userID.String()); err != nil {
		zap.L().Warn("Credential cache eviction failed", zap.Error(err))
	}
}
