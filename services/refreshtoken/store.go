package refreshtoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTokenNotFound = errors.New("refresh token not found")

// Store is the persistence gateway for token chains and devices. The engine
// only talks to this interface, so alternative backends can be swapped in
// without touching rotation logic.
type Store interface {
	UpsertDevice(ctx context.Context, device *Device) error
	UpdateDevice(ctx context.Context, id uuid.UUID, fields map[string]any) error
	InsertToken(ctx context.Context, token *RefreshToken) error
	UpdateToken(ctx context.Context, id uuid.UUID, fields map[string]any) error
	MarkTokenReplaced(ctx context.Context, id, replacedByID uuid.UUID, usedAt time.Time) (int64, error)
	FindTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	UpdateAllByFamily(ctx context.Context, familyID uuid.UUID, fields map[string]any) error
	RevokeFamily(ctx context.Context, familyID uuid.UUID, at time.Time, reason string) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Transaction(ctx context.Context, fn func(Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// UpsertDevice inserts the device or, on conflict, refreshes the last-seen
// columns. first_seen_at is deliberately absent from the update set.
func (s *GormStore) UpsertDevice(ctx context.Context, device *Device) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"device_name",
			"last_seen_at",
			"last_ip",
			"last_user_agent",
		}),
	}).Create(device).Error
}

func (s *GormStore) UpdateDevice(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&Device{}).Where("id = ?", id).Updates(fields).Error
}

func (s *GormStore) InsertToken(ctx context.Context, token *RefreshToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormStore) UpdateToken(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&RefreshToken{}).Where("id = ?", id).Updates(fields).Error
}

// MarkTokenReplaced stamps replaced_by_id on a token that has not been
// replaced yet. The null guard makes concurrent rotations of the same token
// serialize: exactly one caller sees a row matched, the rest see zero.
func (s *GormStore) MarkTokenReplaced(ctx context.Context, id, replacedByID uuid.UUID, usedAt time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("id = ? AND replaced_by_id IS NULL", id).
		Updates(map[string]any{
			"replaced_by_id": replacedByID,
			"last_used_at":   usedAt,
		})
	return result.RowsAffected, result.Error
}

func (s *GormStore) FindTokenByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	var token RefreshToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	return &token, nil
}

func (s *GormStore) UpdateAllByFamily(ctx context.Context, familyID uuid.UUID, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&RefreshToken{}).Where("family_id = ?", familyID).Updates(fields).Error
}

// RevokeFamily stamps every live token in the family. Rows already revoked
// keep their original timestamp and reason, which makes the operation
// idempotent.
func (s *GormStore) RevokeFamily(ctx context.Context, familyID uuid.UUID, at time.Time, reason string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Updates(map[string]any{
			"revoked_at":     at,
			"revoked_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// DeleteExpiredBefore prunes token rows whose expiry is older than the
// cutoff. Chains are pruned wholesale only once every link is past the
// cutoff, so reuse evidence stays queryable during the grace window.
func (s *GormStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&RefreshToken{})
	return result.RowsAffected, result.Error
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
