package refreshtoken

import (
	"time"

	"github.com/google/uuid"
)

// Device is the durable record of a client endpoint. Rows are upserted on
// every issue and rotate; first_seen_at survives updates.
type Device struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;uniqueIndex:idx_auth_devices_id_user"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_auth_devices_id_user"`
	DeviceName    string    `json:"device_name" gorm:"size:128"`
	FirstSeenAt   time.Time `json:"first_seen_at" gorm:"not null"`
	LastSeenAt    time.Time `json:"last_seen_at" gorm:"not null"`
	LastIP        string    `json:"last_ip" gorm:"size:45"`
	LastUserAgent string    `json:"last_user_agent" gorm:"size:512"`
}

func (Device) TableName() string {
	return "auth_devices"
}

// RefreshToken is one link of a rotation chain. The opaque secret is never
// stored; only its salted hash is. ParentID points backwards along the chain,
// ReplacedByID forwards; a non-nil ReplacedByID on a presented token means
// the token was already spent.
type RefreshToken struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	DeviceID      *uuid.UUID `json:"device_id" gorm:"type:uuid;index"`
	FamilyID      uuid.UUID  `json:"family_id" gorm:"type:uuid;not null;index"`
	ParentID      *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	ReplacedByID  *uuid.UUID `json:"replaced_by_id" gorm:"type:uuid;index"`
	TokenHash     string     `json:"-" gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null;index"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at" gorm:"index"`
	RevokedAt     *time.Time `json:"revoked_at"`
	RevokedReason string     `json:"revoked_reason" gorm:"size:32"`
	IP            string     `json:"ip" gorm:"size:45"`
	UserAgent     string     `json:"user_agent" gorm:"size:512"`
}

func (RefreshToken) TableName() string {
	return "auth_refresh_tokens"
}

func (rt *RefreshToken) Expired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

func (rt *RefreshToken) Revoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) Replaced() bool {
	return rt.ReplacedByID != nil
}
