package rbac

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	PhoneNumber       string     `json:"phone_number" gorm:"size:16;not null;uniqueIndex"`
	Email             string     `json:"email" gorm:"size:64;uniqueIndex"`
	PasswordHash      string     `json:"-" gorm:"size:512"`
	DisplayName       string     `json:"display_name" gorm:"size:64"`
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	Verified          bool       `json:"verified"`
	IsSuperuser       bool       `json:"is_superuser"`
	IsAdmin           bool       `json:"is_admin"`
	LastLoginAt       *time.Time `json:"last_login_at"`
	PasswordChangedAt *time.Time `json:"password_changed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Roles []Role `json:"roles,omitempty" gorm:"many2many:user_roles"`
}

type Role struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Code     string    `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Name     string    `json:"name" gorm:"size:64"`
	IsActive bool      `json:"is_active" gorm:"default:true"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions"`
}

// Resource is a permission target. Parent resources (codes without a colon)
// exist for grouping only and never receive permissions themselves.
type Resource struct {
	ID       uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Code     string     `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Name     string     `json:"name" gorm:"size:64"`
	ParentID *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	IsActive bool       `json:"is_active" gorm:"default:true"`
}

type Verb struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Action      string    `json:"action" gorm:"size:32;not null;uniqueIndex"`
	DisplayName string    `json:"display_name" gorm:"size:64"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
}

// Permission is one resource x verb pair, e.g. "system:user:read".
type Permission struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ResourceID  uuid.UUID `json:"resource_id" gorm:"type:uuid;not null;uniqueIndex:idx_permissions_resource_verb"`
	VerbID      uuid.UUID `json:"verb_id" gorm:"type:uuid;not null;uniqueIndex:idx_permissions_resource_verb"`
	Code        string    `json:"code" gorm:"size:128;not null;uniqueIndex"`
	DisplayName string    `json:"display_name" gorm:"size:128"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
}

type RolePermission struct {
	RoleID       uuid.UUID `json:"role_id" gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `json:"permission_id" gorm:"type:uuid;primaryKey"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (v *Verb) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Models lists every table the package owns, in migration order.
func Models() []any {
	return []any{
		&User{},
		&Role{},
		&Resource{},
		&Verb{},
		&Permission{},
		&RolePermission{},
	}
}
