package rbac

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/confportal/authcore/services/logging"
)

// AdminRoleCode is the single managed role; the seeder grants it every
// permission outside excludedPermissionPrefixes.
const AdminRoleCode = "admin"

var seedVerbs = []Verb{
	{Action: "create", DisplayName: "Create"},
	{Action: "read", DisplayName: "Read"},
	{Action: "modify", DisplayName: "Modify"},
	{Action: "delete", DisplayName: "Delete"},
}

var seedParentResources = []Resource{
	{Code: "system", Name: "System Administration"},
	{Code: "comms", Name: "Communications"},
	{Code: "conference", Name: "Conference Management"},
	{Code: "workshop", Name: "Workshop Management"},
	{Code: "content", Name: "Content Management"},
	{Code: "support", Name: "Support"},
}

// Leaf resources, keyed "<parent>:<name>". Permissions are generated for
// these only.
var seedResources = []Resource{
	{Code: "system:user", Name: "User Management"},
	{Code: "system:role", Name: "Role Management"},
	{Code: "system:permission", Name: "Permission Management"},
	{Code: "system:resource", Name: "Resource Management"},
	{Code: "system:log", Name: "System Logs"},
	{Code: "conference:conferences", Name: "Conferences"},
	{Code: "conference:instructor", Name: "Conference Instructors"},
	{Code: "conference:event_schedule", Name: "Event Schedules"},
	{Code: "workshop:workshops", Name: "Workshops"},
	{Code: "workshop:registration", Name: "Workshop Registrations"},
	{Code: "comms:notification", Name: "Notifications"},
	{Code: "comms:notification_history", Name: "Notification History"},
	{Code: "content:article", Name: "Articles"},
	{Code: "support:feedback", Name: "Feedback"},
}

// Permissions the admin role does not receive; these resources are managed
// through seeding alone.
var excludedPermissionPrefixes = []string{
	"system:resource:",
	"comms:notification",
}

// Seeder populates the verb/resource/permission tables and wires the admin
// role. Every write is insert-or-skip on the natural key, so running it
// repeatedly converges without duplicates.
type Seeder struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewSeeder(db *gorm.DB, logger *logging.Service) *Seeder {
	return &Seeder{db: db, logger: logger}
}

func (s *Seeder) Seed(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.seedVerbs(tx); err != nil {
			return err
		}
		if err := s.seedResources(tx); err != nil {
			return err
		}
		if err := s.seedPermissions(tx); err != nil {
			return err
		}
		return s.seedAdminRole(tx)
	})
	if err != nil {
		return fmt.Errorf("failed to seed rbac: %w", err)
	}

	s.logger.Info("rbac seed completed")
	return nil
}

func (s *Seeder) seedVerbs(tx *gorm.DB) error {
	for _, verb := range seedVerbs {
		verb.IsActive = true
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "action"}},
			DoNothing: true,
		}).Create(&verb).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedResources(tx *gorm.DB) error {
	parentIDs := make(map[string]Resource, len(seedParentResources))

	for _, parent := range seedParentResources {
		parent.IsActive = true
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&parent).Error
		if err != nil {
			return err
		}

		var stored Resource
		if err := tx.First(&stored, "code = ?", parent.Code).Error; err != nil {
			return err
		}
		parentIDs[parent.Code] = stored
	}

	for _, resource := range seedResources {
		prefix, _, _ := strings.Cut(resource.Code, ":")
		if parent, ok := parentIDs[prefix]; ok {
			id := parent.ID
			resource.ParentID = &id
		}
		resource.IsActive = true

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&resource).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// seedPermissions generates the resource x verb cross product for leaf
// resources. Parent resources (no colon in the code) are grouping only.
func (s *Seeder) seedPermissions(tx *gorm.DB) error {
	var verbs []Verb
	if err := tx.Find(&verbs).Error; err != nil {
		return err
	}

	var resources []Resource
	if err := tx.Find(&resources).Error; err != nil {
		return err
	}

	for _, resource := range resources {
		if !strings.Contains(resource.Code, ":") {
			continue
		}

		for _, verb := range verbs {
			permission := Permission{
				ResourceID:  resource.ID,
				VerbID:      verb.ID,
				Code:        resource.Code + ":" + verb.Action,
				DisplayName: resource.Name + " " + verb.DisplayName,
				IsActive:    true,
			}

			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).Create(&permission).Error
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Seeder) seedAdminRole(tx *gorm.DB) error {
	admin := Role{
		Code:     AdminRoleCode,
		Name:     "System Administrator",
		IsActive: true,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&admin).Error
	if err != nil {
		return err
	}

	var role Role
	if err := tx.First(&role, "code = ?", AdminRoleCode).Error; err != nil {
		return err
	}

	var permissions []Permission
	if err := tx.Find(&permissions).Error; err != nil {
		return err
	}

	granted := 0
	for _, permission := range permissions {
		if excludedPermission(permission.Code) {
			continue
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
			DoNothing: true,
		}).Create(&RolePermission{RoleID: role.ID, PermissionID: permission.ID}).Error
		if err != nil {
			return err
		}
		granted++
	}

	s.logger.Debug("granted admin permissions", zap.Int("count", granted))
	return nil
}

func excludedPermission(code string) bool {
	for _, prefix := range excludedPermissionPrefixes {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}
