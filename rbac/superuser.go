package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/confportal/authcore/services/logging"
	"github.com/confportal/authcore/services/password"
)

var ErrInvalidEmail = errors.New("invalid email address")

// Provisioner creates bootstrap accounts outside the normal signup flow.
type Provisioner struct {
	db       *gorm.DB
	password *password.Service
	logger   *logging.Service
}

func NewProvisioner(db *gorm.DB, passwordService *password.Service, logger *logging.Service) *Provisioner {
	return &Provisioner{
		db:       db,
		password: passwordService,
		logger:   logger,
	}
}

// CreateSuperuser provisions a verified, active superuser account. When a
// user with the same email or phone number already exists that user is
// returned unchanged and created reports false.
func (p *Provisioner) CreateSuperuser(ctx context.Context, email, phoneNumber, plaintext, displayName string) (*User, bool, error) {
	if !validEmail(email) {
		return nil, false, ErrInvalidEmail
	}
	if err := p.password.Validate(plaintext); err != nil {
		return nil, false, err
	}

	var existing User
	err := p.db.WithContext(ctx).
		Where("email = ? OR phone_number = ?", email, phoneNumber).
		First(&existing).Error
	if err == nil {
		p.logger.Info("superuser already exists, skipping",
			zap.String("email", email))
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up existing user: %w", err)
	}

	hash, err := p.password.Hash(plaintext)
	if err != nil {
		return nil, false, err
	}

	if displayName == "" {
		displayName = email
	}

	user := &User{
		PhoneNumber:  phoneNumber,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		IsActive:     true,
		Verified:     true,
		IsSuperuser:  true,
	}

	if err := p.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create superuser: %w", err)
	}

	p.logger.Info("superuser created",
		zap.String("email", email),
		zap.String("user_id", user.ID.String()))

	return user, true, nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
