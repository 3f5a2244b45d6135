package refreshtoken

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/requestinfo"
	"github.com/confportal/authcore/services/logging"
)

var (
	ErrTokenInvalid          = errors.New("invalid refresh token")
	ErrTokenReused           = fmt.Errorf("refresh token reuse detected: %w", ErrTokenInvalid)
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")

	// errRotationLost marks a rotation whose conditional replaced_by_id
	// stamp matched no rows: another rotation spent the token first.
	errRotationLost = errors.New("refresh token already replaced")
)

// Revocation reasons recorded on token rows. The reuse reason doubles as an
// alerting signal downstream, keep it stable.
const (
	ReasonReuse  = "Refresh token reused"
	ReasonLogout = "Logout"
	ReasonManual = "Manual Revoke"
)

// Service implements the rotation protocol over opaque refresh tokens.
// Tokens belong to families; presenting an already-replaced token burns the
// whole family.
type Service struct {
	store   Store
	tracker *Tracker
	config  *config.Config
	logger  *logging.Service
	done    chan struct{}
}

func NewService(store Store, tracker *Tracker, cfg *config.Config, logger *logging.Service) *Service {
	logger.Info("initializing refresh token service",
		zap.Duration("token_expiry", cfg.RefreshToken.Expiry),
		zap.Int("token_length", cfg.RefreshToken.TokenLength),
		zap.Duration("cleanup_interval", cfg.RefreshToken.CleanupInterval))

	return &Service{
		store:   store,
		tracker: tracker,
		config:  cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Issue mints the first token of a new family, or an additional root when
// the caller supplies an existing familyID. The raw secret is returned once
// and never persisted.
func (s *Service) Issue(ctx context.Context, userID, deviceID, familyID uuid.UUID) (string, *RefreshToken, error) {
	token, err := s.generateSecureToken()
	if err != nil {
		s.logger.Error("failed to generate refresh token secret", zap.Error(err))
		return "", nil, ErrTokenGenerationFailed
	}

	now := time.Now().UTC()
	client := requestinfo.FromContext(ctx)

	record := &RefreshToken{
		ID:         uuid.New(),
		UserID:     userID,
		FamilyID:   familyID,
		TokenHash:  s.hashToken(token),
		ExpiresAt:  now.Add(s.config.RefreshToken.Expiry),
		LastUsedAt: &now,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
	}
	if deviceID != uuid.Nil {
		record.DeviceID = &deviceID
	}

	if err := s.store.InsertToken(ctx, record); err != nil {
		return "", nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	s.tracker.Touch(ctx, deviceID, userID, client)

	s.logger.Debug("issued refresh token",
		zap.String("user_id", userID.String()),
		zap.String("family_id", familyID.String()),
		zap.Time("expires_at", record.ExpiresAt))

	return token, record, nil
}

// Rotate exchanges a live token for its successor. The presented token and
// its replacement stay linked through parent_id/replaced_by_id, and the
// family expiry carries over unchanged. Presenting a token that was already
// replaced revokes the entire family and returns ErrTokenReused.
func (s *Service) Rotate(ctx context.Context, token string) (string, *RefreshToken, error) {
	now := time.Now().UTC()

	current, err := s.store.FindTokenByHash(ctx, s.hashToken(token))
	if errors.Is(err, ErrTokenNotFound) {
		return "", nil, ErrTokenInvalid
	}
	if err != nil {
		return "", nil, err
	}

	if current.Revoked() || current.Expired(now) {
		return "", nil, ErrTokenInvalid
	}

	if current.Replaced() {
		s.logger.Warn("refresh token reuse detected, revoking family",
			zap.String("user_id", current.UserID.String()),
			zap.String("family_id", current.FamilyID.String()),
			zap.String("token_id", current.ID.String()))

		if err := s.RevokeFamily(ctx, current.FamilyID, ReasonReuse); err != nil {
			s.logger.Error("failed to revoke family after reuse",
				zap.String("family_id", current.FamilyID.String()),
				zap.Error(err))
		}
		return "", nil, ErrTokenReused
	}

	newToken, err := s.generateSecureToken()
	if err != nil {
		s.logger.Error("failed to generate rotated token secret", zap.Error(err))
		return "", nil, ErrTokenGenerationFailed
	}

	client := requestinfo.FromContext(ctx)

	next := &RefreshToken{
		ID:         uuid.New(),
		UserID:     current.UserID,
		DeviceID:   current.DeviceID,
		FamilyID:   current.FamilyID,
		ParentID:   &current.ID,
		TokenHash:  s.hashToken(newToken),
		ExpiresAt:  current.ExpiresAt,
		LastUsedAt: &now,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
	}

	err = s.store.Transaction(ctx, func(tx Store) error {
		if err := tx.InsertToken(ctx, next); err != nil {
			return fmt.Errorf("failed to insert rotated token: %w", err)
		}

		// The stamp is conditional on replaced_by_id still being null. A
		// concurrent rotation that committed first makes this match zero
		// rows; rolling back here keeps at most one live child per token.
		marked, err := tx.MarkTokenReplaced(ctx, current.ID, next.ID, now)
		if err != nil {
			return fmt.Errorf("failed to mark token replaced: %w", err)
		}
		if marked == 0 {
			return errRotationLost
		}
		return nil
	})
	if errors.Is(err, errRotationLost) {
		s.logger.Warn("refresh token reuse detected, revoking family",
			zap.String("user_id", current.UserID.String()),
			zap.String("family_id", current.FamilyID.String()),
			zap.String("token_id", current.ID.String()))

		if err := s.RevokeFamily(ctx, current.FamilyID, ReasonReuse); err != nil {
			s.logger.Error("failed to revoke family after reuse",
				zap.String("family_id", current.FamilyID.String()),
				zap.Error(err))
		}
		return "", nil, ErrTokenReused
	}
	if err != nil {
		return "", nil, err
	}

	if current.DeviceID != nil {
		s.tracker.Touch(ctx, *current.DeviceID, current.UserID, client)
	}

	s.logger.Debug("rotated refresh token",
		zap.String("user_id", current.UserID.String()),
		zap.String("family_id", current.FamilyID.String()),
		zap.String("old_token_id", current.ID.String()),
		zap.String("new_token_id", next.ID.String()))

	return newToken, next, nil
}

// RevokeFamily stamps every live token of the family with the given reason.
// Already revoked rows keep their original timestamp.
func (s *Service) RevokeFamily(ctx context.Context, familyID uuid.UUID, reason string) error {
	affected, err := s.store.RevokeFamily(ctx, familyID, time.Now().UTC(), reason)
	if err != nil {
		return fmt.Errorf("failed to revoke token family: %w", err)
	}

	s.logger.Info("revoked token family",
		zap.String("family_id", familyID.String()),
		zap.String("reason", reason),
		zap.Int64("tokens_revoked", affected))

	return nil
}

// RevokeByToken revokes the token matching the presented secret. With
// revokeFamily it burns the whole family (logout), otherwise just the single
// row. Unknown tokens report false with no error so logout stays idempotent.
func (s *Service) RevokeByToken(ctx context.Context, token string, revokeFamily bool) (bool, error) {
	current, err := s.store.FindTokenByHash(ctx, s.hashToken(token))
	if errors.Is(err, ErrTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if revokeFamily {
		if err := s.RevokeFamily(ctx, current.FamilyID, ReasonLogout); err != nil {
			return false, err
		}
		return true, nil
	}

	if !current.Revoked() {
		err := s.store.UpdateToken(ctx, current.ID, map[string]any{
			"revoked_at":     time.Now().UTC(),
			"revoked_reason": ReasonManual,
		})
		if err != nil {
			return false, fmt.Errorf("failed to revoke refresh token: %w", err)
		}
	}

	return true, nil
}

// CleanupExpired prunes token rows whose expiry passed more than the
// configured grace period ago. Devices are kept.
func (s *Service) CleanupExpired(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.config.RefreshToken.CleanupGrace)

	deleted, err := s.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to cleanup expired refresh tokens", zap.Error(err))
		return err
	}

	if deleted > 0 {
		s.logger.Info("cleaned up expired refresh tokens",
			zap.Int64("tokens_deleted", deleted),
			zap.Time("cutoff", cutoff))
	}

	return nil
}

// StartCleanupWorker runs CleanupExpired on the configured interval until
// StopCleanupWorker is called.
func (s *Service) StartCleanupWorker() {
	interval := s.config.RefreshToken.CleanupInterval
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.CleanupExpired(context.Background()); err != nil {
					s.logger.Error("refresh token cleanup run failed", zap.Error(err))
				}
			case <-s.done:
				return
			}
		}
	}()

	s.logger.Info("started refresh token cleanup worker",
		zap.Duration("interval", interval))
}

func (s *Service) StopCleanupWorker() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Service) generateSecureToken() (string, error) {
	length := s.config.RefreshToken.TokenLength
	if length <= 0 {
		length = 96
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// hashToken computes the storage hash of an opaque secret. Salt and pepper
// come from deployment config so a leaked table alone cannot be replayed.
func (s *Service) hashToken(token string) string {
	sum := sha512.Sum512([]byte(s.config.RefreshToken.HashSalt + token + s.config.RefreshToken.HashPepper))
	return hex.EncodeToString(sum[:])
}
