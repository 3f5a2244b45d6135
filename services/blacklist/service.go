package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/services/logging"
)

const (
	accessNamespace  = "token_blacklist"
	refreshNamespace = "refresh_token_blacklist"
)

// Stats summarises live denylist entries per namespace.
type Stats struct {
	AccessTokens  int64 `json:"access_tokens"`
	RefreshTokens int64 `json:"refresh_tokens"`
}

// Service is a Redis-backed denylist for spent or revoked tokens. All
// operations are best effort: Redis being down degrades to "not
// blacklisted" rather than failing the caller, the database remains the
// source of truth.
type Service struct {
	client  redis.UniversalClient
	appName string
	logger  *logging.Service
}

func NewService(client redis.UniversalClient, cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		client:  client,
		appName: cfg.App.Name,
		logger:  logger,
	}
}

// Add blacklists an access token value until its expiry. Tokens already past
// expiry are ignored.
func (s *Service) Add(ctx context.Context, token string, expiresAt time.Time) error {
	return s.add(ctx, accessNamespace, token, expiresAt)
}

// AddRefreshToken blacklists a refresh token secret until its expiry.
func (s *Service) AddRefreshToken(ctx context.Context, token string, expiresAt time.Time) error {
	return s.add(ctx, refreshNamespace, token, expiresAt)
}

// IsBlacklisted reports whether the access token value was blacklisted.
// Lookup errors are logged and reported as false.
func (s *Service) IsBlacklisted(ctx context.Context, token string) bool {
	return s.exists(ctx, accessNamespace, token)
}

// IsRefreshTokenBlacklisted reports whether the refresh token secret was
// blacklisted.
func (s *Service) IsRefreshTokenBlacklisted(ctx context.Context, token string) bool {
	return s.exists(ctx, refreshNamespace, token)
}

// Remove drops an access token from the denylist, for administrative undo.
func (s *Service) Remove(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(accessNamespace, token)).Err(); err != nil {
		return fmt.Errorf("failed to remove token from blacklist: %w", err)
	}
	return nil
}

// GetStats counts live entries in both namespaces, for monitoring.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	access, err := s.countKeys(ctx, accessNamespace)
	if err != nil {
		return nil, err
	}

	refresh, err := s.countKeys(ctx, refreshNamespace)
	if err != nil {
		return nil, err
	}

	return &Stats{AccessTokens: access, RefreshTokens: refresh}, nil
}

func (s *Service) add(ctx context.Context, namespace, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.key(namespace, token), "1", ttl).Err(); err != nil {
		s.logger.Warn("failed to blacklist token",
			zap.String("namespace", namespace),
			zap.Error(err))
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

func (s *Service) exists(ctx context.Context, namespace, token string) bool {
	count, err := s.client.Exists(ctx, s.key(namespace, token)).Result()
	if err != nil {
		s.logger.Warn("blacklist lookup failed",
			zap.String("namespace", namespace),
			zap.Error(err))
		return false
	}

	return count > 0
}

func (s *Service) countKeys(ctx context.Context, namespace string) (int64, error) {
	var count int64
	var cursor uint64

	pattern := fmt.Sprintf("%s:%s:*", s.appName, namespace)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan blacklist: %w", err)
		}

		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// key hashes the token value so raw secrets never reach Redis.
func (s *Service) key(namespace, token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%s:%s:%s", s.appName, namespace, hex.EncodeToString(sum[:]))
}
