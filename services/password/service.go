package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"
)

var ErrPasswordHashingFailed = errors.New("failed to hash password")

// Stored hash layout: "pbkdf2_sha256$" + base64url(payload) without padding,
// where payload = [version:1][iterations:4 big-endian][salt:128][derived key:240].
// The payload is always 373 bytes, so every encoded hash is exactly 512
// characters regardless of password or parameters. The prefix is a stored-format
// literal; the KDF primitive is HMAC-SHA-512.
const (
	hashPrefix        = "pbkdf2_sha256$"
	formatVersion     = 1
	saltLength        = 128
	derivedKeyLength  = 240
	payloadLength     = 1 + 4 + saltLength + derivedKeyLength
	EncodedHashLength = 512

	defaultIterations = 300000
)

type Service struct {
	config *config.Config
	logger *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	if cfg.Password.Iterations <= 0 {
		cfg.Password.Iterations = defaultIterations
	}
	return &Service{
		config: cfg,
		logger: logger,
	}
}

func NewServiceWithDefaults() *Service {
	return NewService(&config.Config{
		Password: config.PasswordConfig{
			MinLength:      8,
			RequireUpper:   true,
			RequireLower:   true,
			RequireNumber:  true,
			RequireSpecial: true,
			Iterations:     defaultIterations,
		},
	}, nil)
}

func (s *Service) Hash(password string) (string, error) {
	if s.logger != nil {
		s.logger.Debug("generating password hash", zap.Int("iterations", s.config.Password.Iterations))
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		if s.logger != nil {
			s.logger.Error("password hashing failed", zap.Error(err))
		}
		return "", ErrPasswordHashingFailed
	}

	derivedKey := deriveKey(password, salt, s.config.Password.Iterations, derivedKeyLength)
	payload := buildPayload(s.config.Password.Iterations, salt, derivedKey)

	return hashPrefix + base64.RawURLEncoding.EncodeToString(payload), nil
}

// Verify re-derives the key using the salt and iteration count embedded in the
// stored hash. Any structural defect in the stored hash is a verification
// failure, never an error.
func (s *Service) Verify(password, encodedHash string) bool {
	if !strings.HasPrefix(encodedHash, hashPrefix) {
		return false
	}

	token := strings.TrimRight(strings.TrimPrefix(encodedHash, hashPrefix), "=")
	payload, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	if len(payload) != payloadLength {
		return false
	}
	if payload[0] != formatVersion {
		return false
	}

	iterations := int(binary.BigEndian.Uint32(payload[1:5]))
	if iterations <= 0 {
		return false
	}
	salt := payload[5 : 5+saltLength]
	expectedKey := payload[5+saltLength:]

	derivedKey := deriveKey(password, salt, iterations, len(expectedKey))

	ok := subtle.ConstantTimeCompare(derivedKey, expectedKey) == 1
	if !ok && s.logger != nil {
		s.logger.Warn("password verification failed")
	}
	return ok
}

func (s *Service) Validate(password string) error {
	if len(password) < s.config.Password.MinLength {
		return fmt.Errorf("password must be at least %d characters", s.config.Password.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	var missing []string

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if s.config.Password.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if s.config.Password.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if s.config.Password.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if s.config.Password.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least %s", strings.Join(missing, ", "))
	}

	return nil
}

func (s *Service) IsValid(password string) bool {
	return s.Validate(password) == nil
}

func deriveKey(password string, salt []byte, iterations, keyLength int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha512.New)
}

func buildPayload(iterations int, salt, derivedKey []byte) []byte {
	payload := make([]byte, 0, payloadLength)
	payload = append(payload, formatVersion)
	payload = binary.BigEndian.AppendUint32(payload, uint32(iterations))
	payload = append(payload, salt...)
	payload = append(payload, derivedKey...)
	return payload
}
