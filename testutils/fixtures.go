package testutils

import (
	"time"

	"github.com/confportal/authcore/config"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "authcore-test",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Password: config.PasswordConfig{
			MinLength:      8,
			RequireUpper:   true,
			RequireLower:   true,
			RequireNumber:  true,
			RequireSpecial: true,
			// keep the KDF cheap in tests; the count is embedded per hash
			Iterations: 1000,
		},
		RefreshToken: config.RefreshTokenConfig{
			Expiry:          time.Hour,
			TokenLength:     96,
			HashSalt:        "test-salt",
			HashPepper:      "test-pepper",
			CleanupInterval: 0,
			CleanupGrace:    time.Hour,
		},
		Redis: config.RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

var TestPasswords = struct {
	Valid     string
	TooShort  string
	NoUpper   string
	NoLower   string
	NoNumber  string
	NoSpecial string
}{
	Valid:     "Abc1234*",
	TooShort:  "short1!",
	NoUpper:   "alllowercase1!",
	NoLower:   "ALLUPPERCASE1!",
	NoNumber:  "NoDigitsHere!",
	NoSpecial: "NoSpecial123",
}

var TestClients = struct {
	Desktop struct {
		IP        string
		UserAgent string
	}
	Mobile struct {
		IP        string
		UserAgent string
	}
}{
	Desktop: struct {
		IP        string
		UserAgent string
	}{
		IP:        "203.0.113.10",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
	},
	Mobile: struct {
		IP        string
		UserAgent string
	}{
		IP:        "198.51.100.20",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	},
}
