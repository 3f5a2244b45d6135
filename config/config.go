package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig          `envPrefix:"AUTHCORE_APP_"`
	Log          LogConfig          `envPrefix:"AUTHCORE_LOG_"`
	Database     DatabaseConfig     `envPrefix:"AUTHCORE_DATABASE_"`
	Password     PasswordConfig     `envPrefix:"AUTHCORE_PASSWORD_"`
	RefreshToken RefreshTokenConfig `envPrefix:"AUTHCORE_REFRESH_TOKEN_"`
	Redis        RedisConfig        `envPrefix:"AUTHCORE_REDIS_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"authcore"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"authcore.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type PasswordConfig struct {
	MinLength      int  `env:"MIN_LENGTH" envDefault:"8"`
	RequireUpper   bool `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireLower   bool `env:"REQUIRE_LOWER" envDefault:"true"`
	RequireNumber  bool `env:"REQUIRE_NUMBER" envDefault:"true"`
	RequireSpecial bool `env:"REQUIRE_SPECIAL" envDefault:"true"`
	Iterations     int  `env:"ITERATIONS" envDefault:"300000"`
}

type RefreshTokenConfig struct {
	Expiry          time.Duration `env:"EXPIRY" envDefault:"168h"`
	TokenLength     int           `env:"TOKEN_LENGTH" envDefault:"96"`
	HashSalt        string        `env:"HASH_SALT" envDefault:""`
	HashPepper      string        `env:"HASH_PEPPER" envDefault:""`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	CleanupGrace    time.Duration `env:"CLEANUP_GRACE" envDefault:"720h"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		if err := validatePasswordConfig(&c.Password); err != nil {
			return err
		}
		if err := validateRefreshTokenConfig(&c.RefreshToken); err != nil {
			return err
		}
	}

	return nil
}

func validatePasswordConfig(cfg *PasswordConfig) error {
	if cfg.MinLength < 8 {
		return fmt.Errorf("password minimum length must be at least 8 characters")
	}
	if cfg.Iterations < 100000 {
		return fmt.Errorf("password KDF iterations must be at least 100000")
	}
	return nil
}

func validateRefreshTokenConfig(cfg *RefreshTokenConfig) error {
	if cfg.TokenLength < 96 {
		return fmt.Errorf("refresh token length must be at least 96 bytes")
	}
	if cfg.TokenLength > 128 {
		return fmt.Errorf("refresh token length cannot exceed 128 bytes")
	}
	if cfg.Expiry <= 0 {
		return fmt.Errorf("refresh token expiry must be positive")
	}
	return nil
}
