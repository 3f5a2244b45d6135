package app

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/database"
	"github.com/confportal/authcore/rbac"
	"github.com/confportal/authcore/services/blacklist"
	"github.com/confportal/authcore/services/logging"
	"github.com/confportal/authcore/services/password"
	"github.com/confportal/authcore/services/refreshtoken"
)

// AppBuilder assembles an App from opt-in services. Configuration errors
// accumulate and surface once at Build.
type AppBuilder struct {
	config    *config.Config
	services  map[string]bool
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.services["database"] = true
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithPasswords() *AppBuilder {
	b.services["passwords"] = true
	return b
}

// WithRefreshTokens enables the token engine, pulling in the database and
// the engine's tables.
func (b *AppBuilder) WithRefreshTokens() *AppBuilder {
	b.services["refresh_tokens"] = true
	b.services["database"] = true
	b.models = append(b.models, &refreshtoken.Device{}, &refreshtoken.RefreshToken{})
	return b
}

// WithBlacklist enables the Redis denylist gateway.
func (b *AppBuilder) WithBlacklist() *AppBuilder {
	b.services["blacklist"] = true
	return b
}

// WithRBAC enables the role/permission tables, the seeder, and superuser
// provisioning.
func (b *AppBuilder) WithRBAC() *AppBuilder {
	b.services["rbac"] = true
	b.services["passwords"] = true
	b.services["database"] = true
	b.models = append(b.models, rbac.Models()...)
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var db *gorm.DB
	if b.services["database"] {
		modelsOpt := &database.ModelsOption{}
		if len(b.models) > 0 {
			modelsOpt = database.WithModels(b.models...)
		}

		db, err = database.ProvideDatabase(*b.config, modelsOpt, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	app := &App{
		config: b.config,
		logger: logger,
		db:     db,
	}
	app.fx = fx.New(b.buildFxOptions(logger, db)...)

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}

	if b.services["rbac"] && !b.services["passwords"] {
		b.services["passwords"] = true
	}

	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}

	return logging.NewService(logging.Config{
		Level:      logging.LogLevel(b.config.Log.Level),
		Format:     b.config.Log.Format,
		OutputPath: b.config.Log.Output,
	})
}

func (b *AppBuilder) buildFxOptions(logger *logging.Service, db *gorm.DB) []fx.Option {
	options := []fx.Option{
		fx.Supply(b.config),
		fx.Supply(logger),
		fx.NopLogger,
	}

	if db != nil {
		options = append(options, fx.Supply(db))
	}

	if b.services["passwords"] {
		options = append(options, password.Options)
	}
	if b.services["refresh_tokens"] {
		options = append(options, refreshtoken.Options)
	}
	if b.services["blacklist"] {
		options = append(options, blacklist.Options)
	}
	if b.services["rbac"] {
		options = append(options, rbac.Options)
	}

	options = append(options, b.fxOptions...)

	return options
}
