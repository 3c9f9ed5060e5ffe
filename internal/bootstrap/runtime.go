// Package bootstrap wires the database, Redis and reference data shared by
// the server and the CLI commands.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"foodgram/internal/cache"
	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/repository"
	"foodgram/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultDevAdminEmail    = "admin@foodgram.local"
	defaultDevAdminUsername = "admin"
)

// Options control runtime initialization behavior.
type Options struct {
	// LoadReferenceData loads ingredients and tags from DATA_DIR or the
	// embedded defaults.
	LoadReferenceData bool
}

// InitRuntime connects to DB and Redis, bootstraps the development admin and
// optionally loads reference data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	middleware.ConfigureLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	observability.LogRepoWrites = cfg.LogRepoWrites

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "redis unavailable, continuing without cache", "error", err)
	} else {
		middleware.Logger.InfoContext(ctx, "redis connected", "addr", cfg.RedisURL)
	}

	if err := EnsureDevAdmin(ctx, cfg, repository.NewUserRepository(db)); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.LoadReferenceData {
		if err := seed.ReferenceData(ctx,
			repository.NewIngredientRepository(db, r),
			repository.NewTagRepository(db, r),
			cfg.DataDir,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to load reference data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevAdmin creates or promotes the DEV_ADMIN_EMAIL account when
// DEV_BOOTSTRAP_ADMIN is enabled in development.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	if cfg == nil || users == nil {
		return nil
	}
	if cfg.Env != "development" || !cfg.DevBootstrapAdmin {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.DevAdminEmail))
	if email == "" {
		email = defaultDevAdminEmail
	}
	if cfg.DevAdminPassword == "" {
		return fmt.Errorf("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if !existing.IsAdmin {
			if err := users.SetAdmin(ctx, existing.ID, true); err != nil {
				return err
			}
		}
		middleware.Logger.InfoContext(ctx, "development admin ensured", "email", email, "user_id", existing.ID)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		Email:     email,
		Username:  defaultDevAdminUsername,
		FirstName: "Admin",
		LastName:  "FoodGram",
		Password:  string(hash),
		IsAdmin:   true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "development admin created", "email", email, "user_id", admin.ID)
	return nil
}
