package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/exotic-fruits/auth-service/config"
	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
	pginfra "github.com/exotic-fruits/auth-service/internal/infrastructure/postgres"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
	"github.com/exotic-fruits/auth-service/pkg/validation"
)

// seeds a verified demo account; override with SEED_EMAIL, SEED_PASSWORD, SEED_NAME
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	email := strings.ToLower(envOr("SEED_EMAIL", "demo@exotic-fruits.test"))
	password := envOr("SEED_PASSWORD", "Demo123!pass")
	name := envOr("SEED_NAME", "Demo User")
	if failed := validation.PasswordStrength(password); len(failed) > 0 {
		log.Fatalf("seed password rejected: %s", strings.Join(failed, ", "))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, time.Minute)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	users := pginfra.NewUserRepository(pool)

	hash, err := helpers.NewPasswordHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// Re-seeding resets the demo account to known credentials.
	if u, err := users.GetByEmail(ctx, email); err == nil {
		u.Name = name
		u.Password = hash
		u.IsVerified = true
		u.VerificationCode = ""
		u.VerificationExpires = nil
		u.VerificationSentAt = nil
		u.VerificationAttempts = 0
		if err := users.Update(ctx, u); err != nil {
			log.Fatalf("failed to reset seeded user: %v", err)
		}
		fmt.Printf("user reset: id=%s email=%s\n", u.ID, u.Email)
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("lookup failed: %v", err)
	}

	u := &entity.User{Email: email, Password: hash, Name: name}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	if err := users.MarkEmailVerified(ctx, u.ID); err != nil {
		log.Fatalf("failed to verify seeded user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s name=%s password=%s\n", u.ID, email, name, password)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
