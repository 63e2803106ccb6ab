// Command token issues an access token for local development. The user is
// created on first use.
//
// Usage:
//
//	token --email=dev@example.com --username=dev
//
// The token is printed to stdout; pass it as the Authorization bearer or as
// the token query parameter of /ws.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/heartmarshall/roomcast/internal/adapter/postgres"
	userrepo "github.com/heartmarshall/roomcast/internal/adapter/postgres/user"
	"github.com/heartmarshall/roomcast/internal/app"
	"github.com/heartmarshall/roomcast/internal/auth"
	"github.com/heartmarshall/roomcast/internal/config"
	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/migrations"
)

func main() {
	email := flag.String("email", "", "email of the user")
	username := flag.String("username", "", "username used when the user is created (default: email local part)")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: token --email=dev@example.com [--username=dev]")
		os.Exit(1)
	}
	if *username == "" {
		*username, _, _ = strings.Cut(*email, "@")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log)

	if err := run(logger, cfg, *email, *username); err != nil {
		logger.Error("issue token", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config, email, username string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, logger, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, logger, pool, migrations.FS); err != nil {
			return err
		}
	}

	u, err := userrepo.New(pool).Upsert(ctx, domain.User{Email: email, Username: username})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	token, err := auth.FromConfig(cfg.Auth).GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
