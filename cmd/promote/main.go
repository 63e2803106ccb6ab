// Command promote sets a user's role to admin by email address.
// It is used to bootstrap the first admin user.
//
// Usage:
//
//	promote --email=user@example.com
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/roomcast/internal/adapter/postgres"
	userrepo "github.com/heartmarshall/roomcast/internal/adapter/postgres/user"
	"github.com/heartmarshall/roomcast/internal/app"
	"github.com/heartmarshall/roomcast/internal/config"
	"github.com/heartmarshall/roomcast/internal/domain"
)

func main() {
	email := flag.String("email", "", "email of user to promote to admin")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: promote --email=user@example.com")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, logger, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	u, err := userrepo.New(pool).SetRole(ctx, *email, domain.UserRoleAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Printf("No user found with email %q.\n", *email)
		} else {
			logger.Error("update role", slog.String("error", err.Error()))
		}
		pool.Close()
		os.Exit(1)
	}

	fmt.Printf("User %q (%s) promoted to admin.\n", u.Email, u.ID)
}
