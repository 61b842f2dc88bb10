package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"weather-app/internal/app"
	"weather-app/internal/auth"
	"weather-app/internal/config"
	"weather-app/internal/logger"
	"weather-app/internal/users"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply schema migrations to the configured SQL store",
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Store.Backend != config.StorePostgres && cfg.Store.Backend != config.StoreSQLite {
				return fmt.Errorf("store backend %q has no schema", cfg.Store.Backend)
			}

			// opening a SQL store applies pending migrations
			infra, err := app.SetupInfra(ctx.Context, cfg)
			if err != nil {
				return err
			}
			defer infra.Close()

			logger.Info("migrations applied", map[string]any{
				"store": cfg.Store.Backend,
			})
			return nil
		},
	}
}

func hashPasswordCmd() *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Print the hash of a password read from stdin",
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(ctx.App.Reader)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			hasher, err := app.NewHasher(cfg)
			if err != nil {
				return err
			}

			hash, err := hasher.Hash(ctx.Context, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, hash)
			return err
		},
	}
}

func createUserCmd() *cli.Command {
	var username string
	return &cli.Command{
		Name:  "create-user",
		Usage: "Create a user in the configured store (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to create",
				Destination: &username,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			if users.Canonicalize(username) == "" {
				return fmt.Errorf("%w: username is blank", auth.ErrInvalidInput)
			}

			password, err := readPassword(ctx.App.Reader)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			hasher, err := app.NewHasher(cfg)
			if err != nil {
				return err
			}
			infra, err := app.SetupInfra(ctx.Context, cfg)
			if err != nil {
				return err
			}
			defer infra.Close()

			hash, err := hasher.Hash(ctx.Context, password)
			if err != nil {
				return err
			}

			u, err := infra.Users.Create(ctx.Context, username, hash)
			if errors.Is(err, users.ErrAlreadyExists) {
				return fmt.Errorf("user %q already exists", users.Canonicalize(username))
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(ctx.App.Writer, "created %s\n", u.Username)
			return err
		},
	}
}

// readPassword returns the first stdin line as typed. Only the line
// terminator is dropped so the hash matches what /register would store.
func readPassword(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimRight(sc.Text(), "\r\n")
	if password == "" {
		return "", errors.New("missing password from stdin")
	}
	return password, nil
}
