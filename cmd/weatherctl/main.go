package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"weather-app/internal/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logger.Fatal("weatherctl failed", map[string]any{
			"error": err.Error(),
		})
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "weatherctl",
		Usage: "Administer the weather-app user store",
		Commands: []*cli.Command{
			migrateCmd(),
			hashPasswordCmd(),
			createUserCmd(),
		},
	}
}
