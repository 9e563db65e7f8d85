package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/reqmatch-backend/internal/app"
	"github.com/yungbote/reqmatch-backend/internal/cli"
)

func main() {
	_ = godotenv.Load()

	root := cli.NewRootCommand(openBackend)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openBackend(ctx context.Context) (*cli.Backend, error) {
	if os.Getenv("LOG_MODE") == "" {
		_ = os.Setenv("LOG_MODE", "production")
	}
	log, err := app.NewLogger()
	if err != nil {
		return nil, err
	}
	core, err := app.NewCore(ctx, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &cli.Backend{
		Matching: core.Services.Matching,
		Auth:     core.Services.Auth,
		Close:    core.Close,
	}, nil
}
