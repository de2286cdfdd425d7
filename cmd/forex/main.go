package main

import (
	"context"
	"embed"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "forex",
		Usage: "track foreign currency cash positions valued in TWD",
		Commands: []*cli.Command{
			serveCommand(),
			evaluateCommand(),
			ratesCommand(),
			exportCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("forex: %v", err)
	}
}
