package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/forex/internal/api"
	"github.com/mtlprog/forex/internal/auth"
	"github.com/mtlprog/forex/internal/config"
	"github.com/mtlprog/forex/internal/ledger"
	"github.com/mtlprog/forex/internal/worker"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the rate refresh worker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "listen port (overrides HTTP_PORT)"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if port := c.String("port"); port != "" {
				cfg.HTTPPort = port
			}
			return serve(c.Context, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	d, err := newDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	st, err := d.store(ctx)
	if err != nil {
		return err
	}

	rateSvc := d.rateService(false)
	ledgerSvc := ledger.NewService(st, rateSvc, cfg.StoreKey, cfg.Currencies)
	sessions := auth.NewSessions(cfg.SessionTTL)
	verifier := auth.NewVerifier(d.client, cfg.AuthEndpoint)

	if cfg.AuthEndpoint == "" {
		slog.Warn("AUTH_ENDPOINT not set, password login is disabled")
	}

	// Start workers
	rateWorker := worker.NewRateWorker(rateSvc, cfg.RateWorkerInterval)
	go rateWorker.Run(ctx)

	// Start HTTP server
	handler := api.NewHandler(ledgerSvc, rateSvc, verifier, sessions, cfg.Currencies)
	srv := api.NewServer(cfg.HTTPPort, handler, sessions, cfg.APIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	log.Println("Shutdown complete")
	return nil
}
