package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/koscakluka/ema-agentbridge/core/language"
	"github.com/koscakluka/ema-agentbridge/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve websocket sessions",
		Long: `Serve websocket sessions against a LangGraph server.

GET /ws opens a session. Text frames carry JSON messages ({"type":"text"},
{"type":"messages"}, {"type":"interrupt"} or {"type":"config"}), binary
frames carry input audio when a Deepgram API key is configured. Every
session streams its events back as JSON envelopes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	var detector language.TextDetector
	if cfg.Language.ValidateWithText {
		detector = language.NewLinguaDetector()
	}

	sessions, closeSessions := context.WithCancel(context.WithoutCancel(ctx))
	defer closeSessions()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           newServer(sessions, cfg, detector).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(closeSessions)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", "address", cfg.HTTPAddress, "langgraph", cfg.LangGraph.BaseURL, "assistant", cfg.LangGraph.Assistant)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
