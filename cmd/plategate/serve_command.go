package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"plategate/internal/auth"
	httphandler "plategate/internal/http"
	"plategate/internal/http/middleware"
	"plategate/internal/ocr"
	"plategate/internal/service"
	"plategate/internal/storage"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateOCR(); err != nil {
				return fmt.Errorf("invalid ocr config: %w", err)
			}
			appLogger := ctx.log

			repo, closeRepo, err := openRepository(cfg, appLogger)
			if err != nil {
				return err
			}
			defer closeRepo()

			uploads, err := storage.NewImageStore(cfg.Paths.UploadDir, "uploads")
			if err != nil {
				return err
			}
			scans, err := storage.NewImageStore(cfg.Paths.ScanDir, "scans")
			if err != nil {
				return err
			}

			engine, err := newEngine(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize ocr engine: %w", err)
			}
			reader, err := ocr.NewReader(engine, ocr.Options{
				MinConfidence: cfg.OCR.MinConfidence,
				MinTextLength: cfg.OCR.MinTextLength,
				Timeout:       cfg.OCR.Timeout,
			}, appLogger)
			if err != nil {
				return err
			}

			mirror, err := newMirror(cfg, appLogger)
			if err != nil {
				return err
			}

			var authMiddleware gin.HandlerFunc
			if cfg.Auth.AccessSecret != "" {
				authMiddleware = middleware.Auth(auth.NewParser(cfg.Auth.AccessSecret))
			} else {
				appLogger.Warn().Msg("JWT_ACCESS_SECRET not set, export endpoint is unauthenticated")
				authMiddleware = middleware.Auth(nil)
			}

			handler := httphandler.NewHandler(
				service.NewScanService(repo, scans, reader, mirror, appLogger),
				service.NewRegistrationService(repo, uploads, mirror, appLogger),
				service.NewHistoryService(repo),
				cfg,
				appLogger,
			)
			router, err := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, repo, appLogger)
			if err != nil {
				return err
			}

			addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
			appLogger.Info().
				Str("addr", addr).
				Str("storage", cfg.Storage).
				Str("ocr_engine", reader.EngineName()).
				Msg("starting plategate")

			srv := &http.Server{
				Addr:    addr,
				Handler: router,
			}

			serveErr := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("failed to start server: %w", err)
				}
			case <-sigCtx.Done():
			}

			appLogger.Info().Msg("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				appLogger.Error().Err(err).Msg("server forced to shutdown")
			}

			appLogger.Info().Msg("server exited")
			return nil
		},
	}
}
