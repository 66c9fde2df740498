package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/aprilgo/internal/config"
	"github.com/MeKo-Tech/aprilgo/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the detection API",
	Long: `Start an HTTP server that provides REST and WebSocket endpoints for tag detection.

The server provides the following endpoints:
  GET  /health          - Health check endpoint
  GET  /families        - List compiled-in tag families
  POST /detect          - Detect tags in an uploaded image (field "image") or a raw
                          gray/RGB/RGBA buffer (?width=W&height=H)
  POST /detect/overlay  - Same input, returns the annotated image as PNG
  GET  /ws              - WebSocket; binary frames [u32 width][u32 height][pixels]
  GET  /metrics         - Prometheus metrics

Examples:
  aprilgo serve
  aprilgo serve --port 8080
  aprilgo serve --host 0.0.0.0 --port 3000 --black-border 2`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addDetectorFlags(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("overlay-enable", true, "enable overlay image responses")
	serveCmd.Flags().String("overlay-color", "#00ff00", "overlay outline color (hex)")
}

// serverConfig maps centralized configuration to server.Config.
func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadMB:    int64(cfg.Server.MaxUploadMB),
		TimeoutSec:     cfg.Server.TimeoutSec,
		OverlayEnabled: cfg.Server.OverlayEnabled,
		OverlayColor:   cfg.Output.OverlayColor,
		Family:         cfg.Detector.Family,
		BlackBorder:    cfg.Detector.BlackBorder,
		Warmup:         cfg.Detector.WarmupIterations,
		EngineFactory:  engineFactory,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(serverConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	// The request timeout is enforced per handler; the write timeout leaves
	// room for it and must not cut off WebSocket streams.
	httpServer := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting detection server", "addr", httpServer.Addr,
			"family", cfg.Detector.Family, "black_border", cfg.Detector.BlackBorder)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}
