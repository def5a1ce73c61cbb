package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
	"github.com/JonMunkholm/intake/internal/notify"
	"github.com/JonMunkholm/intake/internal/store"
	"github.com/JonMunkholm/intake/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Database.Driver,
		"mail_driver", cfg.Mail.Driver,
		"ops_copy", len(cfg.Mail.OpsTo) > 0,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		slog.Error("failed to create schema", "error", err)
		os.Exit(1)
	}
	slog.Info("record store ready", "driver", cfg.Database.Driver, "collections", len(core.Kinds()))

	mailer, err := notify.FromConfig(cfg.Mail, logger)
	if err != nil {
		slog.Error("failed to create mail dispatcher", "error", err)
		os.Exit(1)
	}

	renderer, err := notify.NewRenderer()
	if err != nil {
		slog.Error("failed to parse email templates", "error", err)
		os.Exit(1)
	}

	background := notify.NewLimiter(cfg.Mail.OpsMaxConcurrent, notify.DefaultBackgroundTimeout)
	opts := []core.ProcessorOption{core.WithOpsCopy(cfg.Mail.OpsTo, background)}

	if cfg.Mail.TicketImage != "" {
		img, err := notify.LoadAttachment(cfg.Mail.TicketImage)
		if err != nil {
			slog.Warn("ticket image unavailable, using remote QR code", "path", cfg.Mail.TicketImage, "error", err)
		} else {
			opts = append(opts, core.WithInline(core.KeyRegistration, img))
		}
	}

	server := web.NewServer(
		core.NewProcessor(st, mailer, renderer, opts...),
		core.NewReporter(st),
		core.NewExporter(st),
		cfg,
	)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if active := background.ActiveCount(); active > 0 {
			slog.Info("waiting for operations copies", "active", active)
			if err := background.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("operations copies did not complete in time", "error", err)
			}
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
}
