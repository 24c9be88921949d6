package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdg-garage/qr-checkin/internal/auth"
	"github.com/gdg-garage/qr-checkin/internal/checkin"
	"github.com/gdg-garage/qr-checkin/internal/config"
	"github.com/gdg-garage/qr-checkin/internal/cooldown"
	"github.com/gdg-garage/qr-checkin/internal/database"
	"github.com/gdg-garage/qr-checkin/internal/handlers"
	"github.com/gdg-garage/qr-checkin/internal/logger"
	"github.com/gdg-garage/qr-checkin/internal/metrics"
	"github.com/gdg-garage/qr-checkin/internal/notifier"
	"github.com/gdg-garage/qr-checkin/internal/registration"
	"github.com/gdg-garage/qr-checkin/internal/scanner"
	"github.com/gdg-garage/qr-checkin/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}

	regs, closeStore, err := store.Open(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeStore(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}()

	newCache, err := cooldownFactory(cfg)
	if err != nil {
		return err
	}

	discordNotifier, err := notifier.NewDiscordNotifier(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Discord notifier not initialized")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	registrationService := registration.NewService(regs, discordNotifier, m, log, cfg.QRSize)
	hub := scanner.NewHub(func(station string) *checkin.Validator {
		return checkin.NewValidator(regs, newCache(station), discordNotifier, m, log, checkin.Options{
			Station:    station,
			Window:     cfg.CooldownWindow,
			Location:   loc,
			DateLayout: cfg.CheckInDateLayout,
			TimeLayout: cfg.CheckInTimeLayout,
		})
	}, scanner.Config{FPS: cfg.ScanFPS, BoxSize: cfg.ScanBoxSize}, m, log)
	defer hub.Close()

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, log, prometheus.DefaultGatherer,
		auth.NewAuthHandler(cfg, db, log),
		handlers.NewRegistrationHandler(registrationService),
		handlers.NewStationHandler(hub),
		handlers.NewAPIKeyHandler(db),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		hub.Close()
		return err
	})
	return g.Wait()
}

// cooldownFactory returns the constructor for each station's scan cache.
func cooldownFactory(cfg *config.Config) (func(station string) cooldown.Cache, error) {
	if cfg.CooldownDriver == config.CooldownMemory {
		return func(string) cooldown.Cache { return cooldown.NewMemory() }, nil
	}

	scans, err := database.OpenCooldown(cfg.CooldownPath)
	if err != nil {
		return nil, err
	}
	return func(station string) cooldown.Cache { return cooldown.NewGorm(scans, station) }, nil
}
