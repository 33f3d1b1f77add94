package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"health-assistant-backend/config"
	"health-assistant-backend/database"
	"health-assistant-backend/middleware"
	"health-assistant-backend/routes"
	"health-assistant-backend/services"
)

func main() {
	if err := config.Load(); err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect database", "error", err)
		}
	}()

	hub := services.NewNotificationHub(logger)
	notifiers := services.MultiNotifier{hub}
	sinks := services.MultiSink{}
	if db.Analytics != nil {
		sinks = append(sinks, db.Analytics)
	} else {
		sinks = append(sinks, services.NewLogSink(logger))
	}

	if cfg.NATS.URL != "" {
		publisher, err := services.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Token, logger)
		if err != nil {
			logger.Warn("NATS unavailable, alerts stay local", "error", err)
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
			sinks = append(sinks, publisher)
			logger.Info("publishing alerts and analytics to NATS", "url", cfg.NATS.URL)
		}
	}

	clinic := services.ClinicInfo{
		Name:           cfg.Clinic.Name,
		Address:        cfg.Clinic.Address,
		Phone:          cfg.Clinic.Phone,
		EmergencyPhone: cfg.Clinic.EmergencyPhone,
		Hours:          cfg.Clinic.Hours,
		Services:       cfg.Clinic.Services,
	}
	metrics := services.NewMetrics()

	var composerOpts []services.ComposerOption
	if generator := newGenerator(cfg); generator != nil {
		composerOpts = append(composerOpts, services.WithGenerator(generator, cfg.AI.Timeout))
		logger.Info("generative augmentation enabled", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	} else {
		logger.Warn("generative augmentation disabled, using templates only")
	}

	engine := services.NewDialogueEngine(services.EngineDeps{
		Cache:     services.NewContextCache(db.Sessions, logger),
		Composer:  services.NewResponseComposer(clinic, metrics, logger, composerOpts...),
		Notifier:  notifiers,
		Analytics: sinks,
		Metrics:   metrics,
		Clinic:    clinic,
		Logger:    logger,
	})
	chatbotService := services.NewChatbotService(engine, clinic, logger)

	reporter, err := services.StartMetricsReporter(cfg.MetricsSchedule, metrics, logger)
	if err != nil {
		return err
	}
	defer reporter.Stop()

	whatsappService := services.NewWhatsAppService(services.WhatsAppSettings{
		APIVersion:    cfg.WhatsApp.APIVersion,
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		VerifyToken:   cfg.WhatsApp.VerifyToken,
	}, logger)
	if !cfg.WhatsAppEnabled() {
		logger.Warn("WhatsApp integration is not configured")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	if len(cfg.Security.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			return err
		}
	}

	whatsappController := routes.SetupRoutes(router, routes.Dependencies{
		ChatbotService:  chatbotService,
		Hub:             hub,
		WhatsAppService: whatsappService,
		WhatsAppSecret:  cfg.WhatsApp.AppSecret,
		AllowedOrigins:  cfg.Security.AllowedOrigins,
		HealthCheck:     db.HealthCheck,
		Logger:          logger,
	})

	for _, r := range router.Routes() {
		logger.Debug("route registered", "method", r.Method, "path", r.Path)
	}

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "database", cfg.Database.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	whatsappController.Wait()

	logger.Info("server exited")
	return nil
}

func newGenerator(cfg *config.Config) services.Generator {
	if !cfg.AIEnabled() {
		return nil
	}
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		g := services.NewGeminiGenerator(cfg.AI.APIKey, cfg.AI.Model)
		if cfg.AI.BaseURL != "" {
			g.SetBaseURL(cfg.AI.BaseURL)
		}
		return g
	case config.ProviderOpenAI:
		return services.NewOpenAIGenerator(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	}
	return nil
}
