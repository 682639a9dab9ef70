package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blackbox/api/internal/app"
	"blackbox/api/internal/assistant"
	"blackbox/api/internal/auth"
	"blackbox/api/internal/authpw"
	"blackbox/api/internal/cache"
	"blackbox/api/internal/config"
	"blackbox/api/internal/contact"
	"blackbox/api/internal/content"
	"blackbox/api/internal/email"
	"blackbox/api/internal/export"
	"blackbox/api/internal/gitrepo"
	"blackbox/api/internal/logging"
	"blackbox/api/internal/sanity"
	"blackbox/api/internal/search"
	"blackbox/api/internal/store"
	"blackbox/api/internal/telemetry"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := authpw.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg := config.Load()
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)
	checks := map[string]app.HealthCheck{}

	// Content source
	var (
		source    content.Source
		images    content.ImageURLBuilder
		publisher app.Publisher
	)
	switch strings.ToLower(strings.TrimSpace(cfg.ContentBackend)) {
	case "git":
		repo, err := gitrepo.Open(cfg.ContentRepoDir)
		if err != nil {
			return fmt.Errorf("open content repo: %w", err)
		}
		source, publisher = repo, repo
		images = content.ImageURLBuilder{ProjectID: cfg.SanityProjectID, Dataset: cfg.SanityDataset}
		logger.Info("content backend: git", zap.String("dir", cfg.ContentRepoDir))
	case "sanity":
		if strings.TrimSpace(cfg.SanityProjectID) == "" {
			return errors.New("SANITY_PROJECT_ID is required for the sanity content backend")
		}
		client := sanity.New(sanity.Config{
			ProjectID:  cfg.SanityProjectID,
			Dataset:    cfg.SanityDataset,
			APIVersion: cfg.SanityAPIVersion,
			UseCDN:     cfg.SanityUseCDN,
			Token:      cfg.SanityToken,
			Timeout:    cfg.SanityTimeout,
		}, nil, logger)
		source, images = client, client.Images()
		logger.Info("content backend: sanity", zap.String("project", cfg.SanityProjectID), zap.String("dataset", cfg.SanityDataset))
	default:
		return fmt.Errorf("unknown CONTENT_BACKEND %q", cfg.ContentBackend)
	}

	var purger app.Purger
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisClient, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisClient.Close()
		cached := cache.New(redisClient, source, cfg.RedisContentTTL,
			cache.WithLogger(logger.Named("cache")),
			cache.WithRecorder(metrics),
		)
		source, purger = cached, cached
		checks["redis"] = cached.Ping
		logger.Info("shared content cache enabled", zap.Duration("ttl", cfg.RedisContentTTL))
	}

	// Contact intake
	var submissions contact.Store
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()
		if _, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, logger.Named("migrate")); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		pg := store.NewPostgresStore(db)
		submissions = pg
		checks["database"] = pg.Ping
	} else {
		logger.Warn("DATABASE_URL not set, contact submissions are kept in memory only")
		submissions = store.NewMemoryStore()
	}

	var relays contact.MultiRelay
	if cfg.Web3FormsAccessKey != "" {
		relays = append(relays, &contact.Web3FormsRelay{
			AccessKey: cfg.Web3FormsAccessKey,
			Endpoint:  cfg.Web3FormsURL,
			Subject:   "New contact form submission",
			FromName:  cfg.ContactFromName,
			ToEmail:   cfg.ContactToEmail,
			Client:    &http.Client{Timeout: contact.DefaultRelayTimeout},
		})
	}
	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if mailer.IsConfigured() && cfg.ContactToEmail != "" {
		relays = append(relays, &contact.SMTPRelay{Mailer: mailer, To: []string{cfg.ContactToEmail}, SiteName: "Blackbox Logic"})
	}
	var relay contact.Relay
	switch len(relays) {
	case 0:
		logger.Warn("no contact relay configured, submissions are stored only")
	case 1:
		relay = relays[0]
	default:
		relay = relays
	}
	contactService := contact.NewService(submissions, relay,
		contact.WithLogger(logger.Named("contact")),
		contact.WithRecorder(metrics),
	)

	// Search and export
	var index search.Backend
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
		index = meili
	}

	site := content.Site{Name: "Blackbox Logic", URL: cfg.SiteURL}
	exporter := export.NewService(site,
		export.PDFRenderer{ExecPath: cfg.ChromeExecPath, Timeout: cfg.ExportRenderTimeout},
		export.DOCXConverter{PandocPath: cfg.PandocPath},
		logger, metrics,
	)

	// Admin
	admin := authpw.NewService(cfg.AdminEmail, cfg.AdminPasswordHash)
	if !admin.IsConfigured() {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD_HASH not set, admin routes are disabled and submissions are listable without sign-in")
	}

	service := app.NewService(app.Deps{
		Source:    source,
		Images:    images,
		Site:      site,
		FreshFor:  cfg.ContentFreshFor,
		Contact:   contactService,
		Search:    index,
		Export:    exporter,
		Assistant: assistant.New(assistant.DefaultRules, ""),
		Admin:     admin,
		Tokens:    auth.NewSigner(cfg.AdminTokenSecret, cfg.AdminTokenTTL),
		Publisher: publisher,
		Purger:    purger,
		Checks:    checks,
		Logger:    logger,
		Metrics:   metrics,
	})

	proxies, err := app.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin,
		app.WithRateLimit(cfg.ContactRateRPS, cfg.ContactRateBurst),
		app.WithTrustedProxies(proxies),
	)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ExportRenderTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Blackbox Logic API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
		logger.Info("server stopped")
		return nil
	})
	return group.Wait()
}
