package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/propertyflow/propertyflow/internal/api"
	"github.com/propertyflow/propertyflow/internal/audit"
	"github.com/propertyflow/propertyflow/internal/company"
	"github.com/propertyflow/propertyflow/internal/config"
	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/identity"
	"github.com/propertyflow/propertyflow/internal/metrics"
	"github.com/propertyflow/propertyflow/internal/property"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PropertyFlow API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	userStore := directory.NewStore(pool, cfg.Identity.SessionDuration)
	companyStore := company.NewStore(pool)
	propertyStore := property.NewStore(pool)

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	auditStore := audit.NewStore(pool)
	collector := audit.NewCollector(auditStore, cfg.Audit.BatchSize, cfg.Audit.FlushInterval)
	collector.OnFlush(m.IncAuditFlush)
	go collector.Start(ctx)

	if cfg.Identity.Provider == "local" {
		go cleanSessionsLoop(ctx, userStore)
	}

	verifier, err := newVerifier(ctx, cfg, userStore)
	if err != nil {
		return err
	}
	slog.Info("identity provider ready", "provider", verifier.Provider())

	router := api.NewRouter(api.RouterDeps{
		Logger:         logger,
		Verifier:       verifier,
		Users:          userStore,
		Companies:      companyStore,
		Properties:     propertyStore,
		AuditLog:       auditStore,
		Auditor:        collector,
		Metrics:        m,
		DB:             pool,
		LocalAuth:      cfg.Identity.Provider == "local",
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	collector.Stop()

	return srv.Shutdown(shutdownCtx)
}

// cleanSessionsLoop periodically deletes expired sessions.
func cleanSessionsLoop(ctx context.Context, users *directory.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := users.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned expired sessions", "count", n)
			}
		}
	}
}

// newVerifier builds the credential verifier for the configured provider.
func newVerifier(ctx context.Context, cfg *config.Config, users *directory.Store) (identity.Verifier, error) {
	switch cfg.Identity.Provider {
	case "local":
		return directory.NewSessionVerifier(users), nil
	case "oidc":
		v, err := identity.NewOIDCVerifier(ctx, identity.OIDCOptions{
			IssuerURL:   cfg.Identity.OIDC.IssuerURL,
			ClientID:    cfg.Identity.OIDC.ClientID,
			EmailClaim:  cfg.Identity.OIDC.EmailClaim,
			NameClaim:   cfg.Identity.OIDC.NameClaim,
			RoleClaim:   cfg.Identity.OIDC.RoleClaim,
			UserInfoTTL: cfg.Identity.OIDC.UserInfoTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("building oidc verifier: %w", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown identity provider %q", cfg.Identity.Provider)
}
