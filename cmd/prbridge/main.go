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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/prbridge/internal/adapter/driven/github"
	slackadapter "github.com/ericfisherdev/prbridge/internal/adapter/driven/slack"
	sqliteadapter "github.com/ericfisherdev/prbridge/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/prbridge/internal/adapter/driving/webhook"
	"github.com/ericfisherdev/prbridge/internal/application"
	"github.com/ericfisherdev/prbridge/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing webhook secrets).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"workers", cfg.Workers,
		"settle_delay", cfg.SettleDelay,
		"archive_after", cfg.ArchiveAfter,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	orgStore := sqliteadapter.NewOrgRepo(db)
	repoStore := sqliteadapter.NewRepoRepo(db)
	userStore := sqliteadapter.NewUserRepo(db)
	prStore := sqliteadapter.NewPRRepo(db)
	reviewStore := sqliteadapter.NewReviewRequestRepo(db)
	commentStore := sqliteadapter.NewCommentRepo(db)
	githubClients := githubadapter.NewClientCache()
	chatClients := slackadapter.NewClientCache()

	// 6. Wire application services.
	echo := application.NewEchoClassifier(commentStore, githubClients, slog.Default())
	lifecycle := application.NewLifecycleService(
		orgStore, repoStore, userStore, prStore, reviewStore, commentStore,
		chatClients, slog.Default(),
	)
	threads := application.NewThreadResolver(
		orgStore, repoStore, userStore, prStore, reviewStore, commentStore,
		chatClients, githubClients, echo, slog.Default(),
	)
	relay := application.NewRelayService(
		orgStore, repoStore, userStore, prStore, commentStore,
		githubClients, slog.Default(),
	)

	// 7. Start the dispatcher's worker pool.
	dispatcher := application.NewDispatcher(cfg.Workers, cfg.QueueSize, slog.Default())
	dispatcher.Start(ctx)
	defer dispatcher.Stop()
	slog.Info("dispatcher started", "workers", cfg.Workers, "queue_size", cfg.QueueSize)

	// 8. Start the channel archival reconciler.
	reconciler := application.NewReconciler(
		orgStore, repoStore, prStore, chatClients,
		cfg.ArchiveAfter, cfg.ReconcileInterval, slog.Default(),
	)
	go reconciler.Start(ctx)

	// 9. Create the webhook handler and HTTP server.
	handler := webhook.NewHandler(
		cfg.GitHubWebhookSecret, cfg.SlackSigningSecret, cfg.SettleDelay,
		dispatcher, lifecycle, threads, relay, prStore, slog.Default(),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           webhook.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("prbridge started", "listen_addr", cfg.ListenAddr)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 11. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
