package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Reconciler archives channels of pull requests that have been closed or
// merged longer than the retention window. It runs on a fixed interval with
// an immediate first pass.
type Reconciler struct {
	orgs      driven.OrgStore
	repos     driven.RepoStore
	prs       driven.PRStore
	chat      driven.ChatClients
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(
	orgs driven.OrgStore,
	repos driven.RepoStore,
	prs driven.PRStore,
	chat driven.ChatClients,
	retention, interval time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		orgs:      orgs,
		repos:     repos,
		prs:       prs,
		chat:      chat,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs the archival loop until the context is cancelled. It blocks;
// run it in its own goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("reconciler started", "retention", r.retention, "interval", r.interval)

	r.reconcile(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.retention)

	prs, err := r.prs.ListClosedBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("listing closed PRs failed", "error", err)
		return
	}

	for _, pr := range prs {
		if err := r.archive(ctx, pr.ID, pr.RepoID, pr.ChannelID); err != nil {
			r.logger.Error("archiving channel failed",
				"pr_id", pr.ID, "channel", pr.ChannelID, "error", err)
		}
	}

	if len(prs) > 0 {
		r.logger.Info("archival pass complete", "archived", len(prs))
	}
}

func (r *Reconciler) archive(ctx context.Context, prID, repoID int64, channelID string) error {
	repo, err := r.repos.GetByID(ctx, repoID)
	if err != nil {
		return err
	}
	if repo == nil {
		return nil
	}
	org, err := r.orgs.GetByID(ctx, repo.OrgID)
	if err != nil {
		return err
	}
	if org == nil {
		return nil
	}

	chat := r.chat.ForToken(org.SlackBotToken)
	if err := chat.ArchiveChannel(ctx, channelID); err != nil {
		return err
	}

	return r.prs.SetChannel(ctx, prID, channelID, true)
}
