package mirror

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/vc-analyst/internal/application"
	domain "github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

const defaultTimeout = 5 * time.Second

// Coordinator copies committed reports into the secondary store.
// It never returns an error: every failure collapses into an Outcome.
type Coordinator struct {
	store   domain.Store
	clock   application.Clock
	timeout time.Duration
	log     *zap.Logger
}

// NewCoordinator accepts a nil store; every sync is then skipped.
func NewCoordinator(store domain.Store, clock application.Clock, timeout time.Duration, log *zap.Logger) *Coordinator {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Coordinator{store: store, clock: clock, timeout: timeout, log: log.Named("mirror")}
}

// Sync upserts the owner profile, then writes the report document.
// It runs detached from the caller's cancellation, bounded by its own timeout.
func (c *Coordinator) Sync(ctx context.Context, r *report.Report, owner report.Owner) domain.Outcome {
	fields := []zap.Field{zap.String("owner_id", r.OwnerID), zap.String("report_id", string(r.ID))}
	if c.store == nil {
		c.log.Info("mirror store not configured, skipping sync", fields...)
		return domain.Skipped(domain.ReasonStoreUnavailable)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	now := c.clock.Now()
	profile := domain.Profile{
		OwnerID:      r.OwnerID,
		Email:        owner.Email,
		DisplayName:  owner.DisplayName,
		LastSyncedAt: now,
	}
	if err := c.store.UpsertProfile(ctx, profile); err != nil {
		return c.outcome("profile_upsert", err, fields)
	}

	doc := domain.Report{
		OwnerID:   r.OwnerID,
		ReportID:  string(r.ID),
		Title:     r.Title,
		Summary:   r.Summary,
		Result:    map[string]any(r.Result),
		CreatedAt: r.CreatedAt,
		SyncedAt:  now,
		Source:    domain.Source,
	}
	if err := c.store.PutReport(ctx, doc); err != nil {
		return c.outcome("report_write", err, fields)
	}

	c.log.Info("synced analysis to mirror store", fields...)
	return domain.Synced()
}

func (c *Coordinator) outcome(step string, err error, fields []zap.Field) domain.Outcome {
	fields = append(fields, zap.String("step", step), zap.Error(err))
	if errors.Is(err, domain.ErrUnavailable) {
		c.log.Warn("mirror store unreachable, skipping sync", fields...)
		return domain.Skipped(domain.ReasonStoreUnavailable)
	}
	c.log.Error("failed to sync analysis to mirror store", fields...)
	return domain.Failed(err)
}
