package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/condoledger/condoledger/internal/posting"
	"github.com/condoledger/condoledger/internal/shared"
)

// systemActorID identifies sweep runs triggered by the scheduler rather
// than a person.
const systemActorID = 0

// SweepRunner runs one idempotent sweep for an organization.
type SweepRunner interface {
	Sweep(ctx context.Context, actor shared.Identity, from, to time.Time) (posting.SweepResult, error)
}

// OrgSource lists organizations with sweep-eligible entries.
type OrgSource interface {
	OrgsWithSettled(ctx context.Context, from, to time.Time) ([]int64, error)
}

// IntegrationSweepJob drives the scheduled settled-entry sweep.
type IntegrationSweepJob struct {
	runner SweepRunner
	orgs   OrgSource
	logger *slog.Logger
}

// NewIntegrationSweepJob constructs the job handler.
func NewIntegrationSweepJob(runner SweepRunner, orgs OrgSource, logger *slog.Logger) *IntegrationSweepJob {
	return &IntegrationSweepJob{runner: runner, orgs: orgs, logger: logger}
}

// Handle processes TaskIntegrationSweep tasks. The sweep itself is
// idempotent, so retries after partial failures are safe.
func (j *IntegrationSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IntegrationSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	from, to := payload.Window(time.Now().UTC())

	orgIDs := []int64{payload.OrgID}
	if payload.OrgID == 0 {
		var err error
		orgIDs, err = j.orgs.OrgsWithSettled(ctx, from, to)
		if err != nil {
			return err
		}
	}

	// Organizations are independent, so their sweeps run concurrently. The
	// per-entry source link keeps a retried run idempotent either way.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, orgID := range orgIDs {
		orgID := orgID
		g.Go(func() error {
			actor := shared.Identity{OrgID: orgID, ActorID: systemActorID, Admin: true}
			result, err := j.runner.Sweep(gctx, actor, from, to)
			if err != nil {
				j.logger.Error("integration sweep",
					slog.Int64("org_id", orgID),
					slog.Any("error", err))
				return err
			}
			j.logger.Info("integration sweep",
				slog.Int64("org_id", orgID),
				slog.String("from", from.Format("2006-01-02")),
				slog.String("to", to.Format("2006-01-02")),
				slog.Int("candidates", result.Candidates),
				slog.Int("created", result.Created),
				slog.Int("ignored", result.Ignored),
				slog.Int("unmapped", result.Unmapped))
			return nil
		})
	}
	return g.Wait()
}
