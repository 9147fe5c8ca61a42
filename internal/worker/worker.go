package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confhub/backend/pkg/queue"
)

// JobQueue is the part of queue.Queue the processor needs.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// LogoDeleter removes every stored logo of an organization.
type LogoDeleter interface {
	DeleteLogos(ctx context.Context, orgID uuid.UUID) error
}

// JobProcessor runs background jobs pulled from the queue.
type JobProcessor struct {
	queue   JobQueue
	logos   LogoDeleter
	logger  *zap.Logger
	backoff time.Duration
}

// NewJobProcessor creates a job processor. logos may be nil, in which case
// logo cleanup jobs are acknowledged without work.
func NewJobProcessor(q JobQueue, logos LogoDeleter, logger *zap.Logger) *JobProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobProcessor{queue: q, logos: logos, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one job.
func (p *JobProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeLogoCleanup:
		var payload queue.LogoCleanupPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if p.logos == nil {
			p.logger.Debug("logo storage disabled, skipping cleanup", zap.String("organization_id", payload.OrganizationID.String()))
			return nil
		}
		if err := p.logos.DeleteLogos(ctx, payload.OrganizationID); err != nil {
			return fmt.Errorf("delete logos: %w", err)
		}
		p.logger.Info("organization logos removed", zap.String("organization_id", payload.OrganizationID.String()))
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *JobProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("job processor stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, queue.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *JobProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// InvitePurger deletes expired invites.
type InvitePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// InviteSweeper periodically removes expired invites.
type InviteSweeper struct {
	invites  InvitePurger
	interval time.Duration
	logger   *zap.Logger
}

// NewInviteSweeper creates a sweeper that runs every interval.
func NewInviteSweeper(invites InvitePurger, interval time.Duration, logger *zap.Logger) *InviteSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &InviteSweeper{invites: invites, interval: interval, logger: logger}
}

// Sweep runs one purge.
func (s *InviteSweeper) Sweep(ctx context.Context) {
	n, err := s.invites.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("purge expired invites", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired invites purged", zap.Int64("count", n))
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *InviteSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("invite sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
