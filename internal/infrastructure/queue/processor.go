package queue

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

// Processor polls the sync_jobs table for due work and delivers it to vendor
// agents. Claiming is atomic (skip-locked), so multiple instances can run the
// processor concurrently without double-delivering a job.
//
// Delivery is asynchronous end to end: a successful push leaves the job in
// PROCESSING until the agent reports the terminal outcome through the
// callback endpoint.
type Processor struct {
	jobs    sync.JobRepository
	agents  agent.Repository
	orders  sync.OrderRepository
	dlq     sync.DeadLetterRepository
	gateway agent.Gateway
	cfg     config.QueueConfig
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// NewProcessor creates a job queue processor.
func NewProcessor(
	jobs sync.JobRepository,
	agents agent.Repository,
	orders sync.OrderRepository,
	dlq sync.DeadLetterRepository,
	gateway agent.Gateway,
	cfg config.QueueConfig,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		jobs:    jobs,
		agents:  agents,
		orders:  orders,
		dlq:     dlq,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start begins background polling.
func (p *Processor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.pollLoop(ctx)

	p.logger.Info("job processor started",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.PollInterval),
	)
	return nil
}

// Stop gracefully stops the processor, waiting for in-flight deliveries.
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("job processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch requeues timed-out claims, then claims and delivers one batch
// of due jobs.
func (p *Processor) processBatch(ctx context.Context) {
	p.requeueStalled(ctx)

	due, err := p.jobs.FindDue(ctx, time.Now(), p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("failed to find due jobs", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(due))
	for i, j := range due {
		ids[i] = j.ID
	}

	claimed, err := p.jobs.ClaimProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to claim jobs", zap.Error(err))
		return
	}

	for _, job := range claimed {
		p.deliver(ctx, job)
	}
}

// requeueStalled reschedules jobs whose claim outlived the visibility timeout.
// A worker crash after ClaimProcessing, or an agent that accepted the push but
// never reported back, would otherwise strand the row in PROCESSING forever.
// The timeout turns that into an ordinary retryable failure, so backoff and
// dead letter escalation apply as usual.
func (p *Processor) requeueStalled(ctx context.Context) {
	if p.cfg.ClaimTimeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-p.cfg.ClaimTimeout)
	stalled, err := p.jobs.FindStalled(ctx, cutoff, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("failed to find stalled jobs", zap.Error(err))
		return
	}

	for _, job := range stalled {
		p.logger.Warn("job claim timed out, rescheduling",
			zap.String("job_id", job.ID.String()),
			zap.Timep("started_at", job.StartedAt),
		)
		p.recordRetryable(ctx, job, "delivery claim timed out without an agent callback")
	}
}

// deliver pushes one job to the vendor's agent and records the outcome.
func (p *Processor) deliver(ctx context.Context, job *sync.Job) {
	reg, err := p.agents.FindByVendor(ctx, job.VendorID)
	if err != nil {
		p.recordRetryable(ctx, job, "no agent registered for vendor")
		return
	}

	if reg.DeriveStatus(time.Now()) == agent.StatusOffline {
		p.recordRetryable(ctx, job, "agent is offline")
		return
	}

	result, err := p.gateway.PushOrder(ctx, reg, agent.OrderPush{
		JobID:         job.ID,
		OrderID:       job.OrderID,
		Payload:       job.Payload,
		CorrelationID: job.ID.String(),
	})
	switch {
	case err == nil && result.Accepted:
		// Terminal outcome arrives through the callback endpoint.
		p.logger.Info("job delivered to agent",
			zap.String("job_id", job.ID.String()),
			zap.String("vendor_id", job.VendorID.String()),
			zap.String("operation", string(job.Operation)),
		)
	case err == nil:
		p.recordFatal(ctx, job, "agent refused order: "+result.Message)
	case errors.Is(err, shared.ErrAgentRejected):
		p.recordFatal(ctx, job, err.Error())
	default:
		// Transport failures, 5xx and open circuits retry with backoff.
		p.recordRetryable(ctx, job, err.Error())
	}
}

func (p *Processor) recordRetryable(ctx context.Context, job *sync.Job, errMsg string) {
	job.MarkRetryable(errMsg)

	if err := p.jobs.Update(ctx, job); err != nil {
		p.logger.Error("failed to update job after retryable failure",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return
	}

	if job.Exhausted() {
		p.logger.Warn("job exhausted retry budget",
			zap.String("job_id", job.ID.String()),
			zap.String("vendor_id", job.VendorID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.String("last_error", errMsg),
		)
		p.escalate(ctx, job)
		return
	}

	p.logger.Warn("job delivery failed, retry scheduled",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Timep("next_retry_at", job.NextRetryAt),
		zap.String("error", errMsg),
	)
}

func (p *Processor) recordFatal(ctx context.Context, job *sync.Job, errMsg string) {
	job.MarkFatal(errMsg)

	if err := p.jobs.Update(ctx, job); err != nil {
		p.logger.Error("failed to update job after fatal failure",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		return
	}

	p.logger.Warn("job failed with non-retryable error",
		zap.String("job_id", job.ID.String()),
		zap.String("vendor_id", job.VendorID.String()),
		zap.String("error", errMsg),
	)
	p.markOrderSyncError(ctx, job)
}

// escalate moves an exhausted job into the dead letter queue and flags the
// originating order. Escalation is best effort; failures are logged and the
// DLQ alert sweep surfaces the gap.
func (p *Processor) escalate(ctx context.Context, job *sync.Job) {
	entry := sync.NewDeadLetterEntry(job)
	if err := p.dlq.Save(ctx, entry); err != nil {
		p.logger.Error("failed to create dead letter entry",
			zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	p.markOrderSyncError(ctx, job)
}

func (p *Processor) markOrderSyncError(ctx context.Context, job *sync.Job) {
	order, err := p.orders.FindByID(ctx, job.OrderID)
	if err != nil {
		p.logger.Error("failed to load order for sync error",
			zap.String("order_id", job.OrderID.String()), zap.Error(err))
		return
	}
	order.MarkSyncError()
	if err := p.orders.Update(ctx, order); err != nil {
		p.logger.Error("failed to mark order sync error",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}
