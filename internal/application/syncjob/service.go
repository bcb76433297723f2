package syncjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

// callbackTTL bounds how long a processed callback key is remembered. Agents
// retry callbacks aggressively for minutes, not days.
const callbackTTL = 24 * time.Hour

// Service owns the sync job lifecycle: idempotent creation, agent callbacks
// and the dead letter workflow. Delivery itself runs in the queue processor.
type Service struct {
	jobs        sync.JobRepository
	orders      sync.OrderRepository
	dlq         sync.DeadLetterRepository
	idempotency shared.IdempotencyStore
	cfg         config.QueueConfig
	logger      *zap.Logger
}

// NewService creates a sync job service
func NewService(
	jobs sync.JobRepository,
	orders sync.OrderRepository,
	dlq sync.DeadLetterRepository,
	idempotency shared.IdempotencyStore,
	cfg config.QueueConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jobs:        jobs,
		orders:      orders,
		dlq:         dlq,
		idempotency: idempotency,
		cfg:         cfg,
		logger:      logger,
	}
}

// ---------------------------------------------------------------------------
// Orders & job creation
// ---------------------------------------------------------------------------

// SubmitOrder stores an order and enqueues its delivery job. Resubmitting the
// same order number returns the existing order and its active job.
func (s *Service) SubmitOrder(ctx context.Context, vendorID uuid.UUID, req SubmitOrderRequest) (*OrderResponse, error) {
	existing, err := s.orders.FindByNumber(ctx, vendorID, req.OrderNumber)
	if err == nil {
		job, jobErr := s.jobs.FindActiveByOrder(ctx, vendorID, existing.ID)
		if jobErr != nil && !errors.Is(jobErr, sync.ErrJobNotFound) {
			return nil, jobErr
		}
		resp := toOrderResponse(existing)
		if job != nil {
			resp.JobID = job.ID
		}
		return &resp, nil
	}
	if !errors.Is(err, sync.ErrOrderNotFound) {
		return nil, err
	}

	order, err := sync.NewOrder(vendorID, req.OrderNumber, req.TotalAmount, req.Payload)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	job, err := s.enqueue(ctx, vendorID, order.ID, sync.OperationOrderCreate, req.Payload)
	if err != nil {
		return nil, err
	}

	resp := toOrderResponse(order)
	resp.JobID = job.ID
	return &resp, nil
}

// CreateJob enqueues a job for an existing order. Creation is idempotent:
// an active (pending or processing) job for the same order is returned
// instead of creating a duplicate.
func (s *Service) CreateJob(ctx context.Context, vendorID uuid.UUID, req CreateJobRequest) (*JobResponse, error) {
	if _, err := s.orders.FindByID(ctx, req.OrderID); err != nil {
		return nil, err
	}

	job, err := s.enqueue(ctx, vendorID, req.OrderID, sync.Operation(req.Operation), req.Payload)
	if err != nil {
		return nil, err
	}
	resp := toJobResponse(job)
	return &resp, nil
}

// enqueue performs the lookup-before-insert idempotency check and inserts the
// job row. The check is not backed by a unique constraint; the race window
// between lookup and insert is an accepted limitation.
func (s *Service) enqueue(ctx context.Context, vendorID, orderID uuid.UUID, op sync.Operation, payload []byte) (*sync.Job, error) {
	existing, err := s.jobs.FindActiveByOrder(ctx, vendorID, orderID)
	if err == nil {
		s.logger.Info("active job exists for order, returning it",
			zap.String("order_id", orderID.String()),
			zap.String("job_id", existing.ID.String()),
		)
		return existing, nil
	}
	if !errors.Is(err, sync.ErrJobNotFound) {
		return nil, err
	}

	job, err := sync.NewJob(vendorID, orderID, op, payload, s.cfg.MaxRetries, s.cfg.JobTTL)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("sync job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("vendor_id", vendorID.String()),
		zap.String("operation", string(op)),
	)
	return job, nil
}

// ---------------------------------------------------------------------------
// Agent callbacks
// ---------------------------------------------------------------------------

// HandleCallback applies the agent's terminal report to the job and its
// order. A callback only applies while the job is in flight; anything else is
// an agent retransmit of a report already applied and is acknowledged without
// re-applying. The idempotency store additionally dedups concurrent
// retransmits racing on the same delivery.
func (s *Service) HandleCallback(ctx context.Context, vendorID uuid.UUID, req CallbackRequest) error {
	job, err := s.jobs.FindByID(ctx, req.JobID)
	if err != nil {
		return err
	}
	if job.VendorID != vendorID {
		return shared.ErrForbidden
	}
	if job.Status.IsTerminal() {
		s.logger.Info("callback for terminal job ignored",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
		)
		return nil
	}
	if job.Status != sync.JobStatusProcessing {
		// A prior callback already moved the job back to PENDING for its
		// next delivery attempt.
		s.logger.Info("callback for job with no delivery in flight ignored",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
		)
		return nil
	}

	// The retry counter identifies the delivery attempt, so a redelivery that
	// fails with the same error is never mistaken for a retransmit of the
	// previous attempt's report.
	key := fmt.Sprintf("%s:%d:%t", req.JobID, job.RetryCount, req.Success)
	fresh, err := s.idempotency.MarkProcessed(ctx, key, callbackTTL)
	if err != nil {
		// Degraded dedup is better than dropping the callback
		s.logger.Warn("idempotency store unavailable, processing callback anyway", zap.Error(err))
	} else if !fresh {
		s.logger.Info("duplicate callback ignored", zap.String("job_id", req.JobID.String()))
		return nil
	}

	if req.Success {
		return s.completeJob(ctx, job, req.ErpReference)
	}
	return s.failJob(ctx, job, req)
}

func (s *Service) completeJob(ctx context.Context, job *sync.Job, erpReference string) error {
	if err := job.Complete(erpReference); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	// The order gets the ERP reference directly, no intermediate hop.
	order, err := s.orders.FindByID(ctx, job.OrderID)
	if err != nil {
		s.logger.Error("completed job references missing order",
			zap.String("job_id", job.ID.String()),
			zap.String("order_id", job.OrderID.String()),
		)
		return nil
	}
	order.MarkSynced(erpReference)
	if err := s.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	s.logger.Info("job completed",
		zap.String("job_id", job.ID.String()),
		zap.String("erp_reference", erpReference),
	)
	return nil
}

func (s *Service) failJob(ctx context.Context, job *sync.Job, req CallbackRequest) error {
	if req.Retryable {
		job.MarkRetryable(req.ErrorMessage)
	} else {
		job.MarkFatal(req.ErrorMessage)
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	if job.Status != sync.JobStatusFailed {
		return nil
	}

	if req.Retryable && job.Exhausted() {
		entry := sync.NewDeadLetterEntry(job)
		if err := s.dlq.Save(ctx, entry); err != nil {
			s.logger.Error("failed to create dead letter entry",
				zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}

	order, err := s.orders.FindByID(ctx, job.OrderID)
	if err == nil {
		order.MarkSyncError()
		if err := s.orders.Update(ctx, order); err != nil {
			s.logger.Error("failed to mark order sync error",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Dead letter workflow
// ---------------------------------------------------------------------------

// RetryDeadLetter re-enqueues a fresh job from a parked entry and marks the
// entry retried. The original entry is never mutated beyond its status.
func (s *Service) RetryDeadLetter(ctx context.Context, id uuid.UUID, operator string) (*JobResponse, error) {
	entry, err := s.dlq.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.MarkRetried(operator); err != nil {
		return nil, err
	}

	job, err := s.enqueue(ctx, entry.VendorID, entry.OrderID, entry.Operation, entry.Payload)
	if err != nil {
		return nil, err
	}
	if err := s.dlq.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update dead letter entry: %w", err)
	}

	s.logger.Info("dead letter entry retried",
		zap.String("entry_id", entry.ID.String()),
		zap.String("new_job_id", job.ID.String()),
		zap.String("operator", operator),
	)
	resp := toJobResponse(job)
	return &resp, nil
}

// ResolveDeadLetter closes an entry without retrying.
func (s *Service) ResolveDeadLetter(ctx context.Context, id uuid.UUID, operator string, req ResolveRequest) error {
	entry, err := s.dlq.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := entry.MarkResolved(operator, req.Resolution); err != nil {
		return err
	}
	return s.dlq.Update(ctx, entry)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// GetJob returns one job.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*JobResponse, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toJobResponse(job)
	return &resp, nil
}

// ListJobs returns jobs matching the filter.
func (s *Service) ListJobs(ctx context.Context, filter JobListFilter) ([]JobResponse, int64, error) {
	domainFilter := sync.JobFilter{
		VendorID: filter.VendorID,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Status != "" {
		st := sync.JobStatus(filter.Status)
		domainFilter.Status = &st
	}
	if filter.Operation != "" {
		op := sync.Operation(filter.Operation)
		domainFilter.Operation = &op
	}

	jobs, total, err := s.jobs.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]JobResponse, len(jobs))
	for i := range jobs {
		responses[i] = toJobResponse(&jobs[i])
	}
	return responses, total, nil
}

// ListDeadLetters returns DLQ entries matching the filter.
func (s *Service) ListDeadLetters(ctx context.Context, filter DeadLetterListFilter) ([]DeadLetterResponse, int64, error) {
	domainFilter := sync.DeadLetterFilter{
		VendorID: filter.VendorID,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Status != "" {
		st := sync.DeadLetterStatus(filter.Status)
		domainFilter.Status = &st
	}

	entries, total, err := s.dlq.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]DeadLetterResponse, len(entries))
	for i := range entries {
		responses[i] = toDeadLetterResponse(&entries[i])
	}
	return responses, total, nil
}

// JobStats returns job counts per status plus the pending DLQ backlog.
func (s *Service) JobStats(ctx context.Context) (map[string]int64, error) {
	counts, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(counts)+1)
	for status, n := range counts {
		stats[string(status)] = n
	}
	pending, err := s.dlq.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	stats["DEAD_LETTER_PENDING"] = pending
	return stats, nil
}

func toOrderResponse(o *sync.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		VendorID:     o.VendorID,
		OrderNumber:  o.OrderNumber,
		Status:       string(o.Status),
		ErpReference: o.ErpReference,
		SyncedAt:     o.SyncedAt,
	}
}
