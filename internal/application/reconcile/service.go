package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/application/ingest"
	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/domain/catalog"
	"github.com/restosuite/backend/internal/domain/reconciliation"
	"github.com/restosuite/backend/internal/infrastructure/alerting"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

// Service is the drift-detection engine. It compares range checksums between
// the local store and the vendor's ERP, narrowing mismatches by binary search
// over the natural-key space until ranges are small enough to diff item by
// item. Conflicts resolve ERP-wins through the regular ingest path.
type Service struct {
	items   catalog.ItemRepository
	agents  agent.Repository
	gateway agent.Gateway
	events  reconciliation.Repository
	ingest  *ingest.Service
	alerts  alerting.Sink
	cfg     config.ReconcileConfig
	logger  *zap.Logger
}

// NewService creates a reconciliation service
func NewService(
	items catalog.ItemRepository,
	agents agent.Repository,
	gateway agent.Gateway,
	events reconciliation.Repository,
	ingestSvc *ingest.Service,
	alerts alerting.Sink,
	cfg config.ReconcileConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		items:   items,
		agents:  agents,
		gateway: gateway,
		events:  events,
		ingest:  ingestSvc,
		alerts:  alerts,
		cfg:     cfg,
		logger:  logger,
	}
}

// RunSummary is the recorded outcome of one reconciliation run.
type RunSummary struct {
	VendorID      uuid.UUID `json:"vendor_id"`
	RangesChecked int       `json:"ranges_checked"`
	LeafRanges    int       `json:"leaf_ranges"`
	Applied       int       `json:"applied"`
	Deactivated   int       `json:"deactivated"`
	BranchErrors  int       `json:"branch_errors"`
	Partial       bool      `json:"partial"`
	DurationMs    int64     `json:"duration_ms"`
}

// RunAll reconciles every vendor with a registered agent. Offline agents are
// skipped; one vendor's failure never blocks the others.
func (s *Service) RunAll(ctx context.Context) {
	regs, err := s.agents.FindAll(ctx)
	if err != nil {
		s.logger.Error("failed to list agents for reconciliation", zap.Error(err))
		return
	}

	now := time.Now()
	for i := range regs {
		reg := &regs[i]
		if reg.DeriveStatus(now) == agent.StatusOffline {
			s.logger.Info("skipping reconciliation for offline agent",
				zap.String("vendor_id", reg.VendorID.String()))
			continue
		}
		if _, err := s.RunForVendor(ctx, reg.VendorID); err != nil {
			s.logger.Error("reconciliation run failed",
				zap.String("vendor_id", reg.VendorID.String()), zap.Error(err))
		}
	}
}

// RunForVendor runs one full drift-detection pass for a vendor. Branch
// failures are counted, not fatal: a run with errors still records an event
// with partial results.
func (s *Service) RunForVendor(ctx context.Context, vendorID uuid.UUID) (*RunSummary, error) {
	reg, err := s.agents.FindByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	summary := &RunSummary{VendorID: vendorID}

	// Iterative work stack instead of recursion: binary-search depth is
	// unbounded only by key-space size, and a stack lets the MaxRanges guard
	// cap a runaway run cleanly.
	stack := []catalog.KeyRange{catalog.FullRange()}

	for len(stack) > 0 {
		if summary.RangesChecked >= s.cfg.MaxRanges {
			summary.Partial = true
			s.logger.Warn("reconciliation range budget exhausted",
				zap.String("vendor_id", vendorID.String()),
				zap.Int("max_ranges", s.cfg.MaxRanges))
			break
		}

		rng := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		summary.RangesChecked++

		local, err := s.items.ListKeyHashes(ctx, vendorID, rng)
		if err != nil {
			return nil, err
		}
		localChecksum := catalog.ComputeRangeChecksum(local)

		remote, err := s.gateway.Checksum(ctx, reg, rng)
		if err != nil {
			// Abort this branch only; siblings still run.
			summary.BranchErrors++
			s.logger.Warn("checksum call failed, abandoning branch",
				zap.String("vendor_id", vendorID.String()),
				zap.String("from", rng.From), zap.String("to", rng.To),
				zap.Error(err))
			continue
		}

		if remote.Checksum == localChecksum {
			continue
		}

		count := len(local)
		if remote.Count > count {
			count = remote.Count
		}
		if count <= s.cfg.LeafRangeSize || len(local) < 2 {
			summary.LeafRanges++
			s.resolveLeaf(ctx, reg, rng, local, summary)
			continue
		}

		// Split at the median local key. The right half starts at the
		// smallest string above the pivot so the halves are gap-free over
		// the whole key space, not just over keys we hold locally.
		pivot := local[len(local)/2-1].Key
		stack = append(stack,
			catalog.KeyRange{From: nextKey(pivot), To: rng.To},
			catalog.KeyRange{From: rng.From, To: pivot},
		)
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	s.record(ctx, summary)
	return summary, nil
}

// resolveLeaf diffs one small range item by item and applies ERP values over
// local ones. Items the ERP no longer has are deactivated, never deleted.
func (s *Service) resolveLeaf(ctx context.Context, reg *agent.Registration, rng catalog.KeyRange, local []catalog.KeyHash, summary *RunSummary) {
	erpItems, err := s.gateway.FetchItems(ctx, reg, rng)
	if err != nil {
		summary.BranchErrors++
		s.logger.Warn("item fetch failed, abandoning leaf",
			zap.String("vendor_id", reg.VendorID.String()),
			zap.String("from", rng.From), zap.String("to", rng.To),
			zap.Error(err))
		return
	}

	erpSKUs := make(map[string]struct{}, len(erpItems))
	payloads := make([]ingest.ItemPayload, 0, len(erpItems))
	for _, it := range erpItems {
		erpSKUs[it.SKU] = struct{}{}
		syncedAt := it.LastSyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}
		payloads = append(payloads, ingest.ItemPayload{
			SKU:              it.SKU,
			Name:             it.Name,
			ErpUnitCode:      it.ErpUnitCode,
			ErpVatCode:       it.ErpVatCode,
			ErpFamilyCode:    it.ErpFamilyCode,
			ErpSubfamilyCode: it.ErpSubfamilyCode,
			Price:            it.Price,
			LastSyncedAt:     syncedAt,
		})
	}

	// Local rows absent on the ERP side are drift too: flag them inactive so
	// the next checksum pass converges.
	inactive := false
	for _, kh := range local {
		if _, ok := erpSKUs[kh.Key]; ok {
			continue
		}
		item, err := s.items.FindBySKU(ctx, reg.VendorID, kh.Key)
		if err != nil {
			summary.BranchErrors++
			continue
		}
		payloads = append(payloads, ingest.ItemPayload{
			SKU:              item.SKU,
			Name:             item.Name,
			ErpUnitCode:      item.ErpUnitCode,
			ErpVatCode:       item.ErpVatCode,
			ErpFamilyCode:    item.ErpFamilyCode,
			ErpSubfamilyCode: item.ErpSubfamilyCode,
			Price:            item.Price,
			IsActive:         &inactive,
			LastSyncedAt:     time.Now(),
		})
		summary.Deactivated++
	}

	if len(payloads) == 0 {
		return
	}

	report, err := s.ingest.IngestItems(ctx, reg.VendorID, payloads, true)
	if err != nil {
		summary.BranchErrors++
		s.logger.Error("failed to apply ERP-side values",
			zap.String("vendor_id", reg.VendorID.String()), zap.Error(err))
		return
	}
	summary.Applied += report.Processed
	summary.BranchErrors += report.Failed
}

// record writes the audit event and raises alerts. Recording never fails the
// run: event-store or sink trouble is logged and swallowed.
func (s *Service) record(ctx context.Context, summary *RunSummary) {
	eventType := reconciliation.EventIncrementalSync
	switch {
	case summary.BranchErrors > 0 && summary.Applied == 0 && summary.LeafRanges > 0:
		eventType = reconciliation.EventDriftDetected
	case summary.Applied > 0 || summary.Deactivated > 0:
		eventType = reconciliation.EventDriftResolved
	case summary.LeafRanges > 0:
		eventType = reconciliation.EventDriftDetected
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		payload = []byte("{}")
	}

	event := reconciliation.NewEvent(summary.VendorID, eventType, payload, time.Duration(summary.DurationMs)*time.Millisecond)
	if err := s.events.Save(ctx, event); err != nil {
		s.logger.Error("failed to record reconciliation event",
			zap.String("vendor_id", summary.VendorID.String()), zap.Error(err))
	}

	s.logger.Info("reconciliation run finished",
		zap.String("vendor_id", summary.VendorID.String()),
		zap.String("event_type", string(eventType)),
		zap.Int("ranges_checked", summary.RangesChecked),
		zap.Int("applied", summary.Applied),
		zap.Int("deactivated", summary.Deactivated),
		zap.Int("branch_errors", summary.BranchErrors),
		zap.Bool("partial", summary.Partial),
	)

	if eventType == reconciliation.EventDriftResolved || summary.BranchErrors > 0 {
		severity := alerting.SeverityInfo
		if summary.BranchErrors > 0 {
			severity = alerting.SeverityWarning
		}
		s.alerts.Notify(ctx, alerting.Alert{
			Severity: severity,
			Title:    "reconciliation drift",
			Message:  "drift detected during scheduled reconciliation",
			Details: map[string]any{
				"vendor_id":     summary.VendorID.String(),
				"applied":       summary.Applied,
				"deactivated":   summary.Deactivated,
				"branch_errors": summary.BranchErrors,
				"partial":       summary.Partial,
			},
		})
	}
}

// nextKey returns the smallest key strictly greater than k.
func nextKey(k string) string {
	return k + "\x00"
}

// ListEvents returns the reconciliation audit trail.
func (s *Service) ListEvents(ctx context.Context, filter reconciliation.Filter) ([]reconciliation.Event, int64, error) {
	return s.events.FindAll(ctx, filter)
}
