package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/catalog"
	"github.com/restosuite/backend/internal/domain/mapping"
	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

// Service is the ERP→store ingest pipeline: validate, dedup against stored
// content hashes, resolve ERP codes, upsert. One bad record never aborts the
// batch; the caller gets a per-record outcome.
type Service struct {
	items      catalog.ItemRepository
	stock      catalog.StockRepository
	warehouses catalog.WarehouseRepository
	resolver   mapping.Resolver
	cfg        config.IngestConfig
	logger     *zap.Logger
}

// NewService creates an ingest service
func NewService(
	items catalog.ItemRepository,
	stock catalog.StockRepository,
	warehouses catalog.WarehouseRepository,
	resolver mapping.Resolver,
	cfg config.IngestConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		items:      items,
		stock:      stock,
		warehouses: warehouses,
		resolver:   resolver,
		cfg:        cfg,
		logger:     logger,
	}
}

// ---------------------------------------------------------------------------
// Content hashing
// ---------------------------------------------------------------------------
// The field sets below are the canonical hash contract shared with agents:
// both sides hash the same keys, so equal data yields equal hashes.

// ItemContentHash computes the content hash for an item payload.
func ItemContentHash(p ItemPayload) string {
	return catalog.ComputeContentHash(map[string]string{
		"sku":                p.SKU,
		"name":               p.Name,
		"erp_unit_code":      p.ErpUnitCode,
		"erp_vat_code":       p.ErpVatCode,
		"erp_family_code":    p.ErpFamilyCode,
		"erp_subfamily_code": p.ErpSubfamilyCode,
		"price":              p.Price.String(),
		"is_active":          strconv.FormatBool(isActive(p.IsActive)),
	})
}

// StockContentHash computes the content hash for a stock payload.
func StockContentHash(p StockPayload) string {
	return catalog.ComputeContentHash(map[string]string{
		"erp_warehouse_id": p.ErpWarehouseID,
		"sku":              p.SKU,
		"quantity":         p.Quantity.String(),
	})
}

// WarehouseContentHash computes the content hash for a warehouse payload.
func WarehouseContentHash(p WarehousePayload) string {
	return catalog.ComputeContentHash(map[string]string{
		"erp_warehouse_id": p.ErpWarehouseID,
		"name":             p.Name,
		"address":          p.Address,
		"is_active":        strconv.FormatBool(isActive(p.IsActive)),
	})
}

func isActive(v *bool) bool {
	return v == nil || *v
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// IngestItems processes one batch of item payloads. bulk selects the larger
// batch cap used by full reconciliation pushes; oversized batches are
// rejected wholesale before any record is touched.
func (s *Service) IngestItems(ctx context.Context, vendorID uuid.UUID, payloads []ItemPayload, bulk bool) (*Report, error) {
	limit := s.cfg.MaxItemsPerBatch
	if bulk {
		limit = s.cfg.MaxStockPerBatch
	}
	if len(payloads) > limit {
		return nil, fmt.Errorf("%w: %d items exceeds limit of %d", shared.ErrBatchTooLarge, len(payloads), limit)
	}

	skus := make([]string, len(payloads))
	for i, p := range payloads {
		skus[i] = p.SKU
	}
	stored, err := s.items.FindMetaBySKUs(ctx, vendorID, skus)
	if err != nil {
		return nil, fmt.Errorf("load stored item meta: %w", err)
	}

	results := make([]RecordResult, len(payloads))
	var apply []*catalog.SyncedItem
	var applyIdx []int

	for i, p := range payloads {
		results[i] = RecordResult{Key: p.SKU, Status: StatusProcessed}

		if reason, ok := validateItem(p); !ok {
			results[i].Status = StatusFailed
			results[i].Reason = reason
			continue
		}

		hash := ItemContentHash(p)
		syncedAt := p.LastSyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}

		var meta *catalog.StoredMeta
		if m, ok := stored[p.SKU]; ok {
			meta = &m
		}
		switch catalog.DecideWrite(hash, syncedAt, meta) {
		case catalog.DecisionSkip:
			results[i].Status = StatusSkipped
			results[i].Reason = ReasonNoChanges
			continue
		case catalog.DecisionStale:
			results[i].Status = StatusSkipped
			results[i].Reason = ReasonStale
			continue
		}

		item, reason, err := s.buildItem(ctx, vendorID, p, hash, syncedAt)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			results[i].Status = StatusFailed
			results[i].Reason = reason
			continue
		}

		apply = append(apply, item)
		applyIdx = append(applyIdx, i)
	}

	s.upsertChunks(ctx, len(apply), func(lo, hi int) error {
		return s.items.UpsertBatch(ctx, apply[lo:hi])
	}, func(j int) {
		results[applyIdx[j]].Status = StatusFailed
		results[applyIdx[j]].Reason = ReasonStoreError
	})

	report := buildReport(results)
	s.logger.Info("item batch ingested",
		zap.String("vendor_id", vendorID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func validateItem(p ItemPayload) (string, bool) {
	switch {
	case p.SKU == "", p.Name == "", p.ErpUnitCode == "", p.ErpVatCode == "":
		return ReasonInvalidPayload, false
	case p.Price.IsNegative():
		return ReasonInvalidPayload, false
	}
	return "", true
}

// buildItem resolves ERP codes and assembles the synced item. A missing
// required mapping fails the record; missing optional mappings default to
// null. A non-nil error aborts the batch (infrastructure failure, not a
// record problem).
func (s *Service) buildItem(ctx context.Context, vendorID uuid.UUID, p ItemPayload, hash string, syncedAt time.Time) (*catalog.SyncedItem, string, error) {
	unit, err := s.resolver.Resolve(ctx, vendorID, mapping.TypeUnit, p.ErpUnitCode)
	if errors.Is(err, mapping.ErrMappingNotFound) {
		return nil, ReasonMissingMapping + ":unit:" + p.ErpUnitCode, nil
	} else if err != nil {
		return nil, "", fmt.Errorf("resolve unit mapping: %w", err)
	}

	vat, err := s.resolver.Resolve(ctx, vendorID, mapping.TypeVat, p.ErpVatCode)
	if errors.Is(err, mapping.ErrMappingNotFound) {
		return nil, ReasonMissingMapping + ":vat:" + p.ErpVatCode, nil
	} else if err != nil {
		return nil, "", fmt.Errorf("resolve vat mapping: %w", err)
	}

	item := &catalog.SyncedItem{
		BaseEntity:       shared.NewBaseEntity(),
		VendorID:         vendorID,
		SKU:              p.SKU,
		Name:             p.Name,
		ErpUnitCode:      p.ErpUnitCode,
		ErpVatCode:       p.ErpVatCode,
		ErpFamilyCode:    p.ErpFamilyCode,
		ErpSubfamilyCode: p.ErpSubfamilyCode,
		UnitCode:         unit.RestoCode,
		VatCode:          vat.RestoCode,
		Price:            p.Price,
		IsActive:         isActive(p.IsActive),
		ContentHash:      hash,
		LastSyncedAt:     syncedAt,
	}

	if p.ErpFamilyCode != "" {
		if family, err := s.resolver.Resolve(ctx, vendorID, mapping.TypeFamily, p.ErpFamilyCode); err == nil {
			item.FamilyCode = &family.RestoCode
		} else if !errors.Is(err, mapping.ErrMappingNotFound) {
			return nil, "", fmt.Errorf("resolve family mapping: %w", err)
		}
	}
	if p.ErpSubfamilyCode != "" {
		if subfamily, err := s.resolver.Resolve(ctx, vendorID, mapping.TypeSubfamily, p.ErpSubfamilyCode); err == nil {
			item.SubfamilyCode = &subfamily.RestoCode
		} else if !errors.Is(err, mapping.ErrMappingNotFound) {
			return nil, "", fmt.Errorf("resolve subfamily mapping: %w", err)
		}
	}

	return item, "", nil
}

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

// IngestStock processes one batch of stock payloads.
func (s *Service) IngestStock(ctx context.Context, vendorID uuid.UUID, payloads []StockPayload) (*Report, error) {
	if len(payloads) > s.cfg.MaxStockPerBatch {
		return nil, fmt.Errorf("%w: %d stock rows exceeds limit of %d", shared.ErrBatchTooLarge, len(payloads), s.cfg.MaxStockPerBatch)
	}

	keys := make([]catalog.StockKey, len(payloads))
	for i, p := range payloads {
		keys[i] = catalog.StockKey{ErpWarehouseID: p.ErpWarehouseID, SKU: p.SKU}
	}
	stored, err := s.stock.FindMetaByKeys(ctx, vendorID, keys)
	if err != nil {
		return nil, fmt.Errorf("load stored stock meta: %w", err)
	}

	results := make([]RecordResult, len(payloads))
	var apply []*catalog.SyncedStock
	var applyIdx []int

	for i, p := range payloads {
		key := keys[i].String()
		results[i] = RecordResult{Key: key, Status: StatusProcessed}

		if p.ErpWarehouseID == "" || p.SKU == "" || p.Quantity.IsNegative() {
			results[i].Status = StatusFailed
			results[i].Reason = ReasonInvalidPayload
			continue
		}

		hash := StockContentHash(p)
		syncedAt := p.LastSyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}

		var meta *catalog.StoredMeta
		if m, ok := stored[key]; ok {
			meta = &m
		}
		switch catalog.DecideWrite(hash, syncedAt, meta) {
		case catalog.DecisionSkip:
			results[i].Status = StatusSkipped
			results[i].Reason = ReasonNoChanges
			continue
		case catalog.DecisionStale:
			results[i].Status = StatusSkipped
			results[i].Reason = ReasonStale
			continue
		}

		apply = append(apply, &catalog.SyncedStock{
			BaseEntity:     shared.NewBaseEntity(),
			VendorID:       vendorID,
			ErpWarehouseID: p.ErpWarehouseID,
			SKU:            p.SKU,
			Quantity:       p.Quantity,
			ContentHash:    hash,
			LastSyncedAt:   syncedAt,
		})
		applyIdx = append(applyIdx, i)
	}

	s.upsertChunks(ctx, len(apply), func(lo, hi int) error {
		return s.stock.UpsertBatch(ctx, apply[lo:hi])
	}, func(j int) {
		results[applyIdx[j]].Status = StatusFailed
		results[applyIdx[j]].Reason = ReasonStoreError
	})

	report := buildReport(results)
	s.logger.Info("stock batch ingested",
		zap.String("vendor_id", vendorID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// ---------------------------------------------------------------------------
// Warehouses
// ---------------------------------------------------------------------------

// IngestWarehouses processes one batch of warehouse payloads.
func (s *Service) IngestWarehouses(ctx context.Context, vendorID uuid.UUID, payloads []WarehousePayload) (*Report, error) {
	if len(payloads) > s.cfg.MaxItemsPerBatch {
		return nil, fmt.Errorf("%w: %d warehouses exceeds limit of %d", shared.ErrBatchTooLarge, len(payloads), s.cfg.MaxItemsPerBatch)
	}

	ids := make([]string, len(payloads))
	for i, p := range payloads {
		ids[i] = p.ErpWarehouseID
	}
	stored, err := s.warehouses.FindMetaByIDs(ctx, vendorID, ids)
	if err != nil {
		return nil, fmt.Errorf("load stored warehouse meta: %w", err)
	}

	results := make([]RecordResult, len(payloads))
	var apply []*catalog.SyncedWarehouse
	var applyIdx []int

	for i, p := range payloads {
		results[i] = RecordResult{Key: p.ErpWarehouseID, Status: StatusProcessed}

		if p.ErpWarehouseID == "" || p.Name == "" {
			results[i].Status = StatusFailed
			results[i].Reason = ReasonInvalidPayload
			continue
		}

		hash := WarehouseContentHash(p)
		syncedAt := p.LastSyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}

		var meta *catalog.StoredMeta
		if m, ok := stored[p.ErpWarehouseID]; ok {
			meta = &m
		}
		switch catalog.DecideWrite(hash, syncedAt, meta) {
		case catalog.DecisionSkip:
			results[i].Status = StatusSkipped
			results[i].Reason = ReasonNoChanges
			continue
		case catalog.DecisionStale:
			results[i].Status = StatusSkipped
			results[i].Reason = ReasonStale
			continue
		}

		apply = append(apply, &catalog.SyncedWarehouse{
			BaseEntity:     shared.NewBaseEntity(),
			VendorID:       vendorID,
			ErpWarehouseID: p.ErpWarehouseID,
			Name:           p.Name,
			Address:        p.Address,
			IsActive:       isActive(p.IsActive),
			ContentHash:    hash,
			LastSyncedAt:   syncedAt,
		})
		applyIdx = append(applyIdx, i)
	}

	s.upsertChunks(ctx, len(apply), func(lo, hi int) error {
		return s.warehouses.UpsertBatch(ctx, apply[lo:hi])
	}, func(j int) {
		results[applyIdx[j]].Status = StatusFailed
		results[applyIdx[j]].Reason = ReasonStoreError
	})

	report := buildReport(results)
	s.logger.Info("warehouse batch ingested",
		zap.String("vendor_id", vendorID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// upsertChunks runs the accepted records through the store in bounded
// sub-chunks. A failing chunk marks only its own records failed; the
// remaining chunks still run.
func (s *Service) upsertChunks(ctx context.Context, total int, upsert func(lo, hi int) error, fail func(j int)) {
	chunk := s.cfg.SubChunkSize
	if chunk <= 0 {
		chunk = 50
	}
	for lo := 0; lo < total; lo += chunk {
		hi := lo + chunk
		if hi > total {
			hi = total
		}
		if err := upsert(lo, hi); err != nil {
			s.logger.Error("chunk upsert failed",
				zap.Int("from", lo),
				zap.Int("to", hi),
				zap.Error(err),
			)
			for j := lo; j < hi; j++ {
				fail(j)
			}
		}
	}
}
