package mappingsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/mapping"
	"github.com/restosuite/backend/internal/domain/shared"
)

// Service manages ERP code mappings. Every write invalidates the affected
// cache key synchronously before returning, so readers never observe a stale
// translation longer than one in-flight request.
type Service struct {
	repo   mapping.Repository
	cache  mapping.Cache
	logger *zap.Logger
}

// NewService creates a mapping service
func NewService(repo mapping.Repository, cache mapping.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Create creates a mapping, or reactivates and updates the existing row for
// the same (vendor, type, erpCode).
func (s *Service) Create(ctx context.Context, vendorID uuid.UUID, req CreateMappingRequest) (*MappingResponse, error) {
	m, err := mapping.NewErpCodeMapping(vendorID, mapping.Type(req.Type), req.ErpCode, req.RestoCode, req.RestoLabel)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save mapping: %w", err)
	}

	s.cache.Invalidate(mapping.CacheKey(m.VendorID, m.Type, m.ErpCode))

	resp := toMappingResponse(m)
	return &resp, nil
}

// Update replaces the canonical side of a mapping and reactivates it.
func (s *Service) Update(ctx context.Context, vendorID, id uuid.UUID, req UpdateMappingRequest) (*MappingResponse, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.VendorID != vendorID {
		return nil, mapping.ErrMappingNotFound
	}

	if err := m.Update(req.RestoCode, req.RestoLabel); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("update mapping: %w", err)
	}

	s.cache.Invalidate(mapping.CacheKey(m.VendorID, m.Type, m.ErpCode))

	resp := toMappingResponse(m)
	return &resp, nil
}

// Deactivate soft-deletes a mapping. The row stays for audit.
func (s *Service) Deactivate(ctx context.Context, vendorID, id uuid.UUID) error {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if m.VendorID != vendorID {
		return mapping.ErrMappingNotFound
	}

	m.Deactivate()
	if err := s.repo.Save(ctx, m); err != nil {
		return fmt.Errorf("deactivate mapping: %w", err)
	}

	s.cache.Invalidate(mapping.CacheKey(m.VendorID, m.Type, m.ErpCode))
	return nil
}

// Seed bulk-loads mappings for a vendor in one transaction. Existing rows for
// the same natural key are updated and reactivated.
func (s *Service) Seed(ctx context.Context, vendorID uuid.UUID, req SeedRequest) (int, error) {
	mappings := make([]*mapping.ErpCodeMapping, 0, len(req.Mappings))
	for i, entry := range req.Mappings {
		m, err := mapping.NewErpCodeMapping(vendorID, mapping.Type(entry.Type), entry.ErpCode, entry.RestoCode, entry.RestoLabel)
		if err != nil {
			return 0, fmt.Errorf("mapping %d: %w", i, err)
		}
		mappings = append(mappings, m)
	}

	if err := s.repo.SaveBatch(ctx, mappings); err != nil {
		return 0, fmt.Errorf("seed mappings: %w", err)
	}

	for _, m := range mappings {
		s.cache.Invalidate(mapping.CacheKey(m.VendorID, m.Type, m.ErpCode))
	}

	s.logger.Info("mappings seeded",
		zap.String("vendor_id", vendorID.String()),
		zap.Int("count", len(mappings)),
	)
	return len(mappings), nil
}

// Get returns one mapping by ID.
func (s *Service) Get(ctx context.Context, vendorID, id uuid.UUID) (*MappingResponse, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.VendorID != vendorID {
		return nil, mapping.ErrMappingNotFound
	}
	resp := toMappingResponse(m)
	return &resp, nil
}

// List returns mappings for a vendor matching the filter.
func (s *Service) List(ctx context.Context, vendorID uuid.UUID, filter ListFilter) ([]MappingResponse, int64, error) {
	domainFilter := mapping.Filter{
		ErpCode:  filter.ErpCode,
		IsActive: filter.IsActive,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Type != "" {
		t := mapping.Type(filter.Type)
		domainFilter.Type = &t
	}

	mappings, total, err := s.repo.FindAll(ctx, vendorID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]MappingResponse, len(mappings))
	for i := range mappings {
		responses[i] = toMappingResponse(&mappings[i])
	}
	return responses, total, nil
}

// ---------------------------------------------------------------------------
// Cached resolver
// ---------------------------------------------------------------------------

// CachedResolver resolves ERP codes through the process-local cache, falling
// back to the persistent table on miss. Confirmed misses are cached
// negatively so absent optional mappings do not hammer the store.
type CachedResolver struct {
	repo  mapping.Repository
	cache mapping.Cache
}

// NewCachedResolver creates a resolver backed by the mapping table and cache.
func NewCachedResolver(repo mapping.Repository, cache mapping.Cache) *CachedResolver {
	return &CachedResolver{repo: repo, cache: cache}
}

// Resolve translates (vendorID, type, erpCode) to canonical codes. Returns
// mapping.ErrMappingNotFound when no active mapping exists; callers decide
// whether that is fatal (unit, VAT) or defaults to null (family, subfamily).
func (r *CachedResolver) Resolve(ctx context.Context, vendorID uuid.UUID, mappingType mapping.Type, erpCode string) (*mapping.Resolution, error) {
	key := mapping.CacheKey(vendorID, mappingType, erpCode)

	if res, ok := r.cache.Get(key); ok {
		return res, nil
	}
	if r.cache.GetNegative(key) {
		return nil, mapping.ErrMappingNotFound
	}

	m, err := r.repo.FindActive(ctx, vendorID, mappingType, erpCode)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) || errors.Is(err, shared.ErrNotFound) {
			r.cache.SetNegative(key)
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}

	res := &mapping.Resolution{RestoCode: m.RestoCode, RestoLabel: m.RestoLabel}
	r.cache.Set(key, res)
	return res, nil
}

var _ mapping.Resolver = (*CachedResolver)(nil)
