package mapping

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Mapping Types
// ---------------------------------------------------------------------------

// Type identifies which ERP vocabulary a mapping translates.
type Type string

const (
	TypeUnit      Type = "UNIT"
	TypeVat       Type = "VAT"
	TypeFamily    Type = "FAMILY"
	TypeSubfamily Type = "SUBFAMILY"
)

// IsValid returns true if the mapping type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeUnit, TypeVat, TypeFamily, TypeSubfamily:
		return true
	default:
		return false
	}
}

// Required reports whether item ingestion fails when this mapping is missing.
// Unit and VAT mappings are mandatory; family and subfamily default to null.
func (t Type) Required() bool {
	return t == TypeUnit || t == TypeVat
}

// AllTypes returns every known mapping type
func AllTypes() []Type {
	return []Type{TypeUnit, TypeVat, TypeFamily, TypeSubfamily}
}

// ---------------------------------------------------------------------------
// ErpCodeMapping
// ---------------------------------------------------------------------------

// ErrMappingNotFound is returned when no active mapping exists for a code.
// It is a valid, non-error outcome for optional mapping types.
var ErrMappingNotFound = shared.NewDomainError("MAPPING_NOT_FOUND", "No active mapping for this ERP code")

// ErpCodeMapping translates a vendor-specific ERP code into the platform's
// canonical vocabulary. (VendorID, Type, ErpCode) is unique; rows are
// deactivated rather than deleted so historical data stays resolvable.
type ErpCodeMapping struct {
	shared.BaseEntity
	VendorID   uuid.UUID
	Type       Type
	ErpCode    string
	RestoCode  string
	RestoLabel string
	IsActive   bool
}

// NewErpCodeMapping creates an active mapping after validating its fields
func NewErpCodeMapping(vendorID uuid.UUID, mappingType Type, erpCode, restoCode, restoLabel string) (*ErpCodeMapping, error) {
	m := &ErpCodeMapping{
		BaseEntity: shared.NewBaseEntity(),
		VendorID:   vendorID,
		Type:       mappingType,
		ErpCode:    erpCode,
		RestoCode:  restoCode,
		RestoLabel: restoLabel,
		IsActive:   true,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the mapping invariants
func (m *ErpCodeMapping) Validate() error {
	if m.VendorID == uuid.Nil {
		return fmt.Errorf("%w: vendor id is required", shared.ErrInvalidInput)
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("%w: unknown mapping type %q", shared.ErrInvalidInput, m.Type)
	}
	if m.ErpCode == "" {
		return fmt.Errorf("%w: erp code is required", shared.ErrInvalidInput)
	}
	if m.RestoCode == "" {
		return fmt.Errorf("%w: resto code is required", shared.ErrInvalidInput)
	}
	return nil
}

// Deactivate soft-deletes the mapping
func (m *ErpCodeMapping) Deactivate() {
	m.IsActive = false
	m.Touch()
}

// Update replaces the canonical side of the mapping
func (m *ErpCodeMapping) Update(restoCode, restoLabel string) error {
	if restoCode == "" {
		return fmt.Errorf("%w: resto code is required", shared.ErrInvalidInput)
	}
	m.RestoCode = restoCode
	m.RestoLabel = restoLabel
	m.IsActive = true
	m.Touch()
	return nil
}

// CacheKey builds the process-local cache key for a mapping lookup
func CacheKey(vendorID uuid.UUID, mappingType Type, erpCode string) string {
	return vendorID.String() + ":" + string(mappingType) + ":" + erpCode
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Resolution is the canonical translation of an ERP code.
type Resolution struct {
	RestoCode  string
	RestoLabel string
}

// Resolver translates vendor ERP codes into canonical codes. Implementations
// are expected to cache aggressively; resolution sits on the hot ingest path.
type Resolver interface {
	// Resolve returns the canonical translation, or ErrMappingNotFound when
	// no active mapping exists
	Resolve(ctx context.Context, vendorID uuid.UUID, mappingType Type, erpCode string) (*Resolution, error)
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// Filter defines list criteria for mappings.
type Filter struct {
	Type     *Type
	ErpCode  string
	IsActive *bool
	Page     int
	PageSize int
}

// Repository persists ERP code mappings.
type Repository interface {
	// Save creates or updates a mapping
	Save(ctx context.Context, m *ErpCodeMapping) error
	// SaveBatch creates or updates mappings in one transaction (bulk seed)
	SaveBatch(ctx context.Context, mappings []*ErpCodeMapping) error
	// FindByID finds a mapping by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ErpCodeMapping, error)
	// FindActive finds the unique active mapping for (vendor, type, erpCode)
	FindActive(ctx context.Context, vendorID uuid.UUID, mappingType Type, erpCode string) (*ErpCodeMapping, error)
	// FindByNaturalKey finds a mapping regardless of active flag
	FindByNaturalKey(ctx context.Context, vendorID uuid.UUID, mappingType Type, erpCode string) (*ErpCodeMapping, error)
	// FindAll lists mappings for a vendor matching the filter
	FindAll(ctx context.Context, vendorID uuid.UUID, filter Filter) ([]ErpCodeMapping, int64, error)
}

// Cache is the process-local mapping cache. Implementations bound entries
// and expire them; the persistent table is always the source of truth.
type Cache interface {
	Get(key string) (*Resolution, bool)
	Set(key string, r *Resolution)
	// SetNegative records a confirmed miss so absent optional mappings do
	// not hammer the store
	SetNegative(key string)
	// GetNegative reports whether key is a cached confirmed miss
	GetNegative(key string) bool
	Invalidate(key string)
	Purge()
	Len() int
}
