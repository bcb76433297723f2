package mappingsvc

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/restosuite/backend/internal/domain/mapping"
	"github.com/restosuite/backend/internal/infrastructure/cache"
	"github.com/restosuite/backend/internal/infrastructure/persistence"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

func setupService(t *testing.T) (*Service, *CachedResolver, *cache.MappingCache) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ErpCodeMappingModel{}))

	repo := persistence.NewGormMappingRepository(db)
	mc := cache.NewMappingCache()
	return NewService(repo, mc, nil), NewCachedResolver(repo, mc), mc
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)
	vendorID := uuid.New()

	t.Run("creates a mapping", func(t *testing.T) {
		resp, err := svc.Create(ctx, vendorID, CreateMappingRequest{
			Type:       "UNIT",
			ErpCode:    "KG",
			RestoCode:  "kilogram",
			RestoLabel: "Kilogram",
		})
		require.NoError(t, err)
		assert.Equal(t, "UNIT", resp.Type)
		assert.Equal(t, "kilogram", resp.RestoCode)
		assert.True(t, resp.IsActive)
	})

	t.Run("rejects unknown mapping type", func(t *testing.T) {
		_, err := svc.Create(ctx, vendorID, CreateMappingRequest{
			Type:      "COLOR",
			ErpCode:   "RED",
			RestoCode: "red",
		})
		require.Error(t, err)
	})

	t.Run("reactivates on natural key conflict", func(t *testing.T) {
		first, err := svc.Create(ctx, vendorID, CreateMappingRequest{
			Type: "VAT", ErpCode: "V55", RestoCode: "vat-5.5",
		})
		require.NoError(t, err)
		require.NoError(t, svc.Deactivate(ctx, vendorID, first.ID))

		_, err = svc.Create(ctx, vendorID, CreateMappingRequest{
			Type: "VAT", ErpCode: "V55", RestoCode: "vat-055",
		})
		require.NoError(t, err)

		list, total, err := svc.List(ctx, vendorID, ListFilter{Type: "VAT", ErpCode: "V55"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total, "natural key upsert must not duplicate rows")
		assert.True(t, list[0].IsActive)
		assert.Equal(t, "vat-055", list[0].RestoCode)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, resolver, _ := setupService(t)
	vendorID := uuid.New()

	created, err := svc.Create(ctx, vendorID, CreateMappingRequest{
		Type: "UNIT", ErpCode: "L", RestoCode: "liter",
	})
	require.NoError(t, err)

	// Warm the cache through the resolver
	res, err := resolver.Resolve(ctx, vendorID, mapping.TypeUnit, "L")
	require.NoError(t, err)
	require.Equal(t, "liter", res.RestoCode)

	t.Run("updates and invalidates the cache", func(t *testing.T) {
		_, err := svc.Update(ctx, vendorID, created.ID, UpdateMappingRequest{
			RestoCode: "litre", RestoLabel: "Litre",
		})
		require.NoError(t, err)

		res, err := resolver.Resolve(ctx, vendorID, mapping.TypeUnit, "L")
		require.NoError(t, err)
		assert.Equal(t, "litre", res.RestoCode, "stale cache entry must be evicted on write")
	})

	t.Run("rejects cross-vendor access", func(t *testing.T) {
		_, err := svc.Update(ctx, uuid.New(), created.ID, UpdateMappingRequest{RestoCode: "x"})
		assert.ErrorIs(t, err, mapping.ErrMappingNotFound)
	})
}

func TestService_Deactivate(t *testing.T) {
	ctx := context.Background()
	svc, resolver, _ := setupService(t)
	vendorID := uuid.New()

	created, err := svc.Create(ctx, vendorID, CreateMappingRequest{
		Type: "FAMILY", ErpCode: "F01", RestoCode: "drinks",
	})
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, vendorID, mapping.TypeFamily, "F01")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, vendorID, created.ID))

	_, err = resolver.Resolve(ctx, vendorID, mapping.TypeFamily, "F01")
	assert.ErrorIs(t, err, mapping.ErrMappingNotFound, "deactivated mappings stop resolving immediately")

	// Row is retained for audit
	got, err := svc.Get(ctx, vendorID, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)
	vendorID := uuid.New()

	count, err := svc.Seed(ctx, vendorID, SeedRequest{Mappings: []CreateMappingRequest{
		{Type: "UNIT", ErpCode: "KG", RestoCode: "kilogram"},
		{Type: "UNIT", ErpCode: "L", RestoCode: "liter"},
		{Type: "VAT", ErpCode: "V20", RestoCode: "vat-20"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, total, err := svc.List(ctx, vendorID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	t.Run("rejects invalid entries wholesale", func(t *testing.T) {
		_, err := svc.Seed(ctx, vendorID, SeedRequest{Mappings: []CreateMappingRequest{
			{Type: "UNIT", ErpCode: "M", RestoCode: "meter"},
			{Type: "UNIT", ErpCode: "", RestoCode: "broken"},
		}})
		require.Error(t, err)

		_, total, err := svc.List(ctx, vendorID, ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total, "failed seed must not apply partially")
	})
}

func TestCachedResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	svc, resolver, mc := setupService(t)
	vendorID := uuid.New()

	_, err := svc.Create(ctx, vendorID, CreateMappingRequest{
		Type: "UNIT", ErpCode: "KG", RestoCode: "kilogram", RestoLabel: "Kilogram",
	})
	require.NoError(t, err)

	t.Run("caches positive resolutions", func(t *testing.T) {
		res, err := resolver.Resolve(ctx, vendorID, mapping.TypeUnit, "KG")
		require.NoError(t, err)
		assert.Equal(t, "kilogram", res.RestoCode)

		cached, ok := mc.Get(mapping.CacheKey(vendorID, mapping.TypeUnit, "KG"))
		require.True(t, ok)
		assert.Equal(t, "kilogram", cached.RestoCode)
	})

	t.Run("caches confirmed misses negatively", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, vendorID, mapping.TypeSubfamily, "SF-404")
		assert.ErrorIs(t, err, mapping.ErrMappingNotFound)

		assert.True(t, mc.GetNegative(mapping.CacheKey(vendorID, mapping.TypeSubfamily, "SF-404")))

		// Second resolve is served from the negative cache
		_, err = resolver.Resolve(ctx, vendorID, mapping.TypeSubfamily, "SF-404")
		assert.ErrorIs(t, err, mapping.ErrMappingNotFound)
	})

	t.Run("misses are isolated per vendor", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, uuid.New(), mapping.TypeUnit, "KG")
		assert.ErrorIs(t, err, mapping.ErrMappingNotFound)
	})
}
