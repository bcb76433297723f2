package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/restosuite/backend/internal/application/mappingsvc"
	"github.com/restosuite/backend/internal/domain/catalog"
	"github.com/restosuite/backend/internal/domain/mapping"
	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/infrastructure/cache"
	"github.com/restosuite/backend/internal/infrastructure/config"
	"github.com/restosuite/backend/internal/infrastructure/persistence"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

type ingestFixture struct {
	svc      *Service
	items    catalog.ItemRepository
	vendorID uuid.UUID
}

func setupIngest(t *testing.T) *ingestFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SyncedItemModel{},
		&models.SyncedStockModel{},
		&models.SyncedWarehouseModel{},
		&models.ErpCodeMappingModel{},
	))

	vendorID := uuid.New()
	mappingRepo := persistence.NewGormMappingRepository(db)
	resolver := mappingsvc.NewCachedResolver(mappingRepo, cache.NewMappingCache())

	// Seed the required vocabulary
	ctx := context.Background()
	for _, seed := range []struct {
		typ     mapping.Type
		erp     string
		canonic string
	}{
		{mapping.TypeUnit, "KG", "kilogram"},
		{mapping.TypeUnit, "L", "liter"},
		{mapping.TypeVat, "V55", "vat-5.5"},
		{mapping.TypeFamily, "F01", "drinks"},
	} {
		m, err := mapping.NewErpCodeMapping(vendorID, seed.typ, seed.erp, seed.canonic, "")
		require.NoError(t, err)
		require.NoError(t, mappingRepo.Save(ctx, m))
	}

	items := persistence.NewGormItemRepository(db)
	svc := NewService(
		items,
		persistence.NewGormStockRepository(db),
		persistence.NewGormWarehouseRepository(db),
		resolver,
		config.IngestConfig{MaxItemsPerBatch: 500, MaxStockPerBatch: 5000, SubChunkSize: 50},
		nil,
	)

	return &ingestFixture{svc: svc, items: items, vendorID: vendorID}
}

func itemPayload(sku string) ItemPayload {
	return ItemPayload{
		SKU:          sku,
		Name:         "Sparkling Water",
		ErpUnitCode:  "L",
		ErpVatCode:   "V55",
		Price:        decimal.NewFromFloat(1.25),
		LastSyncedAt: time.Now(),
	}
}

func TestService_IngestItems(t *testing.T) {
	ctx := context.Background()

	t.Run("processes new items and resolves mappings", func(t *testing.T) {
		f := setupIngest(t)
		p := itemPayload("SKU-1")
		p.ErpFamilyCode = "F01"

		report, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{p}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		assert.Zero(t, report.Failed)

		item, err := f.items.FindBySKU(ctx, f.vendorID, "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, "liter", item.UnitCode)
		assert.Equal(t, "vat-5.5", item.VatCode)
		require.NotNil(t, item.FamilyCode)
		assert.Equal(t, "drinks", *item.FamilyCode)
		assert.Nil(t, item.SubfamilyCode)
		assert.Equal(t, ItemContentHash(p), item.ContentHash)
	})

	t.Run("skips unchanged items", func(t *testing.T) {
		f := setupIngest(t)
		p := itemPayload("SKU-2")

		_, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{p}, false)
		require.NoError(t, err)

		p.LastSyncedAt = time.Now().Add(time.Minute)
		report, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{p}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, ReasonNoChanges, report.Results[0].Reason)
	})

	t.Run("rejects stale writes", func(t *testing.T) {
		f := setupIngest(t)
		p := itemPayload("SKU-3")
		p.LastSyncedAt = time.Now()

		_, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{p}, false)
		require.NoError(t, err)

		old := p
		old.Name = "Old Name"
		old.LastSyncedAt = time.Now().Add(-time.Hour)
		report, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{old}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, ReasonStale, report.Results[0].Reason)

		item, err := f.items.FindBySKU(ctx, f.vendorID, "SKU-3")
		require.NoError(t, err)
		assert.Equal(t, "Sparkling Water", item.Name)
	})

	t.Run("applies changed items", func(t *testing.T) {
		f := setupIngest(t)
		p := itemPayload("SKU-4")

		_, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{p}, false)
		require.NoError(t, err)

		p.Price = decimal.NewFromFloat(2.10)
		p.LastSyncedAt = time.Now().Add(time.Minute)
		report, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{p}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)

		item, err := f.items.FindBySKU(ctx, f.vendorID, "SKU-4")
		require.NoError(t, err)
		assert.True(t, item.Price.Equal(decimal.NewFromFloat(2.10)))
	})

	t.Run("fails records with missing required mappings", func(t *testing.T) {
		f := setupIngest(t)
		bad := itemPayload("SKU-5")
		bad.ErpUnitCode = "TONNE" // not seeded
		good := itemPayload("SKU-6")

		report, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{bad, good}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, 1, report.Processed)
		assert.Contains(t, report.Results[0].Reason, ReasonMissingMapping)
		assert.Contains(t, report.Results[0].Reason, "TONNE")

		// The failed record must not block its siblings
		_, err = f.items.FindBySKU(ctx, f.vendorID, "SKU-6")
		assert.NoError(t, err)
	})

	t.Run("optional mappings default to null", func(t *testing.T) {
		f := setupIngest(t)
		p := itemPayload("SKU-7")
		p.ErpFamilyCode = "F-UNKNOWN"
		p.ErpSubfamilyCode = "SF-UNKNOWN"

		report, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{p}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)

		item, err := f.items.FindBySKU(ctx, f.vendorID, "SKU-7")
		require.NoError(t, err)
		assert.Nil(t, item.FamilyCode)
		assert.Nil(t, item.SubfamilyCode)
	})

	t.Run("fails invalid payloads without aborting the batch", func(t *testing.T) {
		f := setupIngest(t)
		bad := itemPayload("")
		negative := itemPayload("SKU-8")
		negative.Price = decimal.NewFromInt(-1)
		good := itemPayload("SKU-9")

		report, err := f.svc.IngestItems(ctx, f.vendorID, []ItemPayload{bad, negative, good}, false)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Failed)
		assert.Equal(t, 1, report.Processed)
		assert.Equal(t, ReasonInvalidPayload, report.Results[0].Reason)
		assert.Equal(t, ReasonInvalidPayload, report.Results[1].Reason)
	})

	t.Run("rejects oversized batches wholesale", func(t *testing.T) {
		f := setupIngest(t)
		payloads := make([]ItemPayload, 501)
		for i := range payloads {
			payloads[i] = itemPayload(fmt.Sprintf("SKU-%04d", i))
		}

		_, err := f.svc.IngestItems(ctx, f.vendorID, payloads, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrBatchTooLarge)

		// Nothing was written
		count, err := f.items.CountRange(ctx, f.vendorID, catalog.FullRange())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("bulk flag lifts the cap for reconciliation pushes", func(t *testing.T) {
		f := setupIngest(t)
		payloads := make([]ItemPayload, 501)
		for i := range payloads {
			payloads[i] = itemPayload(fmt.Sprintf("SKU-%04d", i))
		}

		report, err := f.svc.IngestItems(ctx, f.vendorID, payloads, true)
		require.NoError(t, err)
		assert.Equal(t, 501, report.Processed)
	})
}

func TestService_IngestStock(t *testing.T) {
	ctx := context.Background()

	t.Run("processes, skips and fails per record", func(t *testing.T) {
		f := setupIngest(t)
		first := StockPayload{ErpWarehouseID: "WH-1", SKU: "SKU-1", Quantity: decimal.NewFromInt(10)}

		report, err := f.svc.IngestStock(ctx, f.vendorID, []StockPayload{first})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		assert.Equal(t, "WH-1/SKU-1", report.Results[0].Key)

		// Unchanged quantity skips; negative quantity fails
		batch := []StockPayload{
			{ErpWarehouseID: "WH-1", SKU: "SKU-1", Quantity: decimal.NewFromInt(10), LastSyncedAt: time.Now().Add(time.Minute)},
			{ErpWarehouseID: "WH-1", SKU: "SKU-2", Quantity: decimal.NewFromInt(-5)},
			{ErpWarehouseID: "WH-2", SKU: "SKU-1", Quantity: decimal.NewFromInt(3)},
		}
		report, err = f.svc.IngestStock(ctx, f.vendorID, batch)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, ReasonNoChanges, report.Results[0].Reason)
		assert.Equal(t, ReasonInvalidPayload, report.Results[1].Reason)
	})

	t.Run("enforces the bulk cap", func(t *testing.T) {
		f := setupIngest(t)
		payloads := make([]StockPayload, 5001)
		for i := range payloads {
			payloads[i] = StockPayload{ErpWarehouseID: "WH-1", SKU: fmt.Sprintf("SKU-%05d", i), Quantity: decimal.NewFromInt(1)}
		}

		_, err := f.svc.IngestStock(ctx, f.vendorID, payloads)
		assert.ErrorIs(t, err, shared.ErrBatchTooLarge)
	})
}

func TestService_IngestWarehouses(t *testing.T) {
	ctx := context.Background()
	f := setupIngest(t)

	report, err := f.svc.IngestWarehouses(ctx, f.vendorID, []WarehousePayload{
		{ErpWarehouseID: "WH-1", Name: "Main depot", Address: "12 rue des Halles"},
		{ErpWarehouseID: "", Name: "Broken"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)

	// Re-pushing the same warehouse skips
	report, err = f.svc.IngestWarehouses(ctx, f.vendorID, []WarehousePayload{
		{ErpWarehouseID: "WH-1", Name: "Main depot", Address: "12 rue des Halles", LastSyncedAt: time.Now().Add(time.Minute)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}
