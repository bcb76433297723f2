package integration

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restosuite/backend/internal/domain/catalog"
	"github.com/restosuite/backend/internal/domain/shared"
	syncdomain "github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/persistence"
)

func testItem(vendorID uuid.UUID, sku, name string) *catalog.SyncedItem {
	return &catalog.SyncedItem{
		BaseEntity:   shared.NewBaseEntity(),
		VendorID:     vendorID,
		SKU:          sku,
		Name:         name,
		ErpUnitCode:  "KG",
		ErpVatCode:   "V55",
		UnitCode:     "kilogram",
		VatCode:      "vat-5.5",
		Price:        decimal.RequireFromString("12.5000"),
		IsActive:     true,
		ContentHash:  strings.Repeat("a", 64),
		LastSyncedAt: time.Now().UTC(),
	}
}

func TestItemUpsertAgainstMigratedSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	repo := persistence.NewGormItemRepository(tdb.DB)
	ctx := context.Background()
	vendorID := uuid.New()

	item := testItem(vendorID, "SKU-001", "Espresso beans")
	require.NoError(t, repo.UpsertBatch(ctx, []*catalog.SyncedItem{item}))

	got, err := repo.FindBySKU(ctx, vendorID, "SKU-001")
	require.NoError(t, err)
	assert.Equal(t, "Espresso beans", got.Name)

	// Second upsert with the same natural key must update, not duplicate.
	changed := testItem(vendorID, "SKU-001", "Espresso beans dark roast")
	require.NoError(t, repo.UpsertBatch(ctx, []*catalog.SyncedItem{changed}))

	got, err = repo.FindBySKU(ctx, vendorID, "SKU-001")
	require.NoError(t, err)
	assert.Equal(t, "Espresso beans dark roast", got.Name)
}

func TestJobClaimAgainstMigratedSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	orders := persistence.NewGormOrderRepository(tdb.DB)
	jobs := persistence.NewGormSyncJobRepository(tdb.DB)
	ctx := context.Background()
	vendorID := uuid.New()

	order, err := syncdomain.NewOrder(vendorID, "ORD-1001",
		decimal.RequireFromString("99.90"), json.RawMessage(`{"lines":[]}`))
	require.NoError(t, err)
	require.NoError(t, orders.Save(ctx, order))

	job, err := syncdomain.NewJob(vendorID, order.ID, syncdomain.OperationOrderCreate, order.Payload, 0, 0)
	require.NoError(t, err)
	require.NoError(t, jobs.Save(ctx, job))

	due, err := jobs.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	claimed, err := jobs.ClaimProcessing(ctx, []uuid.UUID{due[0].ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, syncdomain.JobStatusProcessing, claimed[0].Status)

	// A second claim on the same id finds nothing pending.
	claimed, err = jobs.ClaimProcessing(ctx, []uuid.UUID{due[0].ID})
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
