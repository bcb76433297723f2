package ingest

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemPayload is one catalog item as pushed by a vendor agent.
type ItemPayload struct {
	SKU              string          `json:"sku" binding:"required,max=100"`
	Name             string          `json:"name" binding:"required,max=255"`
	ErpUnitCode      string          `json:"erp_unit_code" binding:"required,max=100"`
	ErpVatCode       string          `json:"erp_vat_code" binding:"required,max=100"`
	ErpFamilyCode    string          `json:"erp_family_code" binding:"max=100"`
	ErpSubfamilyCode string          `json:"erp_subfamily_code" binding:"max=100"`
	Price            decimal.Decimal `json:"price"`
	IsActive         *bool           `json:"is_active"`
	LastSyncedAt     time.Time       `json:"last_synced_at"`
}

// StockPayload is one per-warehouse stock level as pushed by a vendor agent.
type StockPayload struct {
	ErpWarehouseID string          `json:"erp_warehouse_id" binding:"required,max=100"`
	SKU            string          `json:"sku" binding:"required,max=100"`
	Quantity       decimal.Decimal `json:"quantity"`
	LastSyncedAt   time.Time       `json:"last_synced_at"`
}

// WarehousePayload is one warehouse as pushed by a vendor agent.
type WarehousePayload struct {
	ErpWarehouseID string    `json:"erp_warehouse_id" binding:"required,max=100"`
	Name           string    `json:"name" binding:"required,max=255"`
	Address        string    `json:"address" binding:"max=500"`
	IsActive       *bool     `json:"is_active"`
	LastSyncedAt   time.Time `json:"last_synced_at"`
}

// RecordStatus is the per-record outcome of an ingest batch.
type RecordStatus string

const (
	StatusProcessed RecordStatus = "processed"
	StatusSkipped   RecordStatus = "skipped"
	StatusFailed    RecordStatus = "failed"
)

// Skip/fail reasons surfaced to agents.
const (
	ReasonNoChanges      = "no_changes"
	ReasonStale          = "stale"
	ReasonInvalidPayload = "invalid_payload"
	ReasonMissingMapping = "missing_mapping"
	ReasonStoreError     = "store_error"
)

// RecordResult is the outcome for one record, keyed by its natural key.
type RecordResult struct {
	Key    string       `json:"key"`
	Status RecordStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// Report summarizes one ingest batch.
type Report struct {
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Results   []RecordResult `json:"results"`
}

// buildReport tallies per-record results into a batch report.
func buildReport(results []RecordResult) *Report {
	report := &Report{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusProcessed:
			report.Processed++
		case StatusSkipped:
			report.Skipped++
		case StatusFailed:
			report.Failed++
		}
	}
	return report
}
