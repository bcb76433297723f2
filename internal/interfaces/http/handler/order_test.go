package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restosuite/backend/internal/application/syncjob"
	"github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

func submitOrder(t *testing.T, f *apiFixture, orderNumber string) syncjob.OrderResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/vendors/%s/orders", f.vendorID),
		syncjob.SubmitOrderRequest{
			OrderNumber: orderNumber,
			TotalAmount: decimal.NewFromFloat(99.90),
			Payload:     json.RawMessage(`{"lines":[{"sku":"SKU-1","qty":2}]}`),
		}, requestOpts{admin: true})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeData[syncjob.OrderResponse](t, rec)
}

// markProcessing simulates the queue processor claiming the job, so a
// callback can land on it.
func markProcessing(t *testing.T, f *apiFixture, jobID uuid.UUID) {
	t.Helper()
	res := f.db.Model(&models.SyncJobModel{}).
		Where("id = ?", jobID).
		Update("status", string(sync.JobStatusProcessing))
	require.NoError(t, res.Error)
	require.EqualValues(t, 1, res.RowsAffected)
}

func TestOrderHandler_SubmitOrder(t *testing.T) {
	t.Run("creates an order with a pending job", func(t *testing.T) {
		f := setupAPI(t)

		order := submitOrder(t, f, "ORD-1001")
		assert.Equal(t, "ORD-1001", order.OrderNumber)
		assert.NotEqual(t, uuid.Nil, order.JobID)

		rec := f.do(t, http.MethodGet, "/api/v1/jobs/"+order.JobID.String(), nil, requestOpts{admin: true})
		require.Equal(t, http.StatusOK, rec.Code)
		job := decodeData[syncjob.JobResponse](t, rec)
		assert.Equal(t, string(sync.JobStatusPending), job.Status)
	})

	t.Run("is idempotent per order number", func(t *testing.T) {
		f := setupAPI(t)

		first := submitOrder(t, f, "ORD-1001")
		second := submitOrder(t, f, "ORD-1001")
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.JobID, second.JobID)
	})

	t.Run("rejects a missing order number", func(t *testing.T) {
		f := setupAPI(t)
		rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/vendors/%s/orders", f.vendorID),
			map[string]any{"payload": map[string]any{}}, requestOpts{admin: true})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_Callback(t *testing.T) {
	t.Run("success callback completes the job and order", func(t *testing.T) {
		f := setupAPI(t)
		order := submitOrder(t, f, "ORD-2001")
		markProcessing(t, f, order.JobID)

		rec := f.do(t, http.MethodPost, "/api/v1/agent/callbacks", syncjob.CallbackRequest{
			JobID:        order.JobID,
			Success:      true,
			ErpReference: "ERP-REF-77",
		}, requestOpts{agent: true})
		require.Equal(t, http.StatusOK, rec.Code)

		jobRec := f.do(t, http.MethodGet, "/api/v1/jobs/"+order.JobID.String(), nil, requestOpts{admin: true})
		job := decodeData[syncjob.JobResponse](t, jobRec)
		assert.Equal(t, string(sync.JobStatusCompleted), job.Status)
		require.NotNil(t, job.ErpReference)
		assert.Equal(t, "ERP-REF-77", *job.ErpReference)
	})

	t.Run("retryable failure schedules a retry", func(t *testing.T) {
		f := setupAPI(t)
		order := submitOrder(t, f, "ORD-2002")
		markProcessing(t, f, order.JobID)

		rec := f.do(t, http.MethodPost, "/api/v1/agent/callbacks", syncjob.CallbackRequest{
			JobID:        order.JobID,
			Success:      false,
			ErrorMessage: "ERP timeout",
			Retryable:    true,
		}, requestOpts{agent: true})
		require.Equal(t, http.StatusOK, rec.Code)

		jobRec := f.do(t, http.MethodGet, "/api/v1/jobs/"+order.JobID.String(), nil, requestOpts{admin: true})
		job := decodeData[syncjob.JobResponse](t, jobRec)
		assert.Equal(t, string(sync.JobStatusPending), job.Status)
		assert.Equal(t, 1, job.RetryCount)
		assert.NotNil(t, job.NextRetryAt)
	})

	t.Run("fatal failure fails the job without a dead letter", func(t *testing.T) {
		f := setupAPI(t)
		order := submitOrder(t, f, "ORD-2003")
		markProcessing(t, f, order.JobID)

		rec := f.do(t, http.MethodPost, "/api/v1/agent/callbacks", syncjob.CallbackRequest{
			JobID:        order.JobID,
			Success:      false,
			ErrorMessage: "unknown product family",
			Retryable:    false,
		}, requestOpts{agent: true})
		require.Equal(t, http.StatusOK, rec.Code)

		jobRec := f.do(t, http.MethodGet, "/api/v1/jobs/"+order.JobID.String(), nil, requestOpts{admin: true})
		job := decodeData[syncjob.JobResponse](t, jobRec)
		assert.Equal(t, string(sync.JobStatusFailed), job.Status)

		dlqRec := f.do(t, http.MethodGet, "/api/v1/dead-letters", nil, requestOpts{admin: true})
		env := decodeEnvelope(t, dlqRec)
		require.NotNil(t, env.Meta)
		assert.Zero(t, env.Meta.Total)
	})

	t.Run("rejects a callback for another vendor's job", func(t *testing.T) {
		f := setupAPI(t)
		order := submitOrder(t, f, "ORD-2004")
		markProcessing(t, f, order.JobID)

		// Re-register the agent under a different vendor and use its identity.
		otherVendor := uuid.New()
		req := f.do(t, http.MethodPost, "/api/v1/agents/register", map[string]any{
			"vendor_id": otherVendor,
			"agent_url": "http://other.test",
			"erp_type":  "sage100",
			"token":     testAgentToken,
		}, requestOpts{})
		require.Equal(t, http.StatusCreated, req.Code)

		f.vendorID, otherVendor = otherVendor, f.vendorID
		rec := f.do(t, http.MethodPost, "/api/v1/agent/callbacks", syncjob.CallbackRequest{
			JobID:   order.JobID,
			Success: true,
		}, requestOpts{agent: true})
		f.vendorID = otherVendor

		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestOrderHandler_ListJobs(t *testing.T) {
	f := setupAPI(t)
	submitOrder(t, f, "ORD-3001")
	submitOrder(t, f, "ORD-3002")

	rec := f.do(t, http.MethodGet, "/api/v1/jobs?status=PENDING&page=1&page_size=10", nil, requestOpts{admin: true})
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)

	statsRec := f.do(t, http.MethodGet, "/api/v1/jobs/stats", nil, requestOpts{admin: true})
	require.Equal(t, http.StatusOK, statsRec.Code)
	stats := decodeData[map[string]int64](t, statsRec)
	assert.Equal(t, int64(2), stats["PENDING"])
}
