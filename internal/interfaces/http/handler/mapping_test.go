package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restosuite/backend/internal/application/mappingsvc"
)

func TestMappingHandler_CRUD(t *testing.T) {
	t.Run("creates, reads, updates, and deactivates a mapping", func(t *testing.T) {
		f := setupAPI(t)
		base := fmt.Sprintf("/api/v1/vendors/%s/mappings", f.vendorID)

		createRec := f.do(t, http.MethodPost, base, mappingsvc.CreateMappingRequest{
			Type:       "UNIT",
			ErpCode:    "KG",
			RestoCode:  "kilogram",
			RestoLabel: "Kilogram",
		}, requestOpts{admin: true})
		require.Equal(t, http.StatusCreated, createRec.Code)
		created := decodeData[mappingsvc.MappingResponse](t, createRec)
		assert.Equal(t, "KG", created.ErpCode)
		assert.True(t, created.IsActive)

		getRec := f.do(t, http.MethodGet, fmt.Sprintf("%s/%s", base, created.ID), nil, requestOpts{admin: true})
		require.Equal(t, http.StatusOK, getRec.Code)

		updateRec := f.do(t, http.MethodPut, fmt.Sprintf("%s/%s", base, created.ID),
			mappingsvc.UpdateMappingRequest{RestoCode: "kg", RestoLabel: "Kg"},
			requestOpts{admin: true})
		require.Equal(t, http.StatusOK, updateRec.Code)
		updated := decodeData[mappingsvc.MappingResponse](t, updateRec)
		assert.Equal(t, "kg", updated.RestoCode)

		deleteRec := f.do(t, http.MethodDelete, fmt.Sprintf("%s/%s", base, created.ID), nil, requestOpts{admin: true})
		require.Equal(t, http.StatusNoContent, deleteRec.Code)
	})

	t.Run("lists mappings with pagination metadata", func(t *testing.T) {
		f := setupAPI(t)
		base := fmt.Sprintf("/api/v1/vendors/%s/mappings", f.vendorID)

		rec := f.do(t, http.MethodGet, base+"?type=UNIT&page=1&page_size=10", nil, requestOpts{admin: true})
		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		require.NotNil(t, env.Meta)
		// The fixture seeds one UNIT mapping.
		assert.Equal(t, int64(1), env.Meta.Total)
	})

	t.Run("seeds mappings in bulk", func(t *testing.T) {
		f := setupAPI(t)
		base := fmt.Sprintf("/api/v1/vendors/%s/mappings/seed", f.vendorID)

		rec := f.do(t, http.MethodPost, base, mappingsvc.SeedRequest{
			Mappings: []mappingsvc.CreateMappingRequest{
				{Type: "FAMILY", ErpCode: "F01", RestoCode: "drinks"},
				{Type: "FAMILY", ErpCode: "F02", RestoCode: "snacks"},
			},
		}, requestOpts{admin: true})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeData[SeedResponse](t, rec)
		assert.Equal(t, 2, resp.Loaded)
	})

	t.Run("returns 404 for an unknown mapping", func(t *testing.T) {
		f := setupAPI(t)
		rec := f.do(t, http.MethodGet,
			fmt.Sprintf("/api/v1/vendors/%s/mappings/00000000-0000-0000-0000-000000000001", f.vendorID),
			nil, requestOpts{admin: true})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects an invalid mapping type with details", func(t *testing.T) {
		f := setupAPI(t)
		base := fmt.Sprintf("/api/v1/vendors/%s/mappings", f.vendorID)

		rec := f.do(t, http.MethodPost, base, map[string]string{
			"type":       "COLOR",
			"erp_code":   "X",
			"resto_code": "x",
		}, requestOpts{admin: true})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_VALIDATION", env.Error.Code)
	})

	t.Run("requires admin authentication", func(t *testing.T) {
		f := setupAPI(t)
		rec := f.do(t, http.MethodGet,
			fmt.Sprintf("/api/v1/vendors/%s/mappings", f.vendorID), nil, requestOpts{})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
