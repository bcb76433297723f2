package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeErrorCode(t *testing.T) {
	cases := []struct {
		domain string
		want   string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"MAPPING_NOT_FOUND", ErrCodeNotFound},
		{"AGENT_NOT_FOUND", ErrCodeNotFound},
		{"DEAD_LETTER_CLOSED", ErrCodeInvalidState},
		{"BATCH_TOO_LARGE", ErrCodeBatchTooLarge},
		{"CIRCUIT_OPEN", ErrCodeCircuitOpen},
		{"ERR_VALIDATION", ErrCodeValidation},
		{"SOMETHING_NOVEL", ErrCodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeErrorCode(tc.domain), tc.domain)
	}
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(ErrCodeNotFound))
	assert.Equal(t, http.StatusRequestEntityTooLarge, GetHTTPStatus(ErrCodeBatchTooLarge))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(ErrCodeCircuitOpen))
	assert.Equal(t, http.StatusBadGateway, GetHTTPStatus(ErrCodeAgentUnavailable))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("UNKNOWN"))
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(2, 10, 25)
	assert.Equal(t, 3, meta.TotalPages)

	defaulted := NewMeta(0, 0, 5)
	assert.Equal(t, 1, defaulted.Page)
	assert.Equal(t, 20, defaulted.PageSize)
	assert.Equal(t, 1, defaulted.TotalPages)
}
