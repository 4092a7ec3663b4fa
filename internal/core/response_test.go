package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentroll/internal/types"
)

func TestJSON_WritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/properties", nil)

	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{"id": "prop_1"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "prop_1", data["id"])
}

func TestError_AppErrorMapsStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       types.ErrorCode
		wantStatus int
	}{
		{"validation maps to 400", types.ErrCodeValidationInvalidField, http.StatusBadRequest},
		{"not found maps to 404", types.ErrCodeNotFoundRent, http.StatusNotFound},
		{"conflict maps to 409", types.ErrCodeConflictRentExists, http.StatusConflict},
		{"upstream maps to 502", types.ErrCodeUpstreamWebhook, http.StatusBadGateway},
		{"internal maps to 500", types.ErrCodeInternalDB, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/rents", nil)
			r = r.WithContext(types.WithRequestID(r.Context(), "req_test"))

			Error(w, r, types.NewAppError(tt.code, "boom", nil))

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp APIErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.code), resp.Error.Code)
			assert.Equal(t, "req_test", resp.Error.RequestID)
		})
	}
}

func TestError_GenericErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/rents", nil)

	Error(w, r, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "password")
}

func TestDecodeJSON_Success(t *testing.T) {
	body := `{"address":"12 Rose Street"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/properties", strings.NewReader(body))

	var dst struct {
		Address string `json:"address"`
	}
	require.NoError(t, DecodeJSON(w, r, &dst))
	assert.Equal(t, "12 Rose Street", dst.Address)
}

func TestDecodeJSON_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"address":`},
		{"unknown field", `{"unknown_field":true}`},
		{"empty body", ``},
		{"multiple JSON values", `{"address":"a"}{"address":"b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/properties", strings.NewReader(tt.body))

			var dst struct {
				Address string `json:"address"`
			}
			err := DecodeJSON(w, r, &dst)
			require.Error(t, err)

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	huge := bytes.Repeat([]byte("a"), maxRequestBodySize+1)
	body := `{"address":"` + string(huge) + `"}`

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/properties", strings.NewReader(body))

	var dst struct {
		Address string `json:"address"`
	}
	err := DecodeJSON(w, r, &dst)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
}
