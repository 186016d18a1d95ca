package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errMissing = errors.New("thing not found")
	errBroken  = errors.New("upstream broken")
)

func TestHandleError(t *testing.T) {
	mappings := []ErrorMapping{
		{Target: errMissing, Status: http.StatusNotFound},
		{Target: errBroken, Status: http.StatusBadGateway, Message: "upstream unavailable"},
	}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedMsg    string
	}{
		{"mapped uses error text", errMissing, http.StatusNotFound, "thing not found"},
		{"wrapped error matches", fmt.Errorf("lookup: %w", errMissing), http.StatusNotFound, "lookup: thing not found"},
		{"mapped message override", errBroken, http.StatusBadGateway, "upstream unavailable"},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "request timed out"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "request cancelled"},
		{"unmapped hides details", errors.New("secret detail"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(context.Background(), rec, tt.err, mappings)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.expectedMsg, body.Error.Message)
		})
	}
}

func TestHandleError_CallerMappingsWin(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(context.Background(), rec, context.Canceled, []ErrorMapping{
		{Target: context.Canceled, Status: http.StatusRequestTimeout},
	})
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
}
