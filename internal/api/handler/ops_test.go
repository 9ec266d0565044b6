package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olahtaxi/taxirelay/internal/api/handler"
	"github.com/olahtaxi/taxirelay/internal/api/models"
	"github.com/olahtaxi/taxirelay/internal/provider/resilience"
)

type readyFunc func(ctx context.Context) error

func (f readyFunc) Ready(ctx context.Context) error { return f(ctx) }

func TestOpsHandler_ReadinessCheck_StoreDown(t *testing.T) {
	h := handler.NewOpsHandler("test", "", readyFunc(func(context.Context) error {
		return errors.New("dial tcp 10.0.0.3:6379: connection refused")
	}), nil)

	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestOpsHandler_SystemStatus(t *testing.T) {
	tests := []struct {
		name      string
		ready     error
		record    func(r *resilience.Registry)
		want      models.HealthStatus
		providers int
	}{
		{
			name:      "all healthy",
			record:    func(r *resilience.Registry) { r.RecordSuccess("fcm-send") },
			want:      models.HealthStatusOK,
			providers: 1,
		},
		{
			name:      "store down",
			ready:     errors.New("store down"),
			record:    func(*resilience.Registry) {},
			want:      models.HealthStatusFail,
			providers: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := resilience.NewRegistry()
			resilience.NewClient(resilience.ClientConfig{Name: "fcm-send", Registry: registry})
			tt.record(registry)

			h := handler.NewOpsHandler("test", "", readyFunc(func(context.Context) error { return tt.ready }), registry)

			rec := httptest.NewRecorder()
			h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/ops/status", http.NoBody))

			require.Equal(t, http.StatusOK, rec.Code)
			var status models.SystemStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.want, status.Status)
			assert.Len(t, status.Providers, tt.providers)
			assert.Equal(t, "closed", status.Providers[0].CircuitState)
		})
	}
}

func TestRoot(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.Root(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OLAH bestel taxi server running ✅", rec.Body.String())
}
