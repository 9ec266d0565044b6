package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/olahtaxi/taxirelay/internal/blocklist"
)

type unreachableStore struct {
	*blocklist.MemoryStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name   string
		store  blocklist.Store
		path   string
		status int
	}{
		{"health", blocklist.NewMemoryStore(), "/health", http.StatusOK},
		{"ready", blocklist.NewMemoryStore(), "/ready", http.StatusOK},
		{"ready with store down", unreachableStore{blocklist.NewMemoryStore()}, "/ready", http.StatusServiceUnavailable},
		{"unknown path", blocklist.NewMemoryStore(), "/request", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(tt.store, zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}
