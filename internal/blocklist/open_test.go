package blocklist_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olahtaxi/taxirelay/internal/blocklist"
)

func TestOpen_Memory(t *testing.T) {
	for _, backend := range []string{"", blocklist.BackendMemory} {
		store, closeFn, err := blocklist.Open(context.Background(), blocklist.OpenConfig{
			Backend: backend,
			Logger:  zerolog.Nop(),
		})
		require.NoError(t, err)
		defer closeFn()

		_, ok := store.(*blocklist.MemoryStore)
		assert.True(t, ok, "backend %q should open a MemoryStore", backend)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, _, err := blocklist.Open(context.Background(), blocklist.OpenConfig{
		Backend: "etcd",
		Logger:  zerolog.Nop(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestOpen_RedisUnreachable(t *testing.T) {
	_, _, err := blocklist.Open(context.Background(), blocklist.OpenConfig{
		Backend: blocklist.BackendRedis,
		Redis:   blocklist.RedisConfig{Addr: "127.0.0.1:1"},
		Logger:  zerolog.Nop(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}
