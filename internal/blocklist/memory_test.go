package blocklist_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olahtaxi/taxirelay/internal/blocklist"
)

func TestMemoryStore_ReplaceAndCheck(t *testing.T) {
	ctx := context.Background()
	store := blocklist.NewMemoryStore()

	blocked, err := store.IsBlocked(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, store.Replace(ctx, []string{"D1", "D2"}))

	blocked, err = store.IsBlocked(ctx, "D1")
	require.NoError(t, err)
	assert.True(t, blocked)

	// Replacement drops entries not in the new list.
	require.NoError(t, store.Replace(ctx, []string{"D3"}))

	blocked, err = store.IsBlocked(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, blocked)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D3"}, list)
}

func TestMemoryStore_ReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := blocklist.NewMemoryStore()

	ids := []string{"B", "A", "B"}
	require.NoError(t, store.Replace(ctx, ids))
	first, err := store.List(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Replace(ctx, ids))
	second, err := store.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"B", "A", "B"}, second, "order and duplicates are kept")
}

func TestMemoryStore_EmptyListClears(t *testing.T) {
	ctx := context.Background()
	store := blocklist.NewMemoryStore("D1")

	require.NoError(t, store.Replace(ctx, []string{}))

	blocked, err := store.IsBlocked(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, blocked)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore_CallerSliceNotAliased(t *testing.T) {
	ctx := context.Background()
	store := blocklist.NewMemoryStore()

	ids := []string{"D1"}
	require.NoError(t, store.Replace(ctx, ids))
	ids[0] = "mutated"

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, list)

	list[0] = "mutated"
	again, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, again)
}

func TestMemoryStore_ConcurrentReplaceAndCheck(t *testing.T) {
	ctx := context.Background()
	store := blocklist.NewMemoryStore("D1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Replace(ctx, []string{"D1", "D2"})
		}()
		go func() {
			defer wg.Done()
			blocked, err := store.IsBlocked(ctx, "D1")
			assert.NoError(t, err)
			assert.True(t, blocked)
		}()
	}
	wg.Wait()
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"array of strings", `["a","b"]`, []string{"a", "b"}, false},
		{"empty array", `[]`, []string{}, false},
		{"string", `"not-an-array"`, nil, true},
		{"object", `{"a":1}`, nil, true},
		{"number", `42`, nil, true},
		{"null", `null`, nil, true},
		{"missing", ``, nil, true},
		{"mixed element types", `["a",1]`, nil, true},
		{"null element", `["D1", null]`, nil, true},
		{"nested array element", `["D1",["D2"]]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := blocklist.DecodeList(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, blocklist.ErrInvalidList)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeUpdate(t *testing.T) {
	ids, err := blocklist.DecodeUpdate([]byte(`{"list":["D1"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, ids)

	_, err = blocklist.DecodeUpdate([]byte(`{"list":"D1"}`))
	assert.ErrorIs(t, err, blocklist.ErrInvalidList)

	_, err = blocklist.DecodeUpdate([]byte(`not json`))
	assert.ErrorIs(t, err, blocklist.ErrInvalidList)

	_, err = blocklist.DecodeUpdate([]byte(`{}`))
	assert.ErrorIs(t, err, blocklist.ErrInvalidList)
}

func TestPing_StoreWithoutRemote(t *testing.T) {
	assert.NoError(t, blocklist.Ping(context.Background(), blocklist.NewMemoryStore()))
}

func TestEncodeUpdate(t *testing.T) {
	data, err := blocklist.EncodeUpdate([]string{"D1", "D2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"list":["D1","D2"]}`, string(data))

	ids, err := blocklist.DecodeUpdate(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1", "D2"}, ids)

	data, err = blocklist.EncodeUpdate(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"list":[]}`, string(data))
}
