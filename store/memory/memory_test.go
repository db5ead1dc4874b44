package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pos-analytics/store/memory"
)

func TestMemory_PutGet(t *testing.T) {
	// GIVEN: An empty cache
	ctx := context.Background()
	m := memory.New()

	// WHEN: Reading before and after a Put
	_, ok, err := m.Get(ctx, "sprouts/pos_data.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(ctx, "sprouts/pos_data.json", []byte(`{"a":1}`)))
	data, ok, err := m.Get(ctx, "sprouts/pos_data.json")

	// THEN: The document comes back
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestMemory_CopiesData(t *testing.T) {
	// GIVEN: A cached document
	ctx := context.Background()
	m := memory.New()
	buf := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", buf))

	// WHEN: Mutating both the caller's buffer and a returned copy
	buf[0] = 'x'
	got, _, _ := m.Get(ctx, "k")
	got[1] = 'y'

	// THEN: The cached bytes are unchanged
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_Clear(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	require.NoError(t, m.Put(ctx, "b", []byte("2")))
	require.NoError(t, m.Put(ctx, "a", []byte("1")))
	assert.Equal(t, []string{"a", "b"}, m.Keys())

	require.NoError(t, m.Clear(ctx))

	assert.Equal(t, 0, m.Len())
	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := memory.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = m.Put(ctx, key, []byte(key))
			_, _, _ = m.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, m.Len())
}
