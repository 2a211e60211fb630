package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/carbx/ports"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()

	entry, ok := s.Get(ports.KeyAuthMe)
	assert.False(t, ok)
	assert.Equal(t, ports.QueryIdle, entry.Status)

	s.Set(ports.KeyAuthMe, "alice")
	entry, ok = s.Get(ports.KeyAuthMe)
	require.True(t, ok)
	assert.Equal(t, ports.QuerySuccess, entry.Status)
	assert.Equal(t, "alice", entry.Data)
	assert.False(t, entry.UpdatedAt.IsZero())
}

func TestMemoryStoreFetch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data, err := s.Fetch(ctx, ports.KeyOrdersGrouped, func(ctx context.Context) (any, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, data)

	entry, _ := s.Get(ports.KeyOrdersGrouped)
	assert.Equal(t, ports.QuerySuccess, entry.Status)
	assert.False(t, entry.Fetching)
}

func TestMemoryStoreFailedFetchKeepsData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ports.KeyAuthMe, "alice")

	boom := errors.New("boom")
	_, err := s.Fetch(ctx, ports.KeyAuthMe, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	entry, _ := s.Get(ports.KeyAuthMe)
	assert.Equal(t, ports.QuerySuccess, entry.Status)
	assert.Equal(t, "alice", entry.Data)
	assert.ErrorIs(t, entry.Err, boom)
}

func TestMemoryStoreFailedFirstFetch(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Fetch(context.Background(), ports.KeyPuroAccount, func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)

	entry, ok := s.Get(ports.KeyPuroAccount)
	require.True(t, ok)
	assert.Equal(t, ports.QueryError, entry.Status)
	assert.Nil(t, entry.Data)
}

func TestMemoryStoreFetchingFlag(t *testing.T) {
	s := NewMemoryStore()

	_, _ = s.Fetch(context.Background(), ports.KeyAuthMe, func(ctx context.Context) (any, error) {
		entry, _ := s.Get(ports.KeyAuthMe)
		assert.True(t, entry.Fetching)
		assert.Equal(t, ports.QueryPending, entry.Status)
		return nil, nil
	})

	entry, _ := s.Get(ports.KeyAuthMe)
	assert.False(t, entry.Fetching)
}

func TestMemoryStoreRemovePrefix(t *testing.T) {
	s := NewMemoryStore()
	s.Set(ports.VintageKey("owner-a"), 1)
	s.Set(ports.VintageKey("owner-b"), 2)
	s.Set(ports.KeyVintageRegistry, 3)

	s.RemovePrefix(ports.KeyVintagePrefix)

	_, ok := s.Get(ports.VintageKey("owner-a"))
	assert.False(t, ok)
	_, ok = s.Get(ports.VintageKey("owner-b"))
	assert.False(t, ok)
	_, ok = s.Get(ports.KeyVintageRegistry)
	assert.True(t, ok)

	s.Remove(ports.KeyVintageRegistry)
	_, ok = s.Get(ports.KeyVintageRegistry)
	assert.False(t, ok)
}

func TestMemoryStoreRemoveDropsInFlightResult(t *testing.T) {
	s := NewMemoryStore()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan any, 1)
	go func() {
		data, _ := s.Fetch(context.Background(), ports.KeyOrdersGrouped, func(context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- data
	}()

	<-started
	s.Remove(ports.KeyOrdersGrouped)
	close(release)
	assert.Equal(t, "stale", <-done)

	_, ok := s.Get(ports.KeyOrdersGrouped)
	assert.False(t, ok)

	data, err := s.Fetch(context.Background(), ports.KeyOrdersGrouped, func(context.Context) (any, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", data)
	entry, ok := s.Get(ports.KeyOrdersGrouped)
	require.True(t, ok)
	assert.Equal(t, "fresh", entry.Data)
}

func TestMemoryStoreRemovePrefixDropsInFlightResult(t *testing.T) {
	s := NewMemoryStore()
	key := ports.VintageKey("owner-a")
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Fetch(context.Background(), key, func(context.Context) (any, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()

	<-started
	s.RemovePrefix(ports.KeyVintagePrefix)
	close(release)
	<-done

	_, ok := s.Get(key)
	assert.False(t, ok)
}
