package repo

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redis/go-redis/v9"

	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
)

func TestMemorySessionStoreGetOrCreate(t *testing.T) {
	store := NewMemorySessionStore()
	s, err := store.Get(context.Background(), "new")
	require.NoError(t, err)
	assert.Equal(t, "new", s.SessionID)
	assert.Empty(t, s.Messages)
	assert.Zero(t, store.Len(), "a miss does not persist anything")
}

func TestMemorySessionStoreIsolatesSnapshots(t *testing.T) {
	store := NewMemorySessionStore()
	s := model.NewConversationState("s1")
	s.AppendTurns("hi", "hello")
	s.Pending = model.Finish()
	s.Visited = []string{model.StageRouter}
	require.NoError(t, store.Put(context.Background(), "s1", s))

	s.AppendTurns("mutated", "after put")

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, model.TransitionNone, got.Pending.Kind)
	assert.Nil(t, got.Visited)

	got.AppendTurns("mutated", "after get")
	again, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, again.Messages, 2)
}

func TestKeyedLockerSerializesPerKey(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "a")
	require.NoError(t, err)

	other, err := l.Lock(ctx, "b")
	require.NoError(t, err, "other keys are independent")
	other()

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(ctx, "a")
		if assert.NoError(t, err) {
			close(acquired)
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the key")
	}
	assert.Eventually(t, func() bool { return l.Held() == 0 }, time.Second, time.Millisecond)
}

func TestKeyedLockerHonoursContext(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Held())
}

func TestKeyedLockerUnlockIsIdempotent(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Zero(t, l.Held())

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := l.Lock(context.Background(), "shared")
			if !assert.NoError(t, err) {
				return
			}
			counter++
			u()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}

func TestMemoryGeocodeCacheExpires(t *testing.T) {
	c := NewMemoryGeocodeCache()
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	res := model.GeoResult{Success: true, City: "Mumbai", Latitude: 19.076}
	require.NoError(t, c.Set(ctx, "forward:mumbai", res, time.Hour))

	got, ok, err := c.Get(ctx, "forward:mumbai")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res, *got)

	now = now.Add(time.Hour)
	_, ok, err = c.Get(ctx, "forward:mumbai")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, "never")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryGeocodeCacheWithoutTTL(t *testing.T) {
	c := NewMemoryGeocodeCache()
	require.NoError(t, c.Set(context.Background(), "k", model.GeoResult{Success: true}, 0))
	c.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGeocodeCacheUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewRedisGeocodeCache(rdb)

	_, ok, err := c.Get(context.Background(), "forward:mumbai")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))

	err = c.Set(context.Background(), "forward:mumbai", model.GeoResult{Success: true}, time.Hour)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
	assert.Equal(t, "geocode:forward:mumbai", c.geocodeKey("forward:mumbai"))
}
