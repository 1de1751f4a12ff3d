package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToggle_Parity(t *testing.T) {
	for toggles := 0; toggles <= 5; toggles++ {
		var s Session
		for i := 0; i < toggles; i++ {
			s.Toggle(9)
		}
		assert.Equal(t, toggles%2 == 1, s.IsSelected(9), "toggles=%d", toggles)
	}
}

func TestSessionToggle_KeepsSelectionOrder(t *testing.T) {
	var s Session
	assert.True(t, s.Toggle(3))
	assert.True(t, s.Toggle(1))
	assert.True(t, s.Toggle(2))
	assert.False(t, s.Toggle(1))
	assert.True(t, s.Toggle(1))

	assert.Equal(t, []int64{3, 2, 1}, s.Selected)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(0)
	store.Put(1, Session{Action: ActionProblem, DeviceID: 7, Selected: []int64{1}})

	sess, ok := store.Get(1)
	require.True(t, ok)
	sess.Toggle(2)

	again, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, []int64{1}, again.Selected)
	assert.True(t, again.ExpiresAt.IsZero())
}

func TestStore_TTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	store.Put(1, Session{Action: ActionProblem, DeviceID: 7})
	store.Put(2, Session{Action: ActionSolution, DeviceID: 8})

	now = now.Add(20 * time.Minute)
	_, ok := store.Get(1)
	assert.True(t, ok)

	// renew user 2 only
	store.Put(2, Session{Action: ActionSolution, DeviceID: 8})

	now = now.Add(15 * time.Minute)
	_, ok = store.Get(1)
	assert.False(t, ok, "expired session reads as absent")
	assert.Equal(t, 1, store.Len())

	now = now.Add(time.Hour)
	n, err := store.EvictExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, store.Len())
}

func TestStore_NoTTLNeverExpires(t *testing.T) {
	now := time.Now()
	store := NewStore(0)
	store.now = func() time.Time { return now }
	store.Put(1, Session{Action: ActionProblem, DeviceID: 7})

	now = now.Add(365 * 24 * time.Hour)
	n, err := store.EvictExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	_, ok := store.Get(1)
	assert.True(t, ok)
}

func TestStore_LockSerializesPerUser(t *testing.T) {
	store := NewStore(0)
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock(1)
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	store.mu.Lock()
	assert.Empty(t, store.locks)
	store.mu.Unlock()
}

func TestStore_LocksAreIndependent(t *testing.T) {
	store := NewStore(0)
	unlockA := store.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := store.Lock(2)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of another user blocked")
	}
}
