package reservation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Test that the new store is empty.
func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Lookup(ScopeGlobal, IdentifierTypeHWAddress, hw(t, "aa:bb:cc:dd:ee:ff"))
	require.False(t, ok)
	_, ok = store.FirstSeen(hw(t, "aa:bb:cc:dd:ee:ff"))
	require.False(t, ok)
	require.Zero(t, store.Snapshot().Size())
}

// Test that swapping the snapshot is immediately visible to the lookups.
func TestMemoryStoreSwap(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	builder := NewSnapshotBuilder()
	_ = builder.AddReservation(&Reservation{IdentifierType: IdentifierTypeHWAddress, Identifier: hw(t, "aa:bb:cc:dd:ee:ff")})
	builder.SetFirstSeen(hw(t, "aa:bb:cc:dd:ee:ff"), time.Unix(100, 0))
	snapshot := builder.Build(time.Now())

	// Act
	previous := store.Swap(snapshot)

	// Assert
	require.NotNil(t, previous)
	require.Zero(t, previous.Size())
	_, ok := store.Lookup(ScopeGlobal, IdentifierTypeHWAddress, hw(t, "aa:bb:cc:dd:ee:ff"))
	require.True(t, ok)
	firstSeen, ok := store.FirstSeen(hw(t, "aa:bb:cc:dd:ee:ff"))
	require.True(t, ok)
	require.Equal(t, time.Unix(100, 0), firstSeen)

	// Nil snapshot clears the store.
	require.Same(t, snapshot, store.Swap(nil))
	_, ok = store.Lookup(ScopeGlobal, IdentifierTypeHWAddress, hw(t, "aa:bb:cc:dd:ee:ff"))
	require.False(t, ok)
}

// Test that the lookups can run concurrently with the swaps.
func TestMemoryStoreConcurrentAccess(t *testing.T) {
	// Arrange
	identifier := hw(t, "aa:bb:cc:dd:ee:ff")
	withReservation := func() *Snapshot {
		builder := NewSnapshotBuilder()
		_ = builder.AddReservation(&Reservation{IdentifierType: IdentifierTypeHWAddress, Identifier: identifier})
		return builder.Build(time.Now())
	}
	store := NewMemoryStoreWithSnapshot(withReservation())

	// Act
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_, _ = store.Lookup(ScopeGlobal, IdentifierTypeHWAddress, identifier)
			}
		}()
	}
	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			store.Swap(NewEmptySnapshot())
		} else {
			store.Swap(withReservation())
		}
	}
	wg.Wait()

	// Assert
	_, ok := store.Lookup(ScopeGlobal, IdentifierTypeHWAddress, identifier)
	require.True(t, ok)
}
