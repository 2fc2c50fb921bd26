package reservation

import (
	"sync/atomic"
	"time"

	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Reservation store serving the lookups from the current snapshot. The
// snapshot is replaced atomically. The lookups never block and never
// contend with the refresh.
type MemoryStore struct {
	snapshot atomic.Pointer[Snapshot]
}

var _ Store = (*MemoryStore)(nil)

// Creates a store with an empty snapshot.
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{}
	store.snapshot.Store(NewEmptySnapshot())
	return store
}

// Creates a store serving the specified snapshot.
func NewMemoryStoreWithSnapshot(snapshot *Snapshot) *MemoryStore {
	store := &MemoryStore{}
	store.Swap(snapshot)
	return store
}

// Returns the reservation for the identifier in the scope.
func (s *MemoryStore) Lookup(scope dhcpmodel.SubnetID, identifierType IdentifierType, identifier []byte) (*Reservation, bool) {
	return s.snapshot.Load().Lookup(scope, identifierType, identifier)
}

// Returns the time when the device was first seen.
func (s *MemoryStore) FirstSeen(identifier []byte) (time.Time, bool) {
	return s.snapshot.Load().FirstSeen(identifier)
}

// Replaces the current snapshot and returns the previous one. A nil
// snapshot is replaced with an empty one.
func (s *MemoryStore) Swap(snapshot *Snapshot) *Snapshot {
	if snapshot == nil {
		snapshot = NewEmptySnapshot()
	}
	return s.snapshot.Swap(snapshot)
}

// Returns the current snapshot.
func (s *MemoryStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}
