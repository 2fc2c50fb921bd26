package reservation

import (
	"time"

	"github.com/pkg/errors"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Reservation lookup key.
type reservationKey struct {
	scope          dhcpmodel.SubnetID
	identifierType IdentifierType
	identifier     string
}

// Immutable set of reservations and first-seen times. A snapshot is never
// modified after it has been built, so it can be read concurrently without
// locking.
type Snapshot struct {
	reservations map[reservationKey]*Reservation
	firstSeen    map[string]time.Time
	createdAt    time.Time
}

// Returns a snapshot without reservations.
func NewEmptySnapshot() *Snapshot {
	return &Snapshot{
		reservations: make(map[reservationKey]*Reservation),
		firstSeen:    make(map[string]time.Time),
	}
}

// Returns the reservation for the identifier in the scope.
func (s *Snapshot) Lookup(scope dhcpmodel.SubnetID, identifierType IdentifierType, identifier []byte) (*Reservation, bool) {
	if len(identifier) == 0 {
		return nil, false
	}
	r, ok := s.reservations[reservationKey{scope, identifierType, string(identifier)}]
	return r, ok
}

// Returns the time when the device was first seen.
func (s *Snapshot) FirstSeen(identifier []byte) (time.Time, bool) {
	t, ok := s.firstSeen[string(identifier)]
	return t, ok
}

// Returns the number of reservations.
func (s *Snapshot) Size() int {
	return len(s.reservations)
}

// Returns the time when the snapshot was built.
func (s *Snapshot) CreatedAt() time.Time {
	return s.createdAt
}

// Returns all reservations in no particular order.
func (s *Snapshot) GetReservations() []*Reservation {
	reservations := make([]*Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		reservations = append(reservations, r)
	}
	return reservations
}

// Collects the reservations and first-seen times and builds a snapshot.
// The builder is not safe for concurrent use.
type SnapshotBuilder struct {
	snapshot *Snapshot
}

// Creates a new builder.
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{snapshot: NewEmptySnapshot()}
}

// Adds the reservation. It returns an error if the reservation has no
// identifier or another reservation with the same identifier exists in
// the scope. The first added reservation is kept in the latter case.
func (b *SnapshotBuilder) AddReservation(r *Reservation) error {
	if len(r.Identifier) == 0 {
		return errors.New("reservation has no identifier")
	}
	key := reservationKey{r.Scope, r.IdentifierType, string(r.Identifier)}
	if _, exists := b.snapshot.reservations[key]; exists {
		return errors.Errorf("duplicated %s reservation %x in scope %d", r.IdentifierType, r.Identifier, r.Scope)
	}
	b.snapshot.reservations[key] = r
	return nil
}

// Records the time when the device was first seen. The earliest time is
// kept if the device is reported more than once.
func (b *SnapshotBuilder) SetFirstSeen(identifier []byte, firstSeen time.Time) {
	if len(identifier) == 0 || firstSeen.IsZero() {
		return
	}
	key := string(identifier)
	if current, ok := b.snapshot.firstSeen[key]; ok && !firstSeen.Before(current) {
		return
	}
	b.snapshot.firstSeen[key] = firstSeen
}

// Returns the snapshot. The builder must not be used afterwards.
func (b *SnapshotBuilder) Build(createdAt time.Time) *Snapshot {
	snapshot := b.snapshot
	snapshot.createdAt = createdAt
	b.snapshot = nil
	return snapshot
}
