// Package reservation implements the read-only registry of the host
// reservations consulted by the classifier. The reservations are served
// from an immutable in-memory snapshot replaced atomically by a background
// refresher, so the lookups never block the packet processing.
package reservation

import (
	"net"
	"time"

	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Scope of the global reservations.
const ScopeGlobal = dhcpmodel.SubnetIDGlobal

// Type of the host identifier.
type IdentifierType string

// Supported identifier types.
const (
	IdentifierTypeHWAddress IdentifierType = "hw-address"
	IdentifierTypeClientID  IdentifierType = "client-id"
)

// Indicates where the reservation comes from.
type Origin string

// Supported reservation origins.
const (
	OriginConfig   Origin = "config"
	OriginDatabase Origin = "database"
)

// Host reservation. It is owned by the external registration workflow or
// the server configuration and must not be modified by the consumers.
type Reservation struct {
	Scope          dhcpmodel.SubnetID
	IdentifierType IdentifierType
	Identifier     []byte
	IPAddress      net.IP
	Hostname       string
	ClientClasses  []string
	Origin         Origin
}

// Read-only reservation registry consulted by the classifier.
type Store interface {
	// Returns the reservation for the identifier in the scope. The scope
	// is ScopeGlobal or a subnet ID.
	Lookup(scope dhcpmodel.SubnetID, identifierType IdentifierType, identifier []byte) (*Reservation, bool)
	// Returns the time when the device was first seen on the network.
	FirstSeen(identifier []byte) (time.Time, bool)
}
