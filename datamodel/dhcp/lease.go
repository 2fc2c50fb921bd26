package dhcpmodel

import (
	"net"
	"time"
)

// Lease the host server is about to commit or has committed. It is owned
// by the host server. The enforcement code reads it and may veto it
// before commit.
type Lease4 struct {
	Address       net.IP
	HWAddress     HWAddress
	SubnetID      SubnetID
	ValidLifetime time.Duration
	Expire        time.Time
}

// Creates a lease expiring after the valid lifetime counted from now.
func NewLease4(address net.IP, hwAddress HWAddress, subnetID SubnetID, validLifetime time.Duration, now time.Time) *Lease4 {
	return &Lease4{
		Address:       address,
		HWAddress:     hwAddress,
		SubnetID:      subnetID,
		ValidLifetime: validLifetime,
		Expire:        now.Add(validLifetime),
	}
}

// Checks if the lease has expired at the specified time.
func (l *Lease4) IsExpired(now time.Time) bool {
	return !l.Expire.After(now)
}
