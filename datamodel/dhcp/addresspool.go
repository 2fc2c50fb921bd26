package dhcpmodel

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
	gardenutil "isc.org/walledgarden/util"
)

// A common interface describing an address pool. It is implemented by the
// pools parsed from the server configuration and by the pools exposed by the
// host DHCP server. The enforcement code only relies on this interface.
type AddressPoolAccessor interface {
	// Returns lower pool boundary.
	GetLowerBound() net.IP
	// Returns upper pool boundary.
	GetUpperBound() net.IP
}

// A contiguous range of IPv4 addresses offered by a subnet. Both bounds
// are inclusive.
type AddressPool struct {
	LowerBound net.IP
	UpperBound net.IP
}

var _ AddressPoolAccessor = (*AddressPool)(nil)

// Creates a pool from the range specified in the Kea format, i.e.
// 192.0.2.10-192.0.2.20 or 192.0.2.0/28.
func NewAddressPool(poolRange string) (*AddressPool, error) {
	lb, ub, err := gardenutil.ParseIPRange(poolRange)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid address pool %s", poolRange)
	}
	return &AddressPool{LowerBound: lb, UpperBound: ub}, nil
}

// Creates a pool from the lower and upper bound. It returns an error when
// any of the bounds is invalid or the lower bound is greater than the upper
// bound.
func NewAddressPoolFromBounds(lowerBound, upperBound string) (*AddressPool, error) {
	return NewAddressPool(fmt.Sprintf("%s-%s", lowerBound, upperBound))
}

// Returns lower pool boundary.
func (p *AddressPool) GetLowerBound() net.IP {
	return p.LowerBound
}

// Returns upper pool boundary.
func (p *AddressPool) GetUpperBound() net.IP {
	return p.UpperBound
}

// Checks if the address belongs to the pool.
func (p *AddressPool) Contains(address net.IP) bool {
	return PoolContains(p, address)
}

// Returns the pool in the lower-upper form.
func (p *AddressPool) String() string {
	return fmt.Sprintf("%s-%s", p.LowerBound, p.UpperBound)
}

// Checks if the address belongs to the pool described by the accessor.
// Nil address never belongs to a pool.
func PoolContains(pool AddressPoolAccessor, address net.IP) bool {
	if pool == nil || address == nil {
		return false
	}
	return gardenutil.IsIPInRange(address, pool.GetLowerBound(), pool.GetUpperBound())
}
