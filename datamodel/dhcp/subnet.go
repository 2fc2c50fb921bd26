package dhcpmodel

import (
	"fmt"
	"net"
	"time"
)

// Subnet identifier as used by the DHCP server configuration.
type SubnetID int64

// A pseudo subnet identifier denoting the global scope. Kea uses 0 for
// the global host reservations.
const SubnetIDGlobal SubnetID = 0

// A common interface describing a subnet. It is used to expose the
// candidate subnets of the host DHCP server to the enforcement code
// without copying them.
type SubnetAccessor interface {
	// Returns the subnet identifier.
	GetID() SubnetID
	// Returns a subnet prefix.
	GetPrefix() string
	// Returns a slice of interfaces representing address pools configured
	// for the subnet.
	GetAddressPools() []AddressPoolAccessor
}

// IPv4 subnet with its pools and the lease-time policy.
type Subnet4 struct {
	ID            SubnetID
	Name          string
	Prefix        string
	Pools         []AddressPool
	ValidLifetime time.Duration
}

var _ SubnetAccessor = (*Subnet4)(nil)

// Returns the subnet identifier.
func (s *Subnet4) GetID() SubnetID {
	return s.ID
}

// Returns the subnet prefix.
func (s *Subnet4) GetPrefix() string {
	return s.Prefix
}

// Returns the address pools.
func (s *Subnet4) GetAddressPools() []AddressPoolAccessor {
	pools := make([]AddressPoolAccessor, 0, len(s.Pools))
	for i := range s.Pools {
		pools = append(pools, &s.Pools[i])
	}
	return pools
}

// Checks if the address belongs to any of the subnet pools.
func (s *Subnet4) InPool(address net.IP) bool {
	return InAnyPool(s, address)
}

// Checks if the address belongs to the subnet prefix. It returns false if
// the prefix is invalid.
func (s *Subnet4) InPrefix(address net.IP) bool {
	_, network, err := net.ParseCIDR(s.Prefix)
	if err != nil || address == nil {
		return false
	}
	return network.Contains(address)
}

// Returns the subnet in the human readable form used in the logs.
func (s *Subnet4) String() string {
	if s.Name != "" {
		return fmt.Sprintf("[%d] %s (%s)", s.ID, s.Prefix, s.Name)
	}
	return fmt.Sprintf("[%d] %s", s.ID, s.Prefix)
}

// Checks if the address belongs to any pool of the subnet described by the
// accessor.
func InAnyPool(subnet SubnetAccessor, address net.IP) bool {
	if subnet == nil {
		return false
	}
	for _, pool := range subnet.GetAddressPools() {
		if PoolContains(pool, address) {
			return true
		}
	}
	return false
}

// Returns the subnet with the given ID or nil if it is not present.
func FindSubnet(subnets []*Subnet4, id SubnetID) *Subnet4 {
	for _, subnet := range subnets {
		if subnet != nil && subnet.ID == id {
			return subnet
		}
	}
	return nil
}

// Returns the first subnet with a pool containing the address or nil.
func FindSubnetByAddress(subnets []*Subnet4, address net.IP) *Subnet4 {
	for _, subnet := range subnets {
		if subnet != nil && subnet.InPool(address) {
			return subnet
		}
	}
	return nil
}
