package coredhcpplugin

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	gardenutil "isc.org/walledgarden/util"
)

// Range of the IPv4 addresses of a single pool with the bitmap of the
// allocated addresses.
type poolRange struct {
	start  uint32
	end    uint32
	bitmap *bitset.BitSet
}

// Converts the IPv4 address to the number. The second value is false if
// the address is not IPv4.
func ipToUint32(ip net.IP) (uint32, bool) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(ip4), true
}

// Converts the number to the IPv4 address.
func uint32ToIP(value uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, value)
	return ip
}

// Creates the range for the pool.
func newPoolRange(pool dhcpmodel.AddressPool) (*poolRange, error) {
	start, ok := ipToUint32(pool.LowerBound)
	if !ok {
		return nil, errors.Errorf("pool %s is not an IPv4 pool", pool.String())
	}
	end, ok := ipToUint32(pool.UpperBound)
	if !ok || start > end {
		return nil, errors.Errorf("pool %s is not a valid IPv4 range", pool.String())
	}
	return &poolRange{
		start:  start,
		end:    end,
		bitmap: bitset.New(uint(end - start + 1)),
	}, nil
}

// Returns the offset of the address in the range.
func (r *poolRange) toOffset(ip net.IP) (uint, bool) {
	value, ok := ipToUint32(ip)
	if !ok || value < r.start || value > r.end {
		return 0, false
	}
	return uint(value - r.start), true
}

// Allocates the first free address in the range.
func (r *poolRange) allocate() (net.IP, bool) {
	offset, ok := r.bitmap.NextClear(0)
	if !ok || offset > uint(r.end-r.start) {
		return nil, false
	}
	r.bitmap.Set(offset)
	return uint32ToIP(r.start + uint32(offset)), true
}

// Allocates the given address if it belongs to the range and is free.
func (r *poolRange) allocateAddress(ip net.IP) bool {
	offset, ok := r.toOffset(ip)
	if !ok || r.bitmap.Test(offset) {
		return false
	}
	r.bitmap.Set(offset)
	return true
}

// Returns the address to the range.
func (r *poolRange) free(ip net.IP) {
	if offset, ok := r.toOffset(ip); ok {
		r.bitmap.Clear(offset)
	}
}

// In-memory lease allocator of the DHCP server. It keeps at most one
// lease per client. The expired leases are reclaimed when an address is
// needed. The leases are not persisted.
type leaseAllocator struct {
	mutex  sync.Mutex
	ranges map[dhcpmodel.SubnetID][]*poolRange
	leases map[dhcpmodel.HWAddress]*dhcpmodel.Lease4
	owners map[string]dhcpmodel.HWAddress
	clock  func() time.Time
}

// Creates the allocator for the pools of the subnets.
func newLeaseAllocator(subnets []*dhcpmodel.Subnet4) (*leaseAllocator, error) {
	allocator := &leaseAllocator{
		ranges: map[dhcpmodel.SubnetID][]*poolRange{},
		leases: map[dhcpmodel.HWAddress]*dhcpmodel.Lease4{},
		owners: map[string]dhcpmodel.HWAddress{},
		clock:  gardenutil.UTCNow,
	}
	for _, subnet := range subnets {
		for _, pool := range subnet.Pools {
			r, err := newPoolRange(pool)
			if err != nil {
				return nil, errors.WithMessagef(err, "invalid pool in subnet %s", subnet)
			}
			allocator.ranges[subnet.ID] = append(allocator.ranges[subnet.ID], r)
		}
	}
	return allocator, nil
}

// Returns the range containing the address in any subnet.
func (a *leaseAllocator) findRange(ip net.IP) *poolRange {
	for _, ranges := range a.ranges {
		for _, r := range ranges {
			if _, ok := r.toOffset(ip); ok {
				return r
			}
		}
	}
	return nil
}

// Removes the lease and frees its address. It must be called with the
// mutex locked.
func (a *leaseAllocator) release(lease *dhcpmodel.Lease4) {
	delete(a.leases, lease.HWAddress)
	delete(a.owners, lease.Address.String())
	if r := a.findRange(lease.Address); r != nil {
		r.free(lease.Address)
	}
}

// Removes all expired leases. It must be called with the mutex locked.
func (a *leaseAllocator) reclaimExpired(now time.Time) {
	for _, lease := range a.leases {
		if lease.IsExpired(now) {
			a.release(lease)
		}
	}
}

// Stores the lease. It must be called with the mutex locked.
func (a *leaseAllocator) store(lease *dhcpmodel.Lease4) *dhcpmodel.Lease4 {
	a.leases[lease.HWAddress] = lease
	a.owners[lease.Address.String()] = lease.HWAddress
	stored := *lease
	return &stored
}

// Tries to allocate the address requested by the client in the subnet.
// It must be called with the mutex locked.
func (a *leaseAllocator) allocateRequested(subnet *dhcpmodel.Subnet4, requested net.IP, now time.Time) bool {
	if requested == nil || !subnet.InPool(requested) {
		return false
	}
	if owner, ok := a.owners[requested.String()]; ok {
		lease := a.leases[owner]
		if lease == nil || !lease.IsExpired(now) {
			return false
		}
		a.release(lease)
	}
	for _, r := range a.ranges[subnet.ID] {
		if r.allocateAddress(requested) {
			return true
		}
	}
	return false
}

// Allocates the first free address in the subnet. It must be called with
// the mutex locked.
func (a *leaseAllocator) allocateFree(subnet *dhcpmodel.Subnet4, now time.Time) (net.IP, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		for _, r := range a.ranges[subnet.ID] {
			if ip, ok := r.allocate(); ok {
				return ip, true
			}
		}
		a.reclaimExpired(now)
	}
	return nil, false
}

// Returns the lease for the client in the subnet. The current lease is
// reused if the client asks for no other address and the address belongs
// to the subnet pools. A client explicitly asking for its current address
// gets it renewed as long as it belongs to the subnet prefix. The
// enforcement callouts decide if such a lease is acceptable. Otherwise,
// the requested address is allocated if it is free, or any free address
// from the subnet pools.
func (a *leaseAllocator) Allocate(subnet *dhcpmodel.Subnet4, hwAddress dhcpmodel.HWAddress, requested net.IP) (*dhcpmodel.Lease4, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	now := a.clock()
	lifetime := subnet.ValidLifetime
	if lifetime <= 0 {
		lifetime = defaultValidLifetime
	}

	if current, ok := a.leases[hwAddress]; ok {
		reusable := subnet.InPool(current.Address) ||
			(requested.Equal(current.Address) && subnet.InPrefix(current.Address))
		if !current.IsExpired(now) && (requested == nil || requested.Equal(current.Address)) && reusable {
			return a.store(dhcpmodel.NewLease4(current.Address, hwAddress, subnet.ID, lifetime, now)), nil
		}
		a.release(current)
	}

	if a.allocateRequested(subnet, requested, now) {
		return a.store(dhcpmodel.NewLease4(requested.To4(), hwAddress, subnet.ID, lifetime, now)), nil
	}

	address, ok := a.allocateFree(subnet, now)
	if !ok {
		return nil, errors.Errorf("no free addresses in subnet %s", subnet)
	}
	return a.store(dhcpmodel.NewLease4(address, hwAddress, subnet.ID, lifetime, now)), nil
}

// Releases the lease of the client if it holds the given address.
func (a *leaseAllocator) Release(lease *dhcpmodel.Lease4) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if current, ok := a.leases[lease.HWAddress]; ok && current.Address.Equal(lease.Address) {
		a.release(current)
	}
}

// Returns the current lease of the client.
func (a *leaseAllocator) GetLease(hwAddress dhcpmodel.HWAddress) (*dhcpmodel.Lease4, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	lease, ok := a.leases[hwAddress]
	if !ok {
		return nil, false
	}
	copied := *lease
	return &copied, true
}
