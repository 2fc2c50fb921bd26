package classifier

import (
	"net"

	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/reservation"
)

// Registration tier of the device.
type Tier int

// Supported tiers. The unregistered tier is used when the three-tier
// policy is disabled.
const (
	TierUnknown Tier = iota
	TierRegistered
	TierUnregistered
	TierNewlyUnregistered
	TierAgedUnregistered
)

// Returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierRegistered:
		return "registered"
	case TierUnregistered:
		return "unregistered"
	case TierNewlyUnregistered:
		return "newly-unregistered"
	case TierAgedUnregistered:
		return "aged-unregistered"
	default:
		return "unknown"
	}
}

// Checks if the tier denotes a device without reservation.
func (t Tier) IsUnregistered() bool {
	return t == TierUnregistered || t == TierNewlyUnregistered || t == TierAgedUnregistered
}

// Admission verdict.
type Verdict int

// Supported verdicts.
const (
	VerdictAllow Verdict = iota
	VerdictDeny
)

// Returns the verdict name.
func (v Verdict) String() string {
	if v == VerdictDeny {
		return "deny"
	}
	return "allow"
}

// Classification outcome for a single packet. It is computed fresh for
// every packet and never cached.
type Decision struct {
	// Subnet the device is entitled to. Nil means no override, i.e., the
	// host server's choice stands.
	Subnet *dhcpmodel.Subnet4
	// The classification itself always allows. Deny is only produced by
	// the address evaluation.
	Verdict Verdict
	Tier    Tier
	Reason  string
	// Matched reservation, if any.
	Reservation *reservation.Reservation
}

// Checks if the decision overrides the subnet choice.
func (d *Decision) HasOverride() bool {
	return d != nil && d.Subnet != nil
}

// Checks if the address is consistent with the decision. The address
// outside of all pools of the entitled subnet is denied. Unspecified
// addresses and decisions without override are always allowed.
func (d *Decision) EvaluateAddress(address net.IP) Verdict {
	if !d.HasOverride() || address == nil || address.IsUnspecified() {
		return VerdictAllow
	}
	if d.Subnet.InPool(address) {
		return VerdictAllow
	}
	return VerdictDeny
}
