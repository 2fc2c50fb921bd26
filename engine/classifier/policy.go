package classifier

import (
	"fmt"
	"time"

	keaconfig "isc.org/walledgarden/appcfg/kea"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Default age after which a newly unregistered device becomes aged.
const DefaultAgeThreshold = 30 * time.Minute

// Maps the registration tiers to the subnets.
type Policy struct {
	RegisteredSubnetID   dhcpmodel.SubnetID
	UnregisteredSubnetID dhcpmodel.SubnetID
	// Zero disables the three-tier policy.
	AgedUnregisteredSubnetID dhcpmodel.SubnetID
	AgeThreshold             time.Duration
}

// Creates the policy from the walled-garden configuration. In the
// three-tier policy the unregistered subnet receives the newly
// unregistered devices.
func NewPolicyFromConfig(config *keaconfig.WalledGarden) Policy {
	policy := Policy{
		RegisteredSubnetID:   config.GetRegisteredSubnetID(),
		UnregisteredSubnetID: config.GetUnregisteredSubnetID(),
		AgeThreshold:         config.GetAgedThreshold(),
	}
	if aged, ok := config.GetAgedUnregisteredSubnetID(); ok {
		policy.AgedUnregisteredSubnetID = aged
	}
	return policy
}

// Checks if the unregistered devices are split by age.
func (p Policy) IsThreeTier() bool {
	return p.AgedUnregisteredSubnetID != 0
}

// Returns the age threshold or the default.
func (p Policy) getAgeThreshold() time.Duration {
	if p.AgeThreshold <= 0 {
		return DefaultAgeThreshold
	}
	return p.AgeThreshold
}

// Returns the subnet ID the tier is mapped to.
func (p Policy) getSubnetID(tier Tier) (dhcpmodel.SubnetID, bool) {
	switch tier {
	case TierRegistered:
		return p.RegisteredSubnetID, true
	case TierUnregistered, TierNewlyUnregistered:
		return p.UnregisteredSubnetID, true
	case TierAgedUnregistered:
		return p.AgedUnregisteredSubnetID, true
	default:
		return 0, false
	}
}

// Returns the human readable description of the policy.
func (p Policy) String() string {
	description := fmt.Sprintf("registered subnet %d, unregistered subnet %d", p.RegisteredSubnetID, p.UnregisteredSubnetID)
	if p.IsThreeTier() {
		description += fmt.Sprintf(", aged unregistered subnet %d after %s", p.AgedUnregisteredSubnetID, p.getAgeThreshold())
	}
	return description
}
