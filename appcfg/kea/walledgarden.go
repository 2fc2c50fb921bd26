package keaconfig

import (
	"time"

	"github.com/pkg/errors"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

const (
	// Identifier of the registered subnet used by the historical deployments.
	DefaultRegisteredSubnetID int64 = 10
	// Identifier of the unregistered subnet used by the historical deployments.
	DefaultUnregisteredSubnetID int64 = 11
	// Time after which a newly unregistered device becomes aged, in seconds.
	DefaultAgedThreshold int64 = 1800
	// Redirection toggler executable.
	DefaultToggler string = "/scripts/dns-hijack.sh"
	// Execution timeout of the toggler, in seconds.
	DefaultTogglerTimeout int64 = 30
)

// Admission-control policy configured in the walled-garden map. Zero
// values are replaced with the defaults by the getters.
type WalledGarden struct {
	RegisteredSubnetID       int64  `json:"registered-subnet-id,omitempty"`
	UnregisteredSubnetID     int64  `json:"unregistered-subnet-id,omitempty"`
	AgedUnregisteredSubnetID int64  `json:"aged-unregistered-subnet-id,omitempty"`
	AgedThreshold            int64  `json:"aged-threshold,omitempty"`
	Toggler                  string `json:"toggler,omitempty"`
	TogglerTimeout           int64  `json:"toggler-timeout,omitempty"`
}

// Returns the registered subnet ID.
func (w *WalledGarden) GetRegisteredSubnetID() dhcpmodel.SubnetID {
	if w.RegisteredSubnetID == 0 {
		return dhcpmodel.SubnetID(DefaultRegisteredSubnetID)
	}
	return dhcpmodel.SubnetID(w.RegisteredSubnetID)
}

// Returns the unregistered subnet ID.
func (w *WalledGarden) GetUnregisteredSubnetID() dhcpmodel.SubnetID {
	if w.UnregisteredSubnetID == 0 {
		return dhcpmodel.SubnetID(DefaultUnregisteredSubnetID)
	}
	return dhcpmodel.SubnetID(w.UnregisteredSubnetID)
}

// Returns the aged-unregistered subnet ID and a flag indicating whether
// the three-tier policy is enabled.
func (w *WalledGarden) GetAgedUnregisteredSubnetID() (dhcpmodel.SubnetID, bool) {
	if w.AgedUnregisteredSubnetID == 0 {
		return 0, false
	}
	return dhcpmodel.SubnetID(w.AgedUnregisteredSubnetID), true
}

// Returns the age after which an unregistered device is considered aged.
func (w *WalledGarden) GetAgedThreshold() time.Duration {
	if w.AgedThreshold <= 0 {
		return time.Duration(DefaultAgedThreshold) * time.Second
	}
	return time.Duration(w.AgedThreshold) * time.Second
}

// Returns the path to the redirection toggler.
func (w *WalledGarden) GetToggler() string {
	if w.Toggler == "" {
		return DefaultToggler
	}
	return w.Toggler
}

// Returns the toggler execution timeout.
func (w *WalledGarden) GetTogglerTimeout() time.Duration {
	if w.TogglerTimeout <= 0 {
		return time.Duration(DefaultTogglerTimeout) * time.Second
	}
	return time.Duration(w.TogglerTimeout) * time.Second
}

// Checks that the policy subnets are distinct. It doesn't check that
// the subnets exist because the host server may offer a different set
// for each request.
func (w *WalledGarden) Validate() error {
	registered := w.GetRegisteredSubnetID()
	unregistered := w.GetUnregisteredSubnetID()
	if registered == unregistered {
		return errors.Errorf("registered and unregistered subnet IDs must differ, both are %d", registered)
	}
	if aged, ok := w.GetAgedUnregisteredSubnetID(); ok && (aged == registered || aged == unregistered) {
		return errors.Errorf("aged unregistered subnet ID %d must differ from the other policy subnets", aged)
	}
	if w.AgedThreshold < 0 {
		return errors.Errorf("aged threshold must not be negative, got %d", w.AgedThreshold)
	}
	return nil
}
