package keaconfig

import (
	"time"

	"github.com/pkg/errors"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Represents an address pool in the Kea configuration.
type Pool struct {
	Pool        string `json:"pool"`
	ClientClass string `json:"client-class,omitempty"`
}

// Represents an IPv4 subnet in the Kea configuration.
type Subnet4 struct {
	ID            int64          `json:"id"`
	Subnet        string         `json:"subnet"`
	Pools         []Pool         `json:"pools,omitempty"`
	ValidLifetime *int64         `json:"valid-lifetime,omitempty"`
	Reservations  []Reservation  `json:"reservations,omitempty"`
	UserContext   map[string]any `json:"user-context,omitempty"`
}

// Represents an IPv4 shared network in the Kea configuration.
type SharedNetwork4 struct {
	Name    string    `json:"name"`
	Subnet4 []Subnet4 `json:"subnet4,omitempty"`
}

// Returns the subnet name stored in the user context or the fallback.
func (s *Subnet4) getName(fallback string) string {
	if name, ok := s.UserContext["name"].(string); ok && name != "" {
		return name
	}
	return fallback
}

// Converts the subnet to the data model. The global valid lifetime is
// used when the subnet doesn't specify its own.
func (s *Subnet4) toModel(name string, globalLifetime time.Duration) (*dhcpmodel.Subnet4, error) {
	if s.ID <= 0 {
		return nil, errors.Errorf("subnet %s must have a positive ID", s.Subnet)
	}
	subnet := &dhcpmodel.Subnet4{
		ID:            dhcpmodel.SubnetID(s.ID),
		Name:          s.getName(name),
		Prefix:        s.Subnet,
		ValidLifetime: globalLifetime,
	}
	if s.ValidLifetime != nil {
		subnet.ValidLifetime = time.Duration(*s.ValidLifetime) * time.Second
	}
	for _, p := range s.Pools {
		pool, err := dhcpmodel.NewAddressPool(p.Pool)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid pool in subnet %d", s.ID)
		}
		subnet.Pools = append(subnet.Pools, *pool)
	}
	return subnet, nil
}

// Returns all IPv4 subnets. The subnets belonging to shared networks come
// first, followed by the top-level subnets. It returns an error if any of
// the subnets is invalid or the subnet IDs are not unique.
func (c *DHCPv4Config) GetSubnets() ([]*dhcpmodel.Subnet4, error) {
	var subnets []*dhcpmodel.Subnet4
	ids := make(map[int64]bool)
	add := func(s *Subnet4, name string) error {
		if ids[s.ID] {
			return errors.Errorf("duplicated subnet ID %d", s.ID)
		}
		ids[s.ID] = true
		subnet, err := s.toModel(name, c.GetValidLifetime())
		if err != nil {
			return err
		}
		subnets = append(subnets, subnet)
		return nil
	}
	for i := range c.SharedNetworks {
		for j := range c.SharedNetworks[i].Subnet4 {
			if err := add(&c.SharedNetworks[i].Subnet4[j], c.SharedNetworks[i].Name); err != nil {
				return nil, err
			}
		}
	}
	for i := range c.Subnet4 {
		if err := add(&c.Subnet4[i], ""); err != nil {
			return nil, err
		}
	}
	return subnets, nil
}
