package keaconfig

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"muzzammil.xyz/jsonc"
)

const (
	// Root name for DHCPv4.
	RootNameDHCPv4 string = "Dhcp4"
	// Valid lifetime used by Kea when none is configured, in seconds.
	DefaultValidLifetime int64 = 7200
)

// Kea DHCPv4 server configuration file, possibly with comments. The
// walled-garden map is an extension of the Kea format carrying the
// admission-control policy.
type Config struct {
	DHCPv4 *DHCPv4Config `json:"Dhcp4"`
}

// Root node of the DHCPv4 server configuration. Only the parameters
// relevant to the admission control are decoded.
type DHCPv4Config struct {
	ValidLifetime  *int64           `json:"valid-lifetime,omitempty"`
	Subnet4        []Subnet4        `json:"subnet4,omitempty"`
	SharedNetworks []SharedNetwork4 `json:"shared-networks,omitempty"`
	Reservations   []Reservation    `json:"reservations,omitempty"`
	WalledGarden   *WalledGarden    `json:"walled-garden,omitempty"`
}

// Creates new instance from the configuration provided as JSON text.
// The text may contain comments.
func NewFromJSON(raw []byte) (*Config, error) {
	var cfg Config
	if err := jsonc.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "problem parsing the DHCPv4 server configuration")
	}
	if cfg.DHCPv4 == nil {
		return nil, errors.Errorf("the configuration lacks the %s root node", RootNameDHCPv4)
	}
	return &cfg, nil
}

// Reads and parses the configuration file.
func NewFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read the configuration file %s", path)
	}
	cfg, err := NewFromJSON(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid configuration file %s", path)
	}
	return cfg, nil
}

// Returns the global valid lifetime or the Kea default.
func (c *DHCPv4Config) GetValidLifetime() time.Duration {
	if c.ValidLifetime != nil {
		return time.Duration(*c.ValidLifetime) * time.Second
	}
	return time.Duration(DefaultValidLifetime) * time.Second
}

// Returns the walled-garden settings or the defaults if the map is
// absent.
func (c *DHCPv4Config) GetWalledGarden() *WalledGarden {
	if c.WalledGarden == nil {
		return &WalledGarden{}
	}
	return c.WalledGarden
}
