package keaconfig

import (
	"strings"

	"github.com/pkg/errors"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Host identifier type used for the hardware address reservations.
const IdentifierTypeHWAddress = "hw-address"

// Represents a DHCP option in the Kea configuration.
type SingleOptionData struct {
	AlwaysSend bool   `json:"always-send,omitempty"`
	Code       uint16 `json:"code,omitempty"`
	CSVFormat  *bool  `json:"csv-format,omitempty"`
	Data       string `json:"data,omitempty"`
	Name       string `json:"name,omitempty"`
	Space      string `json:"space,omitempty"`
}

// Represents host reservation within Kea configuration.
type Reservation struct {
	HWAddress     string             `json:"hw-address,omitempty"`
	ClientID      string             `json:"client-id,omitempty"`
	IPAddress     string             `json:"ip-address,omitempty"`
	Hostname      string             `json:"hostname,omitempty"`
	ClientClasses []string           `json:"client-classes,omitempty"`
	OptionData    []SingleOptionData `json:"option-data,omitempty"`
}

// Represents host reservation returned and sent via Kea host commands hook library.
type HostCmdsReservation struct {
	Reservation
	SubnetID int64 `json:"subnet-id"`
}

// Represents deleted host reservation. It includes the fields required by
// Kea to find the reservation and delete it.
type HostCmdsDeletedReservation struct {
	IdentifierType string `json:"identifier-type"`
	Identifier     string `json:"identifier"`
	SubnetID       int64  `json:"subnet-id"`
}

// Returns the normalized hardware address of the reservation.
func (r *Reservation) GetHWAddress() (dhcpmodel.HWAddress, error) {
	if strings.TrimSpace(r.HWAddress) == "" {
		return dhcpmodel.HWAddress{}, errors.New("reservation lacks the hardware address")
	}
	return dhcpmodel.ParseHWAddress(r.HWAddress)
}

// Returns all host reservations in the configuration. The global
// reservations have the subnet ID of 0.
func (c *DHCPv4Config) GetAllReservations() []HostCmdsReservation {
	var reservations []HostCmdsReservation
	for _, r := range c.Reservations {
		reservations = append(reservations, HostCmdsReservation{Reservation: r, SubnetID: int64(dhcpmodel.SubnetIDGlobal)})
	}
	appendSubnet := func(s *Subnet4) {
		for _, r := range s.Reservations {
			reservations = append(reservations, HostCmdsReservation{Reservation: r, SubnetID: s.ID})
		}
	}
	for i := range c.SharedNetworks {
		for j := range c.SharedNetworks[i].Subnet4 {
			appendSubnet(&c.SharedNetworks[i].Subnet4[j])
		}
	}
	for i := range c.Subnet4 {
		appendSubnet(&c.Subnet4[i])
	}
	return reservations
}
