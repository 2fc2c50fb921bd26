package reservation

import (
	"context"
	"encoding/hex"
	"net"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	keaconfig "isc.org/walledgarden/appcfg/kea"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Client classes assigned to the devices by the registration tier.
const (
	ClientClassRegistered        = "REGISTERED"
	ClientClassNewlyUnregistered = "NEWLY_UNREGISTERED"
	ClientClassOldUnregistered   = "OLD_UNREGISTERED"
)

// Source of the reservations and first-seen times. The loaders are run in
// order by the refresher, so the reservations of the earlier loaders take
// precedence.
type Loader interface {
	// Adds the reservations and first-seen times to the builder. A
	// returned error aborts the refresh and the previous snapshot is kept.
	Load(ctx context.Context, builder *SnapshotBuilder) error
	// Returns the loader name used in the logs.
	GetName() string
}

// Loads the host reservations specified in the server configuration.
type ConfigLoader struct {
	config *keaconfig.DHCPv4Config
}

var _ Loader = (*ConfigLoader)(nil)

// Creates the loader for the parsed configuration.
func NewConfigLoader(config *keaconfig.DHCPv4Config) *ConfigLoader {
	return &ConfigLoader{config: config}
}

// Returns the loader name.
func (l *ConfigLoader) GetName() string {
	return "configuration"
}

// Parses the colon separated hex identifier.
func parseHexIdentifier(text string) ([]byte, error) {
	stripped := strings.NewReplacer(":", "", "-", "", " ", "").Replace(text)
	identifier, err := hex.DecodeString(stripped)
	if err != nil || len(identifier) == 0 {
		return nil, errors.Errorf("invalid identifier %s", text)
	}
	return identifier, nil
}

// Converts the configured reservation. It returns nil if the reservation
// uses an identifier type that is not supported.
func convertConfigReservation(r *keaconfig.HostCmdsReservation) (*Reservation, error) {
	reservation := &Reservation{
		Scope:         dhcpmodel.SubnetID(r.SubnetID),
		Hostname:      r.Hostname,
		ClientClasses: r.ClientClasses,
		Origin:        OriginConfig,
	}
	switch {
	case r.HWAddress != "":
		hwAddress, err := r.GetHWAddress()
		if err != nil {
			return nil, err
		}
		reservation.IdentifierType = IdentifierTypeHWAddress
		reservation.Identifier = hwAddress.Bytes()
	case r.ClientID != "":
		identifier, err := parseHexIdentifier(r.ClientID)
		if err != nil {
			return nil, err
		}
		reservation.IdentifierType = IdentifierTypeClientID
		reservation.Identifier = identifier
	default:
		return nil, nil
	}
	if r.IPAddress != "" {
		reservation.IPAddress = net.ParseIP(r.IPAddress)
		if reservation.IPAddress == nil {
			return nil, errors.Errorf("invalid reserved address %s", r.IPAddress)
		}
	}
	return reservation, nil
}

// Adds the configured reservations to the builder. Invalid and duplicated
// reservations are skipped with a warning.
func (l *ConfigLoader) Load(ctx context.Context, builder *SnapshotBuilder) error {
	for _, r := range l.config.GetAllReservations() {
		reservation, err := convertConfigReservation(&r)
		if err == nil && reservation != nil {
			err = builder.AddReservation(reservation)
		}
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"subnet-id":  r.SubnetID,
				"hw-address": r.HWAddress,
				"client-id":  r.ClientID,
			}).Warn("Skipping host reservation from the configuration")
		}
	}
	return nil
}
