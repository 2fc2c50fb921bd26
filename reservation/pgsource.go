package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

const (
	// Registration status of the approved devices.
	RegistrationStatusApproved = "approved"
	// VLAN assumed for the devices without the current VLAN.
	DefaultVLAN int64 = 99
)

// Device recorded by the registration workflow. The table is owned by the
// captive portal; it is only read here.
type Device struct {
	tableName struct{} `pg:"devices"` //nolint:unused

	ID                 int64
	MACAddress         string    `pg:"mac_address"`
	RegistrationStatus string    `pg:"registration_status"`
	FirstSeen          time.Time `pg:"first_seen"`
	CurrentVLAN        *int64    `pg:"current_vlan"`
}

// Checks if the device registration has been approved.
func (d *Device) IsRegistered() bool {
	return d.RegistrationStatus == RegistrationStatusApproved
}

// Returns the current VLAN or the default one.
func (d *Device) GetVLAN() int64 {
	if d.CurrentVLAN == nil || *d.CurrentVLAN == 0 {
		return DefaultVLAN
	}
	return *d.CurrentVLAN
}

// Returns the normalized hardware address of the device.
func (d *Device) GetHWAddress() (dhcpmodel.HWAddress, error) {
	return dhcpmodel.ParseHWAddress(d.MACAddress)
}

// Returns the hostname assigned to the registered device.
func (d *Device) GetHostname() string {
	hwAddress, err := d.GetHWAddress()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("device-%s", strings.ReplaceAll(hwAddress.String(), ":", ""))
}

// Returns the time elapsed since the device was first seen. The zero
// duration is returned when the first-seen time is unknown.
func (d *Device) GetAge(now time.Time) time.Duration {
	if d.FirstSeen.IsZero() {
		return 0
	}
	return now.Sub(d.FirstSeen)
}

// Returns all devices having a hardware address, the most recently seen
// first.
func GetDevices(ctx context.Context, db pg.DBI) ([]Device, error) {
	var devices []Device
	err := db.ModelContext(ctx, &devices).
		Column("id", "mac_address", "registration_status", "first_seen", "current_vlan").
		Where("mac_address IS NOT NULL").
		Order("first_seen DESC").
		Select()
	if err != nil {
		return nil, errors.Wrap(err, "problem selecting devices")
	}
	return devices, nil
}

// Loads the registered devices from the database as global reservations
// and the first-seen times of all devices.
type DatabaseLoader struct {
	db pg.DBI
}

var _ Loader = (*DatabaseLoader)(nil)

// Creates the loader reading from the database.
func NewDatabaseLoader(db pg.DBI) *DatabaseLoader {
	return &DatabaseLoader{db: db}
}

// Returns the loader name.
func (l *DatabaseLoader) GetName() string {
	return "database"
}

// Adds the devices to the builder.
func (l *DatabaseLoader) Load(ctx context.Context, builder *SnapshotBuilder) error {
	devices, err := GetDevices(ctx, l.db)
	if err != nil {
		return err
	}
	addDevices(devices, builder)
	return nil
}

// Adds the devices to the builder. The devices with invalid hardware
// addresses are skipped.
func addDevices(devices []Device, builder *SnapshotBuilder) {
	for i := range devices {
		device := &devices[i]
		hwAddress, err := device.GetHWAddress()
		if err != nil {
			log.WithError(err).WithField("device-id", device.ID).Warn("Skipping device with invalid hardware address")
			continue
		}
		builder.SetFirstSeen(hwAddress.Bytes(), device.FirstSeen)
		if !device.IsRegistered() {
			continue
		}
		err = builder.AddReservation(&Reservation{
			Scope:          ScopeGlobal,
			IdentifierType: IdentifierTypeHWAddress,
			Identifier:     hwAddress.Bytes(),
			Hostname:       device.GetHostname(),
			ClientClasses:  []string{ClientClassRegistered},
			Origin:         OriginDatabase,
		})
		if err != nil {
			log.WithError(err).WithField("hw-address", hwAddress).Debug("Device already has a reservation")
		}
	}
}
