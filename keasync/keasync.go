// Package keasync keeps the Kea host reservations in line with the device
// registrations recorded in the PostgreSQL database. The registered
// devices get reservations with the REGISTERED class. The reservations of
// the unregistered devices are updated with the class of the pool they
// belong to and the captive portal DNS server.
package keasync

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	keaconfig "isc.org/walledgarden/appcfg/kea"
	"isc.org/walledgarden/keactrl"
	"isc.org/walledgarden/metrics"
	"isc.org/walledgarden/reservation"
	gardenutil "isc.org/walledgarden/util"
)

const (
	// Age after which the unregistered device moves to the old
	// unregistered pool.
	DefaultNewlyUnregisteredThreshold = 30 * time.Minute
	// Maximum duration of the single synchronization.
	syncTimeout = 5 * time.Minute
)

// DNS servers of the registered devices. They are configured in the
// registered pool, so they are not included in the reservations.
var registeredDNSServers = []string{"8.8.8.8", "8.8.4.4"}

// Pool the device belongs to.
type Pool string

const (
	PoolRegistered        Pool = "registered"
	PoolNewlyUnregistered Pool = "newly_unregistered"
	PoolOldUnregistered   Pool = "old_unregistered"
)

// Name of the DNS servers option in Kea.
const optionDomainNameServers = "domain-name-servers"

// Returns the client class assigned to the devices in the pool.
func (p Pool) GetClientClass() string {
	switch p {
	case PoolRegistered:
		return reservation.ClientClassRegistered
	case PoolNewlyUnregistered:
		return reservation.ClientClassNewlyUnregistered
	default:
		return reservation.ClientClassOldUnregistered
	}
}

// Returns the DNS servers of the devices in the pool. The unregistered
// devices use the captive portal resolver in their VLAN.
func (p Pool) GetDNSServers(subnetID int64) []string {
	if p == PoolRegistered {
		return registeredDNSServers
	}
	return []string{fmt.Sprintf("192.168.%d.4", subnetID)}
}

// Synchronization outcome of a single device recorded in the metrics.
type Result string

const (
	ResultAdded     Result = "added"
	ResultUpdated   Result = "updated"
	ResultUnchanged Result = "unchanged"
	ResultFailed    Result = "failed"
)

// Source of the devices.
type DeviceSource interface {
	GetDevices(ctx context.Context) ([]reservation.Device, error)
}

// Manages the Kea host reservations.
type ReservationManager interface {
	GetReservation(ctx context.Context, subnetID int64, hwAddress string) (*keaconfig.HostCmdsReservation, error)
	AddReservation(ctx context.Context, reservation *keaconfig.HostCmdsReservation) error
	DeleteReservation(ctx context.Context, subnetID int64, hwAddress string) error
}

var _ ReservationManager = (*keactrl.Client)(nil)

// Reads the devices from the database.
type databaseDeviceSource struct {
	db pg.DBI
}

// Creates the device source reading from the database.
func NewDatabaseDeviceSource(db pg.DBI) DeviceSource {
	return &databaseDeviceSource{db: db}
}

// Returns all devices with the hardware address.
func (s *databaseDeviceSource) GetDevices(ctx context.Context) ([]reservation.Device, error) {
	return reservation.GetDevices(ctx, s.db)
}

// Synchronizes the device registrations with the Kea host reservations.
type Synchronizer struct {
	devices   DeviceSource
	kea       ReservationManager
	metrics   *metrics.Metrics
	threshold time.Duration
	clock     func() time.Time
	executor  *gardenutil.PeriodicExecutor
}

// Creates the synchronizer. The non-positive threshold is replaced with
// the default. The metrics may be nil.
func NewSynchronizer(devices DeviceSource, kea ReservationManager, threshold time.Duration, metrics *metrics.Metrics) *Synchronizer {
	if threshold <= 0 {
		threshold = DefaultNewlyUnregisteredThreshold
	}
	return &Synchronizer{
		devices:   devices,
		kea:       kea,
		metrics:   metrics,
		threshold: threshold,
		clock:     gardenutil.UTCNow,
	}
}

// Returns the pool the device belongs to.
func (s *Synchronizer) determinePool(device *reservation.Device) Pool {
	if device.IsRegistered() {
		return PoolRegistered
	}
	if device.GetAge(s.clock()) < s.threshold {
		return PoolNewlyUnregistered
	}
	return PoolOldUnregistered
}

// Creates the reservation of the device in the pool. The hostname is
// optional.
func newReservation(hwAddress string, subnetID int64, pool Pool, hostname string) *keaconfig.HostCmdsReservation {
	r := &keaconfig.HostCmdsReservation{
		Reservation: keaconfig.Reservation{
			HWAddress:     hwAddress,
			Hostname:      hostname,
			ClientClasses: []string{pool.GetClientClass()},
		},
		SubnetID: subnetID,
	}
	if pool != PoolRegistered {
		r.OptionData = []keaconfig.SingleOptionData{{
			Name: optionDomainNameServers,
			Data: pool.GetDNSServers(subnetID)[0],
		}}
	}
	return r
}

// Adds the reservation. The existing reservation is not an error.
func (s *Synchronizer) addReservation(ctx context.Context, r *keaconfig.HostCmdsReservation, pool Pool) error {
	entry := log.WithFields(log.Fields{
		"hw-address": r.HWAddress,
		"pool":       pool,
		"subnet-id":  r.SubnetID,
	})
	err := s.kea.AddReservation(ctx, r)
	if result, ok := keactrl.GetResult(err); ok && result == keactrl.ResponseError {
		entry.WithError(err).Debug("Reservation already exists")
		return nil
	}
	if err != nil {
		return errors.WithMessagef(err, "cannot add the reservation for %s", r.HWAddress)
	}
	entry.Info("Added reservation")
	return nil
}

// Replaces the reservation. The deletion failure is logged and the new
// reservation is added anyway.
func (s *Synchronizer) replaceReservation(ctx context.Context, r *keaconfig.HostCmdsReservation, pool Pool) error {
	if err := s.kea.DeleteReservation(ctx, r.SubnetID, r.HWAddress); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"hw-address": r.HWAddress,
			"subnet-id":  r.SubnetID,
		}).Error("Cannot remove the reservation")
	}
	return s.addReservation(ctx, r, pool)
}

// Synchronizes the reservation of the device.
func (s *Synchronizer) SyncDevice(ctx context.Context, device *reservation.Device) (Result, error) {
	hwAddress, err := device.GetHWAddress()
	if err != nil {
		return ResultFailed, err
	}
	mac := hwAddress.String()
	subnetID := device.GetVLAN()
	pool := s.determinePool(device)

	existing, err := s.kea.GetReservation(ctx, subnetID, mac)
	if err != nil {
		return ResultFailed, errors.WithMessagef(err, "cannot get the reservation for %s", mac)
	}

	if pool == PoolRegistered {
		if existing == nil {
			err = s.addReservation(ctx, newReservation(mac, subnetID, pool, device.GetHostname()), pool)
			if err != nil {
				return ResultFailed, err
			}
			return ResultAdded, nil
		}
		if slices.Contains(existing.ClientClasses, pool.GetClientClass()) {
			return ResultUnchanged, nil
		}
		hostname := existing.Hostname
		if hostname == "" {
			hostname = device.GetHostname()
		}
		if err = s.replaceReservation(ctx, newReservation(mac, subnetID, pool, hostname), pool); err != nil {
			return ResultFailed, err
		}
		return ResultUpdated, nil
	}

	// The unregistered devices without reservations are served from
	// the default pools.
	if existing == nil || slices.Contains(existing.ClientClasses, pool.GetClientClass()) {
		return ResultUnchanged, nil
	}
	if err = s.replaceReservation(ctx, newReservation(mac, subnetID, pool, ""), pool); err != nil {
		return ResultFailed, err
	}
	return ResultUpdated, nil
}

// Synchronizes all devices. A failure of a single device doesn't stop the
// synchronization. Returns the number of the successfully synchronized
// devices and the total number of the devices.
func (s *Synchronizer) SyncAll(ctx context.Context) (int, int, error) {
	devices, err := s.devices.GetDevices(ctx)
	if err != nil {
		return 0, 0, err
	}
	log.WithField("devices", len(devices)).Info("Starting synchronization")

	succeeded := 0
	for i := range devices {
		result, err := s.SyncDevice(ctx, &devices[i])
		s.metrics.ObserveSync(string(result))
		if err != nil {
			log.WithError(err).WithField("mac", devices[i].MACAddress).Error("Cannot synchronize device")
			continue
		}
		succeeded++
	}
	log.WithFields(log.Fields{
		"succeeded": succeeded,
		"devices":   len(devices),
	}).Info("Synchronization complete")
	return succeeded, len(devices), nil
}

// Runs a single synchronization with the timeout.
func (s *Synchronizer) sync() error {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	_, _, err := s.SyncAll(ctx)
	return err
}

// Starts the periodic synchronization. The first one runs immediately.
func (s *Synchronizer) Start(interval time.Duration) error {
	if err := s.sync(); err != nil {
		log.WithError(err).Error("Initial synchronization failed")
	}
	executor, err := gardenutil.NewPeriodicExecutor("kea synchronizer", s.sync, interval)
	if err != nil {
		return err
	}
	s.executor = executor
	return nil
}

// Requests an immediate synchronization.
func (s *Synchronizer) Trigger() {
	if s.executor != nil {
		s.executor.Trigger()
	}
}

// Stops the periodic synchronization.
func (s *Synchronizer) Shutdown() {
	if s.executor != nil {
		s.executor.Shutdown()
	}
}
