// Package redirect requests the DNS-redirection state changes for the
// leased addresses. The external toggler is invoked in a detached
// goroutine, so the lease processing never waits for it.
package redirect

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"isc.org/walledgarden/engine/classifier"
	"isc.org/walledgarden/metrics"
	gardenutil "isc.org/walledgarden/util"
)

// Toggler command.
type Action string

// Supported toggler commands.
const (
	ActionHijack   Action = "hijack"
	ActionUnhijack Action = "unhijack"
)

// Default execution timeout of the toggler.
const DefaultTimeout = 30 * time.Second

// Returns the toggler command for the tier. Devices of unknown tier
// produce no command.
func ActionForTier(tier classifier.Tier) (Action, bool) {
	switch {
	case tier == classifier.TierRegistered:
		return ActionUnhijack, true
	case tier.IsUnregistered():
		return ActionHijack, true
	default:
		return "", false
	}
}

// Invokes the toggler as "<toggler> {hijack|unhijack} <ip>". The toggler
// is expected to be idempotent. Repeated requests for the same address
// are not an error.
type Dispatcher struct {
	executor gardenutil.CommandExecutor
	toggler  string
	timeout  time.Duration
	metrics  *metrics.Metrics
	inFlight sync.WaitGroup
}

// Creates the dispatcher. A non-positive timeout is replaced with the
// default. The metrics may be nil.
func NewDispatcher(executor gardenutil.CommandExecutor, toggler string, timeout time.Duration, metrics *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		executor: executor,
		toggler:  toggler,
		timeout:  timeout,
		metrics:  metrics,
	}
}

// Returns the toggler path.
func (d *Dispatcher) GetToggler() string {
	return d.toggler
}

// Requests the redirection change for the address according to the tier
// and returns immediately. It returns false if nothing was dispatched
// because the tier is unknown or the address is unspecified. The toggler
// failures are only logged.
func (d *Dispatcher) Dispatch(address net.IP, tier classifier.Tier) bool {
	action, ok := ActionForTier(tier)
	if !ok {
		log.WithField("address", address).Debug("Skipping redirection toggle for a device of unknown tier")
		return false
	}
	if address == nil || address.IsUnspecified() {
		log.WithField("action", action).Debug("Skipping redirection toggle for an unspecified address")
		return false
	}

	d.inFlight.Add(1)
	go func() {
		defer d.inFlight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.Run(ctx, action, address); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"action":  action,
				"address": address,
			}).Warn("Redirection toggle failed")
		}
	}()
	return true
}

// Runs the toggler synchronously and returns its error.
func (d *Dispatcher) Run(ctx context.Context, action Action, address net.IP) error {
	err := d.executor.Run(ctx, d.toggler, string(action), address.String())
	d.metrics.ObserveDispatch(string(action), err)
	if err != nil {
		return errors.WithMessagef(err, "toggler %s %s %s failed", d.toggler, action, address)
	}
	log.WithFields(log.Fields{
		"action":  action,
		"address": address,
	}).Debug("Redirection toggled")
	return nil
}

// Waits for the dispatched toggler invocations to finish. It is meant for
// the shutdown only.
func (d *Dispatcher) Wait() {
	d.inFlight.Wait()
}
