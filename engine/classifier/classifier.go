// Package classifier decides which subnet a device is entitled to. The
// decision is a pure function of the device identifier, the reservation
// store contents, the candidate subnets and the clock.
package classifier

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/metrics"
	"isc.org/walledgarden/reservation"
	gardenutil "isc.org/walledgarden/util"
)

// Classifies the devices using the injected reservation store. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	store   reservation.Store
	policy  Policy
	clock   func() time.Time
	metrics *metrics.Metrics
}

// Creates the classifier. The optional metrics may be nil.
func NewClassifier(store reservation.Store, policy Policy, metrics *metrics.Metrics) *Classifier {
	return NewClassifierWithClock(store, policy, metrics, gardenutil.UTCNow)
}

// Creates the classifier using the specified clock to compute the device
// age.
func NewClassifierWithClock(store reservation.Store, policy Policy, metrics *metrics.Metrics, clock func() time.Time) *Classifier {
	return &Classifier{
		store:   store,
		policy:  policy,
		clock:   clock,
		metrics: metrics,
	}
}

// Returns the classification policy.
func (c *Classifier) GetPolicy() Policy {
	return c.policy
}

// Looks up the reservation in the global scope and then in the scopes of
// the candidate subnets in order. The first match wins.
func (c *Classifier) lookupReservation(identifier []byte, candidates []*dhcpmodel.Subnet4) *reservation.Reservation {
	if r, ok := c.store.Lookup(reservation.ScopeGlobal, reservation.IdentifierTypeHWAddress, identifier); ok {
		return r
	}
	for _, subnet := range candidates {
		if subnet == nil {
			continue
		}
		if r, ok := c.store.Lookup(subnet.ID, reservation.IdentifierTypeHWAddress, identifier); ok {
			return r
		}
	}
	return nil
}

// Determines the tier of a device without reservation.
func (c *Classifier) getUnregisteredTier(identifier []byte) (Tier, string) {
	if !c.policy.IsThreeTier() {
		return TierUnregistered, "no reservation"
	}
	firstSeen, ok := c.store.FirstSeen(identifier)
	if !ok {
		return TierNewlyUnregistered, "no reservation, first-seen time unknown"
	}
	age := c.clock().Sub(firstSeen)
	if age >= c.policy.getAgeThreshold() {
		return TierAgedUnregistered, fmt.Sprintf("no reservation, first seen %s ago", age.Truncate(time.Second))
	}
	return TierNewlyUnregistered, fmt.Sprintf("no reservation, first seen %s ago", age.Truncate(time.Second))
}

// Returns the decision for the device. A device without an identifier or
// a request without candidate subnets gets no override. If the subnet
// designated by the policy is not among the candidates the configuration
// error is logged and no override is returned.
func (c *Classifier) Classify(identifier []byte, candidates []*dhcpmodel.Subnet4) *Decision {
	decision := c.classify(identifier, candidates)
	c.metrics.ObserveDecision(decision.Tier.String())

	entry := log.WithFields(log.Fields{
		"hw-address": dhcpmodel.NewHWAddress(identifier),
		"tier":       decision.Tier,
		"reason":     decision.Reason,
	})
	if decision.HasOverride() {
		entry = entry.WithField("subnet", decision.Subnet)
	}
	entry.Debug("Classified device")
	return decision
}

func (c *Classifier) classify(identifier []byte, candidates []*dhcpmodel.Subnet4) *Decision {
	if len(identifier) == 0 {
		return &Decision{Verdict: VerdictAllow, Tier: TierUnknown, Reason: "no hardware address"}
	}
	if len(candidates) == 0 {
		return &Decision{Verdict: VerdictAllow, Tier: TierUnknown, Reason: "no candidate subnets"}
	}

	decision := &Decision{Verdict: VerdictAllow}
	if r := c.lookupReservation(identifier, candidates); r != nil {
		decision.Tier = TierRegistered
		decision.Reservation = r
		if r.Scope == reservation.ScopeGlobal {
			decision.Reason = "reservation found in the global scope"
		} else {
			decision.Reason = fmt.Sprintf("reservation found in subnet %d", r.Scope)
		}
	} else {
		decision.Tier, decision.Reason = c.getUnregisteredTier(identifier)
	}

	subnetID, _ := c.policy.getSubnetID(decision.Tier)
	decision.Subnet = dhcpmodel.FindSubnet(candidates, subnetID)
	if decision.Subnet == nil {
		decision.Reason = fmt.Sprintf("%s subnet %d is not among the candidate subnets", decision.Tier, subnetID)
		log.WithFields(log.Fields{
			"hw-address": dhcpmodel.NewHWAddress(identifier),
			"subnet-id":  subnetID,
			"tier":       decision.Tier,
		}).Error("Misconfiguration: subnet selected by the policy is not offered for the request; leaving the server choice")
	}
	return decision
}
