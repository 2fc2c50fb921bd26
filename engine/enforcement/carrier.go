// Package enforcement implements the DHCPv4 callouts steering the devices
// into the subnets they are entitled to. The subnet selection applies the
// classification and the lease selection vetoes stale addresses. The
// packet send callout turns the ACKs for stale addresses into NAKs. The
// DNS-redirection change is requested only for the committed leases.
package enforcement

import (
	"fmt"
	"net"

	"github.com/insomniacslk/dhcp/dhcpv4"
	log "github.com/sirupsen/logrus"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/engine/classifier"
	"isc.org/walledgarden/hooks"
	"isc.org/walledgarden/hooks/dhcp4callouts"
	"isc.org/walledgarden/metrics"
)

// Key of the classification decision in the callout handle context.
const decisionContextKey = "walledgarden-decision"

// Names of the callouts used in logs and metrics.
const (
	calloutSubnet4Select    = "subnet4_select"
	calloutLease4Select     = "lease4_select"
	calloutPkt4Send         = "pkt4_send"
	calloutLeases4Committed = "leases4_committed"
)

// Classifies the devices.
type Classifier interface {
	Classify(identifier []byte, candidates []*dhcpmodel.Subnet4) *classifier.Decision
}

// Requests the DNS-redirection change without waiting for it.
type Dispatcher interface {
	Dispatch(address net.IP, tier classifier.Tier) bool
}

// Callout carrier of the walled garden. It keeps no per-packet state, the
// decision is passed between the callouts in the callout handle, so it is
// safe for concurrent use.
type Carrier struct {
	classifier Classifier
	dispatcher Dispatcher
	metrics    *metrics.Metrics
}

var (
	_ hooks.CalloutCarrier                   = (*Carrier)(nil)
	_ dhcp4callouts.Subnet4SelectCallouts    = (*Carrier)(nil)
	_ dhcp4callouts.Lease4SelectCallouts     = (*Carrier)(nil)
	_ dhcp4callouts.Pkt4SendCallouts         = (*Carrier)(nil)
	_ dhcp4callouts.Leases4CommittedCallouts = (*Carrier)(nil)
)

// Constructs the carrier. The metrics may be nil.
func NewCarrier(classifier Classifier, dispatcher Dispatcher, metrics *metrics.Metrics) *Carrier {
	return &Carrier{
		classifier: classifier,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Nothing to release.
func (c *Carrier) Close() error {
	return nil
}

// Returns the log entry describing the packet being processed.
func newPacketLogEntry(callout string, handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4) *log.Entry {
	fields := log.Fields{"callout": callout}
	if query := handle.GetQuery(); query != nil {
		fields["hw-address"] = query.ClientHWAddr.String()
		fields["message-type"] = query.MessageType().String()
		fields["xid"] = query.TransactionID.String()
	}
	if subnet != nil {
		fields["subnet"] = subnet.String()
	}
	return log.WithFields(fields)
}

// Recovers from the panic raised while processing the callout. The server
// continues with the default behavior.
func (c *Carrier) recoverCallout(callout string, handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4) {
	if r := recover(); r != nil {
		c.metrics.ObserveCalloutPanic(callout)
		newPacketLogEntry(callout, handle, subnet).
			WithField("panic", fmt.Sprint(r)).
			Error("Internal error in the callout; continuing with the default behavior")
	}
}

// Returns the decision made in the subnet selection or classifies the
// device if the server didn't invoke that callout.
func (c *Carrier) getDecision(handle *dhcp4callouts.CalloutHandle) *classifier.Decision {
	if value, ok := handle.GetContext(decisionContextKey); ok {
		if decision, ok := value.(*classifier.Decision); ok {
			return decision
		}
	}
	decision := c.classifier.Classify(handle.GetQuery().ClientHWAddr, handle.GetCandidates())
	handle.SetContext(decisionContextKey, decision)
	return decision
}

// Classifies the device and returns the subnet it is entitled to if it
// differs from the server's choice. Returns nil to keep the choice.
func (c *Carrier) OnSubnet4Select(handle *dhcp4callouts.CalloutHandle, selected *dhcpmodel.Subnet4) (override *dhcpmodel.Subnet4) {
	defer c.recoverCallout(calloutSubnet4Select, handle, selected)

	decision := c.classifier.Classify(handle.GetQuery().ClientHWAddr, handle.GetCandidates())
	handle.SetContext(decisionContextKey, decision)

	if !decision.HasOverride() {
		return nil
	}
	if selected != nil && selected.ID == decision.Subnet.ID {
		return nil
	}
	newPacketLogEntry(calloutSubnet4Select, handle, selected).
		WithFields(log.Fields{
			"tier":     decision.Tier,
			"override": decision.Subnet.String(),
		}).
		Debug("Overriding the selected subnet")
	return decision.Subnet
}

// Vetoes the lease if the address the client requests or the leased
// address is outside the pools of the subnet the device is entitled to.
func (c *Carrier) OnLease4Select(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) (step dhcp4callouts.NextStep) {
	defer c.recoverCallout(calloutLease4Select, handle, subnet)

	query := handle.GetQuery()
	if query.MessageType() != dhcpv4.MessageTypeRequest {
		return dhcp4callouts.NextStepContinue
	}

	decision := c.getDecision(handle)
	for _, address := range []net.IP{getRequestedAddress(query), getLeaseAddress(lease)} {
		if decision.EvaluateAddress(address) != classifier.VerdictDeny {
			continue
		}
		c.metrics.ObserveLeaseVeto()
		newPacketLogEntry(calloutLease4Select, handle, subnet).
			WithFields(log.Fields{
				"address": address,
				"tier":    decision.Tier,
			}).
			Info("Vetoing the lease for the address outside the entitled subnet")
		return dhcp4callouts.NextStepSkip
	}
	return dhcp4callouts.NextStepContinue
}

// Requests the DNS-redirection change for the acknowledged address. The
// server invokes it once the ACK is final; the vetoed and NAKed leases
// never reach it.
func (c *Carrier) OnLeases4Committed(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) {
	defer c.recoverCallout(calloutLeases4Committed, handle, subnet)

	if lease == nil {
		return
	}
	decision := c.getDecision(handle)
	if decision.EvaluateAddress(lease.Address) == classifier.VerdictDeny {
		newPacketLogEntry(calloutLeases4Committed, handle, subnet).
			WithFields(log.Fields{
				"address": lease.Address,
				"tier":    decision.Tier,
			}).
			Warn("Committed lease is outside the entitled subnet; skipping the redirection change")
		return
	}
	c.dispatcher.Dispatch(lease.Address, decision.Tier)
}

// Replaces the ACK for the address outside the entitled subnet with a NAK.
// Returns nil to send the response unchanged.
func (c *Carrier) OnPkt4Send(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, response *dhcpv4.DHCPv4) (replacement *dhcpv4.DHCPv4) {
	defer c.recoverCallout(calloutPkt4Send, handle, subnet)

	query := handle.GetQuery()
	if response == nil || !isAckForRequest(query, response) {
		return nil
	}

	decision := c.getDecision(handle)
	address := getAcknowledgedAddress(query, response)
	if decision.EvaluateAddress(address) != classifier.VerdictDeny {
		return nil
	}

	nak, err := buildNak(query, response)
	if err != nil {
		newPacketLogEntry(calloutPkt4Send, handle, subnet).
			WithError(err).
			Error("Cannot replace the ACK with a NAK")
		return nil
	}
	c.metrics.ObserveNakRewrite()
	newPacketLogEntry(calloutPkt4Send, handle, subnet).
		WithFields(log.Fields{
			"address": address,
			"tier":    decision.Tier,
		}).
		Info("Replacing the ACK for the address outside the entitled subnet with a NAK")
	return nak
}
