// Package dhcp4callouts defines the DHCPv4 callout points invoked by the
// walled garden DHCP server while processing a packet. The carriers
// implementing them are registered in the hook manager.
package dhcp4callouts

import (
	"sync"

	"github.com/insomniacslk/dhcp/dhcpv4"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Indicates how the server should proceed after the callout.
type NextStep int

const (
	// Continue the packet processing normally.
	NextStepContinue NextStep = iota
	// Skip the default action. For the lease selection it means that the
	// lease is not assigned and the server responds with a NAK.
	NextStepSkip
)

// Returns the string representation of the next step.
func (s NextStep) String() string {
	if s == NextStepSkip {
		return "skip"
	}
	return "continue"
}

// Per-packet state shared between the callouts. The server creates one
// handle for each processed query and passes it to all callout points.
type CalloutHandle struct {
	query      *dhcpv4.DHCPv4
	candidates []*dhcpmodel.Subnet4
	mutex      sync.RWMutex
	context    map[string]any
}

// Creates the handle for the query and the subnets the server may select
// for it.
func NewCalloutHandle(query *dhcpv4.DHCPv4, candidates []*dhcpmodel.Subnet4) *CalloutHandle {
	return &CalloutHandle{
		query:      query,
		candidates: candidates,
		context:    map[string]any{},
	}
}

// Returns the processed query.
func (h *CalloutHandle) GetQuery() *dhcpv4.DHCPv4 {
	return h.query
}

// Returns the candidate subnets.
func (h *CalloutHandle) GetCandidates() []*dhcpmodel.Subnet4 {
	return h.candidates
}

// Stores a value in the handle context.
func (h *CalloutHandle) SetContext(key string, value any) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.context[key] = value
}

// Returns a value from the handle context.
func (h *CalloutHandle) GetContext(key string) (any, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	value, ok := h.context[key]
	return value, ok
}

// Callout invoked after the server has picked the subnet for the query.
type Subnet4SelectCallouts interface {
	// Returns the subnet that should be used instead of the selected one
	// or nil to keep the server's choice.
	OnSubnet4Select(handle *CalloutHandle, selected *dhcpmodel.Subnet4) *dhcpmodel.Subnet4
}

// Callout invoked before the lease is assigned to the client.
type Lease4SelectCallouts interface {
	// Returns NextStepSkip to veto the lease.
	OnLease4Select(handle *CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) NextStep
}

// Callout invoked before the response is sent to the client.
type Pkt4SendCallouts interface {
	// Returns the packet that should be sent instead of the response or nil
	// to send the response unchanged.
	OnPkt4Send(handle *CalloutHandle, subnet *dhcpmodel.Subnet4, response *dhcpv4.DHCPv4) *dhcpv4.DHCPv4
}

// Callout invoked after the server has acknowledged the lease. It is not
// invoked for the vetoed leases nor when the ACK was replaced with a NAK.
type Leases4CommittedCallouts interface {
	OnLeases4Committed(handle *CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4)
}
