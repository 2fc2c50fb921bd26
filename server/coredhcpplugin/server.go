package coredhcpplugin

import (
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/sirupsen/logrus"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/hooks/dhcp4callouts"
	"isc.org/walledgarden/server/hookmanager"
)

// Valid lifetime used when the subnet doesn't specify one.
const defaultValidLifetime = 2 * time.Hour

// Interface of the hook manager invoking the DHCPv4 callouts.
type calloutInvoker interface {
	OnSubnet4Select(handle *dhcp4callouts.CalloutHandle, selected *dhcpmodel.Subnet4) *dhcpmodel.Subnet4
	OnLease4Select(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) dhcp4callouts.NextStep
	OnPkt4Send(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, response *dhcpv4.DHCPv4) *dhcpv4.DHCPv4
	OnLeases4Committed(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4)
}

var _ calloutInvoker = (*hookmanager.HookManager)(nil)

// DHCPv4 processing of the plugin. It resolves the candidate subnets,
// allocates the leases and invokes the callouts at the subnet selection,
// the lease selection and before sending the response.
type Server struct {
	subnets   []*dhcpmodel.Subnet4
	callouts  calloutInvoker
	allocator *leaseAllocator
}

// Creates the server for the configured subnets.
func NewServer(subnets []*dhcpmodel.Subnet4, callouts calloutInvoker) (*Server, error) {
	allocator, err := newLeaseAllocator(subnets)
	if err != nil {
		return nil, err
	}
	return &Server{
		subnets:   subnets,
		callouts:  callouts,
		allocator: allocator,
	}, nil
}

// Returns the subnets the query may be served from. A relayed query is
// served from the subnets containing the relay address. A query received
// directly may be served from any subnet.
func (s *Server) getCandidates(query *dhcpv4.DHCPv4) []*dhcpmodel.Subnet4 {
	if !isSpecified(query.GatewayIPAddr) {
		return s.subnets
	}
	var candidates []*dhcpmodel.Subnet4
	for _, subnet := range s.subnets {
		if subnet.InPrefix(query.GatewayIPAddr) {
			candidates = append(candidates, subnet)
		}
	}
	return candidates
}

// Checks if the address is set and not 0.0.0.0.
func isSpecified(address net.IP) bool {
	return address != nil && !address.IsUnspecified()
}

// Returns the address the client asks for in the query.
func getRequestedAddress(query *dhcpv4.DHCPv4) net.IP {
	if isSpecified(query.ClientIPAddr) {
		return query.ClientIPAddr
	}
	if requested := query.RequestedIPAddress(); isSpecified(requested) {
		return requested
	}
	return nil
}

// Turns the response into a NAK.
func setNak(response *dhcpv4.DHCPv4) {
	response.UpdateOption(dhcpv4.OptMessageType(dhcpv4.MessageTypeNak))
	response.YourIPAddr = net.IPv4zero
	for _, code := range []dhcpv4.OptionCode{
		dhcpv4.OptionIPAddressLeaseTime,
		dhcpv4.OptionRenewTimeValue,
		dhcpv4.OptionRebindingTimeValue,
		dhcpv4.OptionSubnetMask,
	} {
		response.Options.Del(code)
	}
}

// Fills the response with the lease.
func setLease(response *dhcpv4.DHCPv4, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) {
	response.YourIPAddr = lease.Address
	response.UpdateOption(dhcpv4.OptIPAddressLeaseTime(lease.ValidLifetime))
	response.UpdateOption(dhcpv4.OptRenewTimeValue(lease.ValidLifetime / 2))
	response.UpdateOption(dhcpv4.OptRebindingTimeValue(lease.ValidLifetime * 7 / 8))
	if _, network, err := net.ParseCIDR(subnet.Prefix); err == nil {
		response.UpdateOption(dhcpv4.OptSubnetMask(network.Mask))
	}
}

// Handles the DISCOVER and REQUEST queries. The response is prepared by
// coredhcp as an OFFER or an ACK. It returns the response to send and
// true to stop the plugin chain, so the plugin must be the last one.
func (s *Server) Handle4(query, response *dhcpv4.DHCPv4) (*dhcpv4.DHCPv4, bool) {
	messageType := query.MessageType()
	if messageType != dhcpv4.MessageTypeDiscover && messageType != dhcpv4.MessageTypeRequest {
		return response, false
	}
	entry := log.WithFields(logrus.Fields{
		"hw-address":   query.ClientHWAddr.String(),
		"message-type": messageType.String(),
		"xid":          query.TransactionID.String(),
	})

	candidates := s.getCandidates(query)
	if len(candidates) == 0 {
		entry.Warn("No subnet is available for the query; dropping")
		return nil, true
	}
	handle := dhcp4callouts.NewCalloutHandle(query, candidates)
	subnet := s.callouts.OnSubnet4Select(handle, candidates[0])

	hwAddress := dhcpmodel.NewHWAddress(query.ClientHWAddr)
	requested := getRequestedAddress(query)
	lease, err := s.allocator.Allocate(subnet, hwAddress, requested)
	if err != nil {
		entry.WithError(err).WithField("subnet", subnet).Warn("Cannot allocate a lease")
		if messageType == dhcpv4.MessageTypeRequest {
			setNak(response)
			return s.callouts.OnPkt4Send(handle, subnet, response), true
		}
		return nil, true
	}

	if messageType == dhcpv4.MessageTypeRequest && requested != nil && !requested.Equal(lease.Address) {
		// The client asks for the address it cannot get.
		s.allocator.Release(lease)
		entry.WithFields(logrus.Fields{
			"requested": requested,
			"subnet":    subnet,
		}).Info("Requested address is not available")
		setNak(response)
		return s.callouts.OnPkt4Send(handle, subnet, response), true
	}

	if s.callouts.OnLease4Select(handle, subnet, lease) == dhcp4callouts.NextStepSkip {
		s.allocator.Release(lease)
		entry.WithFields(logrus.Fields{
			"address": lease.Address,
			"subnet":  subnet,
		}).Info("Lease was vetoed")
		if messageType == dhcpv4.MessageTypeDiscover {
			return nil, true
		}
		setNak(response)
		return s.callouts.OnPkt4Send(handle, subnet, response), true
	}

	setLease(response, subnet, lease)
	reply := s.callouts.OnPkt4Send(handle, subnet, response)
	entry = entry.WithFields(logrus.Fields{
		"address": lease.Address,
		"subnet":  subnet,
	})
	if messageType == dhcpv4.MessageTypeDiscover {
		entry.Debug("Lease offered")
		return reply, true
	}
	if !isAckFor(reply, lease) {
		// A callout replaced the ACK.
		s.allocator.Release(lease)
		entry.Info("Lease was not acknowledged; releasing")
		return reply, true
	}
	s.callouts.OnLeases4Committed(handle, subnet, lease)
	entry.Debug("Lease assigned")
	return reply, true
}

// Checks if the reply acknowledges the lease.
func isAckFor(reply *dhcpv4.DHCPv4, lease *dhcpmodel.Lease4) bool {
	return reply != nil &&
		reply.MessageType() == dhcpv4.MessageTypeAck &&
		reply.YourIPAddr.Equal(lease.Address)
}
