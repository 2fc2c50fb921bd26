package enforcement

import (
	"net"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/pkg/errors"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
)

// Checks if the address is set and not 0.0.0.0.
func isSpecified(address net.IP) bool {
	return address != nil && !address.IsUnspecified()
}

// Returns the address the client asks for. It is the client address
// (ciaddr) of a renewing client or the requested address option (50)
// otherwise. Returns nil if none of them is present.
func getRequestedAddress(query *dhcpv4.DHCPv4) net.IP {
	if isSpecified(query.ClientIPAddr) {
		return query.ClientIPAddr
	}
	if requested := query.RequestedIPAddress(); isSpecified(requested) {
		return requested
	}
	return nil
}

// Returns the address acknowledged in the response (yiaddr) or the
// address requested by the client if the response carries none.
func getAcknowledgedAddress(query, response *dhcpv4.DHCPv4) net.IP {
	if isSpecified(response.YourIPAddr) {
		return response.YourIPAddr
	}
	return getRequestedAddress(query)
}

// Checks if the response is an ACK to a REQUEST.
func isAckForRequest(query, response *dhcpv4.DHCPv4) bool {
	return query.MessageType() == dhcpv4.MessageTypeRequest &&
		response.MessageType() == dhcpv4.MessageTypeAck
}

// Builds a fresh NAK for the query. It carries the identifying fields of
// the query (transaction ID, client hardware address, client identifier,
// flags, relay address and relay agent information) and the server
// identifier of the original response. It has no assigned address and no
// lease time options.
func buildNak(query, response *dhcpv4.DHCPv4) (*dhcpv4.DHCPv4, error) {
	nak, err := dhcpv4.New()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create the NAK packet")
	}
	nak.OpCode = dhcpv4.OpcodeBootReply
	nak.HWType = query.HWType
	nak.TransactionID = query.TransactionID
	nak.ClientHWAddr = query.ClientHWAddr
	nak.Flags = query.Flags
	nak.GatewayIPAddr = query.GatewayIPAddr
	nak.ClientIPAddr = net.IPv4zero
	nak.YourIPAddr = net.IPv4zero
	nak.ServerIPAddr = net.IPv4zero

	nak.UpdateOption(dhcpv4.OptMessageType(dhcpv4.MessageTypeNak))

	serverID := response.ServerIdentifier()
	if !isSpecified(serverID) {
		serverID = query.ServerIdentifier()
	}
	if isSpecified(serverID) {
		nak.UpdateOption(dhcpv4.OptServerIdentifier(serverID))
	}

	for _, code := range []dhcpv4.OptionCode{
		dhcpv4.OptionClientIdentifier,
		dhcpv4.OptionRelayAgentInformation,
	} {
		if query.Options.Has(code) {
			nak.UpdateOption(dhcpv4.OptGeneric(code, query.Options.Get(code)))
		}
	}
	return nak, nil
}

// Returns the leased address or nil if there is no lease.
func getLeaseAddress(lease *dhcpmodel.Lease4) net.IP {
	if lease == nil {
		return nil
	}
	return lease.Address
}
