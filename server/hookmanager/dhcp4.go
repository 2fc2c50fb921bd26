package hookmanager

import (
	"github.com/insomniacslk/dhcp/dhcpv4"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/hooks/dhcp4callouts"
	"isc.org/walledgarden/hooksutil"
)

// Callout point invoked after the server has selected the subnet. The
// carriers are called in the registration order and each of them receives
// the subnet chosen by the previous one. Returns the final subnet.
func (hm *HookManager) OnSubnet4Select(handle *dhcp4callouts.CalloutHandle, selected *dhcpmodel.Subnet4) *dhcpmodel.Subnet4 {
	hooksutil.CallSequential(hm.GetExecutor(), func(callouts dhcp4callouts.Subnet4SelectCallouts) *dhcpmodel.Subnet4 {
		if subnet := callouts.OnSubnet4Select(handle, selected); subnet != nil {
			selected = subnet
		}
		return selected
	})
	return selected
}

// Callout point invoked before the lease is assigned. The lease is vetoed
// if any carrier requests to skip it.
func (hm *HookManager) OnLease4Select(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) dhcp4callouts.NextStep {
	steps := hooksutil.CallSequential(hm.GetExecutor(), func(callouts dhcp4callouts.Lease4SelectCallouts) dhcp4callouts.NextStep {
		return callouts.OnLease4Select(handle, subnet, lease)
	})
	for _, step := range steps {
		if step == dhcp4callouts.NextStepSkip {
			return dhcp4callouts.NextStepSkip
		}
	}
	return dhcp4callouts.NextStepContinue
}

// Callout point invoked before the response is sent. Each carrier may
// replace the response returned by the previous one. Returns the packet
// to send.
func (hm *HookManager) OnPkt4Send(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, response *dhcpv4.DHCPv4) *dhcpv4.DHCPv4 {
	hooksutil.CallSequential(hm.GetExecutor(), func(callouts dhcp4callouts.Pkt4SendCallouts) *dhcpv4.DHCPv4 {
		if replacement := callouts.OnPkt4Send(handle, subnet, response); replacement != nil {
			response = replacement
		}
		return response
	})
	return response
}

// Callout point invoked after the ACK for the lease is final. The carriers
// are called in the registration order.
func (hm *HookManager) OnLeases4Committed(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) {
	hooksutil.CallSequential(hm.GetExecutor(), func(callouts dhcp4callouts.Leases4CommittedCallouts) struct{} {
		callouts.OnLeases4Committed(handle, subnet, lease)
		return struct{}{}
	})
}
