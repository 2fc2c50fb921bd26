package main

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	dhcpmodel "isc.org/walledgarden/datamodel/dhcp"
	"isc.org/walledgarden/hooks/dhcp4callouts"
)

type callouts struct {
	blocked map[string]bool
}

var _ dhcp4callouts.Lease4SelectCallouts = (*callouts)(nil)

func newCallouts(blockedMACs []string) (*callouts, error) {
	c := &callouts{blocked: map[string]bool{}}
	for _, mac := range blockedMACs {
		hwAddress, err := dhcpmodel.ParseHWAddress(mac)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid blocked device %s", mac)
		}
		c.blocked[hwAddress.String()] = true
	}
	return c, nil
}

func (c *callouts) Close() error {
	return nil
}

func (c *callouts) OnLease4Select(handle *dhcp4callouts.CalloutHandle, subnet *dhcpmodel.Subnet4, lease *dhcpmodel.Lease4) dhcp4callouts.NextStep {
	if lease == nil || !c.blocked[lease.HWAddress.String()] {
		return dhcp4callouts.NextStepContinue
	}
	log.WithFields(log.Fields{
		"hw-address": lease.HWAddress,
		"address":    lease.Address,
		"subnet":     subnet,
	}).Info("Device is blocked; vetoing the lease")
	return dhcp4callouts.NextStepSkip
}
