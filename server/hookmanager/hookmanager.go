package hookmanager

import (
	"reflect"

	"isc.org/walledgarden/hooks/dhcp4callouts"
	"isc.org/walledgarden/hooksutil"
)

// Facade for all callout points. It defines the specific calling method for
// each callout point.
type HookManager struct {
	hooksutil.HookManager
}

// Constructs the hook manager.
func NewHookManager() *HookManager {
	return &HookManager{
		HookManager: *hooksutil.NewHookManager([]reflect.Type{
			reflect.TypeOf((*dhcp4callouts.Subnet4SelectCallouts)(nil)).Elem(),
			reflect.TypeOf((*dhcp4callouts.Lease4SelectCallouts)(nil)).Elem(),
			reflect.TypeOf((*dhcp4callouts.Pkt4SendCallouts)(nil)).Elem(),
			reflect.TypeOf((*dhcp4callouts.Leases4CommittedCallouts)(nil)).Elem(),
		}),
	}
}
