// Hook library of the walled garden DHCP server vetoing the leases of the
// blocked devices. Build it with "go build -buildmode=plugin -o
// walledgarden-dhcp-deny-list.so" and put it in the hook directory. The
// blocked devices are passed as "--deny-list.blocked-mac" plugin arguments.
package main

import (
	"github.com/pkg/errors"
	"isc.org/walledgarden/hooks"
)

// Settings of the hook.
type settings struct {
	BlockedMACs []string `long:"blocked-mac" description:"The hardware address of the device that never gets a lease; may be repeated" env:"BLOCKED_MAC" env-delim:","`
}

func Load(hookSettings hooks.HookSettings) (hooks.CalloutCarrier, error) {
	s, ok := hookSettings.(*settings)
	if !ok || s == nil {
		return nil, errors.New("missing deny list settings")
	}
	c, err := newCallouts(s.BlockedMACs)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func GetVersion() (string, string) {
	return hooks.HookProgramDHCPServer, hooks.WalledGardenVersion
}

func CreateCLIFlags() hooks.HookSettings {
	return &settings{}
}

// Type guards.
var (
	_ hooks.HookLoadFunction           = Load
	_ hooks.HookGetVersionFunction     = GetVersion
	_ hooks.HookCreateCLIFlagsFunction = CreateCLIFlags
)
