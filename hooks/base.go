package hooks

import "isc.org/walledgarden"

// Object returned by the hook library. It implements any subset of the
// DHCPv4 callout interfaces from the dhcp4callouts package. The hook
// manager calls the carriers in the registration order.
type CalloutCarrier interface {
	// Releases the resources of the carrier. It is called once, when the
	// DHCP server shuts down.
	Close() error
}

// Settings of the hook library. It is a pointer to the structure with the
// go-flags tags; the tagged members are exposed as the plugin arguments
// and the environment variables in the hook namespace.
type HookSettings interface{}

type (
	// Creates the callout carrier. The settings are the object returned
	// by the CreateCLIFlags function filled with the parsed values, or nil
	// if the library exports no such function.
	HookLoadFunction = func(settings HookSettings) (CalloutCarrier, error)
	// Returns the name and the version of the program the library is
	// built for. It is called before Load to check the compatibility.
	HookGetVersionFunction = func() (string, string)
	// Returns the prototype of the library settings. Optional.
	HookCreateCLIFlagsFunction = func() HookSettings
)

// Names of the symbols exported by the hook library.
const (
	HookLoadFunctionName           = "Load"
	HookGetVersionFunctionName     = "GetVersion"
	HookCreateCLIFlagsFunctionName = "CreateCLIFlags"
)

// Program identifier the libraries for the walled garden DHCP server
// return from GetVersion.
const HookProgramDHCPServer = "Walled Garden DHCP Server"

// Version the hook libraries must be built for.
const WalledGardenVersion = walledgarden.Version
