// Package keactrl implements the client of the Kea Control Agent used to
// manage the host reservations with the host commands hook library.
package keactrl

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	keaconfig "isc.org/walledgarden/appcfg/kea"
)

// Kea command name type.
type CommandName string

// Kea daemon name.
type DaemonName = string

const (
	DHCPv4 DaemonName = "dhcp4"
)

const (
	ReservationGet CommandName = "reservation-get"
	ReservationAdd CommandName = "reservation-add"
	ReservationDel CommandName = "reservation-del"
)

// See "src/lib/cc/command_interpreter.h" in the Kea repository for details.
const (
	// Status code indicating a successful operation.
	ResponseSuccess = 0
	// Status code indicating a general failure. The reservation-add
	// returns it also when the reservation already exists.
	ResponseError = 1
	// Status code indicating that the specified command is not supported.
	ResponseCommandUnsupported = 2
	// Status code indicating that the command was completed correctly, but
	// the object was not found.
	ResponseEmpty = 3
)

// Represents a command sent to Kea including command name, daemons list
// (service list in Kea terms) and arguments.
type Command struct {
	Command   CommandName  `json:"command"`
	Daemons   []DaemonName `json:"service,omitempty"`
	Arguments any          `json:"arguments,omitempty"`
}

// Common fields in each received Kea response.
type ResponseHeader struct {
	Result int    `json:"result"`
	Text   string `json:"text"`
}

// Represents unmarshaled response from Kea daemon. The arguments are
// decoded by the command-specific functions.
type Response struct {
	ResponseHeader
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// A list of responses from the Kea daemons returned by the Kea Control
// Agent.
type ResponseList []Response

// Represents an error returned by Kea CA.
type KeaError struct {
	Result int
	Text   string
}

// Returns the error message.
func (e KeaError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("non-success response result from Kea: %d, text: %s", e.Result, e.Text)
	}
	return fmt.Sprintf("non-success response result from Kea: %d", e.Result)
}

// Returns the Kea result code carried by the error. The second value is
// false if the error was not returned by Kea.
func GetResult(err error) (int, bool) {
	var keaErr KeaError
	if errors.As(err, &keaErr) {
		return keaErr.Result, true
	}
	return 0, false
}

// Creates new Kea command for the DHCPv4 daemon.
func newCommand(command CommandName, arguments any) *Command {
	return &Command{
		Command:   command,
		Daemons:   []DaemonName{DHCPv4},
		Arguments: arguments,
	}
}

// Creates reservation-get command looking up the reservation by the
// hardware address in the subnet.
func NewCommandReservationGet(subnetID int64, hwAddress string) *Command {
	return newCommand(ReservationGet, &keaconfig.HostCmdsDeletedReservation{
		IdentifierType: keaconfig.IdentifierTypeHWAddress,
		Identifier:     hwAddress,
		SubnetID:       subnetID,
	})
}

// Creates reservation-add command.
func NewCommandReservationAdd(reservation *keaconfig.HostCmdsReservation) *Command {
	return newCommand(ReservationAdd, map[string]any{
		"reservation": reservation,
	})
}

// Creates reservation-del command deleting the reservation by the
// hardware address in the subnet.
func NewCommandReservationDel(subnetID int64, hwAddress string) *Command {
	return newCommand(ReservationDel, &keaconfig.HostCmdsDeletedReservation{
		IdentifierType: keaconfig.IdentifierTypeHWAddress,
		Identifier:     hwAddress,
		SubnetID:       subnetID,
	})
}

// Returns the command serialized to JSON.
func (c *Command) Marshal() string {
	bytes, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(bytes)
}
