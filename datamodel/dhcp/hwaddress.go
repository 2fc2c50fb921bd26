package dhcpmodel

import (
	"encoding/hex"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// Hardware (link-layer) address of a DHCP client. It is the key used to
// match the client with the host reservations. The value is immutable and
// comparable so it can be used as a map key. Two addresses are equal when
// their bytes are equal.
type HWAddress struct {
	value string
}

// Creates the hardware address from raw bytes. The bytes are copied.
func NewHWAddress(value []byte) HWAddress {
	return HWAddress{value: string(value)}
}

// Parses the hardware address in any of the commonly used text forms:
// aa:bb:cc:dd:ee:ff, AA-BB-CC-DD-EE-FF, aabb.ccdd.eeff or aabbccddeeff.
// The normalization happens once here so the comparisons are plain byte
// comparisons afterwards.
func ParseHWAddress(text string) (HWAddress, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return HWAddress{}, errors.New("hardware address must not be empty")
	}
	if strings.ContainsAny(text, ":-.") {
		mac, err := net.ParseMAC(text)
		if err != nil {
			// Kea accepts identifiers of arbitrary length separated by
			// colons.
			stripped := strings.NewReplacer(":", "", "-", "").Replace(text)
			raw, hexErr := hex.DecodeString(stripped)
			if hexErr != nil || strings.Contains(text, ".") {
				return HWAddress{}, errors.Wrapf(err, "invalid hardware address %s", text)
			}
			return NewHWAddress(raw), nil
		}
		return NewHWAddress(mac), nil
	}
	raw, err := hex.DecodeString(text)
	if err != nil {
		return HWAddress{}, errors.Wrapf(err, "invalid hardware address %s", text)
	}
	return NewHWAddress(raw), nil
}

// Returns true if the address has no bytes.
func (a HWAddress) IsEmpty() bool {
	return len(a.value) == 0
}

// Returns a copy of the address bytes.
func (a HWAddress) Bytes() []byte {
	return []byte(a.value)
}

// Returns the number of bytes.
func (a HWAddress) Len() int {
	return len(a.value)
}

// Checks if two addresses are equal.
func (a HWAddress) Equal(other HWAddress) bool {
	return a.value == other.value
}

// Returns the address in the lower case, colon separated form.
func (a HWAddress) String() string {
	if a.IsEmpty() {
		return ""
	}
	encoded := hex.EncodeToString([]byte(a.value))
	var builder strings.Builder
	builder.Grow(len(encoded) + len(a.value) - 1)
	for i := 0; i < len(encoded); i += 2 {
		if i > 0 {
			builder.WriteByte(':')
		}
		builder.WriteString(encoded[i : i+2])
	}
	return builder.String()
}
