package dhcpmodel

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test that the hardware address is parsed from the different text forms
// into the same value.
func TestParseHWAddress(t *testing.T) {
	expected := NewHWAddress([]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff})

	for _, text := range []string{
		"aa:bb:cc:dd:ee:ff",
		"AA:BB:CC:DD:EE:FF",
		"aa-bb-cc-dd-ee-ff",
		"aabb.ccdd.eeff",
		"aabbccddeeff",
		" AABBCCDDEEFF ",
	} {
		t.Run(text, func(t *testing.T) {
			parsed, err := ParseHWAddress(text)
			require.NoError(t, err)
			require.True(t, expected.Equal(parsed))
			require.Equal(t, expected, parsed)
			require.Equal(t, "aa:bb:cc:dd:ee:ff", parsed.String())
		})
	}
}

// Test that the identifiers of a non-standard length are accepted.
func TestParseHWAddressNonStandardLength(t *testing.T) {
	parsed, err := ParseHWAddress("01:02:03")
	require.NoError(t, err)
	require.Equal(t, 3, parsed.Len())
	require.Equal(t, "01:02:03", parsed.String())
}

// Test that invalid addresses are rejected.
func TestParseHWAddressInvalid(t *testing.T) {
	for _, text := range []string{"", "zz:bb:cc:dd:ee:ff", "abc", "aabb.ccdd.eexx"} {
		_, err := ParseHWAddress(text)
		require.Error(t, err, text)
	}
}

// Test the conversions of the hardware address.
func TestHWAddressConversions(t *testing.T) {
	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	address := NewHWAddress(mac)

	// Modifying the source must not affect the address.
	mac[0] = 0
	require.Equal(t, "aa:bb:cc:dd:ee:ff", address.String())

	// Modifying the returned bytes must not affect the address.
	raw := address.Bytes()
	raw[1] = 0
	require.Equal(t, "aa:bb:cc:dd:ee:ff", address.String())

	require.True(t, HWAddress{}.IsEmpty())
	require.Empty(t, HWAddress{}.String())
	require.False(t, address.IsEmpty())
}
