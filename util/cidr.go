package gardenutil

import (
	"bytes"
	"net"
	"strings"

	cidr "github.com/apparentlymart/go-cidr/cidr"
	"github.com/pkg/errors"
)

// IP protocol type.
type IPType int

// IP protocol type enum.
const (
	IPv4 IPType = 4
	IPv6 IPType = 6
)

// Structure returned by the ParseIP function. It holds the parsed address
// and the detected protocol.
type ParsedIP struct {
	IP       net.IP
	Protocol IPType
	// True if the value was given in the prefix form, e.g. 192.0.2.0/24.
	Prefix bool
	IPNet  *net.IPNet
}

// Parses an IP address or a prefix. Returns nil if the value is neither.
func ParseIP(address string) *ParsedIP {
	parsed := &ParsedIP{}
	parsed.IP = net.ParseIP(strings.TrimSpace(address))
	if parsed.IP == nil {
		ip, ipNet, err := net.ParseCIDR(strings.TrimSpace(address))
		if err != nil {
			return nil
		}
		parsed.IP = ip
		parsed.IPNet = ipNet
		ones, bits := ipNet.Mask.Size()
		parsed.Prefix = ones != bits
	}
	if parsed.IP.To4() != nil {
		parsed.Protocol = IPv4
	} else {
		parsed.Protocol = IPv6
	}
	return parsed
}

// Returns lower and upper bound addresses of the address range. The range
// may be specified as 192.0.2.1 - 192.0.2.10 or as a prefix 192.0.2.0/24.
// Both bounds are returned in the 16-byte form.
func ParseIPRange(ipRange string) (net.IP, net.IP, error) {
	s := strings.Split(ipRange, "-")
	for i := range s {
		s[i] = strings.TrimSpace(s[i])
	}
	switch len(s) {
	case 2:
		lb := net.ParseIP(s[0])
		if lb == nil {
			return nil, nil, errors.Errorf("unable to parse the IP address %s", s[0])
		}
		ub := net.ParseIP(s[1])
		if ub == nil {
			return nil, nil, errors.Errorf("unable to parse the IP address %s", s[1])
		}
		if (lb.To4() == nil) != (ub.To4() == nil) {
			return nil, nil, errors.Errorf("IP addresses in the IP range %s must belong to the same family", ipRange)
		}
		if bytes.Compare(lb.To16(), ub.To16()) > 0 {
			return nil, nil, errors.Errorf("lower bound of the IP range %s is greater than the upper bound", ipRange)
		}
		return lb.To16(), ub.To16(), nil
	case 1:
		_, ipNet, err := net.ParseCIDR(s[0])
		if err != nil {
			return nil, nil, errors.Errorf("unable to parse the pool prefix %s", s[0])
		}
		lb, ub := cidr.AddressRange(ipNet)
		return lb.To16(), ub.To16(), nil
	default:
		return nil, nil, errors.Errorf("unable to parse the IP range %s", ipRange)
	}
}

// Checks if an IP address is within the range of addresses between the
// lb (lower bound) and ub (upper bound). Prefixes are never in range.
func (parsed *ParsedIP) IsInRange(lb, ub net.IP) bool {
	if parsed.Prefix {
		return false
	}
	return IsIPInRange(parsed.IP, lb, ub)
}

// Checks if an IP address is within the inclusive range. Nil and mixed
// family values are out of range.
func IsIPInRange(ip, lb, ub net.IP) bool {
	ip16, lb16, ub16 := ip.To16(), lb.To16(), ub.To16()
	if ip16 == nil || lb16 == nil || ub16 == nil {
		return false
	}
	if (ip.To4() == nil) != (lb.To4() == nil) {
		return false
	}
	return bytes.Compare(ip16, lb16) >= 0 && bytes.Compare(ip16, ub16) <= 0
}
