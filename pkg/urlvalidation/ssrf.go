// Package urlvalidation guards outbound transcript deliveries, both webhook
// consumers and enrichment hooks, against SSRF: an operator-supplied endpoint
// must be plain http(s) and must not resolve into private or reserved
// address space.
package urlvalidation

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// reservedRanges is the address space a delivery endpoint must never reach:
// loopback, RFC 1918, link-local, CGN, the test nets, multicast and their
// IPv6 equivalents.
var reservedRanges = func() []netip.Prefix {
	cidrs := []string{
		"0.0.0.0/8",
		"10.0.0.0/8",
		"100.64.0.0/10",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.0.0.0/24",
		"192.0.2.0/24",
		"192.168.0.0/16",
		"198.18.0.0/15",
		"198.51.100.0/24",
		"203.0.113.0/24",
		"224.0.0.0/4",
		"240.0.0.0/4",
		"255.255.255.255/32",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		prefixes = append(prefixes, netip.MustParsePrefix(c))
	}
	return prefixes
}()

// Option adjusts endpoint checking.
type Option func(*checker)

type checker struct {
	allowPrivate bool
}

// AllowPrivateHosts permits endpoints on private address space. Tests use it
// to deliver to httptest servers on loopback.
func AllowPrivateHosts() Option {
	return func(c *checker) { c.allowPrivate = true }
}

// CheckEndpoint validates a delivery endpoint URL before any request is made
// to it. The scheme must be http or https and, unless private hosts are
// allowed, every address the host resolves to must be outside the reserved
// ranges.
func CheckEndpoint(raw string, opts ...Option) error {
	var c checker
	for _, opt := range opts {
		opt(&c)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse endpoint URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("endpoint scheme %q not supported", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("endpoint URL has no host")
	}
	if c.allowPrivate {
		return nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("resolve endpoint host %q: %w", host, err)
	}
	for _, a := range addrs {
		addr, err := netip.ParseAddr(a)
		if err != nil {
			continue
		}
		if isReserved(addr) {
			return fmt.Errorf("endpoint host %q resolves to reserved address %s", host, a)
		}
	}
	return nil
}

func isReserved(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range reservedRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
