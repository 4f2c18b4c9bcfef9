// SPDX-License-Identifier: MIT

package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"golang.org/x/net/idna"
)

// ErrBlockedAddress is returned when an outbound target resolves to an
// address the policy does not permit.
var ErrBlockedAddress = errors.New("outbound address not allowed")

// OutboundPolicy guards requests the service makes on behalf of callers
// (media downloads and encoder inputs).
type OutboundPolicy struct {
	// AllowPrivate permits loopback, private and link-local targets.
	AllowPrivate bool
	// AllowCIDRs permits specific blocked ranges without opening all of them.
	AllowCIDRs []string
}

// Guard is a compiled OutboundPolicy.
type Guard struct {
	allowPrivate bool
	allowed      []*net.IPNet
	resolver     *net.Resolver
}

// NewGuard compiles policy.
func NewGuard(policy OutboundPolicy) (*Guard, error) {
	nets, err := parseCIDRAllowlist(policy.AllowCIDRs)
	if err != nil {
		return nil, err
	}
	return &Guard{allowPrivate: policy.AllowPrivate, allowed: nets, resolver: net.DefaultResolver}, nil
}

// CheckIP reports whether ip may be contacted.
func (g *Guard) CheckIP(ip net.IP) error {
	if g == nil || g.allowPrivate || ipInCIDRs(ip, g.allowed) {
		return nil
	}
	if isBlockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
	}
	return nil
}

// ValidateURL checks scheme, host and every resolved address of raw and
// returns the URL with a normalized host.
func (g *Guard) ValidateURL(ctx context.Context, raw string) (string, error) {
	u, ok := ParseDirectHTTPURL(raw)
	if !ok {
		return "", fmt.Errorf("not a direct http(s) url")
	}
	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return "", err
	}
	ips, err := g.resolve(ctx, host)
	if err != nil {
		return "", err
	}
	for _, ip := range ips {
		if err := g.CheckIP(ip); err != nil {
			return "", err
		}
	}
	u.Host = joinHostPort(host, u.Port())
	return u.String(), nil
}

// DialControl is a net.Dialer Control hook enforcing the policy on the
// address actually dialed, which also covers redirects and DNS changes
// between validation and connect.
func (g *Guard) DialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved %s", ErrBlockedAddress, host)
	}
	return g.CheckIP(ip)
}

// NormalizeHost validates and normalizes a host for comparison.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	switch {
	case host == "":
		return "", fmt.Errorf("host is empty")
	case strings.ContainsAny(host, "/@"):
		return "", fmt.Errorf("host must be a bare name: %s", raw)
	case strings.Contains(host, "%"):
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	if strings.Contains(host, ":") {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

func (g *Guard) resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	resolver := net.DefaultResolver
	if g != nil && g.resolver != nil {
		resolver = g.resolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve host %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve host %q: no addresses", host)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

func parseCIDRAllowlist(entries []string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, ipnet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipnet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid CIDR or IP: %s", entry)
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

func isBlockedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast()
}

func ipInCIDRs(ip net.IP, cidrs []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func joinHostPort(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}
