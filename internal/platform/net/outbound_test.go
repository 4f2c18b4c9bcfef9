// SPDX-License-Identifier: MIT

package net

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_ValidateURL(t *testing.T) {
	g, err := NewGuard(OutboundPolicy{AllowCIDRs: []string{"10.20.0.0/16", "192.168.1.5"}})
	require.NoError(t, err)

	cases := []struct {
		name    string
		raw     string
		want    string
		blocked bool
		wantErr bool
	}{
		{name: "public ip", raw: "https://93.184.216.34/v.mp4", want: "https://93.184.216.34/v.mp4"},
		{name: "metadata ip", raw: "http://169.254.169.254/latest", blocked: true},
		{name: "loopback", raw: "http://127.0.0.1:8080/x", blocked: true},
		{name: "ipv6 loopback", raw: "http://[::1]/x", blocked: true},
		{name: "mapped loopback", raw: "http://[::ffff:127.0.0.1]/x", blocked: true},
		{name: "private", raw: "http://10.10.55.64/x", blocked: true},
		{name: "allowlisted cidr", raw: "http://10.20.3.4/x", want: "http://10.20.3.4/x"},
		{name: "allowlisted ip", raw: "http://192.168.1.5:81/x", want: "http://192.168.1.5:81/x"},
		{name: "unspecified", raw: "http://0.0.0.0/x", blocked: true},
		{name: "scheme", raw: "file:///etc/passwd", wantErr: true},
		{name: "credentials", raw: "http://a:b@93.184.216.34/", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.ValidateURL(context.Background(), tc.raw)
			switch {
			case tc.blocked:
				assert.ErrorIs(t, err, ErrBlockedAddress)
			case tc.wantErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestGuard_AllowPrivate(t *testing.T) {
	g, err := NewGuard(OutboundPolicy{AllowPrivate: true})
	require.NoError(t, err)

	_, err = g.ValidateURL(context.Background(), "http://127.0.0.1:9/x")
	assert.NoError(t, err)
	assert.NoError(t, g.DialControl("tcp", "10.0.0.1:443", nil))
}

func TestGuard_DialControl(t *testing.T) {
	g, err := NewGuard(OutboundPolicy{})
	require.NoError(t, err)

	assert.ErrorIs(t, g.DialControl("tcp", "127.0.0.1:80", nil), ErrBlockedAddress)
	assert.ErrorIs(t, g.DialControl("tcp6", "[fe80::1]:80", nil), ErrBlockedAddress)
	assert.NoError(t, g.DialControl("tcp", "93.184.216.34:443", nil))
	assert.Error(t, g.DialControl("tcp", "garbage", nil))
}

func TestGuard_NilAllowsEverything(t *testing.T) {
	var g *Guard
	assert.NoError(t, g.CheckIP(net.ParseIP("127.0.0.1")))
}

func TestNewGuard_InvalidCIDR(t *testing.T) {
	_, err := NewGuard(OutboundPolicy{AllowCIDRs: []string{"not-a-cidr"}})
	assert.Error(t, err)
}

func TestNormalizeHost(t *testing.T) {
	cases := map[string]string{
		"Example.COM.":   "example.com",
		"[::1]":          "::1",
		"bücher.example": "xn--bcher-kva.example",
		"192.0.2.1":      "192.0.2.1",
	}
	for in, want := range cases {
		got, err := NormalizeHost(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "a/b", "user@host", "host:80", "fe80::1%eth0"} {
		_, err := NormalizeHost(bad)
		assert.Error(t, err, bad)
	}
}
