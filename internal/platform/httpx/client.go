// SPDX-License-Identifier: MIT

// Package httpx builds the outbound HTTP clients used by the service.
package httpx

import (
	"net"
	"net/http"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 30 * time.Second
	defaultDialTimeout           = 10 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 32
	defaultMaxIdleConnsPerHost   = 8
)

type options struct {
	streaming bool
	tracing   bool
	control   func(network, address string, c syscall.RawConn) error
}

// Option tweaks NewClient.
type Option func(*options)

// Streaming leaves the overall client timeout unset so long response bodies
// are not cut off; timeout then bounds only dialing and response headers.
func Streaming() Option { return func(o *options) { o.streaming = true } }

// Traced wraps the transport with OpenTelemetry instrumentation.
func Traced() Option { return func(o *options) { o.tracing = true } }

// DialControl installs a dialer Control hook, typically an outbound
// address guard.
func DialControl(fn func(network, address string, c syscall.RawConn) error) Option {
	return func(o *options) { o.control = fn }
}

// NewClient returns a hardened HTTP client. timeout <= 0 selects 30s.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second, Control: o.control}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		// Media is relayed byte for byte; never negotiate compression.
		DisableCompression: true,
	}
	if o.tracing {
		rt = otelhttp.NewTransport(rt)
	}

	client := &http.Client{Transport: rt}
	if !o.streaming {
		client.Timeout = timeout
	}
	return client
}
