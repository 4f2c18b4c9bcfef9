// SPDX-License-Identifier: MIT

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func countAllowed(l *Limiter, ip, op string, n int) int {
	allowed := 0
	for i := 0; i < n; i++ {
		if l.Allow(ip, op) {
			allowed++
		}
	}
	return allowed
}

func TestLimiter_Global(t *testing.T) {
	l := New(Config{Global: Limit{Rate: 1, Burst: 20}})
	allowed := countAllowed(l, "192.0.2.1", OpExtract, 25)
	assert.InDelta(t, 20, allowed, 1)
}

func TestLimiter_PerIPIsolatesClients(t *testing.T) {
	l := New(Config{
		Global: Limit{Rate: 1000, Burst: 1000},
		PerIP:  map[string]Limit{OpConvert: {Rate: rate.Every(time.Hour), Burst: 2}},
	})

	assert.Equal(t, 2, countAllowed(l, "192.0.2.1", OpConvert, 5))
	assert.Equal(t, 2, countAllowed(l, "192.0.2.2", OpConvert, 5), "other clients keep their own bucket")
	assert.Equal(t, 5, countAllowed(l, "192.0.2.1", OpExtract, 5), "operations without per-IP limits are unaffected")
}

func TestLimiter_EvictsIdleClients(t *testing.T) {
	l := New(Config{
		Global:  Limit{Rate: 1000, Burst: 1000},
		PerIP:   map[string]Limit{OpConvert: {Rate: 1, Burst: 1}},
		IdleTTL: time.Minute,
	})
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("192.0.2.1", OpConvert)
	l.Allow("192.0.2.2", OpConvert)
	assert.Equal(t, 2, l.size())

	now = now.Add(2 * time.Minute)
	l.Allow("192.0.2.3", OpConvert)
	assert.Equal(t, 1, l.size())
}

func TestLimiter_Middleware(t *testing.T) {
	l := New(Config{
		Global: Limit{Rate: 1000, Burst: 1000},
		PerIP:  map[string]Limit{OpConvert: {Rate: rate.Every(time.Hour), Burst: 1}},
	})
	reject := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h := l.Middleware(OpConvert, reject)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/convert", nil)
		req.RemoteAddr = "192.0.2.9:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trust      bool
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "no port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{name: "xff ignored when untrusted", remoteAddr: "10.0.0.1:1", xff: "203.0.113.5", want: "10.0.0.1"},
		{name: "xff first hop", trust: true, remoteAddr: "10.0.0.1:1", xff: " 203.0.113.5 , 10.0.0.2", want: "203.0.113.5"},
		{name: "x-real-ip", trust: true, remoteAddr: "10.0.0.1:1", xri: "203.0.113.7", want: "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(Config{TrustProxyHeaders: tt.trust})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, l.ClientIP(req))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Contains(t, cfg.PerIP, OpConvert)
	assert.Contains(t, cfg.PerIP, OpExtract)
	assert.Positive(t, cfg.Global.Burst)
}
