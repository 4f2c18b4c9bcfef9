// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordExtraction(t *testing.T) {
	before := testutil.ToFloat64(extractionsTotal.WithLabelValues("unavailable"))
	RecordExtraction("unavailable", 2*time.Second, 0)
	assert.Equal(t, before+1, testutil.ToFloat64(extractionsTotal.WithLabelValues("unavailable")))
}

func TestRecordConversionAttempt(t *testing.T) {
	before := testutil.ToFloat64(conversionsTotal.WithLabelValues("reencode", "timeout"))
	RecordConversionAttempt("reencode", "timeout", time.Minute)
	assert.Equal(t, before+1, testutil.ToFloat64(conversionsTotal.WithLabelValues("reencode", "timeout")))
}

func TestConversionStarted(t *testing.T) {
	base := testutil.ToFloat64(conversionsInFlight)
	done := ConversionStarted()
	assert.Equal(t, base+1, testutil.ToFloat64(conversionsInFlight))
	done()
	assert.Equal(t, base, testutil.ToFloat64(conversionsInFlight))
}

func TestRecordDownload(t *testing.T) {
	before := testutil.ToFloat64(downloadBytes.WithLabelValues("local"))
	RecordDownload("local", "success", 4096)
	RecordDownload("local", "not_found", 0)
	assert.Equal(t, before+4096, testutil.ToFloat64(downloadBytes.WithLabelValues("local")))
}

func TestRecordSweep(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	before := testutil.ToFloat64(janitorRemoved)
	RecordSweep(3, 1, at)
	assert.Equal(t, before+3, testutil.ToFloat64(janitorRemoved))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(janitorLastSweep))
}

func TestSetEncoderAvailable(t *testing.T) {
	SetEncoderAvailable(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(encoderAvailable))
	SetEncoderAvailable(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(encoderAvailable))
}
