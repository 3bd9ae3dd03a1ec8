package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(AdmitCards.WithLabelValues("admin"))
	AdmitCards.WithLabelValues("admin").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AdmitCards.WithLabelValues("admin")))

	ActiveSessions.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(ActiveSessions))
	assert.Equal(t, 1, testutil.CollectAndCount(ActiveSessions))
}
