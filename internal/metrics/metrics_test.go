package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })

	before := testutil.ToFloat64(SessionsIssued.WithLabelValues("login"))
	SessionsIssued.WithLabelValues("login").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(SessionsIssued.WithLabelValues("login")))

	// A second registration of the same collectors must fail loudly.
	require.Panics(t, func() { RegisterCollectors(reg) })
}
