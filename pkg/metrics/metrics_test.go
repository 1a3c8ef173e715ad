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

	DocumentOps.WithLabelValues("create", "ok").Inc()
	MirrorErrors.WithLabelValues("redis").Inc()

	n, err := testutil.GatherAndCount(reg, "jsonstash_document_operations_total", "jsonstash_mirror_errors_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// a second registration on the same registry is a programming error
	require.Panics(t, func() { RegisterCollectors(reg) })
}
