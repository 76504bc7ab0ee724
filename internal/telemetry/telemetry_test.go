package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.Same(t, m, GetMetrics())

	require.NotNil(t, m.AuthorizationDecisionsTotal)
	require.NotNil(t, m.InvitationTransitionsTotal)
	require.NotNil(t, m.InvitationsExpiredTotal)
	require.NotNil(t, m.OwnershipTransfersTotal)
	require.NotNil(t, m.SweepDuration)

	// the global no-op provider accepts measurements
	m.InvitationsExpiredTotal.Add(context.Background(), 3)
	m.SweepDuration.Record(context.Background(), 1.5)
}

func TestInitTelemetry_RejectsSampleRatio(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.5} {
		_, err := InitTelemetry(context.Background(), Options{ServiceName: "orgs-test", SampleRatio: ratio})
		require.ErrorContains(t, err, "sample ratio")
	}
}
