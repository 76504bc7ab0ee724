package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/orgs"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authorization metrics
	AuthorizationDecisionsTotal metric.Int64Counter

	// Invitation metrics
	InvitationTransitionsTotal metric.Int64Counter
	InvitationsExpiredTotal    metric.Int64Counter

	// Membership metrics
	OwnershipTransfersTotal metric.Int64Counter

	// Sweeper metrics
	SweepDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AuthorizationDecisionsTotal, _ = meter.Int64Counter(
		"orgs.authorization.decisions.total",
		metric.WithDescription("Total number of policy decisions by action and outcome"),
		metric.WithUnit("{decision}"),
	)

	m.InvitationTransitionsTotal, _ = meter.Int64Counter(
		"orgs.invitations.transitions.total",
		metric.WithDescription("Total number of invitation status transitions"),
		metric.WithUnit("{invitation}"),
	)

	m.InvitationsExpiredTotal, _ = meter.Int64Counter(
		"orgs.invitations.expired.total",
		metric.WithDescription("Total number of pending invitations moved to expired by the sweeper"),
		metric.WithUnit("{invitation}"),
	)

	m.OwnershipTransfersTotal, _ = meter.Int64Counter(
		"orgs.ownership.transfers.total",
		metric.WithDescription("Total number of completed organization ownership transfers"),
		metric.WithUnit("{transfer}"),
	)

	m.SweepDuration, _ = meter.Float64Histogram(
		"orgs.sweeps.duration",
		metric.WithDescription("Duration of expired invitation sweeps"),
		metric.WithUnit("ms"),
	)

	return m
}
