// Package orgs is the entry point for organization management. It composes
// the policy evaluator and the stores into organization, membership and
// invitation operations, and translates store failures into the error kinds
// in errors.go.
package orgs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/policy"
	"github.com/wolfeidau/orgs/internal/store"
	"github.com/wolfeidau/orgs/internal/telemetry"
)

const tracerName = "github.com/wolfeidau/orgs/internal/orgs"

// Service implements organization, membership and invitation operations.
// It is safe for concurrent use; atomicity of multi-row changes is delegated
// to the stores.
type Service struct {
	stores    store.Stores
	evaluator *policy.Evaluator
	now       func() time.Time
	tracer    trace.Tracer
	metrics   *telemetry.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service over the given stores.
func NewService(stores store.Stores, opts ...Option) *Service {
	s := &Service{
		stores:    stores,
		evaluator: policy.NewEvaluator(stores.Members),
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
		metrics:   telemetry.GetMetrics(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "orgs."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func newID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate id: %w", err)
	}
	return id, nil
}

// authorize evaluates the organization's stored policy for action.
func (s *Service) authorize(ctx context.Context, org *models.Organization, action policy.Action, principal *models.Principal) error {
	decision, err := s.evaluator.Decide(ctx, org.PermissionsPolicy, action, org.OrgID, principal.PrincipalID)
	if err != nil {
		return err
	}

	s.metrics.AuthorizationDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action.String()),
		attribute.String("decision", decision.String()),
	))

	if decision == policy.Denied {
		log.Debug().
			Str("org_id", org.OrgID.String()).
			Str("principal_id", principal.PrincipalID.String()).
			Str("action", action.String()).
			Msg("Action denied by policy")
		return fmt.Errorf("%w: %s", ErrPermissionDenied, action)
	}

	return nil
}

// loadOrganization fetches the organization an operation is scoped to.
// Write paths report a missing organization as an invalid argument.
func (s *Service) loadOrganization(ctx context.Context, orgID uuid.UUID, write bool) (*models.Organization, error) {
	if orgID == uuid.Nil {
		return nil, invalidArgumentf("organization id is required")
	}

	org, err := s.stores.Organizations.Get(ctx, orgID)
	if err != nil {
		if write {
			return nil, translateWriteError(err)
		}
		return nil, translateStoreError(err)
	}

	return org, nil
}

// scopeOf loads the organization whose policy governs entity.
func (s *Service) scopeOf(ctx context.Context, entity models.OrganizationScoped, write bool) (*models.Organization, error) {
	return s.loadOrganization(ctx, entity.OrganizationID(), write)
}

func hasLevel(entity models.Leveled, level models.PermissionLevel) bool {
	return entity.Level() == level
}

func validateLevel(level models.PermissionLevel) error {
	if !level.Valid() {
		return invalidArgumentf("permission level %d outside [%d, %d]",
			level, models.PermissionLevelNone, models.PermissionLevelOwner)
	}
	return nil
}
