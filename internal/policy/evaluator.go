// Package policy decides whether a principal may perform an action in an
// organization, given the organization's versioned permissions policy.
//
// Version 0 allows owners only. Version 1 maps action names to the minimum
// permission level they require; unmapped actions and actions mapped to 0 are
// open to everyone. Any other version denies every action.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// ErrPermissionDenied is returned when the policy rejects an action.
var ErrPermissionDenied = errors.New("permission denied")

// Decision is the outcome of evaluating a policy.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// MemberLookup resolves a principal's membership in an organization.
// It returns store.ErrMemberNotFound for non-members.
type MemberLookup interface {
	GetByPrincipal(ctx context.Context, orgID, principalID uuid.UUID) (*models.Member, error)
}

// Evaluator evaluates permissions policies. It holds no state of its own.
type Evaluator struct {
	members MemberLookup
}

// NewEvaluator creates an evaluator resolving memberships through members.
func NewEvaluator(members MemberLookup) *Evaluator {
	return &Evaluator{members: members}
}

// Decide evaluates raw for action on behalf of principalID in orgID.
// An error is returned only when the document is invalid or the membership
// lookup fails; a denial is reported through the Decision.
func (e *Evaluator) Decide(ctx context.Context, raw json.RawMessage, action Action, orgID, principalID uuid.UUID) (Decision, error) {
	doc, err := Parse(raw)
	if err != nil {
		return Denied, err
	}

	required, ok := doc.Requirement(action)
	if !ok {
		return Denied, nil
	}
	if required == models.PermissionLevelNone {
		return Allowed, nil
	}

	member, err := e.members.GetByPrincipal(ctx, orgID, principalID)
	if err != nil {
		if errors.Is(err, store.ErrMemberNotFound) {
			return Denied, nil
		}
		return Denied, fmt.Errorf("failed to resolve membership: %w", err)
	}

	if member.PermissionLevel >= required {
		return Allowed, nil
	}
	return Denied, nil
}

// Authorize is Decide with denial reported as ErrPermissionDenied.
func (e *Evaluator) Authorize(ctx context.Context, raw json.RawMessage, action Action, orgID, principalID uuid.UUID) error {
	decision, err := e.Decide(ctx, raw, action, orgID, principalID)
	if err != nil {
		return err
	}
	if decision == Denied {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, action)
	}
	return nil
}
