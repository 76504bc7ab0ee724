package memory

import (
	"bytes"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// database holds every table of the in-memory backend behind a single lock so
// operations spanning organizations, members and invitations stay atomic.
// This implementation is for testing only - data is lost on restart.
type database struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization // org_id -> Organization
	members       map[uuid.UUID]*models.Member       // member_id -> Member
	invitations   map[uuid.UUID]*models.Invitation   // invitation_id -> Invitation
	principals    map[uuid.UUID]*models.Principal    // principal_id -> Principal
}

// New creates an empty in-memory backend and returns its stores.
func New() store.Stores {
	db := &database{
		organizations: make(map[uuid.UUID]*models.Organization),
		members:       make(map[uuid.UUID]*models.Member),
		invitations:   make(map[uuid.UUID]*models.Invitation),
		principals:    make(map[uuid.UUID]*models.Principal),
	}

	return store.Stores{
		Organizations: &OrganizationStore{db: db},
		Members:       &MemberStore{db: db},
		Invitations:   &InvitationStore{db: db},
		Principals:    &PrincipalStore{db: db},
	}
}

// memberOf returns the member row for a principal in an organization. Caller holds the lock.
func (db *database) memberOf(orgID, principalID uuid.UUID) *models.Member {
	for _, m := range db.members {
		if m.OrgID == orgID && m.PrincipalID == principalID {
			return m
		}
	}
	return nil
}

func cloneOrganization(org *models.Organization) *models.Organization {
	clone := *org
	if org.SuperOrgID != nil {
		parent := *org.SuperOrgID
		clone.SuperOrgID = &parent
	}
	clone.PermissionsPolicy = bytes.Clone(org.PermissionsPolicy)
	return &clone
}

func cloneMember(m *models.Member) *models.Member {
	clone := *m
	if m.InvitationID != nil {
		invitationID := *m.InvitationID
		clone.InvitationID = &invitationID
	}
	return &clone
}

func cloneInvitation(inv *models.Invitation) *models.Invitation {
	clone := *inv
	return &clone
}

// compareCreated orders rows oldest first, breaking ties on ID.
func compareCreated(aCreated time.Time, aID uuid.UUID, bCreated time.Time, bID uuid.UUID) int {
	if c := aCreated.Compare(bCreated); c != 0 {
		return c
	}
	return bytes.Compare(aID[:], bID[:])
}

func sortOrganizations(orgs []*models.Organization) {
	slices.SortFunc(orgs, func(a, b *models.Organization) int {
		return compareCreated(a.CreatedAt, a.OrgID, b.CreatedAt, b.OrgID)
	})
}
