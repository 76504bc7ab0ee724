package store

// Stores bundles the stores of one backend. All four share a connection
// pool (or lock) so multi-entity operations stay transactional.
type Stores struct {
	Organizations OrganizationStore
	Members       MemberStore
	Invitations   InvitationStore
	Principals    PrincipalStore
}
