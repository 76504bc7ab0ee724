package policy

// Action names an operation gated by an organization's permissions policy.
// The string value is the key used in a version 1 statement.
type Action string

const (
	ActionGetOrganization          Action = "get_organization"
	ActionGetSubOrganizationSet    Action = "get_sub_organization_set"
	ActionCreateSubOrganization    Action = "create_sub_organization"
	ActionMoveOrganization         Action = "move_organization"
	ActionUpdateOrganizationPolicy Action = "update_organization_policy"
	ActionDeleteOrganization       Action = "delete_organization"

	ActionGetMemberSet           Action = "get_member_set"
	ActionGetMember              Action = "get_member"
	ActionUpdateMemberPermission Action = "update_member_permission"

	ActionGetInvitationSet           Action = "get_invitation_set"
	ActionGetInvitation              Action = "get_invitation"
	ActionCreateInvitation           Action = "create_invitation"
	ActionUpdateInvitationPermission Action = "update_invitation_permission"
	ActionCancelInvitation           Action = "cancel_invitation"
)

// Actions lists every gated action.
var Actions = []Action{
	ActionGetOrganization,
	ActionGetSubOrganizationSet,
	ActionCreateSubOrganization,
	ActionMoveOrganization,
	ActionUpdateOrganizationPolicy,
	ActionDeleteOrganization,
	ActionGetMemberSet,
	ActionGetMember,
	ActionUpdateMemberPermission,
	ActionGetInvitationSet,
	ActionGetInvitation,
	ActionCreateInvitation,
	ActionUpdateInvitationPermission,
	ActionCancelInvitation,
}

func (a Action) String() string { return string(a) }
