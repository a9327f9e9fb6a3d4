package ticket

import "deskflow.io/internal/auth"

// Filter is the declarative row-visibility predicate for ticket listing.
// The zero value matches every ticket (team-lead view). The storage layer
// evaluates the same predicate that Matches expresses, so the policy is
// testable without a database.
type Filter struct {
	// CreatedBy restricts the listing to tickets created by this user.
	CreatedBy string
	// AssignedTo restricts the listing to tickets assigned to this user.
	AssignedTo string
	// IncludeOpenPool additionally admits any ticket with status=open,
	// regardless of assignment. IT staff see the open pool so they can pick
	// up unassigned work.
	IncludeOpenPool bool
}

// ListFilter maps (role, userId) to the visibility predicate for listing.
//
//	employee:  tickets they created
//	it_staff:  tickets assigned to them, plus the open pool
//	team_lead: everything
func ListFilter(role, userID string) Filter {
	switch role {
	case auth.RoleEmployee:
		return Filter{CreatedBy: userID}
	case auth.RoleITStaff:
		return Filter{AssignedTo: userID, IncludeOpenPool: true}
	default:
		return Filter{}
	}
}

// Matches reports whether t is visible under the filter.
func (f Filter) Matches(t *Ticket) bool {
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	if f.AssignedTo != "" {
		if t.AssignedTo == f.AssignedTo {
			return true
		}
		return f.IncludeOpenPool && t.Status == StatusOpen
	}
	return true
}

// CanAssign reports whether the role may assign tickets.
func CanAssign(role string) bool {
	return role == auth.RoleTeamLead
}

// CanUpdateStatus decides whether the actor may change the ticket's status.
// Team leads may update any ticket; IT staff only tickets assigned to them;
// employees only tickets they created.
func CanUpdateStatus(role, userID string, t *Ticket) bool {
	switch role {
	case auth.RoleTeamLead:
		return true
	case auth.RoleITStaff:
		return t.AssignedTo == userID
	case auth.RoleEmployee:
		return t.CreatedBy == userID
	}
	return false
}
