package ticket

import "context"

// Service defines ticket store operations. Two implementations exist: the
// Postgres store in internal/store/pg and the InMemory store below.
type Service interface {
	// Create persists a new ticket with status=open and no assignment.
	// Priority defaults to medium when empty.
	Create(ctx context.Context, t *Ticket) (Ticket, error)
	// List returns tickets visible under the filter, most recent first,
	// enriched with creator/assignee display names.
	List(ctx context.Context, f Filter) ([]Ticket, error)
	// Get returns a single ticket enriched with creator/assignee/assigner
	// display names. Any authenticated user may fetch any ticket by id.
	Get(ctx context.Context, id string) (Ticket, error)
	// Assign binds the ticket to an IT staff member, records who assigned
	// it, and moves the status to assigned. Both assignment fields are
	// written in one statement so they are never set one without the other.
	Assign(ctx context.Context, ticketID, assigneeID, assignerID string) error
	// UpdateStatus stores the new status. Transitioning to resolved requires
	// non-empty notes and stamps resolved_at atomically with the change;
	// resolving without notes is rejected with ErrNotesRequired.
	UpdateStatus(ctx context.Context, ticketID, status, notes string) error
	// AddComment appends a comment. The ticket must exist.
	AddComment(ctx context.Context, ticketID, userID, body string) (Comment, error)
	// Comments returns the ticket's comments oldest first with author names.
	Comments(ctx context.Context, ticketID string) ([]Comment, error)
}

// Directory resolves user ids to display names for enrichment. The Postgres
// store joins the users table instead; the in-memory store needs a resolver.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// DirectoryFunc adapts a function to the Directory interface.
type DirectoryFunc func(ctx context.Context, userID string) (string, error)

func (f DirectoryFunc) DisplayName(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}
