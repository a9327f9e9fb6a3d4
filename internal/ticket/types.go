package ticket

import (
	"errors"
	"time"
)

// Ticket statuses. Lifecycle: open -> assigned -> in_progress -> resolved.
const (
	StatusOpen       = "open"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidStatus reports whether status is one of the four lifecycle states.
func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// ValidPriority reports whether priority is a known level.
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is a reported issue. Assignment fields are set together or not at
// all: AssignedTo and AssignedBy are both empty until a team lead assigns
// the ticket. ResolutionNotes and ResolvedAt are set only at resolution.
type Ticket struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	CreatedBy       string     `json:"created_by"`
	CreatorName     string     `json:"creator_name,omitempty"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	AssigneeName    string     `json:"assignee_name,omitempty"`
	AssignedBy      string     `json:"assigned_by,omitempty"`
	AssignerName    string     `json:"assigner_name,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// Comment is an append-only note on a ticket. AuthorName is resolved from
// the user directory for display.
type Comment struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"full_name,omitempty"`
	Body       string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrNotFound      = errors.New("ticket not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotesRequired = errors.New("resolution notes are required")
	ErrForbidden     = errors.New("not authorized for this ticket")
)
