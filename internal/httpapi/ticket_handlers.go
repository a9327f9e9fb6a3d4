package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"deskflow.io/internal/audit"
	"deskflow.io/internal/auth"
	"deskflow.io/internal/stream"
	"deskflow.io/internal/ticket"
)

type createTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

type assignTicketRequest struct {
	AssignedTo string `json:"assigned_to"`
}

type updateStatusRequest struct {
	Status          string `json:"status"`
	ResolutionNotes string `json:"resolution_notes"`
}

type addCommentRequest struct {
	Comment string `json:"comment"`
}

func (a *API) handleTicketsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTickets(w, r)
	case http.MethodPost:
		a.createTicket(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTicketResource dispatches /tickets/{id} and its sub-resources.
func (a *API) handleTicketResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/tickets/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "ticket not found")
		return
	}

	id, sub, _ := strings.Cut(rest, "/")
	switch sub {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getTicket(w, r, id)
	case "assign":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.assignTicket(w, r, id)
	case "status":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.updateTicketStatus(w, r, id)
	case "comments":
		switch r.Method {
		case http.MethodGet:
			a.listComments(w, r, id)
		case http.MethodPost:
			a.addComment(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	default:
		http.NotFound(w, r)
	}
}

func (a *API) createTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}

	var req createTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Category) == "" {
		writeError(w, r, http.StatusBadRequest, "title, description and category are required")
		return
	}

	created, err := a.tickets.Create(r.Context(), &ticket.Ticket{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Priority:    req.Priority,
		CreatedBy:   id.UserID,
	})
	if err != nil {
		handleTicketError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "ticket.created", map[string]any{
		"ticket_id": created.ID,
		"category":  created.Category,
		"priority":  created.Priority,
	})
	a.events.Publish(stream.TicketEvent{
		TicketID: created.ID,
		Action:   stream.ActionCreated,
		ActorID:  id.UserID,
		Status:   created.Status,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Ticket created successfully",
		"ticketId": created.ID,
	})
}

func (a *API) listTickets(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}

	tickets, err := a.tickets.List(r.Context(), ticket.ListFilter(id.Role, id.UserID))
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	if tickets == nil {
		tickets = []ticket.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

// getTicket returns the ticket together with its comment thread.
func (a *API) getTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	t, err := a.tickets.Get(r.Context(), ticketID)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	comments, err := a.tickets.Comments(r.Context(), ticketID)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	if comments == nil {
		comments = []ticket.Comment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":   t,
		"comments": comments,
	})
}

func (a *API) assignTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	if !ticket.CanAssign(id.Role) {
		writeError(w, r, http.StatusForbidden, "only team leads can assign tickets")
		return
	}

	var req assignTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.AssignedTo) == "" {
		writeError(w, r, http.StatusBadRequest, "assigned_to is required")
		return
	}

	assignee, err := a.users.Find(r.Context(), strings.TrimSpace(req.AssignedTo))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusBadRequest, "assignee not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if assignee.Role != auth.RoleITStaff {
		writeError(w, r, http.StatusBadRequest, "assignee must be IT staff")
		return
	}

	if err := a.tickets.Assign(r.Context(), ticketID, assignee.ID, id.UserID); err != nil {
		handleTicketError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "ticket.assigned", map[string]any{
		"ticket_id":   ticketID,
		"assigned_to": assignee.ID,
	})
	a.events.Publish(stream.TicketEvent{
		TicketID: ticketID,
		Action:   stream.ActionAssigned,
		ActorID:  id.UserID,
		Status:   ticket.StatusAssigned,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Ticket assigned successfully",
	})
}

func (a *API) updateTicketStatus(w http.ResponseWriter, r *http.Request, ticketID string) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, r, http.StatusBadRequest, "status is required")
		return
	}

	t, err := a.tickets.Get(r.Context(), ticketID)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	if !ticket.CanUpdateStatus(id.Role, id.UserID, &t) {
		writeError(w, r, http.StatusForbidden, "not authorized to update this ticket")
		return
	}

	if err := a.tickets.UpdateStatus(r.Context(), ticketID, req.Status, req.ResolutionNotes); err != nil {
		handleTicketError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "ticket.status_changed", map[string]any{
		"ticket_id": ticketID,
		"status":    req.Status,
	})
	a.events.Publish(stream.TicketEvent{
		TicketID: ticketID,
		Action:   stream.ActionStatusChanged,
		ActorID:  id.UserID,
		Status:   req.Status,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Ticket status updated successfully",
	})
}

func (a *API) addComment(w http.ResponseWriter, r *http.Request, ticketID string) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}

	var req addCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Comment) == "" {
		writeError(w, r, http.StatusBadRequest, "comment is required")
		return
	}

	comment, err := a.tickets.AddComment(r.Context(), ticketID, id.UserID, req.Comment)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "ticket.commented", map[string]any{
		"ticket_id":  ticketID,
		"comment_id": comment.ID,
	})
	a.events.Publish(stream.TicketEvent{
		TicketID: ticketID,
		Action:   stream.ActionCommented,
		ActorID:  id.UserID,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Comment added successfully",
		"commentId": comment.ID,
	})
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request, ticketID string) {
	comments, err := a.tickets.Comments(r.Context(), ticketID)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	if comments == nil {
		comments = []ticket.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func handleTicketError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "ticket not found")
	case errors.Is(err, ticket.ErrNotesRequired):
		writeError(w, r, http.StatusBadRequest, "resolution notes are required to resolve a ticket")
	case errors.Is(err, ticket.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ticket.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "not authorized for this ticket")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
