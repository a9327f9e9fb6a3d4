package ticket

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"deskflow.io/internal/ids"
)

// InMemory implements Service with in-process concurrency safety. It backs
// handler tests and local development without Postgres.
type InMemory struct {
	mu       sync.RWMutex
	tickets  map[string]*Ticket
	comments map[string][]Comment
	dir      Directory
	now      func() time.Time
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty store. dir may be nil, in which case display
// names are left blank.
func NewInMemory(dir Directory) *InMemory {
	return &InMemory{
		tickets:  make(map[string]*Ticket),
		comments: make(map[string][]Comment),
		dir:      dir,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Only intended for test use.
func (s *InMemory) SetClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

func (s *InMemory) resolveName(ctx context.Context, userID string) string {
	if s.dir == nil || userID == "" {
		return ""
	}
	name, err := s.dir.DisplayName(ctx, userID)
	if err != nil {
		return ""
	}
	return name
}

func (s *InMemory) Create(ctx context.Context, t *Ticket) (Ticket, error) {
	if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Description) == "" || strings.TrimSpace(t.Category) == "" {
		return Ticket{}, fmt.Errorf("%w: title, description and category are required", ErrInvalidInput)
	}
	if t.CreatedBy == "" {
		return Ticket{}, fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}
	priority := t.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return Ticket{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := Ticket{
		ID:          ids.New(),
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    priority,
		Status:      StatusOpen,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   s.now().UTC(),
	}
	s.tickets[stored.ID] = &stored

	out := stored
	out.CreatorName = s.resolveName(ctx, out.CreatedBy)
	return out, nil
}

func (s *InMemory) List(ctx context.Context, f Filter) ([]Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Ticket
	for _, t := range s.tickets {
		if !f.Matches(t) {
			continue
		}
		cp := *t
		cp.CreatorName = s.resolveName(ctx, cp.CreatedBy)
		cp.AssigneeName = s.resolveName(ctx, cp.AssignedTo)
		out = append(out, cp)
	}
	// Most recent first; ULIDs tie-break equal timestamps in creation order.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Ticket, error) {
	s.mu.RLock()
	t, ok := s.tickets[id]
	if !ok {
		s.mu.RUnlock()
		return Ticket{}, ErrNotFound
	}
	cp := *t
	s.mu.RUnlock()

	cp.CreatorName = s.resolveName(ctx, cp.CreatedBy)
	cp.AssigneeName = s.resolveName(ctx, cp.AssignedTo)
	cp.AssignerName = s.resolveName(ctx, cp.AssignedBy)
	return cp, nil
}

func (s *InMemory) Assign(ctx context.Context, ticketID, assigneeID, assignerID string) error {
	if assigneeID == "" || assignerID == "" {
		return fmt.Errorf("%w: assignee and assigner are required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return ErrNotFound
	}
	t.AssignedTo = assigneeID
	t.AssignedBy = assignerID
	t.Status = StatusAssigned
	return nil
}

func (s *InMemory) UpdateStatus(ctx context.Context, ticketID, status, notes string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if status == StatusResolved && strings.TrimSpace(notes) == "" {
		return ErrNotesRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	if status == StatusResolved {
		now := s.now().UTC()
		t.ResolutionNotes = notes
		t.ResolvedAt = &now
	}
	return nil
}

func (s *InMemory) AddComment(ctx context.Context, ticketID, userID, body string) (Comment, error) {
	if strings.TrimSpace(body) == "" {
		return Comment{}, fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[ticketID]; !ok {
		return Comment{}, ErrNotFound
	}
	c := Comment{
		ID:        ids.New(),
		TicketID:  ticketID,
		UserID:    userID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	s.comments[ticketID] = append(s.comments[ticketID], c)

	out := c
	out.AuthorName = s.resolveName(ctx, userID)
	return out, nil
}

func (s *InMemory) Comments(ctx context.Context, ticketID string) ([]Comment, error) {
	s.mu.RLock()
	list := make([]Comment, len(s.comments[ticketID]))
	copy(list, s.comments[ticketID])
	s.mu.RUnlock()

	// Append-only storage keeps these oldest first already.
	for i := range list {
		list[i].AuthorName = s.resolveName(ctx, list[i].UserID)
	}
	return list, nil
}
