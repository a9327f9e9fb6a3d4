package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"deskflow.io/internal/ids"
	"deskflow.io/internal/ticket"
)

const foreignKeyViolation = "23503"

// Store implements ticket.Service using PostgreSQL. Display names are
// resolved with lookup joins against the users table, so no extra round
// trips are needed per row.
type Store struct {
	db *sql.DB
}

var _ ticket.Service = (*Store)(nil)

// Open connects to Postgres via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Create(ctx context.Context, t *ticket.Ticket) (ticket.Ticket, error) {
	if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Description) == "" || strings.TrimSpace(t.Category) == "" {
		return ticket.Ticket{}, fmt.Errorf("%w: title, description and category are required", ticket.ErrInvalidInput)
	}
	if t.CreatedBy == "" {
		return ticket.Ticket{}, fmt.Errorf("%w: creator is required", ticket.ErrInvalidInput)
	}
	priority := t.Priority
	if priority == "" {
		priority = ticket.PriorityMedium
	}
	if !ticket.ValidPriority(priority) {
		return ticket.Ticket{}, fmt.Errorf("%w: unknown priority %q", ticket.ErrInvalidInput, priority)
	}

	id := ids.New()
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `
		insert into tickets(id, title, description, category, priority, status, created_by)
		values ($1,$2,$3,$4,$5,'open',$6)
		returning created_at
	`, id, t.Title, t.Description, t.Category, priority, t.CreatedBy).Scan(&createdAt)
	if err != nil {
		return ticket.Ticket{}, err
	}

	return ticket.Ticket{
		ID:          id,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    priority,
		Status:      ticket.StatusOpen,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   createdAt,
	}, nil
}

// filterSQL renders the visibility predicate as a WHERE clause. The policy
// stays a pure function in the ticket package; this is its SQL evaluation.
func filterSQL(f ticket.Filter) (string, []any) {
	var (
		conds []any
		where string
	)
	switch {
	case f.CreatedBy != "":
		where = "where t.created_by = $1"
		conds = append(conds, f.CreatedBy)
	case f.AssignedTo != "" && f.IncludeOpenPool:
		where = "where (t.assigned_to = $1 or t.status = 'open')"
		conds = append(conds, f.AssignedTo)
	case f.AssignedTo != "":
		where = "where t.assigned_to = $1"
		conds = append(conds, f.AssignedTo)
	}
	return where, conds
}

func (s *Store) List(ctx context.Context, f ticket.Filter) ([]ticket.Ticket, error) {
	where, args := filterSQL(f)
	rows, err := s.db.QueryContext(ctx, `
		select t.id, t.title, t.description, t.category, t.priority, t.status,
		       t.created_by, u1.full_name,
		       t.assigned_to, u2.full_name,
		       t.assigned_by, t.resolution_notes,
		       t.created_at, t.resolved_at
		from tickets t
		left join users u1 on t.created_by = u1.id
		left join users u2 on t.assigned_to = u2.id
		`+where+`
		order by t.created_at desc
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (ticket.Ticket, error) {
	var (
		t            ticket.Ticket
		creatorName  sql.NullString
		assignedTo   sql.NullString
		assigneeName sql.NullString
		assignedBy   sql.NullString
		notes        sql.NullString
		resolvedAt   sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status,
		&t.CreatedBy, &creatorName, &assignedTo, &assigneeName, &assignedBy, &notes,
		&t.CreatedAt, &resolvedAt)
	if err != nil {
		return ticket.Ticket{}, err
	}
	t.CreatorName = creatorName.String
	t.AssignedTo = assignedTo.String
	t.AssigneeName = assigneeName.String
	t.AssignedBy = assignedBy.String
	t.ResolutionNotes = notes.String
	if resolvedAt.Valid {
		at := resolvedAt.Time
		t.ResolvedAt = &at
	}
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (ticket.Ticket, error) {
	var (
		t            ticket.Ticket
		creatorName  sql.NullString
		assignedTo   sql.NullString
		assigneeName sql.NullString
		assignedBy   sql.NullString
		assignerName sql.NullString
		notes        sql.NullString
		resolvedAt   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select t.id, t.title, t.description, t.category, t.priority, t.status,
		       t.created_by, u1.full_name,
		       t.assigned_to, u2.full_name,
		       t.assigned_by, u3.full_name,
		       t.resolution_notes, t.created_at, t.resolved_at
		from tickets t
		left join users u1 on t.created_by = u1.id
		left join users u2 on t.assigned_to = u2.id
		left join users u3 on t.assigned_by = u3.id
		where t.id = $1
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status,
		&t.CreatedBy, &creatorName, &assignedTo, &assigneeName, &assignedBy, &assignerName,
		&notes, &t.CreatedAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	if err != nil {
		return ticket.Ticket{}, err
	}
	t.CreatorName = creatorName.String
	t.AssignedTo = assignedTo.String
	t.AssigneeName = assigneeName.String
	t.AssignedBy = assignedBy.String
	t.AssignerName = assignerName.String
	t.ResolutionNotes = notes.String
	if resolvedAt.Valid {
		at := resolvedAt.Time
		t.ResolvedAt = &at
	}
	return t, nil
}

func (s *Store) Assign(ctx context.Context, ticketID, assigneeID, assignerID string) error {
	if assigneeID == "" || assignerID == "" {
		return fmt.Errorf("%w: assignee and assigner are required", ticket.ErrInvalidInput)
	}
	// Single-statement update: both assignment fields and the status change
	// land atomically. Last writer wins on concurrent assignment.
	res, err := s.db.ExecContext(ctx, `
		update tickets set assigned_to = $1, assigned_by = $2, status = 'assigned'
		where id = $3
	`, assigneeID, assignerID, ticketID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) UpdateStatus(ctx context.Context, ticketID, status, notes string) error {
	if !ticket.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ticket.ErrInvalidInput, status)
	}
	if status == ticket.StatusResolved {
		if strings.TrimSpace(notes) == "" {
			return ticket.ErrNotesRequired
		}
		res, err := s.db.ExecContext(ctx, `
			update tickets set status = $1, resolution_notes = $2, resolved_at = now()
			where id = $3
		`, status, notes, ticketID)
		if err != nil {
			return err
		}
		return requireRow(res)
	}
	res, err := s.db.ExecContext(ctx, `update tickets set status = $1 where id = $2`, status, ticketID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) AddComment(ctx context.Context, ticketID, userID, body string) (ticket.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return ticket.Comment{}, fmt.Errorf("%w: comment body is required", ticket.ErrInvalidInput)
	}
	id := ids.New()
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `
		insert into ticket_comments(id, ticket_id, user_id, comment)
		values ($1,$2,$3,$4)
		returning created_at
	`, id, ticketID, userID, body).Scan(&createdAt)
	if err != nil {
		// The foreign key on ticket_id rejects comments on missing tickets.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ticket.Comment{}, ticket.ErrNotFound
		}
		return ticket.Comment{}, err
	}
	return ticket.Comment{
		ID:        id,
		TicketID:  ticketID,
		UserID:    userID,
		Body:      body,
		CreatedAt: createdAt,
	}, nil
}

func (s *Store) Comments(ctx context.Context, ticketID string) ([]ticket.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select c.id, c.ticket_id, c.user_id, u.full_name, c.comment, c.created_at
		from ticket_comments c
		join users u on c.user_id = u.id
		where c.ticket_id = $1
		order by c.created_at asc
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ticket.Comment
	for rows.Next() {
		var c ticket.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.UserID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ticket.ErrNotFound
	}
	return nil
}
