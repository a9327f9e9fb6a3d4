package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"deskflow.io/internal/ticket"
)

func ticketColumns() []string {
	return []string{
		"id", "title", "description", "category", "priority", "status",
		"created_by", "creator_name", "assigned_to", "assignee_name",
		"assigned_by", "resolution_notes", "created_at", "resolved_at",
	}
}

func TestListEmployeeFiltersByCreator(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Now().UTC()
	rows := sqlmock.NewRows(ticketColumns()).
		AddRow("t-1", "VPN down", "desc", "network", "medium", "open",
			"emp-1", "Avery Employee", nil, nil, nil, nil, created, nil)
	mock.ExpectQuery(`where t.created_by = \$1`).WithArgs("emp-1").WillReturnRows(rows)

	store := New(db)
	list, err := store.List(context.Background(), ticket.ListFilter("employee", "emp-1"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].CreatorName != "Avery Employee" {
		t.Fatalf("unexpected listing: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListITStaffIncludesOpenPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Now().UTC()
	rows := sqlmock.NewRows(ticketColumns()).
		AddRow("t-2", "Printer jam", "desc", "hardware", "high", "assigned",
			"emp-1", "Avery Employee", "staff-1", "Sam Staff", "lead-1", nil, created, nil)
	mock.ExpectQuery(`where \(t.assigned_to = \$1 or t.status = 'open'\)`).
		WithArgs("staff-1").WillReturnRows(rows)

	store := New(db)
	list, err := store.List(context.Background(), ticket.ListFilter("it_staff", "staff-1"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].AssigneeName != "Sam Staff" {
		t.Fatalf("unexpected listing: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssignMissingTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update tickets set assigned_to").
		WithArgs("staff-1", "lead-1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := New(db)
	if err := store.Assign(context.Background(), "ghost", "staff-1", "lead-1"); !errors.Is(err, ticket.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusResolvedWritesNotesAndTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`update tickets set status = \$1, resolution_notes = \$2, resolved_at = now\(\)`).
		WithArgs("resolved", "replaced the cable", "t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := New(db)
	if err := store.UpdateStatus(context.Background(), "t-1", ticket.StatusResolved, "replaced the cable"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusResolvedWithoutNotes(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := New(db)
	err = store.UpdateStatus(context.Background(), "t-1", ticket.StatusResolved, "")
	if !errors.Is(err, ticket.ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired, got %v", err)
	}
}

func TestUpdateStatusPlain(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`update tickets set status = \$1 where id = \$2`).
		WithArgs("in_progress", "t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := New(db)
	if err := store.UpdateStatus(context.Background(), "t-1", ticket.StatusInProgress, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
}

func TestAddCommentMapsForeignKeyToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	pgErr := &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: "ticket_comments_ticket_id_fkey"}
	mock.ExpectQuery("insert into ticket_comments").
		WithArgs(sqlmock.AnyArg(), "ghost", "emp-1", "hello").
		WillReturnError(pgErr)

	store := New(db)
	if _, err := store.AddComment(context.Background(), "ghost", "emp-1", "hello"); !errors.Is(err, ticket.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommentsOrderedOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	base := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "ticket_id", "user_id", "full_name", "comment", "created_at"}).
		AddRow("c-1", "t-1", "emp-1", "Avery Employee", "any update?", base).
		AddRow("c-2", "t-1", "staff-1", "Sam Staff", "on it", base.Add(time.Minute))
	mock.ExpectQuery("order by c.created_at asc").WithArgs("t-1").WillReturnRows(rows)

	store := New(db)
	comments, err := store.Comments(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 2 || comments[0].AuthorName != "Avery Employee" {
		t.Fatalf("unexpected comments: %+v", comments)
	}
}
