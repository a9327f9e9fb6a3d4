package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for unique constraint conflicts.
const uniqueViolation = "23505"

var _ UserStore = (*PGUsers)(nil)

// PGUsers implements UserStore using PostgreSQL.
type PGUsers struct {
	db *sql.DB
}

func NewPGUsers(db *sql.DB) *PGUsers {
	return &PGUsers{db: db}
}

func (s *PGUsers) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, username, password_hash, email, full_name, role, created_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Username, u.PasswordHash, u.Email, u.FullName, u.Role, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *PGUsers) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, username, email, full_name, role, created_at from users where id=$1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, username, password_hash, email, full_name, role, created_at
		 from users where username=$1`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGUsers) ListByRole(ctx context.Context, role string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, username, email, full_name, role, created_at
		 from users where role=$1 order by full_name`, NormalizeRole(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
