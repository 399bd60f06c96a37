package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/estorehq/estore/internal/domain"
)

type UserRepository struct {
	db *sql.DB
}

const userColumns = `id, first_name, last_name, username, email, password_hash, is_admin, created_at`

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	const q = `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.FirstName, u.LastName, u.Username, u.Email,
		u.PasswordHash, boolToInt(u.IsAdmin), formatTime(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return domain.E(domain.KindConflict, "a user with this username or e-mail already exists")
	}
	if err != nil {
		return fmt.Errorf("sqlite: create user %q: %w", u.Username, err)
	}
	return nil
}

func (r *UserRepository) ByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, username))
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

func (r *UserRepository) All(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	const q = `
		UPDATE users
		SET first_name = ?, last_name = ?, username = ?, email = ?,
		    password_hash = ?, is_admin = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q,
		u.FirstName, u.LastName, u.Username, u.Email,
		u.PasswordHash, boolToInt(u.IsAdmin), u.ID,
	)
	if isUniqueViolation(err) {
		return domain.E(domain.KindConflict, "a user with this username or e-mail already exists")
	}
	if err != nil {
		return fmt.Errorf("sqlite: update user %q: %w", u.ID, err)
	}
	return requireRow(res, "user", u.ID)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete user %q: %w", id, err)
	}
	return requireRow(res, "user", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanOne(row rowScanner) (*domain.User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var isAdmin int
	var createdAt string
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
		&u.PasswordHash, &isAdmin, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan user: %w", err)
	}
	u.IsAdmin = isAdmin != 0
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// requireRow turns a zero-row update/delete into a NotFound error.
func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return domain.E(domain.KindNotFound, "%s %s not found", entity, id)
	}
	return nil
}
