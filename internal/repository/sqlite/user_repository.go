package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	authy_id TEXT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

const userColumns = `id, email, username, phone, password_hash, role, authy_id, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (email, username, phone, password_hash, role, authy_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.Username,
		user.Phone,
		user.PasswordHash,
		string(user.Role),
		nullString(user.AuthyID),
		toNanos(user.CreatedAt),
		toNanos(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.E(domain.KindConflict, "user already exists", err)
		}
		return 0, dataAccess("insert user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, dataAccess("user last insert id", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	// usernames may look like addresses, so anything with an @ is an email login
	if strings.Contains(login, "@") {
		return r.GetByEmail(ctx, strings.ToLower(login))
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, login)
	return scanUser(row)
}

func (r *UserRepository) GetByAuthyID(ctx context.Context, authyID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE authy_id = ?`, authyID)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, dataAccess("list users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("iterate users", err)
	}
	return users, nil
}

func (r *UserRepository) UpdateUsername(ctx context.Context, id int64, username string) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET username=?, updated_at=?
WHERE id=?`,
		username,
		toNanos(time.Now()),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.E(domain.KindConflict, "username already taken", err)
		}
		return nil, dataAccess("update username", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.E(domain.KindNotFound, "user not found", nil)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) SetTwoFactor(ctx context.Context, id int64, authyID, phone string) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET authy_id=?, phone=?, updated_at=?
WHERE id=? AND authy_id IS NULL`,
		authyID,
		phone,
		toNanos(time.Now()),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.E(domain.KindConflict, "two-factor handle already in use", err)
		}
		return nil, dataAccess("set two-factor", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, dataAccess("set two-factor rows affected", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.E(domain.KindAlreadyEnrolled, "user is already enrolled in two-factor verification", nil)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, dataAccess("delete user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dataAccess("delete user rows affected", err)
	}
	return n > 0, nil
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user      domain.User
		role      string
		authyID   sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Phone,
		&user.PasswordHash,
		&role,
		&authyID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, notFound("user", err)
	}
	user.Role = domain.Role(role)
	user.AuthyID = authyID.String
	user.CreatedAt = fromNanos(createdAt)
	user.UpdatedAt = fromNanos(updatedAt)
	return &user, nil
}
