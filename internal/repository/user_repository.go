package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/account-service/internal/domain"
)

const uniqueViolation = "23505"

// ErrDuplicateEmail is returned by Insert when the email is already taken.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines persistence access for user accounts.
type UserRepository interface {
	// QueryByEmail returns every row matching email. More than one row is a data-integrity problem the caller must reject.
	QueryByEmail(ctx context.Context, email string) ([]domain.User, error)
	Insert(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	// DeleteWithRollback runs the delete inside an explicit transaction.
	DeleteWithRollback(ctx context.Context, id int64) (int64, error)
}

type userRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewUserRepository returns a Postgres-backed implementation. A non-positive timeout disables the per-statement deadline.
func NewUserRepository(db *sql.DB, timeout time.Duration) UserRepository {
	return &userRepository{db: db, timeout: timeout}
}

func (r *userRepository) QueryByEmail(ctx context.Context, email string) ([]domain.User, error) {
	const query = `
        SELECT id, name, email, age, password_hash, created_at, updated_at
        FROM users WHERE email=$1`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Age,
			&user.PasswordHash,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Insert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, age, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.Age,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) (int64, error) {
	const query = `
        UPDATE users SET name=$1, age=$2, updated_at=NOW()
        WHERE id=$3`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, user.Name, user.Age, user.ID)
	if err != nil {
		return 0, fmt.Errorf("update user: %w", err)
	}
	return res.RowsAffected()
}

func (r *userRepository) Delete(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return deleteUser(ctx, r.db, id)
}

func (r *userRepository) DeleteWithRollback(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var affected int64
	err := withTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		n, err := deleteUser(ctx, tx, id)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func deleteUser(ctx context.Context, db DBTX, id int64) (int64, error) {
	const query = `DELETE FROM users WHERE id=$1`

	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	return res.RowsAffected()
}
