package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/todo-service/internal/domain"
)

// ErrEmailTaken is returned when another identity already owns the email.
var ErrEmailTaken = errors.New("email already registered to another user")

const uniqueViolation = "23505"

// UserRepository defines persistence access for task owners.
type UserRepository interface {
	// Create inserts the user unless a record with the same id exists. It reports
	// whether a row was written.
	Create(ctx context.Context, user *domain.User) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateSubscription(ctx context.Context, id string, isSubscribed bool, ends *time.Time) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, is_subscribed, subscription_ends, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) (bool, error) {
	const query = `
        INSERT INTO users (id, email, is_subscribed, subscription_ends)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO NOTHING
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.IsSubscribed,
		user.SubscriptionEnds,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case isUniqueViolation(err):
		return false, ErrEmailTaken
	default:
		return false, err
	}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) UpdateSubscription(ctx context.Context, id string, isSubscribed bool, ends *time.Time) (*domain.User, error) {
	query := `
        UPDATE users SET is_subscribed=$1, subscription_ends=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, isSubscribed, ends, id))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.IsSubscribed,
		&user.SubscriptionEnds,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
