package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/digkill/vidcrafter/internal/models"
)

var ErrDuplicateEmail = errors.New("email already registered")

const userColumns = `id, email, password_hash, coupon_balance, is_admin, cartoon_videos_generated, created_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *sqlx.DB {
	return r.db
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	var u models.User
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	var u models.User
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
INSERT INTO users (id, email, password_hash, coupon_balance, is_admin, cartoon_videos_generated, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.CouponBalance, user.IsAdmin, user.CartoonVideosGenerated, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Balance returns the user's coupon balance; found is false for unknown users.
func (r *UserRepository) Balance(ctx context.Context, q Querier, userID string) (balance int, found bool, err error) {
	query := q.Rebind(`SELECT coupon_balance FROM users WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &balance, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get coupon balance: %w", err)
	}
	return balance, true, nil
}

// AddCredits increments the balance in a single statement so concurrent credits never lose updates.
func (r *UserRepository) AddCredits(ctx context.Context, q Querier, userID string, amount int) (bool, error) {
	query := q.Rebind(`UPDATE users SET coupon_balance = coupon_balance + ? WHERE id = ?`)
	res, err := q.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return false, fmt.Errorf("add coupon credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("credit rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *UserRepository) IncrementCartoonCount(ctx context.Context, q Querier, userID string) error {
	query := q.Rebind(`UPDATE users SET cartoon_videos_generated = cartoon_videos_generated + 1 WHERE id = ?`)
	if _, err := q.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("increment cartoon count: %w", err)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
