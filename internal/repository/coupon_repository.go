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

var ErrDuplicateCode = errors.New("coupon code already exists")

const couponColumns = `id, code, value, used, used_by_user, created_by_admin, created_at`

type CouponRepository struct {
	db *sqlx.DB
}

func NewCouponRepository(db *sqlx.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) DB() *sqlx.DB {
	return r.db
}

func (r *CouponRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := r.db.Rebind(`SELECT 1 FROM coupons WHERE code = ?`)
	var dummy int
	if err := r.db.GetContext(ctx, &dummy, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check coupon code: %w", err)
	}
	return true, nil
}

// Create inserts an unused coupon. A code collision with an existing row yields ErrDuplicateCode.
func (r *CouponRepository) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if coupon.ID == "" {
		coupon.ID = uuid.NewString()
	}
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = time.Now().UTC()
	}
	coupon.Used = false
	coupon.UsedByUser = nil

	query := r.db.Rebind(`
INSERT INTO coupons (id, code, value, used, used_by_user, created_by_admin, created_at)
VALUES (?, ?, ?, ?, NULL, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, coupon.ID, coupon.Code, coupon.Value, false, coupon.CreatedByAdmin, coupon.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

func (r *CouponRepository) GetByID(ctx context.Context, q Querier, id string) (*models.Coupon, error) {
	query := q.Rebind(`SELECT ` + couponColumns + ` FROM coupons WHERE id = ?`)
	var c models.Coupon
	if err := sqlx.GetContext(ctx, q, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by id: %w", err)
	}
	return &c, nil
}

func (r *CouponRepository) GetByCode(ctx context.Context, q Querier, code string) (*models.Coupon, error) {
	query := q.Rebind(`SELECT ` + couponColumns + ` FROM coupons WHERE code = ?`)
	var c models.Coupon
	if err := sqlx.GetContext(ctx, q, &c, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}
	return &c, nil
}

// MarkUsed flips the coupon to used only if it is still unused. It reports
// false when another redemption won the race.
func (r *CouponRepository) MarkUsed(ctx context.Context, q Querier, couponID, usedBy string) (bool, error) {
	query := q.Rebind(`
UPDATE coupons SET used = ?, used_by_user = ?
WHERE id = ? AND used = ?`)
	res, err := q.ExecContext(ctx, query, true, usedBy, couponID, false)
	if err != nil {
		return false, fmt.Errorf("mark coupon used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("coupon rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *CouponRepository) RecordUsage(ctx context.Context, q Querier, usage *models.CouponUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.NewString()
	}
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now().UTC()
	}
	query := q.Rebind(`
INSERT INTO coupon_usages (id, user_id, coupon_id, created_at)
VALUES (?, ?, ?, ?)`)
	if _, err := q.ExecContext(ctx, query, usage.ID, usage.UserID, usage.CouponID, usage.CreatedAt); err != nil {
		return fmt.Errorf("record coupon usage: %w", err)
	}
	return nil
}

func (r *CouponRepository) ListUsages(ctx context.Context, couponID string) ([]models.CouponUsage, error) {
	query := r.db.Rebind(`
SELECT id, user_id, coupon_id, created_at FROM coupon_usages
WHERE coupon_id = ?
ORDER BY created_at ASC`)
	usages := []models.CouponUsage{}
	if err := r.db.SelectContext(ctx, &usages, query, couponID); err != nil {
		return nil, fmt.Errorf("list coupon usages: %w", err)
	}
	return usages, nil
}

// Delete removes the coupon and its usage records; found is false if no coupon matched.
func (r *CouponRepository) Delete(ctx context.Context, q Querier, id string) (bool, error) {
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM coupon_usages WHERE coupon_id = ?`), id); err != nil {
		return false, fmt.Errorf("delete coupon usages: %w", err)
	}
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM coupons WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete coupon: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete coupon rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns coupons newest first.
func (r *CouponRepository) List(ctx context.Context, limit int) ([]models.Coupon, error) {
	query := r.db.Rebind(`SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id DESC LIMIT ?`)
	coupons := []models.Coupon{}
	if err := r.db.SelectContext(ctx, &coupons, query, limit); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

func (r *CouponRepository) CountUsed(ctx context.Context) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM coupons WHERE used = ?`)
	var count int
	if err := r.db.GetContext(ctx, &count, query, true); err != nil {
		return 0, fmt.Errorf("count used coupons: %w", err)
	}
	return count, nil
}
