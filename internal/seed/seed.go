// Package seed bootstraps an empty database with an admin account and sample coupons.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/repository"
	"github.com/digkill/vidcrafter/internal/service"
)

const adminStartingBalance = 100

var sampleCouponValues = []int{1, 3, 5, 10}

type Result struct {
	Admin   *models.User
	Created bool
	Coupons []*models.Coupon
}

// Run creates the admin and sample coupons. An existing admin is left untouched
// and no coupons are issued.
func Run(ctx context.Context, log *slog.Logger, users *repository.UserRepository, coupons *service.CouponService, email, password string) (*Result, error) {
	if email == "" {
		return nil, errors.New("admin email is required")
	}

	existing, err := users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Info("admin user already exists", "email", email)
		return &Result{Admin: existing}, nil
	}

	if password == "" {
		return nil, errors.New("SEED_ADMIN_PASSWORD is required to create the admin user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	admin, err := users.Create(ctx, &models.User{
		Email:         email,
		PasswordHash:  string(hash),
		IsAdmin:       true,
		CouponBalance: adminStartingBalance,
	})
	if err != nil {
		return nil, err
	}
	log.Info("admin user created", "email", admin.Email, "user_id", admin.ID)

	res := &Result{Admin: admin, Created: true}
	for _, value := range sampleCouponValues {
		coupon, err := coupons.Create(ctx, value, admin.Email)
		if err != nil {
			return nil, fmt.Errorf("create sample coupon: %w", err)
		}
		log.Info("sample coupon created", "code", coupon.Code, "value", coupon.Value)
		res.Coupons = append(res.Coupons, coupon)
	}
	return res, nil
}
