package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/digkill/vidcrafter/internal/database/dbtest"
	"github.com/digkill/vidcrafter/internal/metrics"
	"github.com/digkill/vidcrafter/internal/repository"
	"github.com/digkill/vidcrafter/internal/service"
)

func setup(t *testing.T) (*repository.UserRepository, *repository.CouponRepository, *service.CouponService, *slog.Logger) {
	t.Helper()
	db := dbtest.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := repository.NewUserRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	coupons := service.NewCouponService(couponRepo, service.NewLedger(users), log, metrics.New(prometheus.NewRegistry()), nil)
	return users, couponRepo, coupons, log
}

func TestRunCreatesAdminAndCoupons(t *testing.T) {
	users, couponRepo, coupons, log := setup(t)
	ctx := context.Background()

	res, err := Run(ctx, log, users, coupons, "admin@vidcrafter.com", "s3cret")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.Admin.IsAdmin)
	assert.Equal(t, 100, res.Admin.CouponBalance)
	require.Len(t, res.Coupons, 4)

	stored, err := users.FindByEmail(ctx, "admin@vidcrafter.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))

	listed, err := couponRepo.List(ctx, 10)
	require.NoError(t, err)
	values := make([]int, 0, len(listed))
	for _, c := range listed {
		values = append(values, c.Value)
		assert.Equal(t, "admin@vidcrafter.com", c.CreatedByAdmin)
	}
	assert.ElementsMatch(t, []int{1, 3, 5, 10}, values)
}

func TestRunIsIdempotent(t *testing.T) {
	users, couponRepo, coupons, log := setup(t)
	ctx := context.Background()

	_, err := Run(ctx, log, users, coupons, "admin@vidcrafter.com", "s3cret")
	require.NoError(t, err)

	res, err := Run(ctx, log, users, coupons, "admin@vidcrafter.com", "")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Empty(t, res.Coupons)

	listed, err := couponRepo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 4)
}

func TestRunRequiresPassword(t *testing.T) {
	users, _, coupons, log := setup(t)

	_, err := Run(context.Background(), log, users, coupons, "admin@vidcrafter.com", "")
	assert.Error(t, err)

	count, err := users.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
