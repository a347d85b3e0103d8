package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/digkill/vidcrafter/internal/database/dbtest"
	"github.com/digkill/vidcrafter/internal/metrics"
	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/repository"
)

type recordingNotifier struct {
	mu      sync.Mutex
	created int
	events  []int
}

func (n *recordingNotifier) CouponCreated(_ *models.Coupon) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created++
}

func (n *recordingNotifier) CouponRedeemed(_ *models.User, _ *models.Coupon, newBalance int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, newBalance)
}

type ServiceSuite struct {
	suite.Suite

	ctx         context.Context
	users       *repository.UserRepository
	couponRepo  *repository.CouponRepository
	generations *repository.GenerationRepository
	metrics     *metrics.Metrics
	notifier    *recordingNotifier

	ledger   *Ledger
	coupons  *CouponService
	gate     *UsageGate
	genLog   *GenerationService
	stats    *StatsService
	admin    *models.User
	customer *models.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	db := dbtest.New(s.T())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.users = repository.NewUserRepository(db)
	s.couponRepo = repository.NewCouponRepository(db)
	s.generations = repository.NewGenerationRepository(db)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.notifier = &recordingNotifier{}

	s.ledger = NewLedger(s.users)
	s.coupons = NewCouponService(s.couponRepo, s.ledger, log, s.metrics, s.notifier)
	s.gate = NewUsageGate(s.ledger, s.generations, DefaultFreeCartoonLimit, s.metrics)
	s.genLog = NewGenerationService(s.users, s.generations, log, s.metrics)
	s.stats = NewStatsService(s.users, s.couponRepo, s.generations)

	s.admin = s.createUser("admin@example.com", true, 0)
	s.customer = s.createUser("customer@example.com", false, 0)
}

func (s *ServiceSuite) createUser(email string, admin bool, balance int) *models.User {
	u, err := s.users.Create(s.ctx, &models.User{Email: email, IsAdmin: admin, CouponBalance: balance})
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) balance(userID string) int {
	b, err := s.ledger.GetBalance(s.ctx, userID)
	s.Require().NoError(err)
	return b
}

func (s *ServiceSuite) logCartoon(userID string, status models.GenerationStatus) {
	_, err := s.genLog.Log(s.ctx, userID, GenerationEntry{VideoType: models.VideoTypeCartoon, Status: status})
	s.Require().NoError(err)
}

func (s *ServiceSuite) fixedCodes(codes ...string) {
	i := 0
	s.coupons.newCode = func() (string, error) {
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func (s *ServiceSuite) TestCreditRoundTrip() {
	before := s.balance(s.customer.ID)

	after, err := s.ledger.Credit(s.ctx, s.customer.ID, 3)
	s.Require().NoError(err)
	s.Equal(before+3, after)
	s.Equal(after, s.balance(s.customer.ID))
}

func (s *ServiceSuite) TestCreditRejectsNonPositiveAmount() {
	for _, amount := range []int{0, -1} {
		_, err := s.ledger.Credit(s.ctx, s.customer.ID, amount)
		s.ErrorIs(err, ErrInvalidInput)
	}
	s.Equal(0, s.balance(s.customer.ID))
}

func (s *ServiceSuite) TestCreditUnknownUser() {
	_, err := s.ledger.Credit(s.ctx, "missing", 1)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.ledger.GetBalance(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestCreateCoupon() {
	coupon, err := s.coupons.Create(s.ctx, 5, s.admin.Email)
	s.Require().NoError(err)

	s.Len(coupon.Code, couponCodeLength)
	s.Regexp(`^[A-Z0-9]{12}$`, coupon.Code)
	s.Equal(5, coupon.Value)
	s.False(coupon.Used)
	s.Nil(coupon.UsedByUser)
	s.Equal(s.admin.Email, coupon.CreatedByAdmin)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.CouponsCreatedTotal))
	s.Equal(1, s.notifier.created)
}

func (s *ServiceSuite) TestCreateCouponRejectsNonPositiveValue() {
	for _, value := range []int{0, -5} {
		_, err := s.coupons.Create(s.ctx, value, s.admin.Email)
		s.ErrorIs(err, ErrInvalidInput)
	}
}

func (s *ServiceSuite) TestCreateCouponRetriesOnCollision() {
	s.fixedCodes("AAAAAAAAAAAA")
	first, err := s.coupons.Create(s.ctx, 1, s.admin.Email)
	s.Require().NoError(err)

	s.fixedCodes("AAAAAAAAAAAA", "AAAAAAAAAAAA", "BBBBBBBBBBBB")
	second, err := s.coupons.Create(s.ctx, 1, s.admin.Email)
	s.Require().NoError(err)

	s.Equal("AAAAAAAAAAAA", first.Code)
	s.Equal("BBBBBBBBBBBB", second.Code)
}

func (s *ServiceSuite) TestCreateCouponGivesUp() {
	s.fixedCodes("AAAAAAAAAAAA")
	_, err := s.coupons.Create(s.ctx, 1, s.admin.Email)
	s.Require().NoError(err)

	_, err = s.coupons.Create(s.ctx, 1, s.admin.Email)
	s.Error(err)

	coupons, err := s.coupons.List(s.ctx)
	s.Require().NoError(err)
	s.Len(coupons, 1)
}

func (s *ServiceSuite) TestRedeemCoupon() {
	coupon, err := s.coupons.Create(s.ctx, 5, s.admin.Email)
	s.Require().NoError(err)

	res, err := s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.Require().NoError(err)
	s.Equal(5, res.NewBalance)
	s.Equal(5, res.CouponValue)
	s.Equal(5, s.balance(s.customer.ID))

	stored, err := s.coupons.Get(s.ctx, coupon.ID)
	s.Require().NoError(err)
	s.True(stored.Used)
	s.Require().NotNil(stored.UsedByUser)
	s.Equal(s.customer.Email, *stored.UsedByUser)

	usages, err := s.couponRepo.ListUsages(s.ctx, coupon.ID)
	s.Require().NoError(err)
	s.Require().Len(usages, 1)
	s.Equal(s.customer.ID, usages[0].UserID)

	s.Equal([]int{5}, s.notifier.events)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.RedemptionsTotal.WithLabelValues("success")))
	s.Equal(float64(5), testutil.ToFloat64(s.metrics.CreditsGranted))
}

func (s *ServiceSuite) TestRedeemIsCaseInsensitive() {
	s.fixedCodes("ABCD1234EFGH")
	_, err := s.coupons.Create(s.ctx, 3, s.admin.Email)
	s.Require().NoError(err)

	res, err := s.coupons.Redeem(s.ctx, s.customer, "  abcd1234efgh ")
	s.Require().NoError(err)
	s.Equal(3, res.NewBalance)
}

func (s *ServiceSuite) TestRedeemTwiceConflicts() {
	coupon, err := s.coupons.Create(s.ctx, 5, s.admin.Email)
	s.Require().NoError(err)

	_, err = s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.Require().NoError(err)

	_, err = s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.ErrorIs(err, ErrConflict)

	other := s.createUser("other@example.com", false, 0)
	_, err = s.coupons.Redeem(s.ctx, other, coupon.Code)
	s.ErrorIs(err, ErrConflict)

	s.Equal(5, s.balance(s.customer.ID))
	s.Equal(0, s.balance(other.ID))
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.RedemptionsTotal.WithLabelValues("already_used")))
}

func (s *ServiceSuite) TestRedeemErrors() {
	_, err := s.coupons.Redeem(s.ctx, s.customer, "   ")
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.coupons.Redeem(s.ctx, s.customer, "NOSUCHCODE00")
	s.ErrorIs(err, ErrNotFound)

	s.Equal(0, s.balance(s.customer.ID))
	s.Empty(s.notifier.events)
}

// The sqlite test store serialises these transactions on one connection, so
// the unused pre-check usually rejects the losers. TestRedeemLosesClaimRace
// covers the conditional update itself.
func (s *ServiceSuite) TestConcurrentRedeemSucceedsOnce() {
	coupon, err := s.coupons.Create(s.ctx, 7, s.admin.Email)
	s.Require().NoError(err)

	const workers = 8
	redeemers := make([]*models.User, workers)
	for i := range redeemers {
		redeemers[i] = s.createUser(string(rune('a'+i))+"@race.example.com", false, 0)
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.coupons.Redeem(s.ctx, redeemers[i], coupon.Code)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	credited := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, ErrConflict)
		}
		credited += s.balance(redeemers[i].ID)
	}
	s.Equal(1, succeeded)
	s.Equal(7, credited)

	usages, err := s.couponRepo.ListUsages(s.ctx, coupon.ID)
	s.Require().NoError(err)
	s.Len(usages, 1)
}

func (s *ServiceSuite) TestRedeemLosesClaimRace() {
	coupon, err := s.coupons.Create(s.ctx, 6, s.admin.Email)
	s.Require().NoError(err)

	// Another redeemer claims the coupon after our unused check passed.
	s.coupons.beforeClaim = func(ctx context.Context, tx *sqlx.Tx, c *models.Coupon) error {
		marked, err := s.couponRepo.MarkUsed(ctx, tx, c.ID, "winner@example.com")
		s.Require().NoError(err)
		s.Require().True(marked)
		return nil
	}

	_, err = s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.ErrorIs(err, ErrCouponAlreadyUsed)

	s.Equal(0, s.balance(s.customer.ID))
	usages, err := s.couponRepo.ListUsages(s.ctx, coupon.ID)
	s.Require().NoError(err)
	s.Empty(usages)
	s.Empty(s.notifier.events)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.RedemptionsTotal.WithLabelValues("already_used")))
	s.Zero(testutil.ToFloat64(s.metrics.RedemptionsTotal.WithLabelValues("success")))

	// The failed attempt rolled back entirely, including the rival claim.
	s.coupons.beforeClaim = nil
	res, err := s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.Require().NoError(err)
	s.Equal(6, res.NewBalance)
}

func (s *ServiceSuite) TestCouponDetail() {
	coupon, err := s.coupons.Create(s.ctx, 2, s.admin.Email)
	s.Require().NoError(err)

	detail, err := s.coupons.Detail(s.ctx, coupon.ID)
	s.Require().NoError(err)
	s.Equal(coupon.Code, detail.Coupon.Code)
	s.NotNil(detail.Usages)
	s.Empty(detail.Usages)

	_, err = s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.Require().NoError(err)

	detail, err = s.coupons.Detail(s.ctx, coupon.ID)
	s.Require().NoError(err)
	s.True(detail.Coupon.Used)
	s.Require().Len(detail.Usages, 1)
	s.Equal(s.customer.ID, detail.Usages[0].UserID)

	_, err = s.coupons.Detail(s.ctx, "missing")
	s.ErrorIs(err, ErrCouponNotFound)
}

func (s *ServiceSuite) TestRedeemScenarioLeavesOtherUsersUntouched() {
	bystander := s.createUser("v@example.com", false, 4)

	s.fixedCodes("ABCDEFGHIJKL")
	_, err := s.coupons.Create(s.ctx, 5, s.admin.Email)
	s.Require().NoError(err)
	s.fixedCodes("ABCD1234EFGH")
	_, err = s.coupons.Create(s.ctx, 10, s.admin.Email)
	s.Require().NoError(err)

	res, err := s.coupons.Redeem(s.ctx, s.customer, "ABCDEFGHIJKL")
	s.Require().NoError(err)
	s.Equal(5, res.NewBalance)

	res, err = s.coupons.Redeem(s.ctx, s.customer, "ABCD1234EFGH")
	s.Require().NoError(err)
	s.Equal(15, res.NewBalance)

	s.Equal(4, s.balance(bystander.ID))
}

func (s *ServiceSuite) TestDeleteUsedCouponKeepsBalance() {
	coupon, err := s.coupons.Create(s.ctx, 5, s.admin.Email)
	s.Require().NoError(err)
	_, err = s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.Require().NoError(err)

	s.Require().NoError(s.coupons.Delete(s.ctx, coupon.ID))

	_, err = s.coupons.Get(s.ctx, coupon.ID)
	s.ErrorIs(err, ErrNotFound)
	usages, err := s.couponRepo.ListUsages(s.ctx, coupon.ID)
	s.Require().NoError(err)
	s.Empty(usages)
	s.Equal(5, s.balance(s.customer.ID))

	s.ErrorIs(s.coupons.Delete(s.ctx, coupon.ID), ErrNotFound)
}

func (s *ServiceSuite) TestListCouponsNewestFirst() {
	s.fixedCodes("AAAAAAAAAAAA", "BBBBBBBBBBBB", "CCCCCCCCCCCC")
	for i := 0; i < 3; i++ {
		_, err := s.coupons.Create(s.ctx, i+1, s.admin.Email)
		s.Require().NoError(err)
	}

	coupons, err := s.coupons.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(coupons, 3)
	for i := 1; i < len(coupons); i++ {
		s.False(coupons[i].CreatedAt.After(coupons[i-1].CreatedAt))
	}
}

func (s *ServiceSuite) TestGateFreeTier() {
	d, err := s.gate.Check(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.True(d.CanGenerate)
	s.Equal(2, d.Remaining)
	s.Equal(models.AllowanceFree, d.Type)
	s.Require().NotNil(d.TotalGenerated)
	s.Equal(0, *d.TotalGenerated)

	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	d, err = s.gate.Check(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.True(d.CanGenerate)
	s.Equal(1, d.Remaining)

	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	d, err = s.gate.Check(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.False(d.CanGenerate)
	s.Equal(0, d.Remaining)
	s.Equal(models.AllowanceFree, d.Type)
	s.Equal(2, *d.TotalGenerated)
}

func (s *ServiceSuite) TestGateIgnoresFailedAndRegularGenerations() {
	s.logCartoon(s.customer.ID, models.GenerationFailed)
	_, err := s.genLog.Log(s.ctx, s.customer.ID, GenerationEntry{VideoType: models.VideoTypeRegular, Status: models.GenerationSuccess})
	s.Require().NoError(err)

	d, err := s.gate.Check(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.True(d.CanGenerate)
	s.Equal(2, d.Remaining)
}

func (s *ServiceSuite) TestGateCouponBalance() {
	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	_, err := s.ledger.Credit(s.ctx, s.customer.ID, 5)
	s.Require().NoError(err)

	d, err := s.gate.Check(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.True(d.CanGenerate)
	s.Equal(5, d.Remaining)
	s.Equal(models.AllowanceCoupon, d.Type)
	s.Nil(d.TotalGenerated)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.GateChecksTotal.WithLabelValues("coupon", "allowed")))
}

func (s *ServiceSuite) TestGateUnknownUser() {
	_, err := s.gate.Check(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestLogGenerationValidates() {
	_, err := s.genLog.Log(s.ctx, s.customer.ID, GenerationEntry{VideoType: "anime", Status: models.GenerationSuccess})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.genLog.Log(s.ctx, s.customer.ID, GenerationEntry{VideoType: models.VideoTypeCartoon, Status: "pending"})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceSuite) TestLogGenerationUpdatesCounterAndHistory() {
	reason := "timeout"
	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	_, err := s.genLog.Log(s.ctx, s.customer.ID, GenerationEntry{
		VideoType: models.VideoTypeCartoon,
		Status:    models.GenerationFailed,
		Reason:    &reason,
	})
	s.Require().NoError(err)

	user, err := s.users.FindByID(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Equal(1, user.CartoonVideosGenerated)

	history, err := s.genLog.History(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Len(history, 2)

	other, err := s.genLog.History(s.ctx, s.admin.ID)
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *ServiceSuite) TestRecentLogsAcrossUsers() {
	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	s.logCartoon(s.admin.ID, models.GenerationFailed)

	logs, err := s.genLog.Recent(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(logs, 2)

	emails := map[string]string{}
	for _, l := range logs {
		emails[l.UserID] = l.UserEmail
	}
	s.Equal("customer@example.com", emails[s.customer.ID])
	s.Equal("admin@example.com", emails[s.admin.ID])
}

func (s *ServiceSuite) TestStats() {
	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	s.logCartoon(s.customer.ID, models.GenerationSuccess)
	s.logCartoon(s.customer.ID, models.GenerationFailed)

	coupon, err := s.coupons.Create(s.ctx, 1, s.admin.Email)
	s.Require().NoError(err)
	_, err = s.coupons.Redeem(s.ctx, s.customer, coupon.Code)
	s.Require().NoError(err)

	stats, err := s.stats.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(4, stats.TotalVideos)
	s.Equal(3, stats.SuccessfulVideos)
	s.Equal(1, stats.FailedVideos)
	s.InDelta(75.0, stats.SuccessRate, 0.001)
	s.Equal(2, stats.TotalUsers)
	s.Equal(1, stats.TotalCouponsUsed)
}

func TestGenerateCouponCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateCouponCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{12}$`, code)
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 200)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrInvalidAmount, ErrInvalidInput},
		{ErrCouponCodeRequired, ErrInvalidInput},
		{ErrInvalidVideoType, ErrInvalidInput},
		{ErrUserNotFound, ErrNotFound},
		{ErrCouponNotFound, ErrNotFound},
		{ErrCouponAlreadyUsed, ErrConflict},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, tt.err, tt.kind, tt.err.Error())
	}
}
