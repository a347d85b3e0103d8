package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/digkill/vidcrafter/internal/metrics"
	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/repository"
)

const (
	couponAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponCodeLength = 12
	maxCodeAttempts  = 16
	// CouponListLimit caps the administrative listing.
	CouponListLimit = 100
)

// Notifier receives best-effort audit events. Implementations must not block.
type Notifier interface {
	CouponCreated(coupon *models.Coupon)
	CouponRedeemed(user *models.User, coupon *models.Coupon, newBalance int)
}

type RedeemResult struct {
	NewBalance  int `json:"newBalance"`
	CouponValue int `json:"couponValue"`
}

// CouponDetail is a coupon together with its redemption records.
type CouponDetail struct {
	Coupon *models.Coupon       `json:"coupon"`
	Usages []models.CouponUsage `json:"usages"`
}

type CouponService struct {
	coupons  *repository.CouponRepository
	ledger   *Ledger
	log      *slog.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	newCode  func() (string, error)

	// beforeClaim runs inside the redemption tx after the unused check and
	// before the conditional update.
	beforeClaim func(ctx context.Context, tx *sqlx.Tx, coupon *models.Coupon) error
}

func NewCouponService(coupons *repository.CouponRepository, ledger *Ledger, log *slog.Logger, m *metrics.Metrics, notifier Notifier) *CouponService {
	return &CouponService{
		coupons:  coupons,
		ledger:   ledger,
		log:      log,
		metrics:  m,
		notifier: notifier,
		newCode:  GenerateCouponCode,
	}
}

// GenerateCouponCode draws a random code from the coupon alphabet.
func GenerateCouponCode() (string, error) {
	limit := big.NewInt(int64(len(couponAlphabet)))
	var b strings.Builder
	b.Grow(couponCodeLength)
	for i := 0; i < couponCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(couponAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode makes code lookup case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create issues a coupon whose code does not collide with any existing coupon.
func (s *CouponService) Create(ctx context.Context, value int, issuer string) (*models.Coupon, error) {
	if value <= 0 {
		return nil, ErrInvalidCouponValue
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate coupon code: %w", err)
		}
		exists, err := s.coupons.CodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		coupon, err := s.coupons.Create(ctx, &models.Coupon{
			Code:           code,
			Value:          value,
			CreatedByAdmin: issuer,
		})
		if errors.Is(err, repository.ErrDuplicateCode) {
			// Lost a race with a concurrent create for the same code.
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.CouponsCreatedTotal.Inc()
		s.log.Info("coupon created", "coupon_id", coupon.ID, "value", value, "issuer", issuer)
		if s.notifier != nil {
			s.notifier.CouponCreated(coupon)
		}
		return coupon, nil
	}
	return nil, fmt.Errorf("generate unique coupon code: gave up after %d attempts", maxCodeAttempts)
}

// Redeem consumes the coupon and credits the user in one transaction.
func (s *CouponService) Redeem(ctx context.Context, user *models.User, code string) (*RedeemResult, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCouponCodeRequired
	}

	var coupon *models.Coupon
	var result RedeemResult
	err := repository.WithTx(ctx, s.coupons.DB(), func(tx *sqlx.Tx) error {
		c, err := s.coupons.GetByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCouponNotFound
		}
		if c.Used {
			return ErrCouponAlreadyUsed
		}
		if s.beforeClaim != nil {
			if err := s.beforeClaim(ctx, tx, c); err != nil {
				return err
			}
		}

		marked, err := s.coupons.MarkUsed(ctx, tx, c.ID, user.Email)
		if err != nil {
			return err
		}
		if !marked {
			return ErrCouponAlreadyUsed
		}

		if err := s.coupons.RecordUsage(ctx, tx, &models.CouponUsage{UserID: user.ID, CouponID: c.ID}); err != nil {
			return err
		}

		balance, err := s.ledger.creditTx(ctx, tx, user.ID, c.Value)
		if err != nil {
			return err
		}

		coupon = c
		result = RedeemResult{NewBalance: balance, CouponValue: c.Value}
		return nil
	})
	if err != nil {
		s.metrics.RedemptionsTotal.WithLabelValues(redeemOutcome(err)).Inc()
		return nil, err
	}

	s.metrics.RedemptionsTotal.WithLabelValues("success").Inc()
	s.metrics.CreditsGranted.Add(float64(result.CouponValue))
	s.log.Info("coupon redeemed", "coupon_id", coupon.ID, "user_id", user.ID, "value", result.CouponValue, "new_balance", result.NewBalance)

	if s.notifier != nil {
		usedBy := user.Email
		coupon.Used = true
		coupon.UsedByUser = &usedBy
		s.notifier.CouponRedeemed(user, coupon, result.NewBalance)
	}
	return &result, nil
}

func redeemOutcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "already_used"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}

func (s *CouponService) Get(ctx context.Context, id string) (*models.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, s.coupons.DB(), id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// Detail returns the coupon and who redeemed it.
func (s *CouponService) Detail(ctx context.Context, id string) (*CouponDetail, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	usages, err := s.coupons.ListUsages(ctx, coupon.ID)
	if err != nil {
		return nil, err
	}
	return &CouponDetail{Coupon: coupon, Usages: usages}, nil
}

// Delete removes a coupon and its usage records. Credits already applied stay.
func (s *CouponService) Delete(ctx context.Context, id string) error {
	var found bool
	err := repository.WithTx(ctx, s.coupons.DB(), func(tx *sqlx.Tx) error {
		var err error
		found, err = s.coupons.Delete(ctx, tx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrCouponNotFound
	}
	s.metrics.CouponsDeletedTotal.Inc()
	s.log.Info("coupon deleted", "coupon_id", id)
	return nil
}

// List returns the newest coupons first, capped at CouponListLimit.
func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.List(ctx, CouponListLimit)
}
