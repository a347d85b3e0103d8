package service

import (
	"context"
	"time"

	"github.com/digkill/vidcrafter/internal/metrics"
	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/repository"
)

// DefaultFreeCartoonLimit is the number of successful cartoon generations allowed without a coupon.
const DefaultFreeCartoonLimit = 2

// Decision is the outcome of a per-request generation check.
type Decision struct {
	CanGenerate    bool                 `json:"canGenerate"`
	Remaining      int                  `json:"remaining"`
	Type           models.AllowanceType `json:"type"`
	TotalGenerated *int                 `json:"totalGenerated,omitempty"`
}

// UsageGate decides whether a user may start a generation. It keeps no state
// and must be asked again on every request.
type UsageGate struct {
	ledger      *Ledger
	generations *repository.GenerationRepository
	freeLimit   int
	metrics     *metrics.Metrics
}

func NewUsageGate(ledger *Ledger, generations *repository.GenerationRepository, freeLimit int, m *metrics.Metrics) *UsageGate {
	return &UsageGate{
		ledger:      ledger,
		generations: generations,
		freeLimit:   freeLimit,
		metrics:     m,
	}
}

func (g *UsageGate) Check(ctx context.Context, userID string) (*Decision, error) {
	start := time.Now()
	defer func() {
		g.metrics.GateCheckDuration.Observe(time.Since(start).Seconds())
	}()

	balance, err := g.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	// TODO: coupon_balance is never decremented on a successful paid generation;
	// add the per-generation decrement once product confirms the pricing rule.
	if balance > 0 {
		g.record(models.AllowanceCoupon, true)
		return &Decision{CanGenerate: true, Remaining: balance, Type: models.AllowanceCoupon}, nil
	}

	count, err := g.generations.CountForUser(ctx, userID, models.VideoTypeCartoon, models.GenerationSuccess)
	if err != nil {
		return nil, err
	}
	decision := &Decision{Type: models.AllowanceFree, TotalGenerated: &count}
	if count < g.freeLimit {
		decision.CanGenerate = true
		decision.Remaining = g.freeLimit - count
	}
	g.record(models.AllowanceFree, decision.CanGenerate)
	return decision, nil
}

func (g *UsageGate) record(t models.AllowanceType, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	g.metrics.GateChecksTotal.WithLabelValues(string(t), result).Inc()
}
