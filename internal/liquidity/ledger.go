package liquidity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
)

// ReserveLedger owns one offering's redemption reserve balance and its
// monthly redemption counter. It is the only component that mutates
// reserve state. Callers must hold the offering's lock across any
// check-then-reserve sequence; the ledger itself performs no locking.
type ReserveLedger struct {
	offeringID uuid.UUID
	repo       Repository
}

// NewReserveLedger creates a ledger bound to one offering.
func NewReserveLedger(offeringID uuid.UUID, repo Repository) *ReserveLedger {
	return &ReserveLedger{offeringID: offeringID, repo: repo}
}

// Balance returns the current reserve balance.
func (l *ReserveLedger) Balance(ctx context.Context) (decimal.Decimal, error) {
	settings, err := l.repo.GetProgramSettings(ctx, l.offeringID)
	if err != nil {
		return decimal.Zero, err
	}
	return settings.ReserveBalance, nil
}

// Reserve consumes reserve capacity. It succeeds only when the full
// amount is covered; the balance never goes negative.
func (l *ReserveLedger) Reserve(ctx context.Context, amount decimal.Decimal) error {
	settings, err := l.repo.GetProgramSettings(ctx, l.offeringID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(settings.ReserveBalance) {
		return &faults.InsufficientReserveError{
			Requested: amount,
			Available: settings.ReserveBalance,
		}
	}
	settings.ReserveBalance = settings.ReserveBalance.Sub(amount)
	return l.repo.SaveProgramSettings(ctx, settings)
}

// Release returns a previously reserved amount, used when an approved
// request is denied or cancelled before completion.
func (l *ReserveLedger) Release(ctx context.Context, amount decimal.Decimal) error {
	settings, err := l.repo.GetProgramSettings(ctx, l.offeringID)
	if err != nil {
		return err
	}
	settings.ReserveBalance = settings.ReserveBalance.Add(amount)
	return l.repo.SaveProgramSettings(ctx, settings)
}

// Deposit adds sponsor funding to the reserve.
func (l *ReserveLedger) Deposit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return faults.Validationf("deposit must be positive, got %s", amount)
	}
	settings, err := l.repo.GetProgramSettings(ctx, l.offeringID)
	if err != nil {
		return err
	}
	settings.ReserveBalance = settings.ReserveBalance.Add(amount)
	return l.repo.SaveProgramSettings(ctx, settings)
}

// CheckMonthlyCap verifies the offering has room for one more completed
// redemption in the calendar month containing at. No cap when
// MaxMonthlyRedemptions is nil.
func (l *ReserveLedger) CheckMonthlyCap(ctx context.Context, at time.Time) error {
	settings, err := l.repo.GetProgramSettings(ctx, l.offeringID)
	if err != nil {
		return err
	}
	if settings.MaxMonthlyRedemptions == nil {
		return nil
	}

	from, to := monthBounds(at)
	completed, err := l.repo.CountCompletedInRange(ctx, l.offeringID, from, to)
	if err != nil {
		return err
	}
	if completed >= int64(*settings.MaxMonthlyRedemptions) {
		return &faults.CapExceededError{
			Cap:       *settings.MaxMonthlyRedemptions,
			Completed: int(completed),
		}
	}
	return nil
}

// monthBounds returns [start, end) of the UTC calendar month containing at.
func monthBounds(at time.Time) (time.Time, time.Time) {
	at = at.UTC()
	start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
