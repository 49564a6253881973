package liquidity

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
	"blineit/investor-portal/investor-portal-backend/pkg/locking"
)

func newTestEngine(repo Repository) *Engine {
	return NewEngine(repo, locking.NewKeyed(), zap.NewNop())
}

func submitPending(t *testing.T, engine *Engine, offeringID uuid.UUID, quantity int64, tokenValue int64, holdingDays int) *LiquidityRequest {
	t.Helper()
	request, err := engine.Submit(context.Background(), SubmitRequest{
		OfferingID:        offeringID,
		InvestorID:        uuid.New(),
		Quantity:          quantity,
		TokenValue:        decimal.NewFromInt(tokenValue),
		HoldingPeriodDays: holdingDays,
	})
	require.NoError(t, err)
	return request
}

func TestConfigureProgramCreatesAndUpdates(t *testing.T) {
	repo := newMemRepository()
	engine := newTestEngine(repo)
	ctx := context.Background()
	offeringID := uuid.New()

	settings, err := engine.ConfigureProgram(ctx, ConfigureProgramRequest{
		OfferingID:     offeringID,
		Enabled:        true,
		FeeTiers:       standardTiers(),
		ReservePercent: decimal.NewFromInt(10),
		MinHoldingDays: 30,
	})
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.True(t, settings.ReserveBalance.IsZero())

	// Funding, then reconfiguring, must not clobber the balance.
	_, err = engine.FundReserve(ctx, offeringID, decimal.NewFromInt(5000))
	require.NoError(t, err)

	monthlyCap := 3
	settings, err = engine.ConfigureProgram(ctx, ConfigureProgramRequest{
		OfferingID:            offeringID,
		Enabled:               true,
		FeeTiers:              standardTiers(),
		ReservePercent:        decimal.NewFromInt(10),
		MaxMonthlyRedemptions: &monthlyCap,
		MinHoldingDays:        60,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, settings.MinHoldingDays)
	assert.True(t, settings.ReserveBalance.Equal(decimal.NewFromInt(5000)), "balance = %s", settings.ReserveBalance)
}

func TestConfigureProgramRejectsBadConfig(t *testing.T) {
	engine := newTestEngine(newMemRepository())
	ctx := context.Background()

	var validation *faults.ValidationError

	_, err := engine.ConfigureProgram(ctx, ConfigureProgramRequest{
		OfferingID: uuid.New(),
		FeeTiers:   nil, // no schedule
	})
	assert.ErrorAs(t, err, &validation)

	zero := 0
	_, err = engine.ConfigureProgram(ctx, ConfigureProgramRequest{
		OfferingID:            uuid.New(),
		FeeTiers:              standardTiers(),
		MaxMonthlyRedemptions: &zero,
	})
	assert.ErrorAs(t, err, &validation)

	_, err = engine.ConfigureProgram(ctx, ConfigureProgramRequest{
		OfferingID:     uuid.New(),
		FeeTiers:       standardTiers(),
		ReservePercent: decimal.NewFromInt(101),
	})
	assert.ErrorAs(t, err, &validation)
}

func TestFundReserveRejectsNonPositiveAmount(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 100, nil)
	engine := newTestEngine(repo)

	var validation *faults.ValidationError
	_, err := engine.FundReserve(context.Background(), offeringID, decimal.Zero)
	assert.ErrorAs(t, err, &validation)

	balance, err := NewReserveLedger(offeringID, repo).Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))
}

func TestSubmitComputesFeeMath(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 100000, nil)
	engine := newTestEngine(repo)

	// 100 tokens at $10 held 45 days: the 3% tier applies.
	request := submitPending(t, engine, offeringID, 100, 10, 45)

	assert.Equal(t, StatusPending, request.Status)
	assert.True(t, request.GrossValue.Equal(decimal.NewFromInt(1000)), "gross = %s", request.GrossValue)
	assert.True(t, request.FeeAmount.Equal(decimal.NewFromInt(30)), "fee = %s", request.FeeAmount)
	assert.True(t, request.NetPayout.Equal(decimal.NewFromInt(970)), "net = %s", request.NetPayout)
	assert.True(t, request.FeePercentApplied.Equal(decimal.NewFromInt(3)))

	tier, err := request.AppliedTier()
	require.NoError(t, err)
	assert.Equal(t, 30, tier.MinDays)
	require.NotNil(t, tier.MaxDays)
	assert.Equal(t, 90, *tier.MaxDays)
}

func TestSubmitBalancesExactly(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 100000, nil)
	engine := newTestEngine(repo)

	// An awkward token value that forces fee rounding.
	request, err := engine.Submit(context.Background(), SubmitRequest{
		OfferingID:        offeringID,
		InvestorID:        uuid.New(),
		Quantity:          7,
		TokenValue:        decimal.RequireFromString("3.33"),
		HoldingPeriodDays: 10,
	})
	require.NoError(t, err)

	// gross - fee == net must hold exactly, and net stays non-negative.
	assert.True(t, request.GrossValue.Sub(request.FeeAmount).Equal(request.NetPayout))
	assert.False(t, request.NetPayout.IsNegative())
	assert.Equal(t, int32(-2), request.FeeAmount.Exponent())
}

func TestSubmitRejectsDisabledProgram(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 1000, nil)
	settings, err := repo.GetProgramSettings(context.Background(), offeringID)
	require.NoError(t, err)
	settings.Enabled = false
	require.NoError(t, repo.SaveProgramSettings(context.Background(), settings))

	engine := newTestEngine(repo)
	_, err = engine.Submit(context.Background(), SubmitRequest{
		OfferingID:        offeringID,
		InvestorID:        uuid.New(),
		Quantity:          1,
		TokenValue:        decimal.NewFromInt(10),
		HoldingPeriodDays: 45,
	})

	var validation *faults.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestSubmitRejectsShortHolding(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 1000, nil)
	settings, err := repo.GetProgramSettings(context.Background(), offeringID)
	require.NoError(t, err)
	settings.MinHoldingDays = 30
	require.NoError(t, repo.SaveProgramSettings(context.Background(), settings))

	engine := newTestEngine(repo)
	_, err = engine.Submit(context.Background(), SubmitRequest{
		OfferingID:        offeringID,
		InvestorID:        uuid.New(),
		Quantity:          1,
		TokenValue:        decimal.NewFromInt(10),
		HoldingPeriodDays: 29,
	})

	var ineligible *faults.IneligibleError
	assert.ErrorAs(t, err, &ineligible)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 1000, nil)
	engine := newTestEngine(repo)
	ctx := context.Background()

	var validation *faults.ValidationError

	_, err := engine.Submit(ctx, SubmitRequest{OfferingID: offeringID, Quantity: 0, TokenValue: decimal.NewFromInt(10)})
	assert.ErrorAs(t, err, &validation)

	_, err = engine.Submit(ctx, SubmitRequest{OfferingID: offeringID, Quantity: 1, TokenValue: decimal.Zero})
	assert.ErrorAs(t, err, &validation)

	_, err = engine.Submit(ctx, SubmitRequest{OfferingID: offeringID, Quantity: 1, TokenValue: decimal.NewFromInt(10), HoldingPeriodDays: -1})
	assert.ErrorAs(t, err, &validation)
}

func TestSubmitUnknownOffering(t *testing.T) {
	engine := newTestEngine(newMemRepository())

	_, err := engine.Submit(context.Background(), SubmitRequest{
		OfferingID: uuid.New(),
		InvestorID: uuid.New(),
		Quantity:   1,
		TokenValue: decimal.NewFromInt(10),
	})

	var notFound *faults.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestReviewApproveReservesNetPayout(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 1000, nil)
	engine := newTestEngine(repo)
	ctx := context.Background()

	request := submitPending(t, engine, offeringID, 50, 10, 45) // net 485

	reviewed, err := engine.Review(ctx, request.ID, ReviewDecision{Approve: true})
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, reviewed.Status)
	assert.NotNil(t, reviewed.ApprovedAt)

	balance, err := NewReserveLedger(offeringID, repo).Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(515)), "balance = %s", balance)
}

func TestReviewDenyNeedsNoReserve(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 0, nil)
	engine := newTestEngine(repo)

	request := submitPending(t, engine, offeringID, 10, 10, 45)

	reviewed, err := engine.Review(context.Background(), request.ID, ReviewDecision{Approve: false})
	require.NoError(t, err)

	assert.Equal(t, StatusDenied, reviewed.Status)
	require.NotNil(t, reviewed.DenialReason)
	assert.Equal(t, DenialReviewerRejected, *reviewed.DenialReason)
	assert.NotNil(t, reviewed.DeniedAt)
}

func TestReviewInsufficientReserveDeniesWithoutSpending(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 500, nil)
	engine := newTestEngine(repo)
	ctx := context.Background()

	// Net payout $600 against a $500 reserve.
	request := submitPending(t, engine, offeringID, 60, 10, 45)
	request.NetPayout = decimal.NewFromInt(600)
	require.NoError(t, repo.SaveRequest(ctx, request))

	reviewed, err := engine.Review(ctx, request.ID, ReviewDecision{Approve: true})
	require.NoError(t, err, "a failed approval is a denial, not an error")

	assert.Equal(t, StatusDenied, reviewed.Status)
	require.NotNil(t, reviewed.DenialReason)
	assert.Equal(t, DenialInsufficientReserve, *reviewed.DenialReason)

	balance, err := NewReserveLedger(offeringID, repo).Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)), "reserve must be untouched, got %s", balance)
}

func TestReviewMonthlyCapDenies(t *testing.T) {
	repo := newMemRepository()
	maxMonthly := 1
	offeringID := seedSettings(t, repo, 100000, &maxMonthly)
	engine := newTestEngine(repo)
	ctx := context.Background()

	// Drive one request all the way through to eat the month's slot.
	first := submitPending(t, engine, offeringID, 10, 10, 45)
	_, err := engine.Review(ctx, first.ID, ReviewDecision{Approve: true})
	require.NoError(t, err)
	_, err = engine.AdvanceToProcessing(ctx, first.ID)
	require.NoError(t, err)
	_, err = engine.Complete(ctx, first.ID)
	require.NoError(t, err)

	second := submitPending(t, engine, offeringID, 10, 10, 45)
	reviewed, err := engine.Review(ctx, second.ID, ReviewDecision{Approve: true})
	require.NoError(t, err)

	assert.Equal(t, StatusDenied, reviewed.Status)
	require.NotNil(t, reviewed.DenialReason)
	assert.Equal(t, DenialMonthlyCapExceeded, *reviewed.DenialReason)
}

func TestHappyPathTimestamps(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 100000, nil)
	engine := newTestEngine(repo)
	ctx := context.Background()

	request := submitPending(t, engine, offeringID, 10, 10, 45)

	approved, err := engine.Review(ctx, request.ID, ReviewDecision{Approve: true})
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedAt)

	processing, err := engine.AdvanceToProcessing(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, processing.Status)
	require.NotNil(t, processing.ProcessingAt)

	completed, err := engine.Complete(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
}

func TestIllegalTransitionsFail(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 100000, nil)
	engine := newTestEngine(repo)
	ctx := context.Background()

	var transition *faults.InvalidTransitionError

	// pending cannot skip straight to processing or completed.
	pending := submitPending(t, engine, offeringID, 10, 10, 45)
	_, err := engine.AdvanceToProcessing(ctx, pending.ID)
	assert.ErrorAs(t, err, &transition)
	_, err = engine.Complete(ctx, pending.ID)
	assert.ErrorAs(t, err, &transition)

	// approved cannot be reviewed again.
	_, err = engine.Review(ctx, pending.ID, ReviewDecision{Approve: true})
	require.NoError(t, err)
	_, err = engine.Review(ctx, pending.ID, ReviewDecision{Approve: true})
	assert.ErrorAs(t, err, &transition)

	// terminal states accept nothing.
	denied := submitPending(t, engine, offeringID, 10, 10, 45)
	_, err = engine.Review(ctx, denied.ID, ReviewDecision{Approve: false})
	require.NoError(t, err)
	for _, attempt := range []func() error{
		func() error { _, err := engine.Review(ctx, denied.ID, ReviewDecision{Approve: true}); return err },
		func() error { _, err := engine.AdvanceToProcessing(ctx, denied.ID); return err },
		func() error { _, err := engine.Complete(ctx, denied.ID); return err },
		func() error { _, err := engine.Cancel(ctx, denied.ID); return err },
	} {
		assert.ErrorAs(t, attempt(), &transition)
	}
}

func TestCancelPending(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 1000, nil)
	engine := newTestEngine(repo)

	request := submitPending(t, engine, offeringID, 10, 10, 45)
	cancelled, err := engine.Cancel(context.Background(), request.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestCancelApprovedReleasesReserve(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 1000, nil)
	engine := newTestEngine(repo)
	ctx := context.Background()

	request := submitPending(t, engine, offeringID, 50, 10, 45) // net 485
	_, err := engine.Review(ctx, request.ID, ReviewDecision{Approve: true})
	require.NoError(t, err)

	_, err = engine.Cancel(ctx, request.ID)
	require.NoError(t, err)

	balance, err := NewReserveLedger(offeringID, repo).Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)), "balance = %s", balance)
}

// Two reviewers racing on the same offering must never both reserve
// funds the balance cannot cover.
func TestConcurrentReviewsCannotDoubleSpendReserve(t *testing.T) {
	repo := newMemRepository()
	offeringID := seedSettings(t, repo, 1000, nil)
	engine := newTestEngine(repo)
	ctx := context.Background()

	// Ten pending requests, each netting $600 against a $1000 reserve:
	// exactly one can be approved.
	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		request := submitPending(t, engine, offeringID, 10, 10, 45)
		request.NetPayout = decimal.NewFromInt(600)
		require.NoError(t, repo.SaveRequest(ctx, request))
		ids = append(ids, request.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := engine.Review(ctx, id, ReviewDecision{Approve: true})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	approved, deniedForReserve := 0, 0
	for _, id := range ids {
		request, err := repo.GetRequest(ctx, id)
		require.NoError(t, err)
		switch request.Status {
		case StatusApproved:
			approved++
		case StatusDenied:
			require.NotNil(t, request.DenialReason)
			assert.Equal(t, DenialInsufficientReserve, *request.DenialReason)
			deniedForReserve++
		default:
			t.Fatalf("request %s left in %s", id, request.Status)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 9, deniedForReserve)

	balance, err := NewReserveLedger(offeringID, repo).Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(400)), "balance = %s", balance)
}
