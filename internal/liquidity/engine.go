package liquidity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
	"blineit/investor-portal/investor-portal-backend/pkg/locking"
	"blineit/investor-portal/investor-portal-backend/pkg/workflows"
)

// requestTransitions is the full lifecycle of a liquidity request.
// completed, denied and cancelled are terminal.
func requestTransitions() map[workflows.Status][]workflows.Status {
	return map[workflows.Status][]workflows.Status{
		workflows.Status(StatusPending):    {workflows.Status(StatusApproved), workflows.Status(StatusDenied), workflows.Status(StatusCancelled)},
		workflows.Status(StatusApproved):   {workflows.Status(StatusProcessing), workflows.Status(StatusCancelled)},
		workflows.Status(StatusProcessing): {workflows.Status(StatusCompleted)},
		workflows.Status(StatusCompleted):  {},
		workflows.Status(StatusDenied):     {},
		workflows.Status(StatusCancelled):  {},
	}
}

// SubmitRequest is the investor action that opens a liquidity request.
type SubmitRequest struct {
	OfferingID        uuid.UUID       `json:"offering_id"`
	InvestorID        uuid.UUID       `json:"investor_id"`
	Quantity          int64           `json:"quantity"`
	TokenValue        decimal.Decimal `json:"token_value"`
	HoldingPeriodDays int             `json:"holding_period_days"`
}

// ConfigureProgramRequest is the sponsor action that creates or updates
// an offering's liquidity program. The reserve balance is not part of
// it; funding goes through FundReserve.
type ConfigureProgramRequest struct {
	OfferingID            uuid.UUID       `json:"offering_id"`
	Enabled               bool            `json:"enabled"`
	FeeTiers              []FeeTier       `json:"fee_tiers"`
	ReservePercent        decimal.Decimal `json:"reserve_percent"`
	MaxMonthlyRedemptions *int            `json:"max_monthly_redemptions,omitempty"`
	MinHoldingDays        int             `json:"min_holding_days"`
}

// ReviewDecision is a reviewer's verdict on a pending request.
type ReviewDecision struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

// Engine orchestrates the liquidity-request lifecycle. All mutations for
// one offering run under that offering's lock, so two concurrent reviews
// can never both observe sufficient reserve and double-spend it.
type Engine struct {
	repo   Repository
	locks  *locking.Keyed
	sm     *workflows.StateMachine
	logger *zap.Logger
}

// NewEngine creates a liquidity request engine
func NewEngine(repo Repository, locks *locking.Keyed, logger *zap.Logger) *Engine {
	return &Engine{
		repo:   repo,
		locks:  locks,
		sm:     workflows.NewStateMachine(requestTransitions()),
		logger: logger,
	}
}

// ledger returns the reserve ledger for one offering. Callers must
// already hold the offering lock.
func (e *Engine) ledger(offeringID uuid.UUID) *ReserveLedger {
	return NewReserveLedger(offeringID, e.repo)
}

// Submit validates an early-redemption request against the offering's
// liquidity program, resolves the fee tier and creates the request in
// pending.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*LiquidityRequest, error) {
	if req.Quantity <= 0 {
		return nil, faults.Validationf("quantity must be positive, got %d", req.Quantity)
	}
	if !req.TokenValue.IsPositive() {
		return nil, faults.Validationf("token value must be positive, got %s", req.TokenValue)
	}
	if req.HoldingPeriodDays < 0 {
		return nil, faults.Validationf("holding period must not be negative, got %d", req.HoldingPeriodDays)
	}

	unlock := e.locks.Lock(req.OfferingID.String())
	defer unlock()

	settings, err := e.repo.GetProgramSettings(ctx, req.OfferingID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, faults.Validationf("liquidity program is not enabled for offering %s", req.OfferingID)
	}
	if req.HoldingPeriodDays < settings.MinHoldingDays {
		return nil, &faults.IneligibleError{
			Reason: "minimum holding period not met",
		}
	}

	schedule, err := settings.Schedule()
	if err != nil {
		return nil, err
	}
	tier, err := schedule.Resolve(req.HoldingPeriodDays)
	if err != nil {
		return nil, err
	}

	gross := req.TokenValue.Mul(decimal.NewFromInt(req.Quantity))
	fee := gross.Mul(tier.FeePercent).Div(hundred).Round(2)
	net := gross.Sub(fee)

	request := &LiquidityRequest{
		ID:                  uuid.New(),
		InvestorID:          req.InvestorID,
		OfferingID:          req.OfferingID,
		Quantity:            req.Quantity,
		TokenValueAtRequest: req.TokenValue,
		HoldingPeriodDays:   req.HoldingPeriodDays,
		FeePercentApplied:   tier.FeePercent,
		GrossValue:          gross,
		FeeAmount:           fee,
		NetPayout:           net,
		Status:              StatusPending,
		SubmittedAt:         time.Now().UTC(),
	}
	if err := request.setAppliedTier(tier); err != nil {
		return nil, err
	}

	if err := e.repo.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	e.logger.Info("Liquidity request submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("offering_id", req.OfferingID.String()),
		zap.String("net_payout", net.StringFixed(2)),
		zap.Int("holding_months", HoldingMonths(req.HoldingPeriodDays)))

	return request, nil
}

// ConfigureProgram creates or updates an offering's liquidity program.
// The fee schedule is validated as a partition before anything is
// written. An existing reserve balance is preserved.
func (e *Engine) ConfigureProgram(ctx context.Context, req ConfigureProgramRequest) (*ProgramSettings, error) {
	schedule, err := NewFeeSchedule(req.FeeTiers)
	if err != nil {
		return nil, err
	}
	if req.MinHoldingDays < 0 {
		return nil, faults.Validationf("minimum holding days must not be negative, got %d", req.MinHoldingDays)
	}
	if req.MaxMonthlyRedemptions != nil && *req.MaxMonthlyRedemptions <= 0 {
		return nil, faults.Validationf("monthly redemption cap must be positive, got %d", *req.MaxMonthlyRedemptions)
	}
	if req.ReservePercent.IsNegative() || req.ReservePercent.GreaterThan(hundred) {
		return nil, faults.Validationf("reserve percent must be within [0, 100], got %s", req.ReservePercent)
	}

	unlock := e.locks.Lock(req.OfferingID.String())
	defer unlock()

	settings, err := e.repo.GetProgramSettings(ctx, req.OfferingID)
	if err != nil {
		var notFound *faults.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		settings = &ProgramSettings{
			OfferingID:     req.OfferingID,
			ReserveBalance: decimal.Zero,
		}
	}

	settings.Enabled = req.Enabled
	settings.ReservePercent = req.ReservePercent
	settings.MaxMonthlyRedemptions = req.MaxMonthlyRedemptions
	settings.MinHoldingDays = req.MinHoldingDays
	if err := settings.SetSchedule(schedule); err != nil {
		return nil, err
	}

	if err := e.repo.SaveProgramSettings(ctx, settings); err != nil {
		return nil, err
	}

	e.logger.Info("Liquidity program configured",
		zap.String("offering_id", req.OfferingID.String()),
		zap.Bool("enabled", settings.Enabled))

	return settings, nil
}

// GetProgramSettings fetches one offering's program configuration.
func (e *Engine) GetProgramSettings(ctx context.Context, offeringID uuid.UUID) (*ProgramSettings, error) {
	return e.repo.GetProgramSettings(ctx, offeringID)
}

// FundReserve deposits sponsor funds into an offering's reserve.
func (e *Engine) FundReserve(ctx context.Context, offeringID uuid.UUID, amount decimal.Decimal) (*ProgramSettings, error) {
	unlock := e.locks.Lock(offeringID.String())
	defer unlock()

	if err := e.ledger(offeringID).Deposit(ctx, amount); err != nil {
		return nil, err
	}
	return e.repo.GetProgramSettings(ctx, offeringID)
}

// Review applies a reviewer decision to a pending request. Approval
// checks the monthly cap and reserves the net payout; if either fails
// the request moves to denied with a machine-readable reason rather than
// surfacing a hard error, so a reviewed request always lands in a
// well-defined lifecycle state.
func (e *Engine) Review(ctx context.Context, requestID uuid.UUID, decision ReviewDecision) (*LiquidityRequest, error) {
	now := time.Now().UTC()

	unlock, request, err := e.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !decision.Approve {
		if err := e.sm.Transition(workflows.Status(request.Status), workflows.Status(StatusDenied)); err != nil {
			return nil, err
		}
		return e.deny(ctx, request, DenialReviewerRejected, now)
	}

	if err := e.sm.Transition(workflows.Status(request.Status), workflows.Status(StatusApproved)); err != nil {
		return nil, err
	}

	ledger := e.ledger(request.OfferingID)

	if err := ledger.CheckMonthlyCap(ctx, now); err != nil {
		var capErr *faults.CapExceededError
		if errors.As(err, &capErr) {
			return e.deny(ctx, request, DenialMonthlyCapExceeded, now)
		}
		return nil, err
	}

	if err := ledger.Reserve(ctx, request.NetPayout); err != nil {
		var reserveErr *faults.InsufficientReserveError
		if errors.As(err, &reserveErr) {
			return e.deny(ctx, request, DenialInsufficientReserve, now)
		}
		return nil, err
	}

	request.Status = StatusApproved
	request.ApprovedAt = &now
	if err := e.repo.SaveRequest(ctx, request); err != nil {
		// Keep the ledger consistent if the request row cannot be written.
		_ = ledger.Release(ctx, request.NetPayout)
		return nil, err
	}

	e.logger.Info("Liquidity request approved",
		zap.String("request_id", request.ID.String()),
		zap.String("reserved", request.NetPayout.StringFixed(2)))

	return request, nil
}

// AdvanceToProcessing moves an approved request into payout processing.
func (e *Engine) AdvanceToProcessing(ctx context.Context, requestID uuid.UUID) (*LiquidityRequest, error) {
	return e.advance(ctx, requestID, StatusProcessing)
}

// Complete finishes a processing request. Completion is the point at
// which the request starts counting toward the monthly redemption cap.
func (e *Engine) Complete(ctx context.Context, requestID uuid.UUID) (*LiquidityRequest, error) {
	return e.advance(ctx, requestID, StatusCompleted)
}

// Cancel withdraws a pending or approved request. An approved request
// returns its reserved amount to the offering's reserve.
func (e *Engine) Cancel(ctx context.Context, requestID uuid.UUID) (*LiquidityRequest, error) {
	now := time.Now().UTC()

	unlock, request, err := e.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := e.sm.Transition(workflows.Status(request.Status), workflows.Status(StatusCancelled)); err != nil {
		return nil, err
	}

	wasApproved := request.Status == StatusApproved

	request.Status = StatusCancelled
	request.CancelledAt = &now
	if err := e.repo.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	if wasApproved {
		if err := e.ledger(request.OfferingID).Release(ctx, request.NetPayout); err != nil {
			return nil, err
		}
	}

	e.logger.Info("Liquidity request cancelled",
		zap.String("request_id", request.ID.String()),
		zap.Bool("reserve_released", wasApproved))

	return request, nil
}

// GetRequest fetches one request by id.
func (e *Engine) GetRequest(ctx context.Context, requestID uuid.UUID) (*LiquidityRequest, error) {
	return e.repo.GetRequest(ctx, requestID)
}

// ListRequests returns all requests for one offering, newest first.
func (e *Engine) ListRequests(ctx context.Context, offeringID uuid.UUID) ([]LiquidityRequest, error) {
	return e.repo.ListRequestsByOffering(ctx, offeringID)
}

func (e *Engine) advance(ctx context.Context, requestID uuid.UUID, to RequestStatus) (*LiquidityRequest, error) {
	now := time.Now().UTC()

	unlock, request, err := e.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := e.sm.Transition(workflows.Status(request.Status), workflows.Status(to)); err != nil {
		return nil, err
	}

	request.Status = to
	switch to {
	case StatusProcessing:
		request.ProcessingAt = &now
	case StatusCompleted:
		request.CompletedAt = &now
	}

	if err := e.repo.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	e.logger.Info("Liquidity request advanced",
		zap.String("request_id", request.ID.String()),
		zap.String("status", string(to)))

	return request, nil
}

func (e *Engine) deny(ctx context.Context, request *LiquidityRequest, reason DenialReason, now time.Time) (*LiquidityRequest, error) {
	request.Status = StatusDenied
	request.DenialReason = &reason
	request.DeniedAt = &now
	if err := e.repo.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	e.logger.Info("Liquidity request denied",
		zap.String("request_id", request.ID.String()),
		zap.String("reason", string(reason)))

	return request, nil
}

// lockRequest loads a request and acquires its offering's lock. The
// request is re-read under the lock so the caller sees current state.
func (e *Engine) lockRequest(ctx context.Context, requestID uuid.UUID) (func(), *LiquidityRequest, error) {
	request, err := e.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	unlock := e.locks.Lock(request.OfferingID.String())
	request, err = e.repo.GetRequest(ctx, requestID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return unlock, request, nil
}
