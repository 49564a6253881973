package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"blineit/investor-portal/investor-portal-backend/internal/compliance"
	"blineit/investor-portal/investor-portal-backend/internal/liquidity"
	"blineit/investor-portal/investor-portal-backend/internal/secondary"
)

// Gateway is the single decision surface the rest of the platform calls:
// investment eligibility, the liquidity-request lifecycle and secondary
// listings. It composes the engine packages and adds nothing of its own.
type Gateway struct {
	provider compliance.Provider
	engine   *liquidity.Engine
	listings *secondary.Manager
	logger   *zap.Logger
}

// NewGateway creates the compliance gateway facade
func NewGateway(provider compliance.Provider, engine *liquidity.Engine, listings *secondary.Manager, logger *zap.Logger) *Gateway {
	return &Gateway{
		provider: provider,
		engine:   engine,
		listings: listings,
		logger:   logger,
	}
}

// CheckEligibility pulls the investor's current compliance state from
// the provider and evaluates it against the offering's requirements.
// Nothing is cached; a stale compliance read cannot leak into the
// decision.
func (g *Gateway) CheckEligibility(ctx context.Context, investorID uuid.UUID, req compliance.OfferingRequirements, requestedAmount decimal.Decimal) (compliance.EligibilityResult, error) {
	state, err := g.provider.GetComplianceState(ctx, investorID)
	if err != nil {
		return compliance.EligibilityResult{}, fmt.Errorf("failed to fetch compliance state: %w", err)
	}
	return compliance.Evaluate(req, *state, requestedAmount), nil
}

// ConfigureLiquidityProgram creates or updates an offering's liquidity
// program settings.
func (g *Gateway) ConfigureLiquidityProgram(ctx context.Context, req liquidity.ConfigureProgramRequest) (*liquidity.ProgramSettings, error) {
	return g.engine.ConfigureProgram(ctx, req)
}

// GetLiquidityProgram fetches an offering's liquidity program settings.
func (g *Gateway) GetLiquidityProgram(ctx context.Context, offeringID uuid.UUID) (*liquidity.ProgramSettings, error) {
	return g.engine.GetProgramSettings(ctx, offeringID)
}

// FundLiquidityReserve deposits sponsor funds into an offering's reserve.
func (g *Gateway) FundLiquidityReserve(ctx context.Context, offeringID uuid.UUID, amount decimal.Decimal) (*liquidity.ProgramSettings, error) {
	return g.engine.FundReserve(ctx, offeringID, amount)
}

// SubmitLiquidityRequest opens an early-redemption request.
func (g *Gateway) SubmitLiquidityRequest(ctx context.Context, req liquidity.SubmitRequest) (*liquidity.LiquidityRequest, error) {
	return g.engine.Submit(ctx, req)
}

// ReviewLiquidityRequest applies a reviewer decision.
func (g *Gateway) ReviewLiquidityRequest(ctx context.Context, requestID uuid.UUID, decision liquidity.ReviewDecision) (*liquidity.LiquidityRequest, error) {
	return g.engine.Review(ctx, requestID, decision)
}

// AdvanceLiquidityRequest moves an approved request into processing.
func (g *Gateway) AdvanceLiquidityRequest(ctx context.Context, requestID uuid.UUID) (*liquidity.LiquidityRequest, error) {
	return g.engine.AdvanceToProcessing(ctx, requestID)
}

// CompleteLiquidityRequest finishes a processing request.
func (g *Gateway) CompleteLiquidityRequest(ctx context.Context, requestID uuid.UUID) (*liquidity.LiquidityRequest, error) {
	return g.engine.Complete(ctx, requestID)
}

// CancelLiquidityRequest withdraws a pending or approved request.
func (g *Gateway) CancelLiquidityRequest(ctx context.Context, requestID uuid.UUID) (*liquidity.LiquidityRequest, error) {
	return g.engine.Cancel(ctx, requestID)
}

// GetLiquidityRequest fetches one request.
func (g *Gateway) GetLiquidityRequest(ctx context.Context, requestID uuid.UUID) (*liquidity.LiquidityRequest, error) {
	return g.engine.GetRequest(ctx, requestID)
}

// ListLiquidityRequests lists an offering's requests, newest first.
func (g *Gateway) ListLiquidityRequests(ctx context.Context, offeringID uuid.UUID) ([]liquidity.LiquidityRequest, error) {
	return g.engine.ListRequests(ctx, offeringID)
}

// CreateListing opens a secondary listing.
func (g *Gateway) CreateListing(ctx context.Context, req secondary.CreateListingRequest) (*secondary.Listing, error) {
	return g.listings.CreateListing(ctx, req)
}

// CancelListing cancels an active listing.
func (g *Gateway) CancelListing(ctx context.Context, listingID uuid.UUID) (*secondary.Listing, error) {
	return g.listings.CancelListing(ctx, listingID)
}

// ExecutePurchase buys out an active listing in full.
func (g *Gateway) ExecutePurchase(ctx context.Context, listingID, buyerID uuid.UUID, quantity int64) (*secondary.Settlement, error) {
	return g.listings.ExecutePurchase(ctx, listingID, buyerID, quantity)
}

// MarketSummary aggregates an offering's active listings.
func (g *Gateway) MarketSummary(ctx context.Context, offeringID uuid.UUID) (secondary.MarketSummary, error) {
	return g.listings.MarketSummary(ctx, offeringID)
}

// ExpireListings runs one expiry sweep pass.
func (g *Gateway) ExpireListings(ctx context.Context, now time.Time) (int, error) {
	return g.listings.ExpireSweep(ctx, now)
}
