package secondary

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
	"blineit/investor-portal/investor-portal-backend/pkg/locking"
	"blineit/investor-portal/investor-portal-backend/pkg/workflows"
)

var hundred = decimal.NewFromInt(100)

// listingTransitions: sold, cancelled and expired are terminal.
func listingTransitions() map[workflows.Status][]workflows.Status {
	return map[workflows.Status][]workflows.Status{
		workflows.Status(StatusActive):    {workflows.Status(StatusSold), workflows.Status(StatusCancelled), workflows.Status(StatusExpired)},
		workflows.Status(StatusSold):      {},
		workflows.Status(StatusCancelled): {},
		workflows.Status(StatusExpired):   {},
	}
}

// CreateListingRequest is the seller action that opens a listing.
type CreateListingRequest struct {
	SellerID           uuid.UUID       `json:"seller_id"`
	OfferingID         uuid.UUID       `json:"offering_id"`
	Quantity           int64           `json:"quantity"`
	PricePerToken      decimal.Decimal `json:"price_per_token"`
	OriginalTokenPrice decimal.Decimal `json:"original_token_price"`
	ExpiresAt          *time.Time      `json:"expires_at,omitempty"`
}

// Manager runs the secondary-listing lifecycle. Listing mutations share
// the per-offering locks with the liquidity engine, which keeps the
// expiry sweep safe to run concurrently with purchases and cancellations.
type Manager struct {
	repo   Repository
	locks  *locking.Keyed
	sm     *workflows.StateMachine
	logger *zap.Logger
}

// NewManager creates a secondary listing manager
func NewManager(repo Repository, locks *locking.Keyed, logger *zap.Logger) *Manager {
	return &Manager{
		repo:   repo,
		locks:  locks,
		sm:     workflows.NewStateMachine(listingTransitions()),
		logger: logger,
	}
}

// PriceChange computes the listing's price delta against the original
// token price as a percentage.
func PriceChange(pricePerToken, originalTokenPrice decimal.Decimal) decimal.Decimal {
	return pricePerToken.Sub(originalTokenPrice).
		Div(originalTokenPrice).
		Mul(hundred).
		Round(2)
}

// CreateListing validates and opens a listing in active.
func (m *Manager) CreateListing(ctx context.Context, req CreateListingRequest) (*Listing, error) {
	if req.Quantity <= 0 {
		return nil, faults.Validationf("quantity must be positive, got %d", req.Quantity)
	}
	if !req.PricePerToken.IsPositive() {
		return nil, faults.Validationf("price per token must be positive, got %s", req.PricePerToken)
	}
	if !req.OriginalTokenPrice.IsPositive() {
		return nil, faults.Validationf("original token price must be positive, got %s", req.OriginalTokenPrice)
	}

	listing := &Listing{
		ID:                 uuid.New(),
		SellerID:           req.SellerID,
		OfferingID:         req.OfferingID,
		Quantity:           req.Quantity,
		PricePerToken:      req.PricePerToken,
		OriginalTokenPrice: req.OriginalTokenPrice,
		PriceChangePercent: PriceChange(req.PricePerToken, req.OriginalTokenPrice),
		Status:             StatusActive,
		ExpiresAt:          req.ExpiresAt,
		CreatedAt:          time.Now().UTC(),
	}

	if err := m.repo.CreateListing(ctx, listing); err != nil {
		return nil, err
	}

	m.logger.Info("Secondary listing created",
		zap.String("listing_id", listing.ID.String()),
		zap.String("offering_id", listing.OfferingID.String()),
		zap.String("price_change_percent", listing.PriceChangePercent.StringFixed(2)))

	return listing, nil
}

// CancelListing moves an active listing to cancelled.
func (m *Manager) CancelListing(ctx context.Context, listingID uuid.UUID) (*Listing, error) {
	now := time.Now().UTC()

	unlock, listing, err := m.lockListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := m.sm.Transition(workflows.Status(listing.Status), workflows.Status(StatusCancelled)); err != nil {
		return nil, err
	}

	listing.Status = StatusCancelled
	listing.CancelledAt = &now
	if err := m.repo.SaveListing(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// ExecutePurchase sells an active listing to a buyer. Partial purchases
// are not supported: the quantity must match the listed quantity or the
// call fails. Returns the settlement for the ownership-transfer
// collaborator.
func (m *Manager) ExecutePurchase(ctx context.Context, listingID, buyerID uuid.UUID, quantity int64) (*Settlement, error) {
	now := time.Now().UTC()

	unlock, listing, err := m.lockListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if listing.Status != StatusActive {
		return nil, faults.Validationf("listing %s is %s, not active", listing.ID, listing.Status)
	}
	if quantity > listing.Quantity {
		return nil, faults.Validationf("requested quantity %d exceeds listed quantity %d", quantity, listing.Quantity)
	}
	if quantity != listing.Quantity {
		return nil, faults.Validationf("partial purchases are not supported: listing holds %d tokens", listing.Quantity)
	}

	if err := m.sm.Transition(workflows.Status(listing.Status), workflows.Status(StatusSold)); err != nil {
		return nil, err
	}

	listing.Status = StatusSold
	listing.SoldAt = &now
	if err := m.repo.SaveListing(ctx, listing); err != nil {
		return nil, err
	}

	settlement := &Settlement{
		ListingID:  listing.ID,
		OfferingID: listing.OfferingID,
		SellerID:   listing.SellerID,
		BuyerID:    buyerID,
		Quantity:   quantity,
		Amount:     listing.PricePerToken.Mul(decimal.NewFromInt(quantity)),
	}

	m.logger.Info("Secondary listing sold",
		zap.String("listing_id", listing.ID.String()),
		zap.String("amount", settlement.Amount.StringFixed(2)))

	return settlement, nil
}

// ExpireSweep transitions every active listing whose expiry has passed
// to expired. Idempotent: listings already claimed by a purchase or
// cancellation in the same pass are skipped under the offering lock, and
// a second sweep with the same now finds nothing to do.
func (m *Manager) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	candidates, err := m.repo.ListActiveExpiring(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range candidates {
		unlock, listing, err := m.lockListing(ctx, candidates[i].ID)
		if err != nil {
			return expired, err
		}

		if listing.Status != StatusActive || listing.ExpiresAt == nil || listing.ExpiresAt.After(now) {
			unlock()
			continue
		}

		at := now
		listing.Status = StatusExpired
		listing.ExpiredAt = &at
		if err := m.repo.SaveListing(ctx, listing); err != nil {
			unlock()
			return expired, err
		}
		expired++
		unlock()
	}

	if expired > 0 {
		m.logger.Info("Expired secondary listings", zap.Int("count", expired))
	}
	return expired, nil
}

// MarketSummary aggregates an offering's active listings.
func (m *Manager) MarketSummary(ctx context.Context, offeringID uuid.UUID) (MarketSummary, error) {
	listings, err := m.repo.ListActiveByOffering(ctx, offeringID)
	if err != nil {
		return MarketSummary{}, err
	}
	summary := Summarize(listings)
	summary.OfferingID = offeringID
	return summary, nil
}

// Summarize aggregates lowest/highest ask and average price over the
// active listings given. Returns a zeroed summary when none are active.
func Summarize(listings []Listing) MarketSummary {
	summary := MarketSummary{
		LowestAsk:    decimal.Zero,
		HighestAsk:   decimal.Zero,
		AveragePrice: decimal.Zero,
	}

	total := decimal.Zero
	for _, listing := range listings {
		if listing.Status != StatusActive {
			continue
		}
		if summary.ListingCount == 0 {
			summary.LowestAsk = listing.PricePerToken
			summary.HighestAsk = listing.PricePerToken
		} else {
			if listing.PricePerToken.LessThan(summary.LowestAsk) {
				summary.LowestAsk = listing.PricePerToken
			}
			if listing.PricePerToken.GreaterThan(summary.HighestAsk) {
				summary.HighestAsk = listing.PricePerToken
			}
		}
		summary.ListingCount++
		summary.TotalTokens += listing.Quantity
		total = total.Add(listing.PricePerToken)
	}

	if summary.ListingCount > 0 {
		summary.AveragePrice = total.Div(decimal.NewFromInt(int64(summary.ListingCount))).Round(2)
	}
	return summary
}

// lockListing loads a listing, acquires its offering's lock and re-reads
// it so the caller sees current state.
func (m *Manager) lockListing(ctx context.Context, listingID uuid.UUID) (func(), *Listing, error) {
	listing, err := m.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}

	unlock := m.locks.Lock(listing.OfferingID.String())
	listing, err = m.repo.GetListing(ctx, listingID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return unlock, listing, nil
}
