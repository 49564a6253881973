package secondary

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListingStatus represents the lifecycle status of a secondary listing
type ListingStatus string

const (
	StatusActive    ListingStatus = "active"
	StatusSold      ListingStatus = "sold"
	StatusCancelled ListingStatus = "cancelled"
	StatusExpired   ListingStatus = "expired"
)

// Listing is a peer-to-peer resale offer for previously issued tokens.
// PriceChangePercent is derived from the two prices at creation and is
// never independently settable.
type Listing struct {
	ID                 uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	SellerID           uuid.UUID       `json:"seller_id" gorm:"type:uuid;not null;index"`
	OfferingID         uuid.UUID       `json:"offering_id" gorm:"type:uuid;not null;index"`
	Quantity           int64           `json:"quantity" gorm:"not null"`
	PricePerToken      decimal.Decimal `json:"price_per_token" gorm:"type:decimal(14,2);not null"`
	OriginalTokenPrice decimal.Decimal `json:"original_token_price" gorm:"type:decimal(14,2);not null"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent" gorm:"type:decimal(8,2);not null"`
	Status             ListingStatus   `json:"status" gorm:"default:'active';index"`
	ExpiresAt          *time.Time      `json:"expires_at,omitempty" gorm:"index"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName table name
func (Listing) TableName() string {
	return "secondary_listings"
}

// BeforeCreate hook for UUID generation
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Settlement is what the ownership-transfer collaborator executes after
// a purchase succeeds.
type Settlement struct {
	ListingID  uuid.UUID       `json:"listing_id"`
	OfferingID uuid.UUID       `json:"offering_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	BuyerID    uuid.UUID       `json:"buyer_id"`
	Quantity   int64           `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
}

// MarketSummary aggregates the active listings of one offering.
type MarketSummary struct {
	OfferingID    uuid.UUID       `json:"offering_id"`
	ListingCount  int             `json:"listing_count"`
	TotalTokens   int64           `json:"total_tokens"`
	LowestAsk     decimal.Decimal `json:"lowest_ask"`
	HighestAsk    decimal.Decimal `json:"highest_ask"`
	AveragePrice  decimal.Decimal `json:"average_price"`
}
