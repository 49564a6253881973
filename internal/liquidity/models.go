package liquidity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestStatus represents the lifecycle status of a liquidity request
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusApproved   RequestStatus = "approved"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusDenied     RequestStatus = "denied"
	StatusCancelled  RequestStatus = "cancelled"
)

// DenialReason is the machine-readable reason attached to a denied request.
type DenialReason string

const (
	DenialInsufficientReserve DenialReason = "insufficient_reserve"
	DenialMonthlyCapExceeded  DenialReason = "monthly_cap_exceeded"
	DenialReviewerRejected    DenialReason = "reviewer_rejected"
)

// ProgramSettings holds one offering's liquidity program configuration.
// ReserveBalance is mutable and owned exclusively by that offering's
// ReserveLedger; everything else is sponsor configuration.
type ProgramSettings struct {
	OfferingID            uuid.UUID       `json:"offering_id" gorm:"type:uuid;primary_key"`
	Enabled               bool            `json:"enabled" gorm:"default:false"`
	FeeTiers              datatypes.JSON  `json:"fee_tiers" gorm:"default:'[]'"`
	ReservePercent        decimal.Decimal `json:"reserve_percent" gorm:"type:decimal(5,2)"`
	ReserveBalance        decimal.Decimal `json:"reserve_balance" gorm:"type:decimal(14,2)"`
	MaxMonthlyRedemptions *int            `json:"max_monthly_redemptions"`
	MinHoldingDays        int             `json:"min_holding_days" gorm:"default:0"`
	CreatedAt             time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt             time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName table name
func (ProgramSettings) TableName() string {
	return "liquidity_program_settings"
}

// Schedule parses and validates the stored fee tiers. A malformed or
// empty schedule fails here, before any request math happens.
func (s *ProgramSettings) Schedule() (FeeSchedule, error) {
	var tiers []FeeTier
	if len(s.FeeTiers) > 0 {
		if err := json.Unmarshal(s.FeeTiers, &tiers); err != nil {
			return FeeSchedule{}, err
		}
	}
	return NewFeeSchedule(tiers)
}

// SetSchedule validates and stores a fee schedule.
func (s *ProgramSettings) SetSchedule(schedule FeeSchedule) error {
	raw, err := json.Marshal(schedule.Tiers())
	if err != nil {
		return err
	}
	s.FeeTiers = raw
	return nil
}

// LiquidityRequest is an investor's early-redemption request. Terminal
// requests are retained for audit, never deleted.
type LiquidityRequest struct {
	ID                  uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	InvestorID          uuid.UUID       `json:"investor_id" gorm:"type:uuid;not null;index"`
	OfferingID          uuid.UUID       `json:"offering_id" gorm:"type:uuid;not null;index"`
	Quantity            int64           `json:"quantity" gorm:"not null"`
	TokenValueAtRequest decimal.Decimal `json:"token_value_at_request" gorm:"type:decimal(14,2);not null"`
	HoldingPeriodDays   int             `json:"holding_period_days" gorm:"not null"`

	// Fee math snapshot, fixed at submission time
	FeeTierApplied    datatypes.JSON  `json:"fee_tier_applied" gorm:"default:'{}'"`
	FeePercentApplied decimal.Decimal `json:"fee_percent_applied" gorm:"type:decimal(5,2);not null"`
	GrossValue        decimal.Decimal `json:"gross_value" gorm:"type:decimal(14,2);not null"`
	FeeAmount         decimal.Decimal `json:"fee_amount" gorm:"type:decimal(14,2);not null"`
	NetPayout         decimal.Decimal `json:"net_payout" gorm:"type:decimal(14,2);not null"`

	Status       RequestStatus `json:"status" gorm:"default:'pending';index"`
	DenialReason *DenialReason `json:"denial_reason,omitempty"`

	// Transition timestamps
	SubmittedAt  time.Time  `json:"submitted_at" gorm:"autoCreateTime"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ProcessingAt *time.Time `json:"processing_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" gorm:"index"`
	DeniedAt     *time.Time `json:"denied_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName table name
func (LiquidityRequest) TableName() string {
	return "liquidity_requests"
}

// BeforeCreate hook for UUID generation
func (r *LiquidityRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// AppliedTier unmarshals the fee-tier snapshot taken at submission.
func (r *LiquidityRequest) AppliedTier() (FeeTier, error) {
	var tier FeeTier
	err := json.Unmarshal(r.FeeTierApplied, &tier)
	return tier, err
}

func (r *LiquidityRequest) setAppliedTier(tier FeeTier) error {
	raw, err := json.Marshal(tier)
	if err != nil {
		return err
	}
	r.FeeTierApplied = raw
	return nil
}
