package compliance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KYCStatus represents an investor's identity-verification state,
// owned by the external KYC provider.
type KYCStatus string

const (
	KYCNotStarted KYCStatus = "not_started"
	KYCPending    KYCStatus = "pending"
	KYCInReview   KYCStatus = "in_review"
	KYCVerified   KYCStatus = "verified"
	KYCRejected   KYCStatus = "rejected"
)

// AccreditationStatus represents an investor's accreditation state.
type AccreditationStatus string

const (
	AccreditationNotStarted AccreditationStatus = "not_started"
	AccreditationPending    AccreditationStatus = "pending"
	AccreditationVerified   AccreditationStatus = "verified"
	AccreditationRejected   AccreditationStatus = "rejected"
)

// AccreditationMethod is how an investor claimed accreditation.
type AccreditationMethod string

const (
	MethodSelfCertified  AccreditationMethod = "self_certified"
	MethodThirdParty     AccreditationMethod = "third_party"
	MethodIncomeVerified AccreditationMethod = "income_verified"
)

// ComplianceState is the read-only snapshot of an investor's compliance
// standing, fetched fresh from the provider on every evaluation.
type ComplianceState struct {
	InvestorID          uuid.UUID           `json:"investor_id"`
	KYCStatus           KYCStatus           `json:"kyc_status"`
	AccreditationStatus AccreditationStatus `json:"accreditation_status"`
	AccreditationMethod AccreditationMethod `json:"accreditation_method"`
}

// OfferingRequirements is the sponsor-set gate configuration for one
// offering. Immutable per offering.
type OfferingRequirements struct {
	RequiresKYC           bool             `json:"requires_kyc"`
	RequiresAccreditation bool             `json:"requires_accreditation"`
	MinInvestment         decimal.Decimal  `json:"min_investment"`
	MaxInvestment         *decimal.Decimal `json:"max_investment,omitempty"`
	AllowedCountries      []string         `json:"allowed_countries,omitempty"`
}

// NextStep tells the UI which onboarding step to surface next.
type NextStep string

const (
	StepKYC           NextStep = "kyc"
	StepAccreditation NextStep = "accreditation"
	StepReady         NextStep = "ready"
)

// EligibilityChecks breaks the decision into its individual gates.
type EligibilityChecks struct {
	KYC           bool `json:"kyc"`
	Accreditation bool `json:"accreditation"`
	MinInvestment bool `json:"min_investment"`
}

// EligibilityResult is computed fresh on every call and never persisted.
// Reason and NextStep are advisory; Eligible is the decision.
type EligibilityResult struct {
	Eligible bool              `json:"eligible"`
	Reason   string            `json:"reason,omitempty"`
	NextStep NextStep          `json:"next_step"`
	Checks   EligibilityChecks `json:"checks"`
}
