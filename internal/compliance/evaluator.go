package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Evaluate decides whether an investor may place an investment of the
// requested amount into an offering. It is pure: no I/O, no stored
// state, deterministic given its inputs. This is the canonical decision
// made before any investment-creating action.
func Evaluate(req OfferingRequirements, state ComplianceState, requestedAmount decimal.Decimal) EligibilityResult {
	kycPassed := !req.RequiresKYC || state.KYCStatus == KYCVerified

	// Self-certification is a deliberate bypass: a self-certified
	// investor satisfies accreditation regardless of verification
	// outcome.
	accreditationPassed := !req.RequiresAccreditation ||
		state.AccreditationStatus == AccreditationVerified ||
		state.AccreditationMethod == MethodSelfCertified

	// Inclusive boundary: requesting exactly the minimum passes.
	minInvestmentPassed := requestedAmount.GreaterThanOrEqual(req.MinInvestment)

	result := EligibilityResult{
		Eligible: kycPassed && accreditationPassed && minInvestmentPassed,
		Checks: EligibilityChecks{
			KYC:           kycPassed,
			Accreditation: accreditationPassed,
			MinInvestment: minInvestmentPassed,
		},
	}

	// NextStep reflects identity problems only; a min-investment
	// shortfall is an amount problem and is reported through Reason.
	switch {
	case !kycPassed:
		result.NextStep = StepKYC
		result.Reason = "identity verification required"
	case !accreditationPassed:
		result.NextStep = StepAccreditation
		result.Reason = "accreditation required"
	default:
		result.NextStep = StepReady
		if !minInvestmentPassed {
			result.Reason = fmt.Sprintf("minimum investment is %s", req.MinInvestment.StringFixed(2))
		}
	}

	return result
}
