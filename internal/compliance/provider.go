package compliance

import (
	"context"

	"github.com/google/uuid"
)

// Provider is the external KYC/accreditation feed. The engine only ever
// reads compliance state; it never mutates it.
type Provider interface {
	GetComplianceState(ctx context.Context, investorID uuid.UUID) (*ComplianceState, error)
}
