package compliance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComplianceStateRow is the persisted shape of an investor's compliance
// standing, kept in sync by the external KYC/accreditation providers.
type ComplianceStateRow struct {
	InvestorID          uuid.UUID           `json:"investor_id" gorm:"type:uuid;primary_key"`
	KYCStatus           KYCStatus           `json:"kyc_status" gorm:"default:'not_started'"`
	AccreditationStatus AccreditationStatus `json:"accreditation_status" gorm:"default:'not_started'"`
	AccreditationMethod AccreditationMethod `json:"accreditation_method"`
	UpdatedAt           time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName table name
func (ComplianceStateRow) TableName() string {
	return "investor_compliance_states"
}

// GormProvider reads compliance state from the hosted provider tables.
type GormProvider struct {
	db *gorm.DB
}

// NewGormProvider creates a compliance state provider
func NewGormProvider(db *gorm.DB) *GormProvider {
	return &GormProvider{db: db}
}

// GetComplianceState returns the investor's current standing. An
// investor with no row simply has not started either process.
func (p *GormProvider) GetComplianceState(ctx context.Context, investorID uuid.UUID) (*ComplianceState, error) {
	var row ComplianceStateRow
	err := p.db.WithContext(ctx).First(&row, "investor_id = ?", investorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ComplianceState{
			InvestorID:          investorID,
			KYCStatus:           KYCNotStarted,
			AccreditationStatus: AccreditationNotStarted,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ComplianceState{
		InvestorID:          row.InvestorID,
		KYCStatus:           row.KYCStatus,
		AccreditationStatus: row.AccreditationStatus,
		AccreditationMethod: row.AccreditationMethod,
	}, nil
}
