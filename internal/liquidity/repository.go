package liquidity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
)

// Repository defines the persistence collaborator for liquidity state.
// Each write is assumed transactional per entity; serialization across
// check-then-write sequences is the engine's job.
type Repository interface {
	GetProgramSettings(ctx context.Context, offeringID uuid.UUID) (*ProgramSettings, error)
	SaveProgramSettings(ctx context.Context, settings *ProgramSettings) error

	CreateRequest(ctx context.Context, request *LiquidityRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*LiquidityRequest, error)
	SaveRequest(ctx context.Context, request *LiquidityRequest) error
	ListRequestsByOffering(ctx context.Context, offeringID uuid.UUID) ([]LiquidityRequest, error)

	// CountCompletedInRange counts requests whose completion timestamp
	// falls in [from, to). Backs the monthly redemption cap.
	CountCompletedInRange(ctx context.Context, offeringID uuid.UUID, from, to time.Time) (int64, error)
}

// GormRepository implements Repository using PostgreSQL via gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new liquidity repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetProgramSettings(ctx context.Context, offeringID uuid.UUID) (*ProgramSettings, error) {
	var settings ProgramSettings
	err := r.db.WithContext(ctx).First(&settings, "offering_id = ?", offeringID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &faults.NotFoundError{Entity: "liquidity program settings", ID: offeringID.String()}
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *GormRepository) SaveProgramSettings(ctx context.Context, settings *ProgramSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *GormRepository) CreateRequest(ctx context.Context, request *LiquidityRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *GormRepository) GetRequest(ctx context.Context, id uuid.UUID) (*LiquidityRequest, error) {
	var request LiquidityRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &faults.NotFoundError{Entity: "liquidity request", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *GormRepository) SaveRequest(ctx context.Context, request *LiquidityRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

func (r *GormRepository) ListRequestsByOffering(ctx context.Context, offeringID uuid.UUID) ([]LiquidityRequest, error) {
	var requests []LiquidityRequest
	err := r.db.WithContext(ctx).
		Where("offering_id = ?", offeringID).
		Order("submitted_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *GormRepository) CountCompletedInRange(ctx context.Context, offeringID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LiquidityRequest{}).
		Where("offering_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			offeringID, StatusCompleted, from, to).
		Count(&count).Error
	return count, err
}
