package secondary

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
)

// Repository defines the persistence collaborator for secondary listings.
type Repository interface {
	CreateListing(ctx context.Context, listing *Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	SaveListing(ctx context.Context, listing *Listing) error
	ListActiveByOffering(ctx context.Context, offeringID uuid.UUID) ([]Listing, error)

	// ListActiveExpiring returns active listings whose expiry is at or
	// before now. Drives the expiry sweep.
	ListActiveExpiring(ctx context.Context, now time.Time) ([]Listing, error)
}

// GormRepository implements Repository using PostgreSQL via gorm
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new listings repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateListing(ctx context.Context, listing *Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *GormRepository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &faults.NotFoundError{Entity: "secondary listing", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *GormRepository) SaveListing(ctx context.Context, listing *Listing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *GormRepository) ListActiveByOffering(ctx context.Context, offeringID uuid.UUID) ([]Listing, error) {
	var listings []Listing
	err := r.db.WithContext(ctx).
		Where("offering_id = ? AND status = ?", offeringID, StatusActive).
		Order("price_per_token ASC").
		Find(&listings).Error
	return listings, err
}

func (r *GormRepository) ListActiveExpiring(ctx context.Context, now time.Time) ([]Listing, error) {
	var listings []Listing
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", StatusActive, now).
		Find(&listings).Error
	return listings, err
}
