package liquidity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
)

// memRepository is an in-memory Repository. It copies rows in and out
// the way a database would, so engine tests observe real read/write
// ordering, including under concurrency.
type memRepository struct {
	mu       sync.Mutex
	settings map[uuid.UUID]ProgramSettings
	requests map[uuid.UUID]LiquidityRequest
}

func newMemRepository() *memRepository {
	return &memRepository{
		settings: make(map[uuid.UUID]ProgramSettings),
		requests: make(map[uuid.UUID]LiquidityRequest),
	}
}

func (m *memRepository) GetProgramSettings(_ context.Context, offeringID uuid.UUID) (*ProgramSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.settings[offeringID]
	if !ok {
		return nil, &faults.NotFoundError{Entity: "liquidity program settings", ID: offeringID.String()}
	}
	out := settings
	return &out, nil
}

func (m *memRepository) SaveProgramSettings(_ context.Context, settings *ProgramSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settings.OfferingID] = *settings
	return nil
}

func (m *memRepository) CreateRequest(_ context.Context, request *LiquidityRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[request.ID] = *request
	return nil
}

func (m *memRepository) GetRequest(_ context.Context, id uuid.UUID) (*LiquidityRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.requests[id]
	if !ok {
		return nil, &faults.NotFoundError{Entity: "liquidity request", ID: id.String()}
	}
	out := request
	return &out, nil
}

func (m *memRepository) SaveRequest(_ context.Context, request *LiquidityRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[request.ID] = *request
	return nil
}

func (m *memRepository) ListRequestsByOffering(_ context.Context, offeringID uuid.UUID) ([]LiquidityRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LiquidityRequest
	for _, request := range m.requests {
		if request.OfferingID == offeringID {
			out = append(out, request)
		}
	}
	return out, nil
}

func (m *memRepository) CountCompletedInRange(_ context.Context, offeringID uuid.UUID, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, request := range m.requests {
		if request.OfferingID != offeringID || request.Status != StatusCompleted || request.CompletedAt == nil {
			continue
		}
		at := *request.CompletedAt
		if !at.Before(from) && at.Before(to) {
			count++
		}
	}
	return count, nil
}
