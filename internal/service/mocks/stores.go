package mocks

import (
	"context"
	"errors"

	"github.com/hirelocal/trust-server/internal/repository/models"
)

// MockRatingStore is a function-based mock of the RatingStore interface
// for testing the service layer.
type MockRatingStore struct {
	InsertFunc          func(ctx context.Context, rating models.Rating) (models.Rating, error)
	ExistsForJobFunc    func(ctx context.Context, jobID string) (bool, error)
	TrustAggregateFunc  func(ctx context.Context, providerID string) (models.TrustAggregate, error)
	CountByProviderFunc func(ctx context.Context, providerID string) (int64, error)
}

func (m *MockRatingStore) Insert(ctx context.Context, rating models.Rating) (models.Rating, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, rating)
	}
	return models.Rating{}, errors.New("InsertFunc not implemented")
}

func (m *MockRatingStore) ExistsForJob(ctx context.Context, jobID string) (bool, error) {
	if m.ExistsForJobFunc != nil {
		return m.ExistsForJobFunc(ctx, jobID)
	}
	return false, errors.New("ExistsForJobFunc not implemented")
}

func (m *MockRatingStore) TrustAggregate(ctx context.Context, providerID string) (models.TrustAggregate, error) {
	if m.TrustAggregateFunc != nil {
		return m.TrustAggregateFunc(ctx, providerID)
	}
	return models.TrustAggregate{}, errors.New("TrustAggregateFunc not implemented")
}

func (m *MockRatingStore) CountByProvider(ctx context.Context, providerID string) (int64, error) {
	if m.CountByProviderFunc != nil {
		return m.CountByProviderFunc(ctx, providerID)
	}
	return 0, errors.New("CountByProviderFunc not implemented")
}

// MockJobStore is a function-based mock of the JobStore interface.
type MockJobStore struct {
	FindFunc             func(ctx context.Context, id string) (models.Job, error)
	CountsByProviderFunc func(ctx context.Context, providerID string) (models.ProviderJobCounts, error)
}

func (m *MockJobStore) Find(ctx context.Context, id string) (models.Job, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, id)
	}
	return models.Job{}, errors.New("FindFunc not implemented")
}

func (m *MockJobStore) CountsByProvider(ctx context.Context, providerID string) (models.ProviderJobCounts, error) {
	if m.CountsByProviderFunc != nil {
		return m.CountsByProviderFunc(ctx, providerID)
	}
	return models.ProviderJobCounts{}, errors.New("CountsByProviderFunc not implemented")
}

// MockProviderStore is a function-based mock of the ProviderStore interface.
type MockProviderStore struct {
	FindFunc             func(ctx context.Context, id string) (models.Provider, error)
	UpdateTrustScoreFunc func(ctx context.Context, id string, score float64) error
}

func (m *MockProviderStore) Find(ctx context.Context, id string) (models.Provider, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, id)
	}
	return models.Provider{}, errors.New("FindFunc not implemented")
}

func (m *MockProviderStore) UpdateTrustScore(ctx context.Context, id string, score float64) error {
	if m.UpdateTrustScoreFunc != nil {
		return m.UpdateTrustScoreFunc(ctx, id, score)
	}
	return errors.New("UpdateTrustScoreFunc not implemented")
}
