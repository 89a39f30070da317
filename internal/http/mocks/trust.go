package mocks

import (
	"context"
	"errors"

	"github.com/hirelocal/trust-server/internal/repository/models"
	"github.com/hirelocal/trust-server/internal/service"
)

// MockTrustAPI is a function-based mock of the trust service surface
// consumed by the HTTP handlers.
type MockTrustAPI struct {
	CheckEligibilityFunc    func(ctx context.Context, jobID string) (bool, error)
	SubmitRatingFunc        func(ctx context.Context, in service.RatingInput) (models.Rating, float64, error)
	RecomputeTrustScoreFunc func(ctx context.Context, providerID string) (float64, error)
	GetProviderStatsFunc    func(ctx context.Context, providerID string) (service.ProviderStats, error)
}

func (m *MockTrustAPI) CheckEligibility(ctx context.Context, jobID string) (bool, error) {
	if m.CheckEligibilityFunc != nil {
		return m.CheckEligibilityFunc(ctx, jobID)
	}
	return false, errors.New("CheckEligibilityFunc not implemented")
}

func (m *MockTrustAPI) SubmitRating(ctx context.Context, in service.RatingInput) (models.Rating, float64, error) {
	if m.SubmitRatingFunc != nil {
		return m.SubmitRatingFunc(ctx, in)
	}
	return models.Rating{}, 0, errors.New("SubmitRatingFunc not implemented")
}

func (m *MockTrustAPI) RecomputeTrustScore(ctx context.Context, providerID string) (float64, error) {
	if m.RecomputeTrustScoreFunc != nil {
		return m.RecomputeTrustScoreFunc(ctx, providerID)
	}
	return 0, errors.New("RecomputeTrustScoreFunc not implemented")
}

func (m *MockTrustAPI) GetProviderStats(ctx context.Context, providerID string) (service.ProviderStats, error) {
	if m.GetProviderStatsFunc != nil {
		return m.GetProviderStatsFunc(ctx, providerID)
	}
	return service.ProviderStats{}, errors.New("GetProviderStatsFunc not implemented")
}
