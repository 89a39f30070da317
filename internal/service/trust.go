package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hirelocal/trust-server/internal/repository"
	"github.com/hirelocal/trust-server/internal/repository/models"
)

const (
	dbTimeout     = 1 * time.Second
	maxCommentLen = 1000
	minSubScore   = 1
	maxSubScore   = 5
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrInvalidState   = errors.New("job is not completed")
	ErrAlreadyRated   = errors.New("job already rated")
	ErrStorageFailure = errors.New("storage failure")

	// ErrScoreStale signals that a rating was persisted but the follow-up
	// trust score recompute failed. The rating stands; RecomputeTrustScore
	// is the idempotent reconciliation path.
	ErrScoreStale = errors.New("rating stored but trust score is stale")
)

// TrustService owns rating eligibility, rating submission, trust score
// recomputation, and provider statistics.
type TrustService struct {
	ratings   RatingStore
	jobs      JobStore
	providers ProviderStore
	logger    *zap.Logger
}

// NewTrustService creates a new TrustService instance.
func NewTrustService(ratings RatingStore, jobs JobStore, providers ProviderStore, logger *zap.Logger) *TrustService {
	if ratings == nil || jobs == nil || providers == nil {
		panic("stores must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &TrustService{
		ratings:   ratings,
		jobs:      jobs,
		providers: providers,
		logger:    logger,
	}
}

// CheckEligibility reports whether a new rating may be created for the job:
// the job must exist, be completed, and not already be rated.
func (s *TrustService) CheckEligibility(ctx context.Context, jobID string) (bool, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	job, err := s.jobs.Find(dbCtx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}
		return false, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if job.Status != models.JobStatusCompleted {
		return false, nil
	}

	rated, err := s.ratings.ExistsForJob(dbCtx, jobID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return !rated, nil
}

// SubmitRating validates, persists a rating, and recomputes the provider's
// trust score as one operation. On recompute failure after a successful
// insert it returns the stored rating together with ErrScoreStale so the
// inconsistency is loud rather than silent.
func (s *TrustService) SubmitRating(ctx context.Context, in RatingInput) (models.Rating, float64, error) {
	if err := validateRatingInput(in); err != nil {
		return models.Rating{}, 0, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	job, err := s.jobs.Find(dbCtx, in.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Rating{}, 0, fmt.Errorf("%w: job %s", ErrNotFound, in.JobID)
		}
		return models.Rating{}, 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if job.Status != models.JobStatusCompleted {
		return models.Rating{}, 0, fmt.Errorf("%w: job status is %s", ErrInvalidState, job.Status)
	}
	if job.ProviderID != in.ProviderID {
		return models.Rating{}, 0, fmt.Errorf("%w: provider does not match job", ErrValidation)
	}
	if job.CustomerID != in.CustomerID {
		return models.Rating{}, 0, fmt.Errorf("%w: customer does not match job", ErrValidation)
	}

	rated, err := s.ratings.ExistsForJob(dbCtx, in.JobID)
	if err != nil {
		return models.Rating{}, 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if rated {
		return models.Rating{}, 0, fmt.Errorf("%w: job %s", ErrAlreadyRated, in.JobID)
	}

	rating, err := s.ratings.Insert(dbCtx, models.Rating{
		JobID:        in.JobID,
		CustomerID:   in.CustomerID,
		ProviderID:   in.ProviderID,
		Reliability:  in.Reliability,
		Punctuality:  in.Punctuality,
		PriceHonesty: in.PriceHonesty,
		Comment:      in.Comment,
	})
	if err != nil {
		// A concurrent submission can slip past the read check; the unique
		// index reports it as a duplicate on insert.
		if errors.Is(err, repository.ErrDuplicateRating) {
			return models.Rating{}, 0, fmt.Errorf("%w: job %s", ErrAlreadyRated, in.JobID)
		}
		return models.Rating{}, 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	score, err := s.RecomputeTrustScore(ctx, in.ProviderID)
	if err != nil {
		s.logger.Error("trust score recompute failed after rating insert",
			zap.String("rating_id", rating.ID),
			zap.String("provider_id", in.ProviderID),
			zap.Error(err))
		return rating, 0, fmt.Errorf("%w: %v", ErrScoreStale, err)
	}

	s.logger.Info("rating submitted",
		zap.String("rating_id", rating.ID),
		zap.String("job_id", in.JobID),
		zap.String("provider_id", in.ProviderID),
		zap.Float64("trust_score", score))

	return rating, score, nil
}

// RecomputeTrustScore recomputes and persists the provider's trust score
// from the full rating set. The score is the mean of per-rating sub-score
// averages rounded to two decimals, 0 when no ratings exist. Calling it
// repeatedly with no intervening writes yields the same value.
func (s *TrustService) RecomputeTrustScore(ctx context.Context, providerID string) (float64, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.providers.Find(dbCtx, providerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: provider %s", ErrNotFound, providerID)
		}
		return 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	agg, err := s.ratings.TrustAggregate(dbCtx, providerID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	score := 0.0
	if agg.Count > 0 {
		score = round2(agg.Score)
	}

	if err := s.providers.UpdateTrustScore(dbCtx, providerID, score); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("trust score recomputed",
		zap.String("provider_id", providerID),
		zap.Float64("trust_score", score),
		zap.Int64("rating_count", agg.Count))

	return score, nil
}

// GetProviderStats composes a read-only activity summary for a provider.
func (s *TrustService) GetProviderStats(ctx context.Context, providerID string) (ProviderStats, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	provider, err := s.providers.Find(dbCtx, providerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ProviderStats{}, fmt.Errorf("%w: provider %s", ErrNotFound, providerID)
		}
		return ProviderStats{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	counts, err := s.jobs.CountsByProvider(dbCtx, providerID)
	if err != nil {
		return ProviderStats{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	totalRatings, err := s.ratings.CountByProvider(dbCtx, providerID)
	if err != nil {
		return ProviderStats{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	// Guard the division: a provider can have jobs with none completed.
	ratingRate := "0"
	if counts.Completed > 0 {
		rate := float64(totalRatings) / float64(counts.Completed) * 100.0
		ratingRate = strconv.FormatFloat(rate, 'f', 1, 64)
	}

	return ProviderStats{
		TotalJobs:     counts.Total,
		TotalRatings:  totalRatings,
		CompletedJobs: counts.Completed,
		PendingJobs:   counts.Total - counts.Completed,
		TrustScore:    provider.TrustScore,
		Verification:  provider.Verification,
		RatingRate:    ratingRate,
	}, nil
}

func validateRatingInput(in RatingInput) error {
	if in.JobID == "" || in.CustomerID == "" || in.ProviderID == "" {
		return fmt.Errorf("%w: job, customer and provider ids are required", ErrValidation)
	}
	for _, sub := range []struct {
		name  string
		value int
	}{
		{"reliability", in.Reliability},
		{"punctuality", in.Punctuality},
		{"priceHonesty", in.PriceHonesty},
	} {
		if sub.value < minSubScore || sub.value > maxSubScore {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrValidation, sub.name, minSubScore, maxSubScore)
		}
	}
	if len(in.Comment) > maxCommentLen {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, maxCommentLen)
	}
	return nil
}

// round2 rounds half away from zero to two decimals; for the non-negative
// score domain that is round-half-up.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
