package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hirelocal/trust-server/internal/repository"
	"github.com/hirelocal/trust-server/internal/repository/models"
	"github.com/hirelocal/trust-server/internal/service"
)

const maxRequestBody = 1 << 20 // 1 MiB

const statsCachePrefix = "http:provider_stats:"

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type providerCreateRequest struct {
	UserName       string `json:"userName"`
	ServiceType    string `json:"serviceType"`
	Description    string `json:"description"`
	NeighborhoodID string `json:"neighborhoodID"`
}

type providerResponse struct {
	ID             string    `json:"id"`
	UserName       string    `json:"userName"`
	ServiceType    string    `json:"serviceType"`
	Description    string    `json:"description,omitempty"`
	TrustScore     float64   `json:"trustScore"`
	Verification   bool      `json:"verification"`
	NeighborhoodID string    `json:"neighborhoodID"`
	CreatedAt      time.Time `json:"createdAt"`
}

type jobCreateRequest struct {
	CustomerID string  `json:"customerID"`
	ProviderID string  `json:"providerID"`
	Price      float64 `json:"price"`
}

type jobStatusRequest struct {
	Status string `json:"status"`
}

type jobResponse struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customerID"`
	ProviderID  string     `json:"providerID"`
	Status      string     `json:"status"`
	Price       float64    `json:"price"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type ratingCreateRequest struct {
	JobID        string `json:"jobID"`
	CustomerID   string `json:"customerID"`
	ProviderID   string `json:"providerID"`
	Reliability  int    `json:"reliability"`
	Punctuality  int    `json:"punctuality"`
	PriceHonesty int    `json:"priceHonesty"`
	Comment      string `json:"comment"`
}

type ratingResponse struct {
	ID           string    `json:"id"`
	JobID        string    `json:"jobID"`
	CustomerID   string    `json:"customerID"`
	ProviderID   string    `json:"providerID"`
	Reliability  int       `json:"reliability"`
	Punctuality  int       `json:"punctuality"`
	PriceHonesty int       `json:"priceHonesty"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ratingCreatedResponse struct {
	Rating     ratingResponse `json:"rating"`
	TrustScore float64        `json:"trustScore"`
}

type statsResponse struct {
	TotalJobs     int64   `json:"totalJobs"`
	TotalRatings  int64   `json:"totalRatings"`
	CompletedJobs int64   `json:"completedJobs"`
	PendingJobs   int64   `json:"pendingJobs"`
	TrustScore    float64 `json:"trustScore"`
	Verification  bool    `json:"verification"`
	RatingRate    string  `json:"ratingRate"`
}

type eligibilityResponse struct {
	JobID    string `json:"jobID"`
	Eligible bool   `json:"eligible"`
}

type trustScoreResponse struct {
	ProviderID string  `json:"providerID"`
	TrustScore float64 `json:"trustScore"`
}

func statsCacheKey(providerID string) string {
	return statsCachePrefix + providerID
}

// --- ratings ---

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	rating, score, err := s.deps.Trust.SubmitRating(r.Context(), service.RatingInput{
		JobID:        req.JobID,
		CustomerID:   req.CustomerID,
		ProviderID:   req.ProviderID,
		Reliability:  req.Reliability,
		Punctuality:  req.Punctuality,
		PriceHonesty: req.PriceHonesty,
		Comment:      req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyRated):
			s.deps.Metrics.RatingConflicts.Inc()
		case errors.Is(err, service.ErrScoreStale):
			// The rating itself was persisted.
			s.deps.Metrics.RatingsCreated.Inc()
			s.invalidateStats(r, req.ProviderID)
		}
		s.respondServiceError(w, "SubmitRating", err)
		return
	}

	s.deps.Metrics.RatingsCreated.Inc()
	s.deps.Metrics.TrustRecomputes.Inc()
	s.invalidateStats(r, req.ProviderID)

	s.respondJSON(w, http.StatusCreated, ratingCreatedResponse{
		Rating:     toRatingResponse(rating),
		TrustScore: score,
	})
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.RatingFilter{
		ProviderID: query.Get("providerID"),
		CustomerID: query.Get("customerID"),
		JobID:      query.Get("jobID"),
	}

	ratings, err := s.deps.Ratings.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list ratings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list ratings")
		return
	}

	items := make([]ratingResponse, 0, len(ratings))
	for _, rating := range ratings {
		items = append(items, toRatingResponse(rating))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ratings": items, "count": len(items)})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobID")
	if jobID == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "jobID query parameter is required")
		return
	}

	eligible, err := s.deps.Trust.CheckEligibility(r.Context(), jobID)
	if err != nil {
		s.respondServiceError(w, "CheckEligibility", err)
		return
	}
	s.respondJSON(w, http.StatusOK, eligibilityResponse{JobID: jobID, Eligible: eligible})
}

// --- providers ---

func (s *Server) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.UserName == "" || req.ServiceType == "" || req.NeighborhoodID == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "userName, serviceType and neighborhoodID are required")
		return
	}

	provider, err := s.deps.Providers.Insert(r.Context(), models.Provider{
		UserName:       req.UserName,
		ServiceType:    req.ServiceType,
		Description:    req.Description,
		NeighborhoodID: req.NeighborhoodID,
	})
	if err != nil {
		s.logger.Error("create provider failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create provider")
		return
	}
	s.respondJSON(w, http.StatusCreated, toProviderResponse(provider))
}

func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	provider, err := s.deps.Providers.Find(r.Context(), id)
	if err != nil {
		s.respondRepositoryError(w, "GetProvider", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toProviderResponse(provider))
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	verified, _ := strconv.ParseBool(query.Get("verified"))
	filter := models.ProviderFilter{
		ServiceType:    query.Get("service"),
		NeighborhoodID: query.Get("neighborhood"),
		Query:          query.Get("q"),
		VerifiedOnly:   verified,
	}

	providers, err := s.deps.Providers.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list providers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list providers")
		return
	}

	items := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		items = append(items, toProviderResponse(p))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"providers": items, "count": len(items)})
}

func (s *Server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stats, err := FindAndCache(r.Context(), s.deps.Cache, &s.sfGroup, statsCacheKey(id), s.cacheTTL, s.logger,
		func(ctx context.Context) (service.ProviderStats, error) {
			return s.deps.Trust.GetProviderStats(ctx, id)
		})
	if err != nil {
		s.respondServiceError(w, "GetProviderStats", err)
		return
	}

	s.respondJSON(w, http.StatusOK, statsResponse{
		TotalJobs:     stats.TotalJobs,
		TotalRatings:  stats.TotalRatings,
		CompletedJobs: stats.CompletedJobs,
		PendingJobs:   stats.PendingJobs,
		TrustScore:    stats.TrustScore,
		Verification:  stats.Verification,
		RatingRate:    stats.RatingRate,
	})
}

func (s *Server) handleRecomputeTrustScore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	started := time.Now()
	score, err := s.deps.Trust.RecomputeTrustScore(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, "RecomputeTrustScore", err)
		return
	}
	s.deps.Metrics.TrustRecomputes.Inc()
	s.deps.Metrics.RecomputeLatencySec.Observe(time.Since(started).Seconds())
	s.invalidateStats(r, id)

	s.respondJSON(w, http.StatusOK, trustScoreResponse{ProviderID: id, TrustScore: score})
}

// --- jobs ---

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.CustomerID == "" || req.ProviderID == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "customerID and providerID are required")
		return
	}
	if req.Price < 0 {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "price cannot be negative")
		return
	}

	if _, err := s.deps.Providers.Find(r.Context(), req.ProviderID); err != nil {
		s.respondRepositoryError(w, "CreateJob", err)
		return
	}

	job, err := s.deps.Jobs.Insert(r.Context(), models.Job{
		CustomerID: req.CustomerID,
		ProviderID: req.ProviderID,
		Price:      req.Price,
	})
	if err != nil {
		s.logger.Error("create job failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create job")
		return
	}
	s.respondJSON(w, http.StatusCreated, toJobResponse(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.deps.Jobs.Find(r.Context(), id)
	if err != nil {
		s.respondRepositoryError(w, "GetJob", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := query.Get("status")
	if status != "" && !models.ValidJobStatus(status) {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown job status")
		return
	}
	filter := models.JobFilter{
		CustomerID: query.Get("customerID"),
		ProviderID: query.Get("providerID"),
		Status:     status,
	}

	jobs, err := s.deps.Jobs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list jobs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list jobs")
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, toJobResponse(job))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"jobs": items, "count": len(items)})
}

func (s *Server) handleUpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req jobStatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !models.ValidJobStatus(req.Status) {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown job status")
		return
	}

	job, err := s.deps.Jobs.Find(r.Context(), id)
	if err != nil {
		s.respondRepositoryError(w, "UpdateJobStatus", err)
		return
	}
	if !models.CanTransition(job.Status, req.Status) {
		s.respondError(w, http.StatusUnprocessableEntity, "INVALID_STATUS",
			"cannot move job from "+job.Status+" to "+req.Status)
		return
	}

	var completedAt *time.Time
	if req.Status == models.JobStatusCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	if err := s.deps.Jobs.UpdateStatus(r.Context(), id, req.Status, completedAt); err != nil {
		s.respondRepositoryError(w, "UpdateJobStatus", err)
		return
	}

	job.Status = req.Status
	job.CompletedAt = completedAt
	s.respondJSON(w, http.StatusOK, toJobResponse(job))
}

// --- helpers ---

func (s *Server) invalidateStats(r *http.Request, providerID string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Delete(r.Context(), statsCacheKey(providerID)); err != nil {
		s.logger.Warn("stats cache invalidation failed",
			zap.String("provider_id", providerID), zap.Error(err))
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Code: code, Message: message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses
// with distinguishable codes.
func (s *Server) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, service.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrAlreadyRated):
		s.respondError(w, http.StatusConflict, "ALREADY_RATED", err.Error())
	case errors.Is(err, service.ErrInvalidState):
		s.respondError(w, http.StatusUnprocessableEntity, "JOB_NOT_COMPLETED", err.Error())
	case errors.Is(err, service.ErrScoreStale):
		s.logger.Error("trust score left stale", zap.String("op", op), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "SCORE_STALE",
			"rating stored but trust score recompute failed; retry recompute")
	default:
		s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func (s *Server) respondRepositoryError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}
	s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}

func toProviderResponse(p models.Provider) providerResponse {
	return providerResponse{
		ID:             p.ID,
		UserName:       p.UserName,
		ServiceType:    p.ServiceType,
		Description:    p.Description,
		TrustScore:     p.TrustScore,
		Verification:   p.Verification,
		NeighborhoodID: p.NeighborhoodID,
		CreatedAt:      p.CreatedAt,
	}
}

func toJobResponse(j models.Job) jobResponse {
	return jobResponse{
		ID:          j.ID,
		CustomerID:  j.CustomerID,
		ProviderID:  j.ProviderID,
		Status:      j.Status,
		Price:       j.Price,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
	}
}

func toRatingResponse(r models.Rating) ratingResponse {
	return ratingResponse{
		ID:           r.ID,
		JobID:        r.JobID,
		CustomerID:   r.CustomerID,
		ProviderID:   r.ProviderID,
		Reliability:  r.Reliability,
		Punctuality:  r.Punctuality,
		PriceHonesty: r.PriceHonesty,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
	}
}
