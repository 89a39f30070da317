package models

import "time"

// Job lifecycle states. Only completed jobs are eligible for rating.
const (
	JobStatusPending   = "pending"
	JobStatusConfirmed = "confirmed"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)

// ValidJobStatus reports whether s is one of the known lifecycle states.
func ValidJobStatus(s string) bool {
	switch s {
	case JobStatusPending, JobStatusConfirmed, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from one status to another.
// Completed and cancelled are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusConfirmed || to == JobStatusCancelled
	case JobStatusConfirmed:
		return to == JobStatusCompleted || to == JobStatusCancelled
	}
	return false
}

type Provider struct {
	ID             string
	UserName       string
	ServiceType    string
	Description    string
	TrustScore     float64
	Verification   bool
	NeighborhoodID string
	CreatedAt      time.Time
}

type Job struct {
	ID          string
	CustomerID  string
	ProviderID  string
	Status      string
	Price       float64
	CompletedAt *time.Time
	CreatedAt   time.Time
}

type Rating struct {
	ID           string
	JobID        string
	CustomerID   string
	ProviderID   string
	Reliability  int
	Punctuality  int
	PriceHonesty int
	Comment      string
	CreatedAt    time.Time
}

// TrustAggregate is the SQL-side full-rescan aggregate over a provider's
// ratings: mean of per-rating sub-score averages, plus the rating count.
type TrustAggregate struct {
	Score float64
	Count int64
}

// ProviderJobCounts summarizes a provider's job ledger for stats.
type ProviderJobCounts struct {
	Total     int64
	Completed int64
}

type RatingFilter struct {
	ProviderID string
	CustomerID string
	JobID      string
}

type JobFilter struct {
	CustomerID string
	ProviderID string
	Status     string
}

type ProviderFilter struct {
	ServiceType    string
	NeighborhoodID string
	Query          string
	VerifiedOnly   bool
}
