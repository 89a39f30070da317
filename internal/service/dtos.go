package service

// RatingInput is the payload for submitting a rating against a completed job.
type RatingInput struct {
	JobID        string
	CustomerID   string
	ProviderID   string
	Reliability  int
	Punctuality  int
	PriceHonesty int
	Comment      string
}

// ProviderStats is a read-only summary of a provider's activity.
//
// RatingRate is ratings over completed jobs as a percentage formatted to
// one decimal, "0" when no job has completed. PendingJobs buckets every
// non-completed status together.
type ProviderStats struct {
	TotalJobs     int64
	TotalRatings  int64
	CompletedJobs int64
	PendingJobs   int64
	TrustScore    float64
	Verification  bool
	RatingRate    string
}
