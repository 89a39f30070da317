package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/hirelocal/trust-server/internal/repository"
	"github.com/hirelocal/trust-server/internal/repository/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.EnsureSchema(context.Background(), db))
	return db
}

func seedProvider(t *testing.T, db *sql.DB, id string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO neighborhoods (id, name, city, created_at) VALUES ('nb-1', 'Old Town', 'Springfield', ?)
		ON CONFLICT (id) DO NOTHING`, time.Now().UTC())
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO providers (id, user_name, service_type, description, trust_score, verification, neighborhood_id, created_at)
		VALUES (?, 'Sam the Plumber', 'plumbing', 'leaks fixed fast', 0, 1, 'nb-1', ?)
	`, id, time.Now().UTC())
	require.NoError(t, err)
}

func seedJob(t *testing.T, db *sql.DB, id, customerID, providerID, status string) {
	t.Helper()

	var completedAt any
	if status == models.JobStatusCompleted {
		completedAt = time.Now().UTC()
	}
	_, err := db.Exec(`
		INSERT INTO jobs (id, customer_id, provider_id, status, price, completed_at, created_at)
		VALUES (?, ?, ?, ?, 120, ?, ?)
	`, id, customerID, providerID, status, completedAt, time.Now().UTC())
	require.NoError(t, err)
}

func TestRatingRepository_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedProvider(t, db, "prov-1")
	seedJob(t, db, "job-1", "cust-1", "prov-1", models.JobStatusCompleted)
	seedJob(t, db, "job-2", "cust-2", "prov-1", models.JobStatusCompleted)

	repo := repository.NewRatingRepository(db)

	t.Run("Insert assigns id and timestamp", func(t *testing.T) {
		rating, err := repo.Insert(ctx, models.Rating{
			JobID:        "job-1",
			CustomerID:   "cust-1",
			ProviderID:   "prov-1",
			Reliability:  3,
			Punctuality:  4,
			PriceHonesty: 5,
			Comment:      "good",
		})
		require.NoError(t, err)
		require.NotEmpty(t, rating.ID)
		require.False(t, rating.CreatedAt.IsZero())
	})

	t.Run("second rating for the same job is rejected", func(t *testing.T) {
		_, err := repo.Insert(ctx, models.Rating{
			JobID:        "job-1",
			CustomerID:   "cust-1",
			ProviderID:   "prov-1",
			Reliability:  1,
			Punctuality:  1,
			PriceHonesty: 1,
		})
		require.ErrorIs(t, err, repository.ErrDuplicateRating)
	})

	t.Run("ExistsForJob", func(t *testing.T) {
		exists, err := repo.ExistsForJob(ctx, "job-1")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = repo.ExistsForJob(ctx, "job-2")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("TrustAggregate over full rating set", func(t *testing.T) {
		// job-1 rating averages (3+4+5)/3 = 4.0
		agg, err := repo.TrustAggregate(ctx, "prov-1")
		require.NoError(t, err)
		require.Equal(t, int64(1), agg.Count)
		require.InDelta(t, 4.0, agg.Score, 1e-9)

		_, err = repo.Insert(ctx, models.Rating{
			JobID:        "job-2",
			CustomerID:   "cust-2",
			ProviderID:   "prov-1",
			Reliability:  5,
			Punctuality:  5,
			PriceHonesty: 5,
		})
		require.NoError(t, err)

		agg, err = repo.TrustAggregate(ctx, "prov-1")
		require.NoError(t, err)
		require.Equal(t, int64(2), agg.Count)
		require.InDelta(t, 4.5, agg.Score, 1e-9)
	})

	t.Run("TrustAggregate with no ratings", func(t *testing.T) {
		seedProvider(t, db, "prov-empty")

		agg, err := repo.TrustAggregate(ctx, "prov-empty")
		require.NoError(t, err)
		require.Equal(t, int64(0), agg.Count)
		require.Equal(t, 0.0, agg.Score)
	})

	t.Run("CountByProvider", func(t *testing.T) {
		count, err := repo.CountByProvider(ctx, "prov-1")
		require.NoError(t, err)
		require.Equal(t, int64(2), count)
	})

	t.Run("List filters by provider and job", func(t *testing.T) {
		all, err := repo.List(ctx, models.RatingFilter{ProviderID: "prov-1"})
		require.NoError(t, err)
		require.Len(t, all, 2)

		byJob, err := repo.List(ctx, models.RatingFilter{JobID: "job-2"})
		require.NoError(t, err)
		require.Len(t, byJob, 1)
		require.Equal(t, "cust-2", byJob[0].CustomerID)

		none, err := repo.List(ctx, models.RatingFilter{CustomerID: "nobody"})
		require.NoError(t, err)
		require.Empty(t, none)
	})
}

func TestJobRepository_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedProvider(t, db, "prov-1")

	repo := repository.NewJobRepository(db)

	t.Run("Insert defaults to pending", func(t *testing.T) {
		job, err := repo.Insert(ctx, models.Job{CustomerID: "cust-1", ProviderID: "prov-1", Price: 80})
		require.NoError(t, err)
		require.NotEmpty(t, job.ID)
		require.Equal(t, models.JobStatusPending, job.Status)

		found, err := repo.Find(ctx, job.ID)
		require.NoError(t, err)
		require.Equal(t, job.ID, found.ID)
		require.Nil(t, found.CompletedAt)
	})

	t.Run("Find missing job", func(t *testing.T) {
		_, err := repo.Find(ctx, "ghost")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("UpdateStatus records completion time", func(t *testing.T) {
		job, err := repo.Insert(ctx, models.Job{CustomerID: "cust-1", ProviderID: "prov-1"})
		require.NoError(t, err)

		now := time.Now().UTC()
		require.NoError(t, repo.UpdateStatus(ctx, job.ID, models.JobStatusCompleted, &now))

		found, err := repo.Find(ctx, job.ID)
		require.NoError(t, err)
		require.Equal(t, models.JobStatusCompleted, found.Status)
		require.NotNil(t, found.CompletedAt)
	})

	t.Run("UpdateStatus on missing job", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, "ghost", models.JobStatusConfirmed, nil)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("CountsByProvider", func(t *testing.T) {
		seedProvider(t, db, "prov-2")
		seedJob(t, db, "cj-1", "cust-1", "prov-2", models.JobStatusCompleted)
		seedJob(t, db, "cj-2", "cust-1", "prov-2", models.JobStatusCompleted)
		seedJob(t, db, "cj-3", "cust-2", "prov-2", models.JobStatusPending)
		seedJob(t, db, "cj-4", "cust-2", "prov-2", models.JobStatusCancelled)

		counts, err := repo.CountsByProvider(ctx, "prov-2")
		require.NoError(t, err)
		require.Equal(t, int64(4), counts.Total)
		require.Equal(t, int64(2), counts.Completed)
	})

	t.Run("CountsByProvider with no jobs", func(t *testing.T) {
		counts, err := repo.CountsByProvider(ctx, "prov-none")
		require.NoError(t, err)
		require.Equal(t, int64(0), counts.Total)
		require.Equal(t, int64(0), counts.Completed)
	})

	t.Run("List filters by status", func(t *testing.T) {
		completed, err := repo.List(ctx, models.JobFilter{ProviderID: "prov-2", Status: models.JobStatusCompleted})
		require.NoError(t, err)
		require.Len(t, completed, 2)

		byCustomer, err := repo.List(ctx, models.JobFilter{CustomerID: "cust-2"})
		require.NoError(t, err)
		require.Len(t, byCustomer, 2)
	})
}

func TestProviderRepository_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	repo := repository.NewProviderRepository(db)

	_, err := db.Exec(`INSERT INTO neighborhoods (id, name, city, created_at) VALUES ('nb-1', 'Old Town', 'Springfield', ?)`, time.Now().UTC())
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed := []models.Provider{
		{ID: "p-plumber", UserName: "Sam", ServiceType: "plumbing", Description: "pipes and leaks", NeighborhoodID: "nb-1", CreatedAt: base},
		{ID: "p-electric", UserName: "Alex", ServiceType: "electrical", Description: "wiring", Verification: true, NeighborhoodID: "nb-1", CreatedAt: base.Add(time.Minute)},
		{ID: "p-cleaner", UserName: "Robin", ServiceType: "cleaning", Description: "deep cleans", NeighborhoodID: "nb-1", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, p := range seed {
		_, err := repo.Insert(ctx, p)
		require.NoError(t, err)
	}

	t.Run("Find", func(t *testing.T) {
		p, err := repo.Find(ctx, "p-plumber")
		require.NoError(t, err)
		require.Equal(t, "Sam", p.UserName)
		require.Equal(t, 0.0, p.TrustScore)

		_, err = repo.Find(ctx, "ghost")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("UpdateTrustScore overwrites", func(t *testing.T) {
		require.NoError(t, repo.UpdateTrustScore(ctx, "p-plumber", 4.5))

		p, err := repo.Find(ctx, "p-plumber")
		require.NoError(t, err)
		require.Equal(t, 4.5, p.TrustScore)

		err = repo.UpdateTrustScore(ctx, "ghost", 3)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("List orders by trust score", func(t *testing.T) {
		require.NoError(t, repo.UpdateTrustScore(ctx, "p-cleaner", 3.2))

		all, err := repo.List(ctx, models.ProviderFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "p-plumber", all[0].ID)
		require.Equal(t, "p-cleaner", all[1].ID)
	})

	t.Run("List filters", func(t *testing.T) {
		verified, err := repo.List(ctx, models.ProviderFilter{VerifiedOnly: true})
		require.NoError(t, err)
		require.Len(t, verified, 1)
		require.Equal(t, "p-electric", verified[0].ID)

		byService, err := repo.List(ctx, models.ProviderFilter{ServiceType: "cleaning"})
		require.NoError(t, err)
		require.Len(t, byService, 1)

		byQuery, err := repo.List(ctx, models.ProviderFilter{Query: "wiring"})
		require.NoError(t, err)
		require.Len(t, byQuery, 1)
		require.Equal(t, "p-electric", byQuery[0].ID)
	})
}
