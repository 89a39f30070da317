package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hirelocal/trust-server/internal/repository"
	dbbuilder "github.com/hirelocal/trust-server/pkg/database"
)

func setupSeededRepos(tb testing.TB) (*repository.RatingRepository, *repository.JobRepository, *repository.ProviderRepository) {
	tb.Helper()

	db, err := dbbuilder.New(
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(":memory:"),
		dbbuilder.WithMaxOpenConns(1),
	)
	if err != nil {
		tb.Fatalf("failed to create db pool via builder: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		tb.Fatalf("failed to create schema: %v", err)
	}

	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO neighborhoods (id, name, city, created_at) VALUES ('nb-1', 'Riverside', 'Portland', ?);
	`, now)
	if err != nil {
		tb.Fatalf("failed to seed neighborhood: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO providers (id, user_name, service_type, trust_score, verification, neighborhood_id, created_at)
		VALUES ('prov-bench', 'Pat', 'gardening', 0, 0, 'nb-1', ?);
	`, now)
	if err != nil {
		tb.Fatalf("failed to seed provider: %v", err)
	}

	for i := 0; i < 200; i++ {
		jobID := fmt.Sprintf("job-%d", i)
		_, err = db.Exec(`
			INSERT INTO jobs (id, customer_id, provider_id, status, price, completed_at, created_at)
			VALUES (?, 'cust-1', 'prov-bench', 'completed', 50, ?, ?);
		`, jobID, now, now)
		if err != nil {
			tb.Fatalf("failed to seed job: %v", err)
		}
		_, err = db.Exec(`
			INSERT INTO ratings (id, job_id, customer_id, provider_id, reliability, punctuality, price_honesty, comment, created_at)
			VALUES (?, ?, 'cust-1', 'prov-bench', ?, ?, ?, '', ?);
		`, fmt.Sprintf("rating-%d", i), jobID, 1+i%5, 1+(i+1)%5, 1+(i+2)%5, now)
		if err != nil {
			tb.Fatalf("failed to seed rating: %v", err)
		}
	}

	return repository.NewRatingRepository(db), repository.NewJobRepository(db), repository.NewProviderRepository(db)
}

func BenchmarkRecomputeTrustScore(b *testing.B) {
	ratings, jobs, providers := setupSeededRepos(b)
	svc := NewTrustService(ratings, jobs, providers, zap.NewNop())

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = svc.RecomputeTrustScore(context.Background(), "prov-bench")
	}
}

func BenchmarkGetProviderStats(b *testing.B) {
	ratings, jobs, providers := setupSeededRepos(b)
	svc := NewTrustService(ratings, jobs, providers, zap.NewNop())

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = svc.GetProviderStats(context.Background(), "prov-bench")
	}
}
