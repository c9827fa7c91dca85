package store_test

import (
	"context"
	"testing"

	"github.com/Clark-Hu/movie-discovery/internal/store"
	"github.com/Clark-Hu/movie-discovery/internal/store/storetest"
)

func TestMigrateIsIdempotent(t *testing.T) {
	pool := storetest.NewPool(t)
	ctx := context.Background()

	if err := store.Migrate(ctx, pool); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	for _, table := range []string{"documents", "users"} {
		var exists bool
		err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists)
		if err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if !exists {
			t.Fatalf("table %s missing after migration", table)
		}
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := store.New(context.Background(), "://not-a-url", store.Options{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNilStoreHealthCheck(t *testing.T) {
	var s *store.Store
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Fatal("nil store should fail health check")
	}
	s.Close()
}
