package tmdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
)

// TestHTTPClientSmoke checks a live (or mock) catalog endpoint when TMDB_URL is provided.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("TMDB_URL")
	if baseURL == "" {
		t.Skip("TMDB_URL not provided")
	}
	client, err := NewHTTPClient(Options{BaseURL: baseURL, APIKey: os.Getenv("TMDB_API_KEY"), Timeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	page, err := client.ListCategory(ctx, domain.CategoryPopular, 1)
	if err != nil {
		t.Fatalf("fetch popular: %v", err)
	}
	if len(page.Results) == 0 {
		t.Fatalf("unexpected empty popular page: %+v", page)
	}
}
