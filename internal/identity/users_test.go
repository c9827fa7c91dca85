package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/Clark-Hu/movie-discovery/internal/store/storetest"
)

func exerciseUserStore(t *testing.T, users UserStore) {
	t.Helper()
	ctx := context.Background()

	rec, err := users.CreateUser(ctx, "Grace@Example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("CreateUser returned empty id")
	}

	if _, err := users.CreateUser(ctx, "grace@example.com", "hash2"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("duplicate CreateUser error = %v, want ErrEmailInUse", err)
	}

	byEmail, err := users.FindByEmail(ctx, "GRACE@example.com")
	if err != nil || byEmail.ID != rec.ID {
		t.Fatalf("FindByEmail = %+v, %v", byEmail, err)
	}
	byID, err := users.FindByID(ctx, rec.ID)
	if err != nil || byID.Email != "Grace@Example.com" {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}

	if _, err := users.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("FindByEmail(missing) error = %v", err)
	}
	if _, err := users.FindByID(ctx, "not-a-uuid"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("FindByID(bad) error = %v", err)
	}
}

func TestMemoryUsers(t *testing.T) {
	exerciseUserStore(t, NewMemoryUsers())
}

func TestPostgresUsers(t *testing.T) {
	pool := storetest.NewPool(t)
	exerciseUserStore(t, NewPostgresUsers(pool))
}
