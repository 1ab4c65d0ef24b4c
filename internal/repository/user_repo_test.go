package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"talkmate/internal/domain"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	user := domain.User{ID: "u1", Email: "ana@example.com", Username: "Ana", CreatedAt: time.Now().UTC()}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("duplicates rejected", func(t *testing.T) {
		dup := domain.User{ID: "u2", Email: "other@example.com", Username: "ana"}
		if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for username, got %v", err)
		}
		dup = domain.User{ID: "u3", Email: "ana@example.com", Username: "other"}
		if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for email, got %v", err)
		}
	})

	t.Run("lookups", func(t *testing.T) {
		if _, err := repo.GetByUsername(ctx, "ANA"); err != nil {
			t.Fatalf("username lookup is case-insensitive: %v", err)
		}
		if _, err := repo.GetByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.GetByAuth(ctx, "", ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("empty subject must never match")
		}
	})

	t.Run("link oauth", func(t *testing.T) {
		if err := repo.LinkOAuth(ctx, "u1", "google", "sub-1"); err != nil {
			t.Fatalf("link: %v", err)
		}
		got, err := repo.GetByAuth(ctx, "google", "sub-1")
		if err != nil || got.ID != "u1" {
			t.Fatalf("expected linked user, got %+v %v", got, err)
		}
		if err := repo.LinkOAuth(ctx, "ghost", "google", "x"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
