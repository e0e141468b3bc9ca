package service

import (
	"errors"
	"testing"
)

func TestUserRegisterAndAuthenticate(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)

	user, err := svc.Register("jax", "secret123", "")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.DisplayName != "jax" {
		t.Fatalf("expected display name fallback to username, got %q", user.DisplayName)
	}
	if user.Password == "secret123" {
		t.Fatal("expected password to be hashed")
	}

	if _, err := svc.Register("jax", "other", "另一位"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if _, err := svc.Authenticate("jax", "secret123"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if _, err := svc.Authenticate("jax", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate("nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserUpdateProfilePartial(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)
	user, err := svc.Register("jax", "secret123", "Jax")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	display := "新名字"
	updated, err := svc.UpdateProfile(user.ID, ProfileInput{DisplayName: &display})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.DisplayName != "新名字" {
		t.Fatalf("expected display name to update, got %q", updated.DisplayName)
	}

	// 未提供的字段保持不变
	reloaded, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if reloaded.Image != "" {
		t.Fatalf("expected image untouched, got %q", reloaded.Image)
	}

	if _, err := svc.UpdateProfile(9999, ProfileInput{DisplayName: &display}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
