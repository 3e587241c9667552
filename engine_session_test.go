package goGuard

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutRevokesSession(t *testing.T) {
	engine, _, done := newGuardEngine(t, loginTestConfig(), aliceVerifier())
	defer done()

	ctx := context.Background()

	res, err := engine.Login(ctx, "alice@example.com", "correct-horse", "device-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := engine.Session(ctx, res.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}

	count, err := engine.SessionCount(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("SessionCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty index after logout, got %d", count)
	}

	// Repeating reports not-found but leaves nothing behind.
	if err := engine.Logout(ctx, res.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on repeat, got %v", err)
	}
}

func TestLogoutUnknownToken(t *testing.T) {
	engine, _, done := newGuardEngine(t, loginTestConfig(), aliceVerifier())
	defer done()

	if err := engine.Logout(context.Background(), "never-issued"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	engine, _, done := newGuardEngine(t, loginTestConfig(), aliceVerifier())
	defer done()

	ctx := context.Background()

	for _, device := range []string{"device-1", "device-2", "device-3"} {
		if _, err := engine.Login(ctx, "alice@example.com", "correct-horse", device); err != nil {
			t.Fatalf("Login %s failed: %v", device, err)
		}
	}

	removed, err := engine.LogoutAll(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 sessions removed, got %d", removed)
	}

	count, err := engine.SessionCount(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("SessionCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no sessions left, got %d", count)
	}

	// Zero sessions is not an error.
	if removed, err := engine.LogoutAll(ctx, "alice@example.com"); err != nil || removed != 0 {
		t.Fatalf("second LogoutAll: removed=%d err=%v", removed, err)
	}
}

func TestSessionsListsOldestFirst(t *testing.T) {
	engine, _, done := newGuardEngine(t, loginTestConfig(), aliceVerifier())
	defer done()

	ctx := WithClientIP(context.Background(), "203.0.113.7")

	devices := []string{"device-1", "device-2", "device-3"}
	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		res, err := engine.Login(ctx, "alice@example.com", "correct-horse", device)
		if err != nil {
			t.Fatalf("Login %s failed: %v", device, err)
		}
		tokens = append(tokens, res.Token)
	}

	sessions, err := engine.Sessions(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}

	seen := map[string]bool{}
	for _, s := range sessions {
		seen[s.Token] = true
		if s.Identity != "alice@example.com" {
			t.Fatalf("unexpected identity: %+v", s)
		}
		if s.IP != "203.0.113.7" {
			t.Fatalf("expected payload IP preserved, got %+v", s)
		}
		if s.ExpiresAt <= s.CreatedAt {
			t.Fatalf("expected expiry after creation, got %+v", s)
		}
	}
	for _, token := range tokens {
		if !seen[token] {
			t.Fatalf("expected token %s listed", token)
		}
	}
}

func TestSessionsEmptyIdentity(t *testing.T) {
	engine, _, done := newGuardEngine(t, loginTestConfig(), aliceVerifier())
	defer done()

	sessions, err := engine.Sessions(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions))
	}
}
