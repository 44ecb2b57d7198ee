//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestLivez(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %q", body.Status)
	}
	for _, name := range []string{"goroutines", "gc_pause"} {
		if got := body.Checks[name]; got != "ok" {
			t.Errorf("liveness check %q: got %q, want ok", name, got)
		}
	}
	if _, ok := body.Checks["postgres"]; ok {
		t.Error("postgres belongs to readiness, not liveness")
	}
}

func TestReadyz_Dependencies(t *testing.T) {
	resp := doGet(t, "/readyz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %q (checks: %v)", body.Status, body.Checks)
	}
	// The compose stack sets REDIS_URL, so the lookup cache is wired.
	for _, name := range []string{"postgres", "redis"} {
		if got := body.Checks[name]; got != "ok" {
			t.Errorf("readiness check %q: got %q, want ok", name, got)
		}
	}
}

func TestHealth_PostNotAllowed(t *testing.T) {
	resp := doPost(t, "/readyz", map[string]any{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
