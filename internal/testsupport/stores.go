package testsupport

import (
	"testing"

	"segno/internal/config"
	"segno/internal/jobs"
	"segno/internal/sessions"
)

// MustOpenSessionStore opens a session store against the test config and
// registers cleanup.
func MustOpenSessionStore(t testing.TB, cfg *config.Config) *sessions.Store {
	t.Helper()
	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustOpenJobStore opens a job store against the test config and registers
// cleanup.
func MustOpenJobStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
