package testsupport

import (
	"testing"

	"screenreview/internal/config"
	"screenreview/internal/queue"
)

// MustOpenStore opens a queue store for the given config and registers its
// cleanup with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
