package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"alcyxob/flexcoach/internal/cache"
	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/remotesync"
	"alcyxob/flexcoach/internal/repository/memory"
	"alcyxob/flexcoach/internal/session"
)

const testCoach = "coach-1"

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

type harness struct {
	remote  *memory.Store
	sess    *session.Session
	sync    *remotesync.Orchestrator
	offline *cache.OfflineCache
	store   *EntityStore
	notes   *recordingNotifier
	confirm bool
}

// newHarness builds a store over an in-memory remote. When online is false
// the session stays unauthenticated, so the remote is never ready.
func newHarness(t *testing.T, online bool) *harness {
	t.Helper()
	kv, err := cache.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	h := &harness{
		remote:  memory.New(),
		sess:    session.New(true),
		offline: cache.NewOfflineCache(kv, "test-slot"),
		notes:   &recordingNotifier{},
		confirm: true,
	}
	if online {
		h.loginCoach(t)
	}
	h.sync = remotesync.New(h.remote.Remote(), h.sess, h.offline, remotesync.Options{
		Timeout:  time.Second,
		Debounce: 10 * time.Millisecond,
	})
	h.store = NewEntityStore(StoreDeps{
		Session:  h.sess,
		Sync:     h.sync,
		Offline:  h.offline,
		Notifier: h.notes,
		Confirmer: ConfirmFunc(func(context.Context, string) bool {
			return h.confirm
		}),
	})
	t.Cleanup(h.store.Close)
	return h
}

func (h *harness) loginCoach(t *testing.T) {
	t.Helper()
	if err := h.sess.Login(&session.Claims{UserID: testCoach, Role: domain.RoleCoach}); err != nil {
		t.Fatalf("login coach: %v", err)
	}
}

func (h *harness) loginClient(t *testing.T, clientID string) {
	t.Helper()
	if err := h.sess.Login(&session.Claims{UserID: clientID, Role: domain.RoleClient, CoachID: testCoach}); err != nil {
		t.Fatalf("login client: %v", err)
	}
}

func (h *harness) seedClient(t *testing.T, c domain.Client) domain.Client {
	t.Helper()
	saved, err := h.store.SaveClient(context.Background(), c)
	if err != nil {
		t.Fatalf("seed client %q: %v", c.Name, err)
	}
	return saved
}
