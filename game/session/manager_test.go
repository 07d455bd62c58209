package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/boxpush/game/engine"
	"github.com/wricardo/boxpush/game/level"
)

func testLevel() *level.Definition {
	return &level.Definition{
		Name: "tiny",
		Map: `
W W W W W
W P B S W
W W W W W
`,
	}
}

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()

	t.Run("create with custom ID", func(t *testing.T) {
		sess, err := manager.Create("test-session", "tiny", testLevel())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if sess.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", sess.ID)
		}
		if sess.LevelID != "tiny" {
			t.Errorf("Expected level ID 'tiny', got '%s'", sess.LevelID)
		}
		if sess.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		sess, err := manager.Create("", "tiny", testLevel())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(sess.ID) != 8 {
			t.Errorf("Expected 8-character ID, got '%s'", sess.ID)
		}
	})

	t.Run("duplicate ID differs only in case", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "tiny", testLevel())
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := manager.Create("a/b", "tiny", testLevel())
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("broken level", func(t *testing.T) {
		_, err := manager.Create("", "broken", &level.Definition{Name: "broken", Map: "W ? W"})
		var perr *level.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Expected a ParseError, got %v", err)
		}
	})

	if got := manager.Count(); got != 2 {
		t.Errorf("Expected 2 sessions, got %d", got)
	}
}

func TestManager_EngineOptions(t *testing.T) {
	manager := NewManager()
	wins := 0

	sess, err := manager.Create("", "tiny", testLevel(),
		engine.WithObserver(engine.ObserverFunc(func(int) { wins++ })))
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	sess.Engine.Move(engine.Right)
	if wins != 1 {
		t.Errorf("Expected observer to see the win, got %d calls", wins)
	}
}

func TestManager_GetAndDelete(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("Mixed", "tiny", testLevel())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	got, err := manager.Get("mixed")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != created {
		t.Error("Expected the same session pointer")
	}

	if _, err := manager.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	if err := manager.Delete("MIXED"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := manager.Delete("mixed"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("Expected no sessions after delete")
	}
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	manager := NewManager(WithClock(clock.Now))

	if _, err := manager.Create("old", "tiny", testLevel()); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := manager.Create("fresh", "tiny", testLevel()); err != nil {
		t.Fatal(err)
	}
	clock.Advance(30 * time.Minute)

	if err := manager.UpdateLastAccessed("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to survive: %v", err)
	}

	// Touching keeps a session alive.
	clock.Advance(50 * time.Minute)
	if err := manager.UpdateLastAccessed("fresh"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(50 * time.Minute)
	if removed := manager.CleanupExpiredSessions(time.Hour); removed != 0 {
		t.Errorf("Expected touched session to survive, %d removed", removed)
	}
}

func TestManager_OnExpire(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	var (
		manager *Manager
		expired []string
	)
	manager = NewManager(WithClock(clock.Now), WithOnExpire(func(id string) {
		// The manager lock is released before the callback runs.
		if _, err := manager.Get(id); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected %s to be gone when its callback runs, got %v", id, err)
		}
		expired = append(expired, id)
	}))

	if _, err := manager.Create("Stale", "tiny", testLevel()); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := manager.Create("fresh", "tiny", testLevel()); err != nil {
		t.Fatal(err)
	}

	if removed := manager.CleanupExpiredSessions(time.Hour); removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if len(expired) != 1 || expired[0] != "Stale" {
		t.Errorf("Expected callback for [Stale], got %v", expired)
	}

	if removed := manager.CleanupExpiredSessions(time.Hour); removed != 0 {
		t.Errorf("Expected nothing left to expire, %d removed", removed)
	}
	if len(expired) != 1 {
		t.Errorf("Expected no further callbacks, got %v", expired)
	}
}

func TestManager_RunCleanup(t *testing.T) {
	manager := NewManager()
	if _, err := manager.Create("idle", "tiny", testLevel()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.RunCleanup(ctx, 5*time.Millisecond, time.Nanosecond) }()

	deadline := time.After(2 * time.Second)
	for manager.Count() > 0 {
		select {
		case <-deadline:
			t.Fatal("session was never cleaned up")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("RunCleanup returned %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := manager.Create("", "tiny", testLevel())
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			_ = manager.UpdateLastAccessed(sess.ID)
			_ = manager.List()
			if _, err := manager.Get(sess.ID); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := manager.Count(); got != 20 {
		t.Errorf("Expected 20 sessions, got %d", got)
	}
}
