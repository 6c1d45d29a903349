package server

import (
	"testing"
	"time"

	"nickandperla.net/smartserv/internal/store"
)

func TestResolveMintsAndRefreshes(t *testing.T) {
	r := newSessionRegistry(time.Minute, nil, testLogger())

	entry, cookie := r.resolve("", "localhost")
	if cookie == nil {
		t.Fatal("expected a cookie for a fresh session")
	}
	if len(cookie.Value) != 20 {
		t.Errorf("expected 20 character SID, got %q", cookie.Value)
	}
	for _, c := range cookie.Value {
		if c < 'A' || c > 'Z' {
			t.Errorf("SID must use A-Z only, got %q", cookie.Value)
			break
		}
	}
	if cookie.Domain != "localhost" || cookie.Path != "/" || !cookie.HttpOnly {
		t.Errorf("unexpected cookie attributes: %+v", cookie)
	}
	if cookie.MaxAge != 60 {
		t.Errorf("expected Max-Age 60, got %d", cookie.MaxAge)
	}

	again, cookie2 := r.resolve(cookie.Value, "localhost")
	if cookie2 != nil {
		t.Error("expected no cookie when refreshing a live session")
	}
	if again != entry {
		t.Error("expected the same entry for a live SID")
	}
}

func TestResolveExpiredMintsFreshSID(t *testing.T) {
	r := newSessionRegistry(10*time.Millisecond, nil, testLogger())

	_, cookie := r.resolve("", "localhost")
	time.Sleep(20 * time.Millisecond)

	_, cookie2 := r.resolve(cookie.Value, "localhost")
	if cookie2 == nil {
		t.Fatal("expected a new cookie after expiry")
	}
	if cookie2.Value == cookie.Value {
		t.Error("expected a different SID after expiry")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	r := newSessionRegistry(10*time.Millisecond, nil, testLogger())

	r.resolve("", "localhost")
	r.resolve("", "localhost")
	time.Sleep(20 * time.Millisecond)
	live, _ := r.resolve("", "localhost")

	if n := r.sweep(); n != 2 {
		t.Errorf("expected 2 evictions, got %d", n)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) != 1 {
		t.Fatalf("expected 1 entry left, got %d", len(r.entries))
	}
	if _, ok := r.entries[live.sid]; !ok {
		t.Error("live session must survive the sweep")
	}
}

func TestFlushAndRestore(t *testing.T) {
	st := store.NewMemory()

	r := newSessionRegistry(time.Minute, st, testLogger())
	entry, cookie := r.resolve("", "localhost")
	entry.params.Set("count", "4")
	r.flush(entry)

	r2 := newSessionRegistry(time.Minute, st, testLogger())
	if err := r2.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	restored, cookie2 := r2.resolve(cookie.Value, "localhost")
	if cookie2 != nil {
		t.Error("expected restored session to be live")
	}
	if v, _ := restored.params.Get("count"); v != "4" {
		t.Errorf("expected count=4 after restore, got %q", v)
	}
}

func TestSweepDeletesFromStore(t *testing.T) {
	st := store.NewMemory()

	r := newSessionRegistry(10*time.Millisecond, st, testLogger())
	entry, _ := r.resolve("", "localhost")
	r.flush(entry)
	time.Sleep(20 * time.Millisecond)
	r.sweep()

	sessions, err := st.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected persisted session removed, got %+v", sessions)
	}
}
