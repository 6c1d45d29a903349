package server

import (
	"log/slog"
	"maps"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"nickandperla.net/smartserv/internal/store"
	"nickandperla.net/smartserv/internal/web"
)

const (
	sidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	sidLength   = 20
)

// sessionParams is a session's persistent parameter map, safe for the
// request worker and the sweep to touch concurrently.
type sessionParams struct {
	mu sync.RWMutex
	m  map[string]string
}

func newSessionParams(init map[string]string) *sessionParams {
	if init == nil {
		init = make(map[string]string)
	}
	return &sessionParams{m: init}
}

// Get returns the value stored under name.
func (p *sessionParams) Get(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.m[name]
	return v, ok
}

// Set stores value under name.
func (p *sessionParams) Set(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[name] = value
}

// Delete removes name.
func (p *sessionParams) Delete(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, name)
}

func (p *sessionParams) snapshot() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.m)
}

type sessionEntry struct {
	sid        string
	validUntil int64 // wall-clock ms, guarded by the registry mutex
	params     *sessionParams
}

// sessionRegistry mints SIDs, tracks validity deadlines and evicts
// expired entries. Lookup and creation are serialized by one mutex so
// that concurrent requests with the same stale SID either mint once or
// refresh once.
type sessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	timeout time.Duration
	store   store.Store
	log     *slog.Logger
}

func newSessionRegistry(timeout time.Duration, st store.Store, log *slog.Logger) *sessionRegistry {
	return &sessionRegistry{
		entries: make(map[string]*sessionEntry),
		timeout: timeout,
		store:   st,
		log:     log,
	}
}

// restore loads persisted sessions, skipping the already expired.
func (r *sessionRegistry) restore() error {
	if r.store == nil {
		return nil
	}
	sessions, err := r.store.Load()
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		if now >= s.ValidUntil {
			continue
		}
		r.entries[s.SID] = &sessionEntry{
			sid:        s.SID,
			validUntil: s.ValidUntil,
			params:     newSessionParams(s.Params),
		}
	}
	return nil
}

// resolve returns the live entry for the candidate SID, refreshing its
// deadline, or mints a new session. A non-nil cookie is returned exactly
// when a new session was minted.
func (r *sessionRegistry) resolve(sidCandidate, host string) (*sessionEntry, *web.Cookie) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UnixMilli()

	if e, ok := r.entries[sidCandidate]; ok && now < e.validUntil {
		e.validUntil = now + r.timeout.Milliseconds()
		return e, nil
	}

	sid := newSID()
	e := &sessionEntry{
		sid:        sid,
		validUntil: now + r.timeout.Milliseconds(),
		params:     newSessionParams(nil),
	}
	r.entries[sid] = e

	cookie := &web.Cookie{
		Name:     "sid",
		Value:    sid,
		Domain:   host,
		Path:     "/",
		MaxAge:   int(r.timeout.Seconds()),
		HttpOnly: true,
	}
	return e, cookie
}

// sweep removes expired entries and returns how many were evicted.
func (r *sessionRegistry) sweep() int {
	now := time.Now().UnixMilli()

	r.mu.Lock()
	var removed []string
	for sid, e := range r.entries {
		if now >= e.validUntil {
			delete(r.entries, sid)
			removed = append(removed, sid)
		}
	}
	r.mu.Unlock()

	if r.store != nil {
		for _, sid := range removed {
			if err := r.store.Delete(sid); err != nil {
				r.log.Error("deleting persisted session", "sid", sid, "err", err)
			}
		}
	}
	return len(removed)
}

// flush persists the entry's current state, if a store is configured.
func (r *sessionRegistry) flush(e *sessionEntry) {
	if r.store == nil {
		return
	}
	r.mu.Lock()
	validUntil := e.validUntil
	r.mu.Unlock()

	err := r.store.Put(store.Session{
		SID:        e.sid,
		ValidUntil: validUntil,
		Params:     e.params.snapshot(),
	})
	if err != nil {
		r.log.Error("persisting session", "sid", e.sid, "err", err)
	}
}

func newSID() string {
	var b strings.Builder
	b.Grow(sidLength)
	for i := 0; i < sidLength; i++ {
		b.WriteByte(sidAlphabet[rand.IntN(len(sidAlphabet))])
	}
	return b.String()
}
