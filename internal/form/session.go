package form

// session.go ties the core pieces together per browser session and tracks
// live sessions in memory. Sessions expire after an idle TTL; the sweeper
// releases any open preview on the way out so tokens cannot outlive their
// session.

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the server-held form state for one browser session.
type Session struct {
	ID         string
	Fields     *FieldSet
	Files      *StagingArea
	Preview    *Previewer
	Controller *Controller

	mu         sync.Mutex
	wrapAsList bool
	lastSeen   time.Time
}

// WrapAsList reports the current wrap-as-list setting (default true).
func (s *Session) WrapAsList() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wrapAsList
}

// SetWrapAsList toggles whether the compiled schema wraps as an array.
func (s *Session) SetWrapAsList(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wrapAsList = v
}

// Clear resets fields, staged files and any open preview. The wrap setting
// survives a clear, matching the form's behavior.
func (s *Session) Clear() {
	s.Fields.Clear()
	s.Files.Clear()
	s.Preview.Close()
}

// touch records activity for idle expiry.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// StoreConfig carries the knobs a session store needs to build sessions.
type StoreConfig struct {
	// MaxTotalBytes is the staged-file byte budget per session.
	MaxTotalBytes int64

	// IdleTTL is how long an untouched session lives (default 30m).
	IdleTTL time.Duration

	// Defaults are applied to submissions that omit model, system
	// instruction or locale.
	Defaults Defaults
}

// Store tracks live sessions by ID.
type Store struct {
	cfg       StoreConfig
	transport Transport

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a session store. All sessions share one transport.
func NewStore(cfg StoreConfig, transport Transport) *Store {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &Store{
		cfg:       cfg,
		transport: transport,
		sessions:  make(map[string]*Session),
	}
}

// Get returns the session with the given ID, refreshing its idle timer.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if ok {
		s.touch(time.Now())
	}
	return s, ok
}

// Create makes a fresh session and returns it.
func (st *Store) Create() *Session {
	s := &Session{
		ID:         uuid.NewString(),
		Fields:     NewFieldSet(),
		Files:      NewStagingArea(st.cfg.MaxTotalBytes),
		Preview:    NewPreviewer(),
		Controller: NewController(st.transport, st.cfg.Defaults),
		wrapAsList: true,
		lastSeen:   time.Now(),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	return s
}

// GetOrCreate returns the session for id, or a new one when id is unknown
// or empty.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}
	return st.Create(), true
}

// Remove drops a session, releasing its preview.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.Preview.Close()
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle past the TTL. It is safe to call concurrently
// with request handling.
func (st *Store) Sweep() int {
	now := time.Now()

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.idleSince(now) > st.cfg.IdleTTL {
			delete(st.sessions, id)
			expired = append(expired, s)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Preview.Close()
	}
	return len(expired)
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (st *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
