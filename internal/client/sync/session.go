package sync

import (
	"strings"
	gosync "sync"

	"github.com/mitul002/prayersync/internal/client/events"
	"github.com/mitul002/prayersync/internal/client/storage"
)

// completedFlagPrefix keys the per-user completion flags in the
// session store, so a reload within the same browser session does not
// re-run reconciliation.
const completedFlagPrefix = "syncCompleted_"

// Session is the per-browser-session reconciliation state machine
// guard. It ensures at most one reconciliation runs at a time in this
// process and that each user reconciles at most once per session.
//
// Cross-tab coordination relies only on the session-store flag and is
// best-effort: two tabs can race the read-then-write, last writer wins.
type Session struct {
	mu         gosync.Mutex
	inProgress bool
	lastUserID string
	completed  map[string]bool
	store      storage.KV // session-scoped store
}

// NewSession creates session state backed by the session store.
func NewSession(store storage.KV) *Session {
	return &Session{
		completed: make(map[string]bool),
		store:     store,
	}
}

// TryBegin attempts to start reconciliation for userID. It returns
// false if a run is already in progress, or if this user already
// completed reconciliation in this process or session.
func (s *Session) TryBegin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inProgress {
		return false
	}
	if s.completed[userID] {
		return false
	}
	if flag, err := s.store.Get(completedFlagPrefix + userID); err == nil && flag == "true" {
		s.completed[userID] = true
		return false
	}

	s.inProgress = true
	s.lastUserID = userID
	return true
}

// MarkComplete records that reconciliation finished for userID,
// whatever the outcome, and releases the in-progress guard.
func (s *Session) MarkComplete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inProgress = false
	s.completed[userID] = true
	// best-effort; an unwritable session store only costs a re-run
	_ = s.store.Set(completedFlagPrefix+userID, "true")
}

// Completed reports whether reconciliation has finished for userID in
// this session.
func (s *Session) Completed(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed[userID] {
		return true
	}
	flag, err := s.store.Get(completedFlagPrefix + userID)
	return err == nil && flag == "true"
}

// InProgress reports whether a reconciliation run is active.
func (s *Session) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress
}

// LastUserID returns the most recent user a run began for.
func (s *Session) LastUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUserID
}

// Reset clears all session state, including the persisted flags. Used
// on logout and manual reset.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keys, err := s.store.Keys(); err == nil {
		for _, key := range keys {
			if strings.HasPrefix(key, completedFlagPrefix) {
				_ = s.store.Remove(key)
			}
		}
	}
	s.inProgress = false
	s.lastUserID = ""
	s.completed = make(map[string]bool)
}

// WatchLogout resets the session whenever the current user signs out,
// so the next login runs reconciliation again. The returned stop
// function unsubscribes and waits for the watcher to drain.
func (s *Session) WatchLogout(bus *events.Bus) (stop func()) {
	ch, unsubscribe := bus.Subscribe(events.TopicLoggedOut)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range ch {
			s.Reset()
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}
