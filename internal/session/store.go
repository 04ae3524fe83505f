package session

import (
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PlaceholderStyle is the style label an artifact carries until planning
// assigns a real one.
const PlaceholderStyle = "Generating…"

// Update identifies one artifact mutation, published to watchers.
type Update struct {
	SessionID  uuid.UUID `json:"session_id"`
	ArtifactID string    `json:"artifact_id"`
}

// Store is the in-memory home of all Sessions and their Artifacts.
//
// Sessions accumulate append-only; nothing is deleted during a run.
// Concurrent generation tasks write through UpdateArtifact, each targeting
// its own artifact, so writers never contend on the same fields. The mutex
// protects structure only — Go's memory model requires it even for
// disjoint-key writes.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	mu       sync.RWMutex
	sessions []*Session
	current  int // index of the current session, -1 before the first
	artifact int // index of the current artifact within the current session

	subs    map[int]chan Update
	nextSub int

	logger *slog.Logger
}

// NewStore creates an empty Store. A nil logger falls back to the default.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		current: -1,
		subs:    make(map[int]chan Update),
		logger:  logger,
	}
}

// CreateSession appends a new Session with variants empty streaming
// artifacts, makes it current, and returns a snapshot. The placeholder
// artifacts exist from this instant so readers have something to render
// before any model output arrives.
func (s *Store) CreateSession(prompt string, answers map[string]string, variants int) Session {
	id := uuid.New()
	sess := &Session{
		ID:        id,
		Prompt:    prompt,
		Answers:   maps.Clone(answers),
		CreatedAt: time.Now(),
		Artifacts: make([]Artifact, variants),
	}
	for i := range sess.Artifacts {
		sess.Artifacts[i] = Artifact{
			ID:     ArtifactID(id, i),
			Style:  PlaceholderStyle,
			Status: StatusStreaming,
		}
	}

	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.current = len(s.sessions) - 1
	s.artifact = 0
	snap := cloneSession(sess)
	s.mu.Unlock()

	s.logger.Debug("created session", "id", id, "variants", variants)
	return snap
}

// UpdateArtifact applies a pure transform to exactly one artifact,
// identified by (sessionID, artifactID). All other sessions and artifacts
// are untouched, so concurrent callers targeting different artifacts never
// interfere.
//
// Invariants enforced here, not trusted to callers:
//   - a terminal artifact (complete/error) is frozen; further updates are
//     dropped with a warning
//   - status may only move streaming → complete or streaming → error
func (s *Store) UpdateArtifact(sessionID uuid.UUID, artifactID string, transform func(Artifact) Artifact) error {
	s.mu.Lock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	idx := -1
	for i := range sess.Artifacts {
		if sess.Artifacts[i].ID == artifactID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrArtifactNotFound
	}

	old := sess.Artifacts[idx]
	if old.Status.Terminal() {
		s.mu.Unlock()
		s.logger.Warn("dropping update to finalized artifact",
			"artifact_id", artifactID, "status", old.Status)
		return nil
	}

	updated := transform(old)
	// Identity is not the transform's to change.
	updated.ID = old.ID
	if updated.Status != old.Status && old.Status != StatusStreaming {
		updated.Status = old.Status
	}
	sess.Artifacts[idx] = updated
	s.mu.Unlock()

	s.notify(Update{SessionID: sessionID, ArtifactID: artifactID})
	return nil
}

// ApplyContent replaces the content of a settled artifact in place, e.g.
// when the user applies a chosen variation. The status is left untouched —
// this is a post-lifecycle rewrite, not a streaming transition. Artifacts
// still streaming belong to their generation task and cannot be rewritten.
func (s *Store) ApplyContent(sessionID uuid.UUID, artifactID, content string) error {
	s.mu.Lock()
	sess := s.lookupLocked(sessionID)
	if sess == nil {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	for i := range sess.Artifacts {
		if sess.Artifacts[i].ID != artifactID {
			continue
		}
		if !sess.Artifacts[i].Status.Terminal() {
			s.mu.Unlock()
			return ErrArtifactStreaming
		}
		sess.Artifacts[i].Content = content
		s.mu.Unlock()
		s.notify(Update{SessionID: sessionID, ArtifactID: artifactID})
		return nil
	}
	s.mu.Unlock()
	return ErrArtifactNotFound
}

// Current returns a snapshot of the current session.
func (s *Store) Current() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current < 0 {
		return Session{}, ErrNoCurrentSession
	}
	return cloneSession(s.sessions[s.current]), nil
}

// At returns a snapshot of the session at the given index in creation
// order.
func (s *Store) At(index int) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.sessions) {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(s.sessions[index]), nil
}

// Get returns a snapshot of the session with the given ID.
func (s *Store) Get(id uuid.UUID) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess := s.lookupLocked(id); sess != nil {
		return cloneSession(sess), nil
	}
	return Session{}, ErrSessionNotFound
}

// Sessions returns snapshots of all sessions in creation order.
func (s *Store) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = cloneSession(sess)
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SelectSession moves the current-session pointer. The current-artifact
// pointer resets to 0.
func (s *Store) SelectSession(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.sessions) {
		return ErrSessionNotFound
	}
	s.current = index
	s.artifact = 0
	return nil
}

// SelectArtifact moves the current-artifact pointer within the current
// session.
func (s *Store) SelectArtifact(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 {
		return ErrNoCurrentSession
	}
	if index < 0 || index >= len(s.sessions[s.current].Artifacts) {
		return ErrArtifactNotFound
	}
	s.artifact = index
	return nil
}

// CurrentArtifact returns snapshots of the current artifact and its
// session.
func (s *Store) CurrentArtifact() (Artifact, Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current < 0 {
		return Artifact{}, Session{}, ErrNoCurrentSession
	}
	sess := s.sessions[s.current]
	if s.artifact >= len(sess.Artifacts) {
		return Artifact{}, Session{}, ErrArtifactNotFound
	}
	return sess.Artifacts[s.artifact], cloneSession(sess), nil
}

// Watch subscribes to artifact updates. Every mutation publishes an Update
// immediately — there is no batching window, so consumers may re-render on
// every appended fragment. A slow consumer loses updates rather than
// blocking writers. The returned cancel func must be called to release the
// subscription.
func (s *Store) Watch() (<-chan Update, func()) {
	ch := make(chan Update, 64)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// notify publishes an update to all watchers without blocking on any of
// them.
func (s *Store) notify(u Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
			// Watcher is behind; it will catch up from a snapshot read.
		}
	}
}

// lookupLocked finds a session by ID. Caller holds the lock.
func (s *Store) lookupLocked(id uuid.UUID) *Session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// cloneSession deep-copies a session so readers never share mutable state
// with writers.
func cloneSession(sess *Session) Session {
	cp := *sess
	cp.Answers = maps.Clone(sess.Answers)
	cp.Artifacts = make([]Artifact, len(sess.Artifacts))
	copy(cp.Artifacts, sess.Artifacts)
	return cp
}
