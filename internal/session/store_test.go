package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftly/draftly/internal/log"
)

func newTestStore() *Store {
	return NewStore(log.NewNop())
}

func TestStore_CreateSession(t *testing.T) {
	t.Parallel()
	s := newTestStore()

	sess := s.CreateSession("a pricing card", map[string]string{"q1": "Playful"}, 3)

	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, "a pricing card", sess.Prompt)
	assert.Equal(t, map[string]string{"q1": "Playful"}, sess.Answers)
	require.Len(t, sess.Artifacts, 3)
	for i, a := range sess.Artifacts {
		assert.Equal(t, ArtifactID(sess.ID, i), a.ID)
		assert.Equal(t, PlaceholderStyle, a.Style)
		assert.Equal(t, StatusStreaming, a.Status)
		assert.Empty(t, a.Content)
	}

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, sess.ID, current.ID)
}

func TestStore_SessionsAppendOnly(t *testing.T) {
	t.Parallel()
	s := newTestStore()

	first := s.CreateSession("first", nil, 1)
	second := s.CreateSession("second", nil, 1)

	require.Equal(t, 2, s.Len())
	all := s.Sessions()
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	// A new session becomes current but leaves its predecessor intact.
	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	kept, err := s.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", kept.Prompt)
}

func TestStore_CurrentBeforeFirstSession(t *testing.T) {
	t.Parallel()
	s := newTestStore()

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoCurrentSession)

	_, _, err = s.CurrentArtifact()
	assert.ErrorIs(t, err, ErrNoCurrentSession)
}

func TestStore_UpdateArtifact(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 2)
	id := sess.Artifacts[0].ID

	err := s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
		a.Content = "<div>"
		return a
	})
	require.NoError(t, err)

	err = s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
		a.Content = a.Content + "hello</div>"
		return a
	})
	require.NoError(t, err)

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "<div>hello</div>", got.Artifacts[0].Content)
	// The sibling is untouched.
	assert.Empty(t, got.Artifacts[1].Content)
}

func TestStore_UpdateArtifact_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 1)

	identity := func(a Artifact) Artifact { return a }
	assert.ErrorIs(t, s.UpdateArtifact(uuid.New(), sess.Artifacts[0].ID, identity), ErrSessionNotFound)
	assert.ErrorIs(t, s.UpdateArtifact(sess.ID, "nope", identity), ErrArtifactNotFound)
}

func TestStore_TerminalArtifactFrozen(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 1)
	id := sess.Artifacts[0].ID

	require.NoError(t, s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
		a.Content = "final"
		a.Status = StatusComplete
		return a
	}))

	// A late fragment from a confused writer must be dropped, not applied.
	require.NoError(t, s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
		a.Content = "stale overwrite"
		a.Status = StatusStreaming
		return a
	}))

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Artifacts[0].Content)
	assert.Equal(t, StatusComplete, got.Artifacts[0].Status)
}

func TestStore_ArtifactIDImmutable(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 1)
	id := sess.Artifacts[0].ID

	require.NoError(t, s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
		a.ID = "hijacked"
		return a
	}))

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, id, got.Artifacts[0].ID)
}

func TestStore_ConcurrentDisjointUpdates(t *testing.T) {
	t.Parallel()
	const variants = 4
	const writes = 200

	s := newTestStore()
	sess := s.CreateSession("prompt", nil, variants)

	var wg sync.WaitGroup
	for i := range variants {
		wg.Add(1)
		go func(artifactID string) {
			defer wg.Done()
			for range writes {
				err := s.UpdateArtifact(sess.ID, artifactID, func(a Artifact) Artifact {
					a.Content = a.Content + "x"
					return a
				})
				assert.NoError(t, err)
			}
		}(sess.Artifacts[i].ID)
	}
	wg.Wait()

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	for i := range variants {
		assert.Len(t, got.Artifacts[i].Content, writes, "artifact %d", i)
	}
}

func TestStore_ApplyContent(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 1)
	id := sess.Artifacts[0].ID

	// Rewriting a streaming artifact is the generation task's privilege.
	assert.ErrorIs(t, s.ApplyContent(sess.ID, id, "<div>new</div>"), ErrArtifactStreaming)

	require.NoError(t, s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
		a.Content = "<div>old</div>"
		a.Status = StatusComplete
		return a
	}))

	require.NoError(t, s.ApplyContent(sess.ID, id, "<div>new</div>"))

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "<div>new</div>", got.Artifacts[0].Content)
	assert.Equal(t, StatusComplete, got.Artifacts[0].Status)

	assert.ErrorIs(t, s.ApplyContent(sess.ID, "nope", "x"), ErrArtifactNotFound)
	assert.ErrorIs(t, s.ApplyContent(uuid.New(), id, "x"), ErrSessionNotFound)
}

func TestStore_Selection(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	first := s.CreateSession("first", nil, 2)
	s.CreateSession("second", nil, 2)

	require.NoError(t, s.SelectSession(0))
	require.NoError(t, s.SelectArtifact(1))

	artifact, sess, err := s.CurrentArtifact()
	require.NoError(t, err)
	assert.Equal(t, first.ID, sess.ID)
	assert.Equal(t, first.Artifacts[1].ID, artifact.ID)

	// Selecting a session resets the artifact pointer.
	require.NoError(t, s.SelectSession(1))
	artifact, _, err = s.CurrentArtifact()
	require.NoError(t, err)
	assert.Equal(t, ArtifactID(s.Sessions()[1].ID, 0), artifact.ID)

	assert.ErrorIs(t, s.SelectSession(5), ErrSessionNotFound)
	assert.ErrorIs(t, s.SelectArtifact(5), ErrArtifactNotFound)
}

func TestStore_At(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 1)

	got, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = s.At(1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.At(-1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_SnapshotsDoNotAlias(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", map[string]string{"q1": "a"}, 1)

	snap, err := s.Get(sess.ID)
	require.NoError(t, err)
	snap.Artifacts[0].Content = "mutated by reader"
	snap.Answers["q1"] = "mutated"

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Artifacts[0].Content)
	assert.Equal(t, "a", got.Answers["q1"])
}

func TestStore_Watch(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 1)
	id := sess.Artifacts[0].ID

	ch, cancel := s.Watch()
	defer cancel()

	require.NoError(t, s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
		a.Content = "x"
		return a
	}))

	u := <-ch
	assert.Equal(t, Update{SessionID: sess.ID, ArtifactID: id}, u)
}

func TestStore_WatchCancelIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore()

	_, cancel := s.Watch()
	cancel()
	cancel() // second call must not panic on the closed channel
}

func TestStore_SlowWatcherDoesNotBlockWriters(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	sess := s.CreateSession("prompt", nil, 1)
	id := sess.Artifacts[0].ID

	_, cancel := s.Watch() // never drained
	defer cancel()

	// Overflow the subscription buffer; every update must still apply.
	for i := range 200 {
		require.NoError(t, s.UpdateArtifact(sess.ID, id, func(a Artifact) Artifact {
			a.Content = fmt.Sprintf("update %d", i)
			return a
		}))
	}

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "update 199", got.Artifacts[0].Content)
}

func TestArtifactID(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	assert.Equal(t, fmt.Sprintf("%s-0", id), ArtifactID(id, 0))
	assert.Equal(t, fmt.Sprintf("%s-2", id), ArtifactID(id, 2))
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()
	assert.False(t, StatusStreaming.Terminal())
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusError.Terminal())
}
