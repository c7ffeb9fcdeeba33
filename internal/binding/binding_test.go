package binding

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/internal/schema"
	"github.com/leapstack-labs/starstore/internal/store"
	"github.com/leapstack-labs/starstore/internal/testutil"
)

const testSchemas = `
schemas:
  - name: Playlist
    properties:
      - name: title
        type: string
      - name: tracks
        type: list
        object_type: Track
  - name: Track
    properties:
      - name: title
        type: string
      - name: rating
        type: int
  - name: Person
    properties:
      - name: name
        type: string
      - name: age
        type: int
      - name: bio
        type: bytes
      - name: active
        type: bool
      - name: score
        type: float
      - name: partner
        type: link
        object_type: Person
      - name: friends
        type: list
        object_type: Person
`

// newTestBinder opens an in-memory store with the test schemas and
// returns a binder over a fresh session.
func newTestBinder(t *testing.T) *Binder {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	st := store.New(logger)
	require.NoError(t, st.Open(":memory:"))
	require.NoError(t, st.InitSchema())
	t.Cleanup(func() { _ = st.Close() })

	reg, err := schema.Parse([]byte(testSchemas))
	require.NoError(t, err)

	sess, err := st.NewSession()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	return NewBinder(sess, reg, logger)
}

// inWrite runs fn inside a write transaction.
func inWrite(t *testing.T, b *Binder, fn func()) {
	t.Helper()
	require.NoError(t, b.session.Begin())
	fn()
	require.NoError(t, b.session.Commit())
}

func trackDict(t *testing.T, title string) *starlark.Dict {
	t.Helper()
	d := starlark.NewDict(1)
	require.NoError(t, d.SetKey(starlark.String("title"), starlark.String(title)))
	return d
}

// newTrackList creates a playlist whose tracks carry the given titles
// and returns its bound track list.
func newTrackList(t *testing.T, b *Binder, titles ...string) *BoundList {
	t.Helper()

	playlist, err := b.schemas.Get("Playlist")
	require.NoError(t, err)
	track, err := b.schemas.Get("Track")
	require.NoError(t, err)

	tracks := make([]starlark.Value, len(titles))
	for i, title := range titles {
		tracks[i] = trackDict(t, title)
	}
	d := starlark.NewDict(2)
	require.NoError(t, d.SetKey(starlark.String("title"), starlark.String("mix")))
	require.NoError(t, d.SetKey(starlark.String("tracks"), starlark.NewList(tracks)))

	var id string
	inWrite(t, b, func() {
		var err error
		id, err = b.createFromDict(d, playlist)
		require.NoError(t, err)
	})
	return b.List(id, "tracks", track)
}

// callMethod resolves and invokes a bound method.
func callMethod(t *testing.T, v starlark.HasAttrs, name string, args ...starlark.Value) (starlark.Value, error) {
	t.Helper()
	m, err := v.Attr(name)
	require.NoError(t, err)
	require.NotNil(t, m, "method %s not found", name)
	return starlark.Call(&starlark.Thread{Name: "test"}, m, starlark.Tuple(args), nil)
}

// titleOf reads the title property of a wrapped track.
func titleOf(t *testing.T, v starlark.Value) string {
	t.Helper()
	obj, ok := v.(*BoundObject)
	require.True(t, ok, "expected object, got %s", v.Type())
	title, err := obj.Attr("title")
	require.NoError(t, err)
	return string(title.(starlark.String))
}

// titles reads all track titles through the session, outside any
// wrapper, for asserting final collection state.
func titles(t *testing.T, l *BoundList) []string {
	t.Helper()
	ids, err := l.binder.session.LinkTargets(l.owner, l.prop)
	require.NoError(t, err)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = titleOf(t, l.binder.Object(id, l.elem))
	}
	return out
}
