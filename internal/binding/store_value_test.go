package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/pkg/core"
)

func TestStoreValue(t *testing.T) {
	b := newTestBinder(t)
	sv := NewStoreValue(b)

	props := func(name string) *starlark.Dict {
		d := starlark.NewDict(1)
		require.NoError(t, d.SetKey(starlark.String("name"), starlark.String(name)))
		return d
	}

	t.Run("create requires transaction", func(t *testing.T) {
		_, err := callMethod(t, sv, "create", starlark.String("Person"), props("ada"))
		assert.ErrorIs(t, err, core.ErrIllegalMutation)
	})

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, b.session.Begin())
		v, err := callMethod(t, sv, "create", starlark.String("Person"), props("ada"))
		require.NoError(t, err)
		require.NoError(t, b.session.Commit())

		obj := v.(*BoundObject)
		got, err := callMethod(t, sv, "get", starlark.String("Person"), starlark.String(obj.ID()))
		require.NoError(t, err)
		assert.Equal(t, obj.ID(), got.(*BoundObject).ID())

		missing, err := callMethod(t, sv, "get", starlark.String("Person"), starlark.String("nope"))
		require.NoError(t, err)
		assert.Equal(t, starlark.None, missing)
	})

	t.Run("unknown schema", func(t *testing.T) {
		require.NoError(t, b.session.Begin())
		_, err := callMethod(t, sv, "create", starlark.String("Robot"), props("r2"))
		assert.Error(t, err)
		require.NoError(t, b.session.Rollback())
	})

	t.Run("all lists in creation order", func(t *testing.T) {
		require.NoError(t, b.session.Begin())
		_, err := callMethod(t, sv, "create", starlark.String("Person"), props("grace"))
		require.NoError(t, err)
		require.NoError(t, b.session.Commit())

		v, err := callMethod(t, sv, "all", starlark.String("Person"))
		require.NoError(t, err)
		people := v.(*starlark.List)
		assert.Equal(t, 2, people.Len())
	})

	t.Run("delete detaches", func(t *testing.T) {
		require.NoError(t, b.session.Begin())
		v, err := callMethod(t, sv, "create", starlark.String("Person"), props("temp"))
		require.NoError(t, err)
		obj := v.(*BoundObject)
		_, err = callMethod(t, sv, "delete", obj)
		require.NoError(t, err)
		require.NoError(t, b.session.Commit())

		_, err = obj.Attr("name")
		assert.ErrorIs(t, err, core.ErrStaleReference)
	})

	t.Run("write wraps a callable in a transaction", func(t *testing.T) {
		script := `
def seed():
    p = store.create("Person", {"name": "joan"})
    return p.name

result = store.write(seed)
`
		globals := starlark.StringDict{"store": sv}
		out, err := starlark.ExecFile(&starlark.Thread{Name: "test"}, "seed.star", script, globals)
		require.NoError(t, err)
		assert.Equal(t, starlark.String("joan"), out["result"])
		assert.False(t, b.session.InWriteTxn())
	})

	t.Run("write rolls back on failure", func(t *testing.T) {
		before, err := b.session.ListObjects("Person")
		require.NoError(t, err)

		script := `
def boom():
    store.create("Person", {"name": "ghost"})
    fail("nope")

store.write(boom)
`
		globals := starlark.StringDict{"store": sv}
		_, err = starlark.ExecFile(&starlark.Thread{Name: "test"}, "boom.star", script, globals)
		assert.Error(t, err)
		assert.False(t, b.session.InWriteTxn())

		after, err := b.session.ListObjects("Person")
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}
