package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/pkg/core"
)

func TestListGet(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "a", "b", "c")

	t.Run("valid indices", func(t *testing.T) {
		v, err := l.Attr("0")
		require.NoError(t, err)
		assert.Equal(t, "a", titleOf(t, v))

		v, err = l.Attr("2")
		require.NoError(t, err)
		assert.Equal(t, "c", titleOf(t, v))
	})

	t.Run("out of range reads as none", func(t *testing.T) {
		v, err := l.Attr("3")
		require.NoError(t, err)
		assert.Equal(t, starlark.None, v)

		v, err = l.Attr("99")
		require.NoError(t, err)
		assert.Equal(t, starlark.None, v)
	})

	t.Run("length", func(t *testing.T) {
		v, err := l.Attr("length")
		require.NoError(t, err)
		assert.Equal(t, starlark.MakeInt(3), v)
	})

	t.Run("non-index key defers", func(t *testing.T) {
		v, err := l.Attr("not_a_property")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("idempotent reads", func(t *testing.T) {
		v1, err := l.Attr("1")
		require.NoError(t, err)
		v2, err := l.Attr("1")
		require.NoError(t, err)
		assert.Equal(t, v1.(*BoundObject).ID(), v2.(*BoundObject).ID())
	})

	t.Run("sequence protocol", func(t *testing.T) {
		assert.Equal(t, 3, l.Len())
		assert.Equal(t, "b", titleOf(t, l.Index(1)))
	})
}

func TestListLengthReadOnly(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "a")

	// Outside a transaction.
	err := l.SetField("length", starlark.MakeInt(0))
	assert.ErrorIs(t, err, core.ErrReadOnlyProperty)

	// Inside one too.
	inWrite(t, b, func() {
		err := l.SetField("length", starlark.MakeInt(0))
		assert.ErrorIs(t, err, core.ErrReadOnlyProperty)
	})
}

func TestListSet(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "a", "b", "c")

	t.Run("replaces existing slot", func(t *testing.T) {
		inWrite(t, b, func() {
			require.NoError(t, l.SetField("1", trackDict(t, "B")))
		})
		assert.Equal(t, []string{"a", "B", "c"}, titles(t, l))
	})

	t.Run("no implicit growth", func(t *testing.T) {
		inWrite(t, b, func() {
			err := l.SetField("3", trackDict(t, "d"))
			assert.Error(t, err)
			assert.NotErrorIs(t, err, core.ErrReadOnlyProperty)
		})
		assert.Equal(t, 3, l.Len())
	})

	t.Run("non-index key is no such attr", func(t *testing.T) {
		inWrite(t, b, func() {
			err := l.SetField("bogus", trackDict(t, "d"))
			var nsa starlark.NoSuchAttrError
			assert.ErrorAs(t, err, &nsa)
		})
	})

	t.Run("set index", func(t *testing.T) {
		inWrite(t, b, func() {
			require.NoError(t, l.SetIndex(0, trackDict(t, "A")))
		})
		assert.Equal(t, []string{"A", "B", "c"}, titles(t, l))
	})

	t.Run("rejects wrong schema", func(t *testing.T) {
		person, err := b.schemas.Get("Person")
		require.NoError(t, err)
		var wrong *BoundObject
		inWrite(t, b, func() {
			d := starlark.NewDict(1)
			require.NoError(t, d.SetKey(starlark.String("name"), starlark.String("ada")))
			id, err := b.createFromDict(d, person)
			require.NoError(t, err)
			wrong = b.Object(id, person)

			err = l.SetField("0", wrong)
			assert.ErrorIs(t, err, core.ErrCoercion)
		})
	})
}

func TestListPush(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "a")

	inWrite(t, b, func() {
		v, err := callMethod(t, l, "push", trackDict(t, "b"), trackDict(t, "c"), trackDict(t, "d"))
		require.NoError(t, err)
		assert.Equal(t, starlark.MakeInt(4), v)
	})
	assert.Equal(t, []string{"a", "b", "c", "d"}, titles(t, l))

	t.Run("requires an argument", func(t *testing.T) {
		inWrite(t, b, func() {
			_, err := callMethod(t, l, "push")
			assert.ErrorIs(t, err, core.ErrArgumentCount)
		})
	})

	t.Run("accepts existing objects", func(t *testing.T) {
		first, err := l.Attr("0")
		require.NoError(t, err)
		inWrite(t, b, func() {
			v, err := callMethod(t, l, "push", first)
			require.NoError(t, err)
			assert.Equal(t, starlark.MakeInt(5), v)
		})
		assert.Equal(t, []string{"a", "b", "c", "d", "a"}, titles(t, l))
	})

	t.Run("partial application on coercion failure", func(t *testing.T) {
		before := l.Len()
		inWrite(t, b, func() {
			_, err := callMethod(t, l, "push", trackDict(t, "kept"), starlark.MakeInt(42))
			assert.ErrorIs(t, err, core.ErrCoercion)
		})
		// The element appended before the failing argument stays.
		assert.Equal(t, before+1, l.Len())
		assert.Equal(t, "kept", titleOf(t, l.Index(before)))
	})
}

func TestListPopShift(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "x", "y", "z")

	inWrite(t, b, func() {
		v, err := callMethod(t, l, "shift")
		require.NoError(t, err)
		assert.Equal(t, "x", titleOf(t, v))

		v, err = callMethod(t, l, "pop")
		require.NoError(t, err)
		assert.Equal(t, "z", titleOf(t, v))
	})
	assert.Equal(t, []string{"y"}, titles(t, l))

	t.Run("empty list yields none", func(t *testing.T) {
		empty := newTrackList(t, b)
		inWrite(t, b, func() {
			v, err := callMethod(t, empty, "pop")
			require.NoError(t, err)
			assert.Equal(t, starlark.None, v)

			v, err = callMethod(t, empty, "shift")
			require.NoError(t, err)
			assert.Equal(t, starlark.None, v)
		})
	})

	t.Run("rejects arguments", func(t *testing.T) {
		inWrite(t, b, func() {
			_, err := callMethod(t, l, "pop", starlark.MakeInt(1))
			assert.ErrorIs(t, err, core.ErrArgumentCount)
		})
	})
}

func TestListUnshift(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "c")

	inWrite(t, b, func() {
		v, err := callMethod(t, l, "unshift", trackDict(t, "a"), trackDict(t, "b"))
		require.NoError(t, err)
		assert.Equal(t, starlark.MakeInt(3), v)
	})
	// Argument order is preserved as final order.
	assert.Equal(t, []string{"a", "b", "c"}, titles(t, l))

	inWrite(t, b, func() {
		_, err := callMethod(t, l, "unshift")
		assert.ErrorIs(t, err, core.ErrArgumentCount)
	})
}

func TestListSplice(t *testing.T) {
	newBase := func(t *testing.T) (*Binder, *BoundList) {
		b := newTestBinder(t)
		return b, newTrackList(t, b, "0", "1", "2", "3", "4")
	}

	t.Run("remove and insert", func(t *testing.T) {
		b, l := newBase(t)
		inWrite(t, b, func() {
			v, err := callMethod(t, l, "splice",
				starlark.MakeInt(1), starlark.MakeInt(2),
				trackDict(t, "a"), trackDict(t, "b"))
			require.NoError(t, err)

			removed := v.(*starlark.List)
			require.Equal(t, 2, removed.Len())
			assert.Equal(t, "1", titleOf(t, removed.Index(0)))
			assert.Equal(t, "2", titleOf(t, removed.Index(1)))
		})
		assert.Equal(t, []string{"0", "a", "b", "3", "4"}, titles(t, l))
	})

	t.Run("negative start counts from end", func(t *testing.T) {
		b, l := newBase(t)
		inWrite(t, b, func() {
			v, err := callMethod(t, l, "splice", starlark.MakeInt(-2), starlark.MakeInt(1))
			require.NoError(t, err)

			removed := v.(*starlark.List)
			require.Equal(t, 1, removed.Len())
			assert.Equal(t, "3", titleOf(t, removed.Index(0)))
		})
		assert.Equal(t, []string{"0", "1", "2", "4"}, titles(t, l))
	})

	t.Run("start clamped to length", func(t *testing.T) {
		b, l := newBase(t)
		inWrite(t, b, func() {
			v, err := callMethod(t, l, "splice", starlark.MakeInt(99), starlark.MakeInt(3), trackDict(t, "x"))
			require.NoError(t, err)
			assert.Equal(t, 0, v.(*starlark.List).Len())
		})
		assert.Equal(t, []string{"0", "1", "2", "3", "4", "x"}, titles(t, l))
	})

	t.Run("large negative start clamps to zero", func(t *testing.T) {
		b, l := newBase(t)
		inWrite(t, b, func() {
			v, err := callMethod(t, l, "splice", starlark.MakeInt(-99), starlark.MakeInt(1))
			require.NoError(t, err)
			removed := v.(*starlark.List)
			require.Equal(t, 1, removed.Len())
			assert.Equal(t, "0", titleOf(t, removed.Index(0)))
		})
		assert.Equal(t, []string{"1", "2", "3", "4"}, titles(t, l))
	})

	t.Run("negative delete count removes nothing", func(t *testing.T) {
		b, l := newBase(t)
		inWrite(t, b, func() {
			v, err := callMethod(t, l, "splice", starlark.MakeInt(1), starlark.MakeInt(-5))
			require.NoError(t, err)
			assert.Equal(t, 0, v.(*starlark.List).Len())
		})
		assert.Equal(t, []string{"0", "1", "2", "3", "4"}, titles(t, l))
	})

	t.Run("empty removal still returns a list", func(t *testing.T) {
		b, l := newBase(t)
		inWrite(t, b, func() {
			v, err := callMethod(t, l, "splice", starlark.MakeInt(2), starlark.MakeInt(0))
			require.NoError(t, err)
			assert.Equal(t, 0, v.(*starlark.List).Len())
		})
	})

	t.Run("requires two arguments", func(t *testing.T) {
		b, l := newBase(t)
		inWrite(t, b, func() {
			_, err := callMethod(t, l, "splice", starlark.MakeInt(0))
			assert.ErrorIs(t, err, core.ErrArgumentCount)
		})
	})
}

func TestListMutationRequiresTransaction(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "a", "b")

	ops := map[string]func() error{
		"push": func() error {
			_, err := callMethod(t, l, "push", trackDict(t, "x"))
			return err
		},
		"pop": func() error {
			_, err := callMethod(t, l, "pop")
			return err
		},
		"shift": func() error {
			_, err := callMethod(t, l, "shift")
			return err
		},
		"unshift": func() error {
			_, err := callMethod(t, l, "unshift", trackDict(t, "x"))
			return err
		},
		"splice": func() error {
			_, err := callMethod(t, l, "splice", starlark.MakeInt(0), starlark.MakeInt(1))
			return err
		},
		"set field": func() error {
			return l.SetField("0", trackDict(t, "x"))
		},
		"set index": func() error {
			return l.SetIndex(0, trackDict(t, "x"))
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, core.ErrIllegalMutation)
			// The collection is untouched.
			assert.Equal(t, []string{"a", "b"}, titles(t, l))
		})
	}
}

func TestListDetached(t *testing.T) {
	t.Run("session closed", func(t *testing.T) {
		b := newTestBinder(t)
		l := newTrackList(t, b, "a")
		require.NoError(t, b.session.Close())

		_, err := l.Attr("0")
		assert.ErrorIs(t, err, core.ErrStaleReference)
		_, err = l.Attr("length")
		assert.ErrorIs(t, err, core.ErrStaleReference)
		err = l.SetField("0", starlark.None)
		assert.ErrorIs(t, err, core.ErrStaleReference)
		_, err = l.Enumerate()
		assert.ErrorIs(t, err, core.ErrStaleReference)
		assert.Equal(t, 0, l.Len())
	})

	t.Run("owner deleted", func(t *testing.T) {
		b := newTestBinder(t)
		l := newTrackList(t, b, "a")
		inWrite(t, b, func() {
			require.NoError(t, b.session.DeleteObject(l.owner))
		})

		_, err := l.Attr("0")
		assert.ErrorIs(t, err, core.ErrStaleReference)
		inWrite(t, b, func() {
			_, err := callMethod(t, l, "push", trackDict(t, "x"))
			assert.ErrorIs(t, err, core.ErrStaleReference)
		})
	})

	t.Run("owner delete rolled back reattaches", func(t *testing.T) {
		b := newTestBinder(t)
		l := newTrackList(t, b, "a")
		require.NoError(t, b.session.Begin())
		require.NoError(t, b.session.DeleteObject(l.owner))
		_, err := l.Attr("length")
		assert.ErrorIs(t, err, core.ErrStaleReference)
		require.NoError(t, b.session.Rollback())

		v, err := l.Attr("length")
		require.NoError(t, err)
		assert.Equal(t, starlark.MakeInt(1), v)
	})
}

func TestListEnumerate(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "a", "b", "c")

	names, err := l.Enumerate()
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, names)

	t.Run("empty list", func(t *testing.T) {
		empty := newTrackList(t, b)
		names, err := empty.Enumerate()
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("attr names include methods and length", func(t *testing.T) {
		names := l.AttrNames()
		assert.Contains(t, names, "0")
		assert.Contains(t, names, "2")
		assert.Contains(t, names, "length")
		assert.Contains(t, names, "push")
		assert.Contains(t, names, "splice")
	})
}

func TestListIterate(t *testing.T) {
	b := newTestBinder(t)
	l := newTrackList(t, b, "a", "b", "c")

	var got []string
	it := l.Iterate()
	defer it.Done()
	var v starlark.Value
	for it.Next(&v) {
		got = append(got, titleOf(t, v))
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestListStarlarkIntegration(t *testing.T) {
	// End to end through the interpreter: indexing, len, a method
	// call, and iteration all dispatch through the bound list.
	b := newTestBinder(t)
	l := newTrackList(t, b, "a", "b")

	require.NoError(t, b.session.Begin())
	defer func() { _ = b.session.Rollback() }()

	globals := starlark.StringDict{"tracks": l}
	script := `
n = tracks.push({"title": "c"})
first = tracks[0].title
all_titles = [t.title for t in tracks]
count = tracks.length
`
	out, err := starlark.ExecFile(&starlark.Thread{Name: "test"}, "test.star", script, globals)
	require.NoError(t, err)

	assert.Equal(t, starlark.MakeInt(3), out["n"])
	assert.Equal(t, starlark.String("a"), out["first"])
	assert.Equal(t, `["a", "b", "c"]`, out["all_titles"].String())
	assert.Equal(t, starlark.MakeInt(3), out["count"])
}
