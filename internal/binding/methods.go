package binding

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// Mutating list methods. All verify writability first and operate on
// the link collection directly, bypassing property-key parsing.
type listMethod func(l *BoundList, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

var listMethods = map[string]listMethod{
	"push":    listPush,
	"pop":     listPop,
	"shift":   listShift,
	"unshift": listUnshift,
	"splice":  listSplice,
}

// methodAttr resolves a method name to a builtin bound to the list.
// Unknown names return (nil, nil) so the host can defer the key.
func (l *BoundList) methodAttr(name string) (starlark.Value, error) {
	m, ok := listMethods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		return m(l, b, args, kwargs)
	}), nil
}

func atLeastArgs(b *starlark.Builtin, args starlark.Tuple, min int) error {
	if len(args) < min {
		return fmt.Errorf("%s: %w: expected at least %d, got %d", b.Name(), core.ErrArgumentCount, min, len(args))
	}
	return nil
}

func exactArgs(b *starlark.Builtin, args starlark.Tuple, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: %w: expected %d, got %d", b.Name(), core.ErrArgumentCount, n, len(args))
	}
	return nil
}

// asOffset converts a numeric argument to an int, truncating floats.
func asOffset(b *starlark.Builtin, v starlark.Value) (int, error) {
	switch n := v.(type) {
	case starlark.Int:
		i, err := starlark.AsInt32(n)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return i, nil
	case starlark.Float:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s: expected a number, got %s", b.Name(), v.Type())
	}
}

// listPush appends each argument in order and returns the new length.
// A coercion failure aborts the remaining appends; elements already
// appended stay appended.
func listPush(l *BoundList, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if err := l.verifyWritable(); err != nil {
		return nil, err
	}
	if err := atLeastArgs(b, args, 1); err != nil {
		return nil, err
	}
	for _, v := range args {
		ref, err := l.binder.toElementRef(v, l.elem)
		if err != nil {
			return nil, err
		}
		if err := l.binder.session.LinkAppend(l.owner, l.prop, ref); err != nil {
			return nil, err
		}
	}
	size, err := l.size()
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(size), nil
}

// listPop removes and returns the last element, or None on an empty
// list.
func listPop(l *BoundList, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if err := l.verifyWritable(); err != nil {
		return nil, err
	}
	if err := exactArgs(b, args, 0); err != nil {
		return nil, err
	}
	size, err := l.size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return starlark.None, nil
	}
	obj, err := l.materializeAt(size - 1)
	if err != nil {
		return nil, err
	}
	if err := l.binder.session.LinkRemove(l.owner, l.prop, size-1); err != nil {
		return nil, err
	}
	return obj, nil
}

// listShift removes and returns the first element, or None on an empty
// list.
func listShift(l *BoundList, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if err := l.verifyWritable(); err != nil {
		return nil, err
	}
	if err := exactArgs(b, args, 0); err != nil {
		return nil, err
	}
	size, err := l.size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return starlark.None, nil
	}
	obj, err := l.materializeAt(0)
	if err != nil {
		return nil, err
	}
	if err := l.binder.session.LinkRemove(l.owner, l.prop, 0); err != nil {
		return nil, err
	}
	return obj, nil
}

// listUnshift inserts the arguments at the head, preserving argument
// order, and returns the new length.
func listUnshift(l *BoundList, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if err := l.verifyWritable(); err != nil {
		return nil, err
	}
	if err := atLeastArgs(b, args, 1); err != nil {
		return nil, err
	}
	for i, v := range args {
		ref, err := l.binder.toElementRef(v, l.elem)
		if err != nil {
			return nil, err
		}
		if err := l.binder.session.LinkInsert(l.owner, l.prop, i, ref); err != nil {
			return nil, err
		}
	}
	size, err := l.size()
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(size), nil
}

// listSplice removes deleteCount elements starting at start (both
// clamped), then inserts the remaining arguments there. Returns the
// removed elements in removal order. Splice is the only operation that
// accepts negative offsets, counted from the end.
func listSplice(l *BoundList, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if err := l.verifyWritable(); err != nil {
		return nil, err
	}
	if err := atLeastArgs(b, args, 2); err != nil {
		return nil, err
	}
	size, err := l.size()
	if err != nil {
		return nil, err
	}

	start, err := asOffset(b, args[0])
	if err != nil {
		return nil, err
	}
	if start > size {
		start = size
	}
	if start < 0 {
		start = size + start
		if start < 0 {
			start = 0
		}
	}

	del, err := asOffset(b, args[1])
	if err != nil {
		return nil, err
	}
	if del < 0 {
		del = 0
	}
	if del > size-start {
		del = size - start
	}

	// All removals complete before any insertion.
	removed := make([]starlark.Value, 0, del)
	for i := 0; i < del; i++ {
		obj, err := l.materializeAt(start)
		if err != nil {
			return nil, err
		}
		if err := l.binder.session.LinkRemove(l.owner, l.prop, start); err != nil {
			return nil, err
		}
		removed = append(removed, obj)
	}

	for i, v := range args[2:] {
		ref, err := l.binder.toElementRef(v, l.elem)
		if err != nil {
			return nil, err
		}
		if err := l.binder.session.LinkInsert(l.owner, l.prop, start+i, ref); err != nil {
			return nil, err
		}
	}

	return starlark.NewList(removed), nil
}
