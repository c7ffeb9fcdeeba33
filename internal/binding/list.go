package binding

import (
	"fmt"
	"sort"
	"strconv"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// BoundList exposes a persisted ordered link collection as a Starlark
// value with array semantics: numeric indexing, a synthetic read-only
// length property, enumeration, and the usual mutating methods (push,
// pop, shift, unshift, splice).
//
// The list holds non-owning references: the session owns the store
// connection and the owning object rows. Every operation re-validates
// attachment first, and every mutation additionally requires an open
// write transaction.
type BoundList struct {
	binder *Binder
	owner  string             // owning object ID
	prop   string             // link-list property name
	elem   *core.ObjectSchema // element type descriptor
}

var (
	_ starlark.Value       = (*BoundList)(nil)
	_ starlark.Sequence    = (*BoundList)(nil)
	_ starlark.Indexable   = (*BoundList)(nil)
	_ starlark.HasSetIndex = (*BoundList)(nil)
	_ starlark.HasAttrs    = (*BoundList)(nil)
	_ starlark.HasSetField = (*BoundList)(nil)
)

func (l *BoundList) String() string {
	return fmt.Sprintf("<list of %s>", l.elem.Name)
}

func (l *BoundList) Type() string         { return "linklist" }
func (l *BoundList) Truth() starlark.Bool { return starlark.True }
func (l *BoundList) Freeze()              {} // store state is outside Starlark freeze semantics

func (l *BoundList) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: linklist")
}

// verifyAttached fails if the list is detached: the session closed or
// the owning object deleted. No operation touches the collection
// before this passes.
func (l *BoundList) verifyAttached() error {
	if !l.binder.session.Live() || l.binder.session.Invalidated(l.owner) {
		return fmt.Errorf("list %s.%s: %w", l.elem.Name, l.prop, core.ErrStaleReference)
	}
	return nil
}

// verifyWritable additionally requires an open write transaction.
func (l *BoundList) verifyWritable() error {
	if err := l.verifyAttached(); err != nil {
		return err
	}
	if !l.binder.session.InWriteTxn() {
		return fmt.Errorf("list %s.%s: %w", l.elem.Name, l.prop, core.ErrIllegalMutation)
	}
	return nil
}

func (l *BoundList) size() (int, error) {
	return l.binder.session.LinkSize(l.owner, l.prop)
}

// materializeAt wraps the element at a validated offset.
func (l *BoundList) materializeAt(offset int) (*BoundObject, error) {
	target, err := l.binder.session.LinkGet(l.owner, l.prop, offset)
	if err != nil {
		return nil, err
	}
	return l.binder.Object(target, l.elem), nil
}

// Attr implements property reads over the list. Index-shaped keys
// fetch the element at that offset; out-of-range indices read as None
// rather than failing; "length" returns the element count. Keys that
// are neither defer to the mutation methods, and past those to the
// host's normal missing-attribute handling.
func (l *BoundList) Attr(name string) (starlark.Value, error) {
	if err := l.verifyAttached(); err != nil {
		return nil, err
	}
	size, err := l.size()
	if err != nil {
		return nil, err
	}

	if name == lengthKey {
		return starlark.MakeInt(size), nil
	}

	offset, outcome := resolveIndex(name, size)
	switch outcome {
	case notAnIndex:
		return l.methodAttr(name)
	case outOfRange:
		return starlark.None, nil
	}
	return l.materializeAt(offset)
}

// SetField implements property writes. Assignment targets an existing
// slot only: out-of-range writes are errors, there is no implicit
// growth, and length is read-only regardless of transaction state.
func (l *BoundList) SetField(name string, v starlark.Value) error {
	if err := l.verifyAttached(); err != nil {
		return err
	}

	// Length is rejected before the transaction check: the write is
	// invalid no matter the transaction state.
	if name == lengthKey {
		return fmt.Errorf("list %s.%s: length: %w", l.elem.Name, l.prop, core.ErrReadOnlyProperty)
	}

	if err := l.verifyWritable(); err != nil {
		return err
	}

	size, err := l.size()
	if err != nil {
		return err
	}
	offset, outcome := resolveIndex(name, size)
	switch outcome {
	case notAnIndex:
		return starlark.NoSuchAttrError(fmt.Sprintf("linklist has no settable field %q", name))
	case outOfRange:
		return fmt.Errorf("index %s out of range (length %d)", name, size)
	}

	ref, err := l.binder.toElementRef(v, l.elem)
	if err != nil {
		return err
	}
	return l.binder.session.LinkSet(l.owner, l.prop, offset, ref)
}

// Enumerate returns the string-encoded element indices "0" through
// "length-1" in ascending order. The synthetic length property is not
// an enumerable slot and is excluded.
func (l *BoundList) Enumerate() ([]string, error) {
	if err := l.verifyAttached(); err != nil {
		return nil, err
	}
	size, err := l.size()
	if err != nil {
		return nil, err
	}
	names := make([]string, size)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names, nil
}

// AttrNames implements the host's dir() protocol: enumerable indices
// plus the non-enumerable length property and method names.
func (l *BoundList) AttrNames() []string {
	names, err := l.Enumerate()
	if err != nil {
		names = nil
	}
	names = append(names, lengthKey)
	for name := range listMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len implements the Starlark sequence protocol. A detached list
// reports zero; the guarded access paths surface the real error.
func (l *BoundList) Len() int {
	if err := l.verifyAttached(); err != nil {
		return 0
	}
	size, err := l.size()
	if err != nil {
		return 0
	}
	return size
}

// Index returns the element at offset i, 0 <= i < Len().
func (l *BoundList) Index(i int) starlark.Value {
	obj, err := l.materializeAt(i)
	if err != nil {
		return starlark.None
	}
	return obj
}

// SetIndex replaces the element at offset i inside a write
// transaction.
func (l *BoundList) SetIndex(i int, v starlark.Value) error {
	if err := l.verifyWritable(); err != nil {
		return err
	}
	size, err := l.size()
	if err != nil {
		return err
	}
	if i < 0 || i >= size {
		return fmt.Errorf("index %d out of range (length %d)", i, size)
	}
	ref, err := l.binder.toElementRef(v, l.elem)
	if err != nil {
		return err
	}
	return l.binder.session.LinkSet(l.owner, l.prop, i, ref)
}

// Iterate yields wrapped elements in position order over a snapshot of
// the collection taken when iteration starts.
func (l *BoundList) Iterate() starlark.Iterator {
	if err := l.verifyAttached(); err != nil {
		return &listIterator{}
	}
	targets, err := l.binder.session.LinkTargets(l.owner, l.prop)
	if err != nil {
		return &listIterator{}
	}
	return &listIterator{list: l, targets: targets}
}

type listIterator struct {
	list    *BoundList
	targets []string
	pos     int
}

func (it *listIterator) Next(v *starlark.Value) bool {
	if it.list == nil || it.pos >= len(it.targets) {
		return false
	}
	*v = it.list.binder.Object(it.targets[it.pos], it.list.elem)
	it.pos++
	return true
}

func (it *listIterator) Done() {}
