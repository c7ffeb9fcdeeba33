package binding

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// StoreValue is the "store" global exposed to scripts: object creation
// and lookup plus explicit transaction control.
type StoreValue struct {
	binder *Binder
}

var (
	_ starlark.Value    = (*StoreValue)(nil)
	_ starlark.HasAttrs = (*StoreValue)(nil)
)

// NewStoreValue creates the store global over a binder.
func NewStoreValue(binder *Binder) *StoreValue {
	return &StoreValue{binder: binder}
}

func (s *StoreValue) String() string        { return "<store>" }
func (s *StoreValue) Type() string          { return "store" }
func (s *StoreValue) Truth() starlark.Bool  { return starlark.True }
func (s *StoreValue) Freeze()               {}
func (s *StoreValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: store") }

type storeMethod func(s *StoreValue, thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

var storeMethods = map[string]storeMethod{
	"create":   storeCreate,
	"get":      storeGet,
	"all":      storeAll,
	"delete":   storeDelete,
	"begin":    storeBegin,
	"commit":   storeCommit,
	"rollback": storeRollback,
	"write":    storeWrite,
}

func (s *StoreValue) Attr(name string) (starlark.Value, error) {
	m, ok := storeMethods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return m(s, thread, b, args, kwargs)
	}), nil
}

func (s *StoreValue) AttrNames() []string {
	names := make([]string, 0, len(storeMethods))
	for name := range storeMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *StoreValue) verifyAttached() error {
	if !s.binder.session.Live() {
		return fmt.Errorf("store: %w", core.ErrStaleReference)
	}
	return nil
}

// storeCreate creates an object: store.create("Person", {"name": "ada"}).
func storeCreate(s *StoreValue, _ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var schemaName string
	var props *starlark.Dict
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &schemaName, &props); err != nil {
		return nil, err
	}
	if err := s.verifyAttached(); err != nil {
		return nil, err
	}
	if !s.binder.session.InWriteTxn() {
		return nil, fmt.Errorf("store.create: %w", core.ErrIllegalMutation)
	}
	sch, err := s.binder.schemas.Get(schemaName)
	if err != nil {
		return nil, err
	}
	id, err := s.binder.createFromDict(props, sch)
	if err != nil {
		return nil, err
	}
	return s.binder.Object(id, sch), nil
}

// storeGet looks up one object by ID, returning None if it does not
// exist.
func storeGet(s *StoreValue, _ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var schemaName, id string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &schemaName, &id); err != nil {
		return nil, err
	}
	if err := s.verifyAttached(); err != nil {
		return nil, err
	}
	sch, err := s.binder.schemas.Get(schemaName)
	if err != nil {
		return nil, err
	}
	exists, err := s.binder.session.ObjectExists(id)
	if err != nil {
		return nil, err
	}
	if !exists || s.binder.session.Invalidated(id) {
		return starlark.None, nil
	}
	return s.binder.Object(id, sch), nil
}

// storeAll returns every object of a schema, oldest first.
func storeAll(s *StoreValue, _ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var schemaName string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &schemaName); err != nil {
		return nil, err
	}
	if err := s.verifyAttached(); err != nil {
		return nil, err
	}
	sch, err := s.binder.schemas.Get(schemaName)
	if err != nil {
		return nil, err
	}
	ids, err := s.binder.session.ListObjects(schemaName)
	if err != nil {
		return nil, err
	}
	objs := make([]starlark.Value, 0, len(ids))
	for _, id := range ids {
		objs = append(objs, s.binder.Object(id, sch))
	}
	return starlark.NewList(objs), nil
}

// storeDelete removes an object; handles to it detach.
func storeDelete(s *StoreValue, _ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj *BoundObject
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &obj); err != nil {
		return nil, err
	}
	if err := obj.verifyWritable(); err != nil {
		return nil, err
	}
	if err := s.binder.session.DeleteObject(obj.id); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func storeBegin(s *StoreValue, _ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.None, s.binder.session.Begin()
}

func storeCommit(s *StoreValue, _ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.None, s.binder.session.Commit()
}

func storeRollback(s *StoreValue, _ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.None, s.binder.session.Rollback()
}

// storeWrite runs a callable inside a write transaction, committing on
// success and rolling back if the callable fails. Returns the
// callable's result.
func storeWrite(s *StoreValue, thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fn); err != nil {
		return nil, err
	}
	var result starlark.Value = starlark.None
	err := s.binder.session.Write(func() error {
		v, err := starlark.Call(thread, fn, nil, nil)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
