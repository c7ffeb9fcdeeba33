package binding

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// BoundObject is a host-visible handle to one stored object. It holds
// non-owning references to the session and schema; attachment is
// re-validated on every access.
type BoundObject struct {
	binder *Binder
	id     string
	schema *core.ObjectSchema
}

var (
	_ starlark.Value       = (*BoundObject)(nil)
	_ starlark.HasAttrs    = (*BoundObject)(nil)
	_ starlark.HasSetField = (*BoundObject)(nil)
	_ starlark.Comparable  = (*BoundObject)(nil)
)

// ID returns the stored object's ID.
func (o *BoundObject) ID() string {
	return o.id
}

// Schema returns the object's schema.
func (o *BoundObject) Schema() *core.ObjectSchema {
	return o.schema
}

func (o *BoundObject) String() string {
	return fmt.Sprintf("<%s %s>", o.schema.Name, o.id)
}

func (o *BoundObject) Type() string          { return "object" }
func (o *BoundObject) Truth() starlark.Bool  { return starlark.True }
func (o *BoundObject) Freeze()               {} // store state is outside Starlark freeze semantics
func (o *BoundObject) Hash() (uint32, error) { return starlark.String(o.id).Hash() }

// CompareSameType implements == and != as stored-object identity.
func (o *BoundObject) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	other := y.(*BoundObject)
	switch op {
	case syntax.EQL:
		return o.id == other.id, nil
	case syntax.NEQ:
		return o.id != other.id, nil
	default:
		return false, fmt.Errorf("objects are not ordered")
	}
}

// verifyAttached fails if the session has been closed or the object
// deleted. Every read goes through this first.
func (o *BoundObject) verifyAttached() error {
	if !o.binder.session.Live() || o.binder.session.Invalidated(o.id) {
		return fmt.Errorf("%s %s: %w", o.schema.Name, o.id, core.ErrStaleReference)
	}
	return nil
}

// verifyWritable additionally requires an open write transaction.
func (o *BoundObject) verifyWritable() error {
	if err := o.verifyAttached(); err != nil {
		return err
	}
	if !o.binder.session.InWriteTxn() {
		return fmt.Errorf("%s %s: %w", o.schema.Name, o.id, core.ErrIllegalMutation)
	}
	return nil
}

// payload loads and decodes the object's scalar property map.
func (o *BoundObject) payload() (map[string]any, error) {
	_, raw, err := o.binder.session.GetObject(o.id)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode payload of %s: %w", o.id, err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

// Attr returns a schema property value: scalars decoded from the
// payload, link properties as wrapped objects, list properties as
// bound lists. The object's own ID is exposed as "id" unless the
// schema shadows it.
func (o *BoundObject) Attr(name string) (starlark.Value, error) {
	if err := o.verifyAttached(); err != nil {
		return nil, err
	}

	p := o.schema.Property(name)
	if p == nil {
		if name == "id" {
			return starlark.String(o.id), nil
		}
		return nil, nil // defer: not a schema property
	}

	switch p.Type {
	case core.TypeList:
		elem, err := o.binder.schemas.Get(p.ObjectType)
		if err != nil {
			return nil, err
		}
		return o.binder.List(o.id, p.Name, elem), nil

	case core.TypeLink:
		elem, err := o.binder.schemas.Get(p.ObjectType)
		if err != nil {
			return nil, err
		}
		targets, err := o.binder.session.LinkTargets(o.id, p.Name)
		if err != nil {
			return nil, err
		}
		if len(targets) == 0 {
			return starlark.None, nil
		}
		return o.binder.Object(targets[0], elem), nil

	default:
		m, err := o.payload()
		if err != nil {
			return nil, err
		}
		return scalarToStarlark(p, m[p.Name])
	}
}

// SetField assigns a schema property inside a write transaction.
// Scalars update the payload; a link property accepts an object or
// dict of the target schema (or None to clear); a list property
// replaces the whole collection from an iterable.
func (o *BoundObject) SetField(name string, v starlark.Value) error {
	if err := o.verifyWritable(); err != nil {
		return err
	}

	p := o.schema.Property(name)
	if p == nil {
		return starlark.NoSuchAttrError(fmt.Sprintf("%s has no property %q", o.schema.Name, name))
	}

	switch p.Type {
	case core.TypeList:
		elem, err := o.binder.schemas.Get(p.ObjectType)
		if err != nil {
			return err
		}
		iter, ok := v.(starlark.Iterable)
		if !ok {
			return fmt.Errorf("%w: %s.%s requires an iterable of %s", core.ErrCoercion, o.schema.Name, name, elem.Name)
		}
		refs, err := o.binder.elementRefs(iter, elem)
		if err != nil {
			return err
		}
		if err := o.binder.session.LinkClear(o.id, p.Name); err != nil {
			return err
		}
		for _, ref := range refs {
			if err := o.binder.session.LinkAppend(o.id, p.Name, ref); err != nil {
				return err
			}
		}
		return nil

	case core.TypeLink:
		elem, err := o.binder.schemas.Get(p.ObjectType)
		if err != nil {
			return err
		}
		if err := o.binder.session.LinkClear(o.id, p.Name); err != nil {
			return err
		}
		if v == starlark.None {
			return nil
		}
		ref, err := o.binder.toElementRef(v, elem)
		if err != nil {
			return err
		}
		return o.binder.session.LinkAppend(o.id, p.Name, ref)

	default:
		val, err := starlarkToScalar(p, v)
		if err != nil {
			return err
		}
		m, err := o.payload()
		if err != nil {
			return err
		}
		m[p.Name] = val
		raw, err := cbor.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		return o.binder.session.UpdatePayload(o.id, raw)
	}
}

// AttrNames returns the schema property names plus "id".
func (o *BoundObject) AttrNames() []string {
	names := make([]string, 0, len(o.schema.Properties)+1)
	for _, p := range o.schema.Properties {
		names = append(names, p.Name)
	}
	if o.schema.Property("id") == nil {
		names = append(names, "id")
	}
	return names
}
