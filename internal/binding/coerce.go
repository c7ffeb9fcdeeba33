package binding

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// toElementRef converts a host-supplied value into a stored element
// reference of the target schema. An attached object of the right
// schema passes through; a dict shaped like the schema creates a new
// object. Anything else is a coercion failure.
func (b *Binder) toElementRef(v starlark.Value, elem *core.ObjectSchema) (string, error) {
	switch val := v.(type) {
	case *BoundObject:
		if val.schema.Name != elem.Name {
			return "", fmt.Errorf("%w: expected %s, got %s", core.ErrCoercion, elem.Name, val.schema.Name)
		}
		if err := val.verifyAttached(); err != nil {
			return "", err
		}
		return val.id, nil

	case *starlark.Dict:
		return b.createFromDict(val, elem)

	default:
		return "", fmt.Errorf("%w: cannot convert %s to %s", core.ErrCoercion, v.Type(), elem.Name)
	}
}

// elementRefs coerces every value in an iterable.
func (b *Binder) elementRefs(iter starlark.Iterable, elem *core.ObjectSchema) ([]string, error) {
	var refs []string
	it := iter.Iterate()
	defer it.Done()
	var v starlark.Value
	for it.Next(&v) {
		ref, err := b.toElementRef(v, elem)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// createFromDict creates a new object of the schema from a dict:
// scalar entries become the payload, link and list entries become link
// rows. Keys outside the schema are coercion failures.
func (b *Binder) createFromDict(d *starlark.Dict, elem *core.ObjectSchema) (string, error) {
	payload := make(map[string]any)
	type linkEntry struct {
		prop *core.Property
		val  starlark.Value
	}
	var links []linkEntry

	for _, item := range d.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return "", fmt.Errorf("%w: %s property keys must be strings, got %s", core.ErrCoercion, elem.Name, item[0].Type())
		}
		p := elem.Property(key)
		if p == nil {
			return "", fmt.Errorf("%w: %s has no property %q", core.ErrCoercion, elem.Name, key)
		}
		if p.IsScalar() {
			val, err := starlarkToScalar(p, item[1])
			if err != nil {
				return "", err
			}
			payload[key] = val
		} else {
			links = append(links, linkEntry{prop: p, val: item[1]})
		}
	}

	raw, err := cbor.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload for %s: %w", elem.Name, err)
	}
	id, err := b.session.CreateObject(elem.Name, raw)
	if err != nil {
		return "", err
	}

	for _, entry := range links {
		target, err := b.schemas.Get(entry.prop.ObjectType)
		if err != nil {
			return "", err
		}
		if entry.prop.Type == core.TypeLink {
			if entry.val == starlark.None {
				continue
			}
			ref, err := b.toElementRef(entry.val, target)
			if err != nil {
				return "", err
			}
			if err := b.session.LinkAppend(id, entry.prop.Name, ref); err != nil {
				return "", err
			}
			continue
		}

		iter, ok := entry.val.(starlark.Iterable)
		if !ok {
			return "", fmt.Errorf("%w: %s.%s requires an iterable of %s", core.ErrCoercion, elem.Name, entry.prop.Name, target.Name)
		}
		refs, err := b.elementRefs(iter, target)
		if err != nil {
			return "", err
		}
		for _, ref := range refs {
			if err := b.session.LinkAppend(id, entry.prop.Name, ref); err != nil {
				return "", err
			}
		}
	}

	return id, nil
}
