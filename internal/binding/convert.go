package binding

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/pkg/core"
)

// scalarToStarlark converts a decoded payload value to a Starlark value
// according to the property's declared type.
func scalarToStarlark(p *core.Property, v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch p.Type {
	case core.TypeString:
		if s, ok := v.(string); ok {
			return starlark.String(s), nil
		}

	case core.TypeInt:
		switch n := v.(type) {
		case int64:
			return starlark.MakeInt64(n), nil
		case uint64:
			return starlark.MakeUint64(n), nil
		case int:
			return starlark.MakeInt(n), nil
		}

	case core.TypeFloat:
		switch n := v.(type) {
		case float64:
			return starlark.Float(n), nil
		case int64:
			return starlark.Float(float64(n)), nil
		case uint64:
			return starlark.Float(float64(n)), nil
		}

	case core.TypeBool:
		if b, ok := v.(bool); ok {
			return starlark.Bool(b), nil
		}

	case core.TypeBytes:
		if b, ok := v.([]byte); ok {
			return starlark.Bytes(b), nil
		}
	}

	return nil, fmt.Errorf("property %q: stored value %T does not match type %s", p.Name, v, p.Type)
}

// starlarkToScalar converts a host-supplied value to the payload
// representation of the property's declared type.
func starlarkToScalar(p *core.Property, v starlark.Value) (any, error) {
	if v == starlark.None {
		return nil, nil
	}

	switch p.Type {
	case core.TypeString:
		if s, ok := starlark.AsString(v); ok {
			return s, nil
		}

	case core.TypeInt:
		if n, ok := v.(starlark.Int); ok {
			if i64, ok := n.Int64(); ok {
				return i64, nil
			}
			return nil, fmt.Errorf("%w: integer too large for property %q", core.ErrCoercion, p.Name)
		}

	case core.TypeFloat:
		switch n := v.(type) {
		case starlark.Float:
			return float64(n), nil
		case starlark.Int:
			return float64(n.Float()), nil
		}

	case core.TypeBool:
		if b, ok := v.(starlark.Bool); ok {
			return bool(b), nil
		}

	case core.TypeBytes:
		if b, ok := v.(starlark.Bytes); ok {
			return []byte(b), nil
		}
	}

	return nil, fmt.Errorf("%w: cannot convert %s to %s for property %q", core.ErrCoercion, v.Type(), p.Type, p.Name)
}
