// Package binding exposes stored objects and their ordered link
// collections as Starlark values. A Binder ties one store session to
// the schema registry; every value it produces re-validates attachment
// against that session before touching the store.
package binding

import (
	"log/slog"

	"github.com/leapstack-labs/starstore/internal/schema"
	"github.com/leapstack-labs/starstore/internal/store"
	"github.com/leapstack-labs/starstore/pkg/core"
)

// Binder constructs host-visible values over a single session. It is
// built once at session setup and threaded through explicitly; there is
// no process-wide wrapper registry.
type Binder struct {
	session *store.Session
	schemas *schema.Registry
	logger  *slog.Logger
}

// NewBinder creates a binder for a session. Logger may be nil.
func NewBinder(session *store.Session, schemas *schema.Registry, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Binder{session: session, schemas: schemas, logger: logger}
}

// Session returns the bound session.
func (b *Binder) Session() *store.Session {
	return b.session
}

// Object wraps a stored object as a host-visible handle. The handle is
// a non-owning view: it stays cheap to construct and is validated on
// every use.
func (b *Binder) Object(id string, sch *core.ObjectSchema) *BoundObject {
	return &BoundObject{binder: b, id: id, schema: sch}
}

// List wraps an ordered link collection as a host-visible list value.
func (b *Binder) List(ownerID, property string, elem *core.ObjectSchema) *BoundList {
	return &BoundList{binder: b, owner: ownerID, prop: property, elem: elem}
}
