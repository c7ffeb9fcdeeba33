package core

import "errors"

// Sentinel errors for store access and mutation failures. Callers match
// them with errors.Is; wrapping sites add operation context.
var (
	// ErrStaleReference indicates a handle whose session has been closed
	// or whose owning object no longer exists.
	ErrStaleReference = errors.New("object is no longer attached to a live session")

	// ErrIllegalMutation indicates a mutation attempted outside a write
	// transaction.
	ErrIllegalMutation = errors.New("can only mutate within a write transaction")

	// ErrReadOnlyProperty indicates a write to a synthetic read-only
	// property such as a list's length.
	ErrReadOnlyProperty = errors.New("property is read-only")

	// ErrArgumentCount indicates a builtin called with fewer arguments
	// than it requires.
	ErrArgumentCount = errors.New("wrong number of arguments")

	// ErrCoercion indicates a host value that cannot be converted into a
	// stored element of the target schema.
	ErrCoercion = errors.New("value cannot be coerced to target schema")

	// ErrNoTransaction indicates a commit or rollback with no open
	// transaction.
	ErrNoTransaction = errors.New("no write transaction is open")

	// ErrTransactionOpen indicates a begin while a transaction is
	// already open.
	ErrTransactionOpen = errors.New("a write transaction is already open")
)
