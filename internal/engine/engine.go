// Package engine composes the store, schema registry, and Starlark
// runtime into script execution sessions.
package engine

import (
	"fmt"
	"log/slog"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/starstore/internal/binding"
	"github.com/leapstack-labs/starstore/internal/schema"
	"github.com/leapstack-labs/starstore/internal/store"
)

// Config holds engine configuration.
type Config struct {
	// StorePath is the path to the SQLite database (":memory:" for
	// in-memory).
	StorePath string
	// SchemaPath is the path to the YAML schema definition file.
	// Ignored when Schemas is set.
	SchemaPath string
	// Schemas is an optional pre-built registry.
	Schemas *schema.Registry
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
	// Print receives script print() output. Defaults to stdout.
	Print func(string)
}

// Engine owns the store connection and schema registry shared by all
// sessions.
type Engine struct {
	logger  *slog.Logger
	schemas *schema.Registry
	store   *store.Store
	pool    *ThreadPool
	print   func(string)
}

// New opens the store and loads schemas.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	schemas := cfg.Schemas
	if schemas == nil {
		var err error
		schemas, err = schema.Load(cfg.SchemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load schemas: %w", err)
		}
	}

	st := store.New(logger)
	if err := st.Open(cfg.StorePath); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := st.InitSchema(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	print := cfg.Print
	if print == nil {
		print = func(msg string) { fmt.Fprintln(os.Stdout, msg) }
	}

	logger.Debug("engine initialized", "store", cfg.StorePath, "schemas", len(schemas.Names()))

	return &Engine{
		logger:  logger,
		schemas: schemas,
		store:   st,
		pool:    NewThreadPool(0),
		print:   print,
	}, nil
}

// Close closes the store. Sessions created from the engine detach.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Schemas returns the engine's schema registry.
func (e *Engine) Schemas() *schema.Registry {
	return e.schemas
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Session is one script execution context: a store session plus the
// globals bound to it.
type Session struct {
	engine  *Engine
	sess    *store.Session
	globals starlark.StringDict
}

// NewSession creates a session with the "store" global bound to a
// fresh store session.
func (e *Engine) NewSession() (*Session, error) {
	sess, err := e.store.NewSession()
	if err != nil {
		return nil, err
	}
	binder := binding.NewBinder(sess, e.schemas, e.logger)
	globals := starlark.StringDict{
		"store": binding.NewStoreValue(binder),
	}
	return &Session{engine: e, sess: sess, globals: globals}, nil
}

// Close detaches the session.
func (s *Session) Close() error {
	return s.sess.Close()
}

// Store returns the underlying store session.
func (s *Session) Store() *store.Session {
	return s.sess
}

// fileOptions enables the non-core syntax scripts commonly rely on.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Run executes a script's source in the session. Globals defined by
// the script accumulate into the session for later evaluation.
func (s *Session) Run(name string, src any) error {
	thread := s.engine.pool.Get(name, s.engine.print)
	defer s.engine.pool.Put(thread)

	globals, err := starlark.ExecFileOptions(fileOptions, thread, name, src, s.globals)
	if err != nil {
		return err
	}
	for k, v := range globals {
		s.globals[k] = v
	}
	return nil
}

// Eval evaluates a single expression in the session, used by the REPL.
// Statements fall back to Run.
func (s *Session) Eval(name, src string) (starlark.Value, error) {
	thread := s.engine.pool.Get(name, s.engine.print)
	defer s.engine.pool.Put(thread)

	if _, err := fileOptions.ParseExpr(name, src, 0); err != nil {
		// Not an expression: execute as a statement list.
		return starlark.None, s.Run(name, src)
	}
	return starlark.EvalOptions(fileOptions, thread, name, src, s.globals)
}

// RunScripts executes script files concurrently, one session per file.
func (e *Engine) RunScripts(paths []string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = len(paths)
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, path := range paths {
		g.Go(func() error {
			sess, err := e.NewSession()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			defer sess.Close()

			e.logger.Debug("running script", "path", path)
			if err := sess.Run(path, nil); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}
