package engine

import (
	"sync"

	"go.starlark.net/starlark"
)

// ThreadPool manages reusable Starlark threads so concurrent script
// runs do not allocate a fresh thread per execution.
type ThreadPool struct {
	mu      sync.Mutex
	threads []*starlark.Thread
	maxSize int
}

// NewThreadPool creates a pool with the given maximum size.
func NewThreadPool(maxSize int) *ThreadPool {
	if maxSize <= 0 {
		maxSize = 10 // default pool size
	}
	return &ThreadPool{
		threads: make([]*starlark.Thread, 0, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a thread from the pool or creates a new one. The
// thread name is used for error reporting.
func (p *ThreadPool) Get(name string, print func(string)) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	printFn := func(_ *starlark.Thread, msg string) {
		if print != nil {
			print(msg)
		}
	}

	if len(p.threads) > 0 {
		thread := p.threads[len(p.threads)-1]
		p.threads = p.threads[:len(p.threads)-1]
		thread.Name = name
		thread.Print = printFn
		return thread
	}

	return &starlark.Thread{Name: name, Print: printFn}
}

// Put returns a thread to the pool for reuse. If the pool is full, the
// thread is discarded.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) < p.maxSize {
		// Clear state that might leak between uses
		thread.Name = ""
		thread.Print = nil
		p.threads = append(p.threads, thread)
	}
}

// Size returns the current number of pooled threads.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
