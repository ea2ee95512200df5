// Package procpool runs mapped functions in isolated worker processes.
//
// A worker is the current executable started again with [EnvWorker] set.
// Programs that use procpool must call [MaybeServe] at the very start of
// main (and of TestMain in tests) so that a process started as a worker
// serves jobs instead of running the program:
//
//	var double = procpool.Register("double", func(ctx context.Context, x int) (int, error) {
//	    return 2 * x, nil
//	})
//
//	func main() {
//	    procpool.MaybeServe()
//	    ...
//	    results, err := logmap.MapAllWith(ctx, lg, procpool.New(double), inputs)
//	}
//
// Functions are registered by name in package-level variables so that the
// parent and its workers, running the same binary, agree on the registry.
// Inputs and results cross the process boundary encoded with msgpack, so
// their types must be msgpack-serialisable. Extra arguments travel inside
// the input value.
package procpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownFunc is reported when a worker is asked to run a function that
// is not registered in its process.
var ErrUnknownFunc = errors.New("procpool: unknown function")

// handler decodes a payload, runs the function and encodes its result.
type handler func(ctx context.Context, payload []byte) ([]byte, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]handler)
)

// Func is a function registered for execution in worker processes.
type Func[A, R any] struct {
	name string
	fn   func(context.Context, A) (R, error)
}

// Register makes fn callable by name from worker processes. It panics if
// the name is empty or already registered.
func Register[A, R any](name string, fn func(context.Context, A) (R, error)) *Func[A, R] {
	if name == "" {
		panic("procpool: Register requires a name")
	}
	if fn == nil {
		panic("procpool: Register requires non-nil fn")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("procpool: function %q registered twice", name))
	}
	registry[name] = func(ctx context.Context, payload []byte) ([]byte, error) {
		var in A
		if err := msgpack.Unmarshal(payload, &in); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return msgpack.Marshal(out)
	}
	return &Func[A, R]{name: name, fn: fn}
}

// Name returns the name f was registered under.
func (f *Func[A, R]) Name() string { return f.name }

func lookup(name string) (handler, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	h, ok := registry[name]
	return h, ok
}
