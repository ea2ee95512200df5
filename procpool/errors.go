package procpool

import (
	"errors"
	"fmt"
	"strings"
)

// RemoteError is a failure reported by a worker process.
type RemoteError struct {
	// Func is the registered function name.
	Func string
	// Kind is the type name of the error raised in the worker.
	Kind string
	// Message is the worker-side error text. For a panic it includes the
	// worker's stack.
	Message string
	// Panic is set when the function panicked.
	Panic bool
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if e.Panic {
		msg, _, _ = strings.Cut(msg, "\n")
	}
	return fmt.Sprintf("%s in worker: %s", e.Func, msg)
}

// Is makes errors.Is(err, ErrUnknownFunc) hold for unknown-function reports.
func (e *RemoteError) Is(target error) bool {
	return target == ErrUnknownFunc && e.Kind == "unknownFunc"
}

// IsRemote reports whether err is, or wraps, a [*RemoteError].
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// ErrWorkerExited is reported for jobs that could not be answered because
// their worker process went away.
var ErrWorkerExited = errors.New("procpool: worker process exited")
