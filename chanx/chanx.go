package chanx

import "context"

// Send delivers v on ch. It returns ctx.Err() if ctx is done first.
func Send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv takes one value from ch. ok is false once ch is closed; err is
// ctx.Err() if ctx is done before a value arrives.
func Recv[T any](ctx context.Context, ch <-chan T) (v T, ok bool, err error) {
	select {
	case v, ok = <-ch:
		return v, ok, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}
