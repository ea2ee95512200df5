package chanx

import "context"

// OrDone forwards values from in until in is closed or ctx is done, then
// closes the returned channel. Ranging over it never outlives ctx.
func OrDone[T any](ctx context.Context, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			var (
				v  T
				ok bool
			)
			select {
			case v, ok = <-in:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
			if Send(ctx, out, v) != nil {
				return
			}
		}
	}()
	return out
}

// Drain discards values from ch until it is closed, releasing any
// producer still blocked on it.
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
