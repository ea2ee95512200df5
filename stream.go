package logmap

import (
	"container/heap"
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

// ErrStreamGap is returned when an ordered stream terminates with missing
// results.
var ErrStreamGap = errors.New("logmap: stream terminated with missing results (gap)")

// Stream is a single-pass, pull-based sequence. [Stream.Next] returns
// io.EOF once the sequence is exhausted. A stream is not restartable.
//
// Streams own resources (progress render lines, worker pools). They are
// released when the stream reaches its end or fails, and by [Stream.Close]
// when the consumer stops early. Ranging over [Stream.All] closes the
// stream on every exit path, including break.
//
// Streams are single-consumer: Next and the terminal methods must not be
// called concurrently.
type Stream[T any] struct {
	next func(ctx context.Context) (T, error)
	stop func()

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

// NewStream creates a stream from an iterator function. next reports the
// end of the sequence by returning io.EOF.
func NewStream[T any](next func(context.Context) (T, error)) *Stream[T] {
	return &Stream[T]{next: next}
}

// Next returns the next item in the stream, or io.EOF when it is exhausted.
// After [Stream.Close], Next returns io.EOF.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	if s.isClosed() {
		var zero T
		return zero, io.EOF
	}
	val, err := s.next(ctx)
	if err != nil && err != io.EOF {
		s.setError(err)
	}
	return val, err
}

// Close releases the stream's resources. It is idempotent and safe to call
// after the stream has ended.
func (s *Stream[T]) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.stop != nil {
			s.stop()
		}
	})
}

// Err returns the first error the stream produced, if any.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream[T]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream[T]) setError(err error) {
	if err == nil || err == io.EOF {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// All returns an iterator over the remaining items. Iteration stops at the
// end of the stream or at the first error (available from [Stream.Err]),
// and the stream is closed when the loop exits.
//
//	for v := range s.All(ctx) {
//	    ...
//	}
//	if err := s.Err(); err != nil {
//	    ...
//	}
func (s *Stream[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		defer s.Close()
		for {
			val, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(val) {
				return
			}
		}
	}
}

// FromSlice creates a stream from a slice.
func FromSlice[T any](items []T) *Stream[T] {
	var idx int
	return NewStream(func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if idx >= len(items) {
			return zero, io.EOF
		}
		val := items[idx]
		idx++
		return val, nil
	})
}

// FromChan creates a stream from a channel. The stream ends when ch is
// closed.
func FromChan[T any](ch <-chan T) *Stream[T] {
	return NewStream(func(ctx context.Context) (T, error) {
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case v, ok := <-ch:
			if !ok {
				var zero T
				return zero, io.EOF
			}
			return v, nil
		}
	})
}

// FromSeq creates a stream from an iterator. The iterator is started on the
// first call to Next and stopped when the stream ends or is closed.
func FromSeq[T any](seq iter.Seq[T]) *Stream[T] {
	var (
		pull func() (T, bool)
		stop func()
	)
	s := &Stream[T]{}
	s.next = func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if pull == nil {
			pull, stop = iter.Pull(seq)
		}
		v, ok := pull()
		if !ok {
			stop()
			return zero, io.EOF
		}
		return v, nil
	}
	s.stop = func() {
		if stop != nil {
			stop()
		}
	}
	return s
}

// Map transforms a stream using a function. Closing the result closes s.
func Map[A, B any](s *Stream[A], fn func(context.Context, A) (B, error)) *Stream[B] {
	return &Stream[B]{
		next: func(ctx context.Context) (B, error) {
			val, err := s.Next(ctx)
			if err != nil {
				var zero B
				return zero, err
			}
			return fn(ctx, val)
		},
		stop: s.Close,
	}
}

// ToSlice collects the remaining items. On failure it returns the items
// collected so far together with the error. The stream is closed on return.
func (s *Stream[T]) ToSlice(ctx context.Context) ([]T, error) {
	defer s.Close()
	var items []T
	for {
		val, err := s.Next(ctx)
		if err == io.EOF {
			return items, s.Err()
		}
		if err != nil {
			return items, err
		}
		items = append(items, val)
	}
}

// ForEach applies a function to each remaining item. The stream is closed
// on return.
func (s *Stream[T]) ForEach(ctx context.Context, fn func(T) error) error {
	defer s.Close()
	for {
		val, err := s.Next(ctx)
		if err == io.EOF {
			return s.Err()
		}
		if err != nil {
			return err
		}
		if err := fn(val); err != nil {
			return err
		}
	}
}

// Count drains the stream and returns the number of items it yielded.
func (s *Stream[T]) Count(ctx context.Context) (int, error) {
	defer s.Close()
	var count int
	for {
		_, err := s.Next(ctx)
		if err == io.EOF {
			return count, s.Err()
		}
		if err != nil {
			return count, err
		}
		count++
	}
}

type outcomeHeap[R any] []Outcome[R]

func (h outcomeHeap[R]) Len() int           { return len(h) }
func (h outcomeHeap[R]) Less(i, j int) bool { return h[i].Index < h[j].Index }
func (h outcomeHeap[R]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *outcomeHeap[R]) Push(x any)        { *h = append(*h, x.(Outcome[R])) }
func (h *outcomeHeap[R]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ heap.Interface = (*outcomeHeap[int])(nil)
