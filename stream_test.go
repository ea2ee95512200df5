package logmap

import (
	"context"
	"errors"
	"io"
	"reflect"
	"slices"
	"testing"
)

func TestFromSlice_NextSequence(t *testing.T) {
	s := FromSlice([]int{1, 2})

	ctx := context.Background()

	v, err := s.Next(ctx)
	if err != nil || v != 1 {
		t.Fatalf("got %v, %v; want 1, nil", v, err)
	}

	v, err = s.Next(ctx)
	if err != nil || v != 2 {
		t.Fatalf("got %v, %v; want 2, nil", v, err)
	}

	_, err = s.Next(ctx)
	if err != io.EOF {
		t.Fatalf("got %v; want io.EOF", err)
	}
}

func TestFromSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	s := FromSlice(items)
	res, err := s.ToSlice(context.Background())
	if err != nil {
		t.Fatalf("ToSlice failed: %v", err)
	}
	if !reflect.DeepEqual(res, items) {
		t.Errorf("got %v, want %v", res, items)
	}
}

func TestStreamMap(t *testing.T) {
	s := FromSlice([]int{1, 2, 3})
	ms := Map(s, func(ctx context.Context, v int) (int, error) {
		return v * 2, nil
	})
	res, err := ms.ToSlice(context.Background())
	if err != nil {
		t.Fatalf("ToSlice failed: %v", err)
	}
	want := []int{2, 4, 6}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("got %v, want %v", res, want)
	}
}

func TestStreamMapCloseClosesSource(t *testing.T) {
	var stopped bool
	src := &Stream[int]{
		next: func(context.Context) (int, error) { return 1, nil },
		stop: func() { stopped = true },
	}
	ms := Map(src, func(_ context.Context, v int) (int, error) { return v, nil })
	ms.Close()
	if !stopped {
		t.Error("closing a mapped stream should close its source")
	}
}

func TestStreamError(t *testing.T) {
	sentinel := errors.New("boom")
	s := NewStream(func(context.Context) (int, error) { return 0, sentinel })

	_, err := s.Next(context.Background())
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v; want %v", err, sentinel)
	}
	if !errors.Is(s.Err(), sentinel) {
		t.Errorf("Err() = %v; want %v", s.Err(), sentinel)
	}
}

func TestToSliceReturnsPartialResults(t *testing.T) {
	sentinel := errors.New("third fails")
	var n int
	s := NewStream(func(context.Context) (int, error) {
		n++
		if n == 3 {
			return 0, sentinel
		}
		return n, nil
	})

	got, err := s.ToSlice(context.Background())
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v; want %v", err, sentinel)
	}
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("got %v; want [1 2]", got)
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	var stops int
	s := &Stream[int]{
		next: func(context.Context) (int, error) { return 1, nil },
		stop: func() { stops++ },
	}
	s.Close()
	s.Close()
	if stops != 1 {
		t.Errorf("stop called %d times; want 1", stops)
	}
	if _, err := s.Next(context.Background()); err != io.EOF {
		t.Errorf("Next after Close = %v; want io.EOF", err)
	}
}

func TestStreamAllBreakCloses(t *testing.T) {
	var stopped bool
	var n int
	s := &Stream[int]{
		next: func(context.Context) (int, error) {
			n++
			return n, nil
		},
		stop: func() { stopped = true },
	}

	var got []int
	for v := range s.All(context.Background()) {
		got = append(got, v)
		if v == 3 {
			break
		}
	}
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("got %v", got)
	}
	if !stopped {
		t.Error("break should close the stream")
	}
}

func TestFromSeq(t *testing.T) {
	s := FromSeq(slices.Values([]string{"a", "b"}))
	got, err := s.ToSlice(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestFromSeqCloseStopsIterator(t *testing.T) {
	var finished bool
	seq := func(yield func(int) bool) {
		defer func() { finished = true }()
		for i := 0; ; i++ {
			if !yield(i) {
				return
			}
		}
	}
	s := FromSeq(seq)
	if _, err := s.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Close()
	if !finished {
		t.Error("Close should stop the pulled iterator")
	}
}

func TestFromChan(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	close(ch)

	n, err := FromChan(ch).Count(context.Background())
	if err != nil || n != 2 {
		t.Errorf("Count() = %d, %v; want 2, nil", n, err)
	}
}

func TestFromChanContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FromChan(make(chan int)).Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v; want context.Canceled", err)
	}
}

func TestForEachStopsOnError(t *testing.T) {
	sentinel := errors.New("stop")
	var seen []int
	err := FromSlice([]int{1, 2, 3}).ForEach(context.Background(), func(v int) error {
		seen = append(seen, v)
		if v == 2 {
			return sentinel
		}
		return nil
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v; want %v", err, sentinel)
	}
	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Errorf("seen %v", seen)
	}
}
