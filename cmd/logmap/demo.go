package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/logmap"
	"github.com/baxromumarov/logmap/procpool"
)

var errDemo = errors.New("demo failure requested")

func square(_ context.Context, x int) (int, error) {
	time.Sleep(time.Duration(x%5) * 20 * time.Millisecond)
	return x * x, nil
}

var squareFunc = procpool.Register("square", square)

type demoOptions struct {
	items     int
	processes bool
	shuffle   bool
	ordered   bool
	fail      bool
}

func newDemoCmd(a *app) *cobra.Command {
	var o demoOptions
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run nested scopes, a progress bar and a parallel map",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), a.lg, o)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&o.items, "items", "n", 20, "number of inputs")
	f.BoolVar(&o.processes, "processes", false, "map in worker processes instead of goroutines")
	f.BoolVar(&o.shuffle, "shuffle", false, "map inputs in random order")
	f.BoolVar(&o.ordered, "ordered", false, "yield mapped results in input order")
	f.BoolVar(&o.fail, "fail", false, "fail inside the innermost scope")
	return cmd
}

func runDemo(ctx context.Context, lg *logmap.Logger, o demoOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, s := lg.BeginContext(ctx, "demo")
	defer func() { err = s.End(err) }()

	inputs := make([]int, o.items)
	for i := range inputs {
		inputs[i] = i + 1
	}

	err = lg.Timed(ctx, "warming up", func(ctx context.Context) error {
		it := logmap.Iterate(lg, inputs, logmap.WithDescription("counting"))
		sum := 0
		for v := range it.All(ctx) {
			sum += v
			time.Sleep(10 * time.Millisecond)
		}
		if err := it.Err(); err != nil {
			return err
		}
		lg.Infof("sum of inputs is %d", sum)
		return nil
	})
	if err != nil {
		return err
	}

	var ex logmap.Executor[int, int] = logmap.Goroutines(square)
	if o.processes {
		ex = procpool.New(squareFunc)
	}
	var opts []logmap.MapOption
	if o.shuffle {
		opts = append(opts, logmap.WithMapShuffle())
	}
	if o.ordered {
		opts = append(opts, logmap.WithOrdered())
	}

	err = lg.Timed(ctx, fmt.Sprintf("squaring in %s", ex.Mode()), func(ctx context.Context) error {
		results, err := logmap.MapAllWith(ctx, lg, ex, inputs, opts...)
		if err != nil {
			return err
		}
		lg.Infof("got %d squares, first %v", len(results), results[:min(len(results), 5)])
		return nil
	})
	if err != nil {
		return err
	}

	if o.fail {
		inner := lg.Begin("about to fail")
		return inner.End(errDemo)
	}
	return nil
}
