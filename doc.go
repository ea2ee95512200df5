// Package logmap provides nested, timed logging with progress bars and
// parallel maps for long-running batch programs.
//
// A [Logger] writes leveled lines to a [log/slog.Handler] and indents
// them by how many scopes are open, so the output of a program reads as
// an outline of what it did and how long each part took.
//
// # Scopes
//
// [Logger.Begin] opens a labelled, timed scope and [Scope.End] closes it.
// The opening line shows the label and the closing line the elapsed time:
//
//	s := lg.Begin("loading")
//	defer func() { err = s.End(err) }()
//
// produces
//
//	⎾ loading
//	￨ lines logged inside the scope
//	⎿ 1.2 seconds
//
// Ending a scope with an error logs "{kind} {message}" once at ERROR,
// resets the logger's nesting to zero, and returns the error unchanged.
// [Logger.Timed] wraps a function in a scope and also reports panics.
// Options: [Quietly], [AtLevel], [MinLogworthy], [Precision],
// [SpanAttributes].
//
// Nesting state belongs to a Logger. Goroutines that log concurrently
// should each use [Logger.Fork], whose indentation starts where the
// parent's currently is.
//
// # Progress
//
// [Iterate], [IterateSeq] and [IterateStream] return a [Stream] that
// drives a progress bar as it is consumed. While a bar is on screen, lines
// logged on the same Logger replace the bar's description. The bar is
// released when the stream ends, fails or is closed. Rendering is done by
// a [render.Renderer]; outputs that are not terminals get no bar.
//
// # Parallel maps
//
// [ParallelMap] applies a function to a slice on a pool of goroutines and
// yields results through a progress bar. With one worker or one input it
// runs in the consuming goroutine in input order; otherwise results come
// in completion order unless [WithOrdered] is given. [MapAll] and [RunAll]
// run a map to completion. A failing input surfaces as a [*JobError]
// naming its index; inspect it with [JobOf], [CauseOf] and [AllJobErrors].
//
// The isolation boundary is an [Executor]. [Goroutines] is the default;
// [github.com/baxromumarov/logmap/procpool] runs jobs in worker processes
// and is used through [ParallelMapWith] and [MapAllWith].
//
// # Quiet mode
//
// [Logger.WithQuiet] silences log lines and progress bars until the
// returned restore function runs. Quiet mode never changes which items
// are yielded. Scope failures are logged regardless.
//
// # Configuration and observability
//
// [FromConfig] builds a Logger from a [config.Config] loaded from TOML,
// YAML, .env files and LOGMAP_* variables. [WithRecorder] reports scope
// and job metrics, for example to Prometheus through
// [metrics.PrometheusRecorder], and [WithTracerProvider] turns every scope
// into an OpenTelemetry span.
package logmap
