package procpool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/baxromumarov/logmap"
	"github.com/baxromumarov/logmap/sink"
)

// EnvWorker is set to "1" in the environment of worker processes.
const EnvWorker = "LOGMAP_PROCPOOL_WORKER"

// Worker processes receive requests on fd 3 and answer on fd 4.
const (
	requestFD  = 3
	responseFD = 4
)

// IsWorker reports whether the current process was started as a worker.
func IsWorker() bool {
	return os.Getenv(EnvWorker) == "1"
}

// MaybeServe turns the current process into a worker if it was started as
// one: it serves jobs until the parent closes the request pipe and then
// exits. In any other process it returns immediately.
func MaybeServe() {
	if !IsWorker() {
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.New(sink.NewText(os.Stderr, slog.LevelInfo))
	req := os.NewFile(requestFD, "procpool-requests")
	resp := os.NewFile(responseFD, "procpool-responses")
	if req == nil || resp == nil {
		log.Error("procpool worker started without its pipes")
		os.Exit(2)
	}

	err := Serve(ctx, req, resp)
	_ = resp.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("procpool worker stopped", "pid", os.Getpid(), "error", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// Serve answers requests read from r on w, one at a time, until r ends.
// A failing or panicking function is reported to the parent and does not
// stop the loop.
func Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req request
		if err := readFrame(br, &req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := writeFrame(w, handle(ctx, req)); err != nil {
			return fmt.Errorf("write response %s: %w", req.ID, err)
		}
	}
}

func handle(ctx context.Context, req request) (resp response) {
	start := time.Now()
	resp = response{Version: protocolVersion, ID: req.ID}
	defer func() {
		resp.Elapsed = int64(time.Since(start))
	}()

	if req.Version != protocolVersion {
		resp.Error = fmt.Sprintf("protocol version %d, worker speaks %d", req.Version, protocolVersion)
		return resp
	}
	h, ok := lookup(req.Func)
	if !ok {
		resp.Kind = "unknownFunc"
		resp.Error = fmt.Sprintf("%s: %q", ErrUnknownFunc, req.Func)
		return resp
	}

	defer func() {
		if r := recover(); r != nil {
			resp.Payload = nil
			resp.Panic = true
			resp.Kind = "PanicError"
			resp.Error = fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
		}
	}()
	out, err := h(ctx, req.Payload)
	if err != nil {
		resp.Kind = logmap.ErrorKind(err)
		resp.Error = err.Error()
		return resp
	}
	resp.Payload = out
	return resp
}
