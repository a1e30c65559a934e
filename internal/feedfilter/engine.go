// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package feedfilter

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/feedfilter/internal/idgen"
	"github.com/cardinalhq/feedfilter/internal/logctx"
)

// ProgressInterval is the number of data rows between percentage events.
const ProgressInterval = 1000

// State is the lifecycle position of an Engine.
type State int32

const (
	StateIdle State = iota
	StateOpen
	StateRotating
	StateDone
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateRotating:
		return "rotating"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes a finished run.
type Result struct {
	RunID        string
	State        State
	Chunks       []ChunkInfo
	RowsRead     int64
	RowsAccepted int64
	// Err is the cause of a failed run. It is nil for completed and
	// cancelled runs.
	Err error
}

// Engine filters one input feed. An Engine runs at most once; a second feed
// needs a second Engine.
type Engine struct {
	cfg    RunConfig
	sink   ProgressSink
	runID  string
	create fileCreator

	started   atomic.Bool
	cancelled atomic.Bool
	state     atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc

	done   chan struct{}
	result Result
}

// NewEngine prepares a run of cfg that reports to sink. It emits the initial
// "starting" event right away.
func NewEngine(sink ProgressSink, cfg RunConfig) *Engine {
	if cfg.BaseName == "" {
		cfg.BaseName = DefaultBaseName
	}
	e := &Engine{
		cfg:   cfg,
		sink:  sink,
		runID: idgen.NewRunID(),
		done:  make(chan struct{}),
	}
	e.sink.Put(StatusEvent(0, MessageStarting))
	return e
}

// RunID identifies this run in logs and summaries.
func (e *Engine) RunID() string {
	return e.runID
}

// State returns the current lifecycle state. Safe to call from any goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start launches the run on its own goroutine and returns immediately.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx = e.withCancel(ctx)
	go e.execute(ctx)
	return nil
}

// Run executes the run on the calling goroutine and returns its result.
func (e *Engine) Run(ctx context.Context) Result {
	if !e.started.CompareAndSwap(false, true) {
		return Result{RunID: e.runID, State: e.State(), Err: ErrAlreadyStarted}
	}
	ctx = e.withCancel(ctx)
	e.execute(ctx)
	return e.result
}

// Cancel asks the run to stop. The engine notices before processing the next
// row; the open chunk is closed and kept.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Done is closed once the run has finished, whatever the outcome.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the run has finished and returns its result.
func (e *Engine) Wait() Result {
	<-e.done
	return e.result
}

func (e *Engine) withCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	if e.cancelled.Load() {
		cancel()
	}
	return ctx
}

func (e *Engine) stopRequested(ctx context.Context) bool {
	return e.cancelled.Load() || ctx.Err() != nil
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

func (e *Engine) execute(ctx context.Context) {
	defer close(e.done)
	defer func() {
		e.mu.Lock()
		if e.cancel != nil {
			e.cancel()
		}
		e.mu.Unlock()
	}()

	ctx, span := tracer.Start(ctx, "feedfilter.run", trace.WithAttributes(
		attribute.String("run_id", e.runID),
		attribute.String("input", e.cfg.InputPath),
		attribute.Int64("max_chunk_bytes", e.cfg.MaxChunkBytes),
	))
	defer span.End()

	ctx, _ = logctx.With(ctx, slog.String("runID", e.runID))

	e.result = e.filter(ctx)
	e.result.RunID = e.runID
	e.setState(e.result.State)

	span.SetAttributes(
		attribute.String("state", e.result.State.String()),
		attribute.Int64("rows_read", e.result.RowsRead),
		attribute.Int64("rows_accepted", e.result.RowsAccepted),
		attribute.Int("chunks", len(e.result.Chunks)),
	)
	if e.result.Err != nil {
		span.RecordError(e.result.Err)
		span.SetStatus(codes.Error, e.result.Err.Error())
	}
}

// fail reports a terminal error and builds the failed result.
func (e *Engine) fail(ctx context.Context, res Result, err error) Result {
	logctx.FromContext(ctx).Error("Feed filter run failed", slog.Any("error", err))
	e.sink.Put(StatusEvent(100, "ERROR: %s", err.Error()))
	res.State = StateFailed
	res.Err = err
	return res
}

// failOpen reports a chunk that could not be created.
func (e *Engine) failOpen(ctx context.Context, res Result, path string, err error) Result {
	if errors.Is(err, fs.ErrPermission) {
		logctx.FromContext(ctx).Error("Permission denied opening output chunk", slog.String("path", path), slog.Any("error", err))
		e.sink.Put(StatusEvent(100, "ERROR: Permission denied '%s'", filepath.Base(path)))
		res.State = StateFailed
		res.Err = err
		return res
	}
	return e.fail(ctx, res, err)
}

func (e *Engine) abort(ctx context.Context, res Result) Result {
	logctx.FromContext(ctx).Info("Feed filter run cancelled",
		slog.Int64("rowsRead", res.RowsRead),
		slog.Int64("rowsAccepted", res.RowsAccepted))
	res.State = StateAborted
	return res
}

func (e *Engine) filter(ctx context.Context) Result {
	ll := logctx.FromContext(ctx)
	res := Result{State: StateIdle}

	e.sink.Put(MessageEvent("opening '%s' for reading", e.cfg.InputPath))

	total, err := countDataRows(ctx, e.cfg.InputPath)
	if err != nil {
		if e.stopRequested(ctx) {
			return e.abort(ctx, res)
		}
		return e.fail(ctx, res, err)
	}
	ll.Info("Counted input rows", slog.String("input", e.cfg.InputPath), slog.Int64("rows", total))

	in, err := openInput(e.cfg.InputPath)
	if err != nil {
		return e.fail(ctx, res, err)
	}
	defer in.Close()

	rawHeader, header, err := readHeaderLine(in.r)
	if err != nil {
		return e.fail(ctx, res, err)
	}
	cols, err := ResolveHeader(header)
	if err != nil {
		return e.fail(ctx, res, err)
	}
	reader := newFeedReader(in.r)
	predicate := NewPredicate(cols, e.cfg)

	writer := newChunkWriter(e.cfg.OutputDir, e.cfg.BaseName, rawHeader, e.cfg.MaxChunkBytes, e.create)
	if err := writer.Open(); err != nil {
		_ = writer.Close()
		res.Chunks = writer.Chunks()
		return e.failOpen(ctx, res, writer.NextPath(), err)
	}
	e.setState(StateOpen)
	e.sink.Put(MessageEvent("writing to %s", writer.Path()))
	ll.Info("Opened output chunk", slog.String("path", writer.Path()))

	tally := newRowTally()
	finish := func(r Result) Result {
		tally.flush(ctx)
		r.Chunks = writer.Chunks()
		for _, c := range r.Chunks {
			recordChunk(ctx, c)
		}
		return r
	}

	for {
		if e.stopRequested(ctx) {
			if err := writer.Close(); err != nil {
				ll.Warn("Failed to close chunk after cancellation", slog.Any("error", err))
			}
			return finish(e.abort(ctx, res))
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			_ = writer.Close()
			return finish(e.fail(ctx, res, err))
		}

		res.RowsRead++

		if writer.NeedsRotation() {
			e.setState(StateRotating)
			finished := writer.Path()
			if err := writer.Close(); err != nil {
				return finish(e.fail(ctx, res, err))
			}
			e.sink.Put(MessageEvent("finished writing %s (reached max size)", finished))
			ll.Info("Rotated output chunk",
				slog.String("path", finished),
				slog.String("size", humanize.Bytes(uint64(lastSize(writer.Chunks())))))

			next := writer.NextPath()
			if err := writer.Open(); err != nil {
				_ = writer.Close()
				return finish(e.failOpen(ctx, res, next, err))
			}
			e.setState(StateOpen)
			e.sink.Put(MessageEvent("writing to %s", writer.Path()))
		}

		reason := ReasonParseError
		if perr == nil {
			var accepted Row
			accepted, reason = predicate.Evaluate(record)
			if reason == ReasonAccepted {
				if err := writer.Write(accepted); err != nil {
					_ = writer.Close()
					return finish(e.fail(ctx, res, err))
				}
				res.RowsAccepted++
			}
		}
		tally.record(reason)

		if res.RowsRead%ProgressInterval == 0 {
			tally.flush(ctx)
			// 100 is reserved for the terminal DONE or ERROR event
			if total > 0 && res.RowsRead < total {
				e.sink.Put(PercentEvent(float64(res.RowsRead) * 100 / float64(total)))
			}
		}
	}

	path := writer.Path()
	if err := writer.Close(); err != nil {
		return finish(e.fail(ctx, res, err))
	}
	res = finish(res)
	res.State = StateDone

	ll.Info("Feed filter run finished",
		slog.Int64("rowsRead", res.RowsRead),
		slog.Int64("rowsAccepted", res.RowsAccepted),
		slog.Int("chunks", len(res.Chunks)))
	e.sink.Put(MessageEvent("finished writing %s", path))
	e.sink.Put(StatusEvent(100, MessageDone))
	return res
}

func lastSize(chunks []ChunkInfo) int64 {
	if len(chunks) == 0 {
		return 0
	}
	return chunks[len(chunks)-1].Bytes
}
