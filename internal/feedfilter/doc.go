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

// Package feedfilter streams a semicolon-delimited affiliate product feed,
// keeps the rows that pass a commission / expiry / category filter and writes
// them to one or more size-bounded CSV chunks.
//
// # Overview
//
// A run is described by an immutable RunConfig and executed by an Engine.
// The engine reads the input twice: once to count data rows (so progress can
// be reported as a percentage) and once to filter. Rows are never retained
// between iterations, so inputs far larger than memory are fine.
//
//	queue := feedfilter.NewProgressQueue()
//	engine := feedfilter.NewEngine(queue, cfg)
//	if err := engine.Start(ctx); err != nil {
//	    return err
//	}
//	for {
//	    select {
//	    case <-ticker.C:
//	        for ev, ok := queue.Poll(); ok; ev, ok = queue.Poll() {
//	            // render ev
//	        }
//	    case <-engine.Done():
//	        // drain the queue one last time
//	    }
//	}
//
// # Output
//
// Accepted rows are written to <OutputDir>/<BaseName>-<N>.csv with N starting
// at 1. Every chunk starts with the input header. When MaxChunkBytes is set,
// the size check happens before a row is processed: once a chunk has reached
// the threshold, the next row goes to a new chunk.
//
// # Progress and cancellation
//
// All run status, including fatal errors, is delivered as ProgressEvent values
// through a ProgressSink. The producer never blocks on the consumer. A run is
// cancelled through its context or Engine.Cancel; the engine checks for
// cancellation once per row, closes the open chunk and stops without emitting
// a final event.
package feedfilter
