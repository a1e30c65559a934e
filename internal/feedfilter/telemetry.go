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
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("github.com/cardinalhq/feedfilter/internal/feedfilter")

	rowsInCounter       otelmetric.Int64Counter
	rowsAcceptedCounter otelmetric.Int64Counter
	rowsRejectedCounter otelmetric.Int64Counter
	chunksCounter       otelmetric.Int64Counter
	bytesCounter        otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/feedfilter/internal/feedfilter")

	var err error
	rowsInCounter, err = meter.Int64Counter(
		"feedfilter.rows.in",
		otelmetric.WithDescription("Number of data rows read from the input feed"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.in counter: %w", err))
	}

	rowsAcceptedCounter, err = meter.Int64Counter(
		"feedfilter.rows.accepted",
		otelmetric.WithDescription("Number of data rows that passed the filter and were written"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.accepted counter: %w", err))
	}

	rowsRejectedCounter, err = meter.Int64Counter(
		"feedfilter.rows.rejected",
		otelmetric.WithDescription("Number of data rows dropped by the filter, by reason"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.rejected counter: %w", err))
	}

	chunksCounter, err = meter.Int64Counter(
		"feedfilter.chunks.written",
		otelmetric.WithDescription("Number of output chunks closed"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create chunks.written counter: %w", err))
	}

	bytesCounter, err = meter.Int64Counter(
		"feedfilter.bytes.written",
		otelmetric.WithUnit("By"),
		otelmetric.WithDescription("Number of bytes written to output chunks"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create bytes.written counter: %w", err))
	}
}

// rowTally accumulates per-row outcomes between metric flushes so the hot
// loop does not touch the meter.
type rowTally struct {
	in       int64
	accepted int64
	rejected map[Reason]int64
}

func newRowTally() *rowTally {
	return &rowTally{rejected: make(map[Reason]int64)}
}

func (t *rowTally) record(reason Reason) {
	t.in++
	if reason == ReasonAccepted {
		t.accepted++
		return
	}
	t.rejected[reason]++
}

func (t *rowTally) flush(ctx context.Context) {
	if t.in > 0 {
		rowsInCounter.Add(ctx, t.in)
	}
	if t.accepted > 0 {
		rowsAcceptedCounter.Add(ctx, t.accepted)
	}
	for reason, n := range t.rejected {
		rowsRejectedCounter.Add(ctx, n, otelmetric.WithAttributes(
			attribute.String("reason", string(reason)),
		))
		delete(t.rejected, reason)
	}
	t.in = 0
	t.accepted = 0
}

func recordChunk(ctx context.Context, c ChunkInfo) {
	chunksCounter.Add(ctx, 1)
	bytesCounter.Add(ctx, c.Bytes)
}
