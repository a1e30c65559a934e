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
	"fmt"
	"sync"
)

// Messages emitted by the engine that callers may want to match on.
const (
	MessageStarting = "starting"
	MessageDone     = "DONE"
)

// ProgressEvent is one unit of run status. At least one of the percentage and
// the message is set.
type ProgressEvent struct {
	Percent    float64
	HasPercent bool
	Message    string
}

// PercentEvent reports progress without a message.
func PercentEvent(percent float64) ProgressEvent {
	return ProgressEvent{Percent: percent, HasPercent: true}
}

// MessageEvent reports a status message without a percentage.
func MessageEvent(format string, args ...any) ProgressEvent {
	return ProgressEvent{Message: fmt.Sprintf(format, args...)}
}

// StatusEvent carries both a percentage and a message.
func StatusEvent(percent float64, format string, args ...any) ProgressEvent {
	return ProgressEvent{Percent: percent, HasPercent: true, Message: fmt.Sprintf(format, args...)}
}

// Terminal reports whether the event ends a run (percent == 100).
func (e ProgressEvent) Terminal() bool {
	return e.HasPercent && e.Percent >= 100
}

func (e ProgressEvent) String() string {
	switch {
	case e.HasPercent && e.Message != "":
		return fmt.Sprintf("%.1f%% %s", e.Percent, e.Message)
	case e.HasPercent:
		return fmt.Sprintf("%.1f%%", e.Percent)
	default:
		return e.Message
	}
}

// ProgressSink receives events from an Engine. Put must not block.
type ProgressSink interface {
	Put(ev ProgressEvent)
}

// ProgressQueue is an unbounded FIFO of progress events with a single
// producer and a single consumer. Put never blocks; Poll never waits.
type ProgressQueue struct {
	mu     sync.Mutex
	events []ProgressEvent
	ready  chan struct{}
}

var _ ProgressSink = (*ProgressQueue)(nil)

func NewProgressQueue() *ProgressQueue {
	return &ProgressQueue{ready: make(chan struct{}, 1)}
}

func (q *ProgressQueue) Put(ev ProgressEvent) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Poll removes and returns the oldest event. ok is false when the queue is empty.
func (q *ProgressQueue) Poll() (ev ProgressEvent, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return ProgressEvent{}, false
	}
	ev = q.events[0]
	q.events[0] = ProgressEvent{}
	q.events = q.events[1:]
	if len(q.events) == 0 {
		q.events = nil
	}
	return ev, true
}

// Drain removes and returns every queued event.
func (q *ProgressQueue) Drain() []ProgressEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Ready is signalled after Put for consumers that prefer waiting over
// fixed-interval polling. A signal may cover several events.
func (q *ProgressQueue) Ready() <-chan struct{} {
	return q.ready
}

func (q *ProgressQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
