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

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cardinalhq/feedfilter/internal/feedfilter"
)

// DefaultPollInterval is how often the CLI drains the progress queue.
const DefaultPollInterval = 100 * time.Millisecond

// renderProgress polls q every interval and prints each event to w until a
// terminal event has been printed or done is closed. Events still queued when
// done closes are printed before returning.
func renderProgress(q *feedfilter.ProgressQueue, done <-chan struct{}, interval time.Duration, w io.Writer) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		finished := false
		select {
		case <-ticker.C:
		case <-done:
			finished = true
		}

		terminal, err := printEvents(w, q.Drain())
		if err != nil {
			return err
		}
		if terminal || finished {
			return nil
		}
	}
}

func printEvents(w io.Writer, events []feedfilter.ProgressEvent) (bool, error) {
	terminal := false
	for _, ev := range events {
		slog.Debug("Progress", slog.Bool("hasPercent", ev.HasPercent), slog.Float64("percent", ev.Percent), slog.String("message", ev.Message))
		if _, err := fmt.Fprintln(w, ev.String()); err != nil {
			return terminal, err
		}
		if ev.Terminal() {
			terminal = true
		}
	}
	return terminal, nil
}
