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
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/feedfilter/internal/feedfilter"
	"github.com/cardinalhq/feedfilter/internal/helpers"
	"github.com/cardinalhq/feedfilter/internal/idgen"
)

type runSummary struct {
	RunID        string                 `yaml:"run_id"`
	StartedAt    time.Time              `yaml:"started_at,omitempty"`
	FinishedAt   time.Time              `yaml:"finished_at"`
	State        string                 `yaml:"state"`
	Input        string                 `yaml:"input"`
	Filter       filterSummary          `yaml:"filter"`
	RowsRead     int64                  `yaml:"rows_read"`
	RowsAccepted int64                  `yaml:"rows_accepted"`
	RowsRejected int64                  `yaml:"rows_rejected"`
	Chunks       []feedfilter.ChunkInfo `yaml:"chunks"`
	Error        string                 `yaml:"error,omitempty"`
}

type filterSummary struct {
	MinCommission      float64  `yaml:"min_commission"`
	EndDate            string   `yaml:"end_date"`
	ExcludedCategories []string `yaml:"excluded_categories"`
	MaxChunkSize       string   `yaml:"max_chunk_size"`
}

func newRunSummary(cfg feedfilter.RunConfig, res feedfilter.Result, finished time.Time) runSummary {
	excluded := []string{}
	if cfg.ExcludedCategories != nil {
		excluded = cfg.ExcludedCategories.ToSlice()
		slices.Sort(excluded)
	}

	s := runSummary{
		RunID:        res.RunID,
		FinishedAt:   finished.UTC(),
		State:        res.State.String(),
		Input:        cfg.InputPath,
		RowsRead:     res.RowsRead,
		RowsAccepted: res.RowsAccepted,
		RowsRejected: res.RowsRead - res.RowsAccepted,
		Chunks:       res.Chunks,
		Filter: filterSummary{
			MinCommission:      cfg.MinCommission,
			EndDate:            cfg.CutoffDate.Format(feedfilter.DateLayout),
			ExcludedCategories: excluded,
			MaxChunkSize:       helpers.FormatByteSize(cfg.MaxChunkBytes),
		},
	}
	if started, err := idgen.RunIDTime(res.RunID); err == nil {
		s.StartedAt = started
	}
	if s.Chunks == nil {
		s.Chunks = []feedfilter.ChunkInfo{}
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}

func writeSummary(path string, s runSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary %s: %w", path, err)
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode summary: %w", err)
	}
	return f.Close()
}
