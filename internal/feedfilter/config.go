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
	"errors"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"
)

const (
	// DateLayout is the canonical YYYY-MM-DD layout used when dates are printed.
	DateLayout = "2006-01-02"

	// dateParseLayout also accepts months and days without zero padding
	// ("2024-6-1"). It applies to the cutoff date and the endDate column.
	dateParseLayout = "2006-1-2"

	// DefaultBaseName is the output file prefix used when none is configured.
	DefaultBaseName = "filtered"

	// NoChunkLimit disables output splitting.
	NoChunkLimit int64 = 0
)

// RunConfig describes a single filter run. It is built once by NewRunConfig
// and never modified afterwards.
type RunConfig struct {
	InputPath string
	OutputDir string
	BaseName  string

	// MinCommission is the inclusive lower bound on commissionRate, in percent.
	MinCommission float64

	// CutoffDate is the inclusive lower bound on a row's endDate.
	CutoffDate time.Time

	// ExcludedCategories holds categoryId values whose rows are dropped.
	// NewPredicate takes its own copy, so later changes do not affect a
	// predicate or engine that is already built.
	ExcludedCategories mapset.Set[string]

	// MaxChunkBytes is the size at which the current chunk is rotated.
	// NoChunkLimit writes everything to a single chunk.
	MaxChunkBytes int64
}

// NewRunConfig validates its arguments and returns the resulting RunConfig.
// All problems are reported together.
func NewRunConfig(inputPath, outputDir string, minCommission float64, cutoffDate string, excludedCategories []string, maxChunkBytes int64) (RunConfig, error) {
	var errs *multierror.Error

	if strings.TrimSpace(inputPath) == "" {
		errs = multierror.Append(errs, errors.New("input file is required"))
	}
	if strings.TrimSpace(outputDir) == "" {
		errs = multierror.Append(errs, errors.New("output directory is required"))
	}
	if minCommission < 0 {
		errs = multierror.Append(errs, fmt.Errorf("minimum commission must not be negative, got %v", minCommission))
	}
	if maxChunkBytes < 0 {
		errs = multierror.Append(errs, fmt.Errorf("max chunk size must not be negative, got %d", maxChunkBytes))
	}
	cutoff, err := parseDate(cutoffDate)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("incorrect date format %q, should be YYYY-MM-DD", cutoffDate))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return RunConfig{}, err
	}

	excluded := mapset.NewThreadUnsafeSet[string]()
	for _, c := range excludedCategories {
		if c = strings.TrimSpace(c); c != "" {
			excluded.Add(c)
		}
	}

	return RunConfig{
		InputPath:          inputPath,
		OutputDir:          outputDir,
		BaseName:           DefaultBaseName,
		MinCommission:      minCommission,
		CutoffDate:         cutoff,
		ExcludedCategories: excluded,
		MaxChunkBytes:      maxChunkBytes,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateParseLayout, strings.TrimSpace(s))
}

// WithBaseName returns a copy of c that writes chunks named <name>-<N>.csv.
// An empty name keeps the current one.
func (c RunConfig) WithBaseName(name string) RunConfig {
	if name = strings.TrimSpace(name); name != "" {
		c.BaseName = name
	}
	return c
}
