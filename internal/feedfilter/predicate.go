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
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Row is one positional record of the feed.
type Row []string

// Reason explains a predicate decision. It doubles as a metric attribute.
type Reason string

const (
	ReasonAccepted            Reason = "accepted"
	ReasonColumnCountMismatch Reason = "column_count_mismatch"
	ReasonParseError          Reason = "parse_error"
	ReasonMissingEndDate      Reason = "missing_end_date"
	ReasonInvalidEndDate      Reason = "invalid_end_date"
	ReasonMissingCommission   Reason = "missing_commission"
	ReasonInvalidCommission   Reason = "invalid_commission"
	ReasonLowCommission       Reason = "low_commission"
	ReasonExpired             Reason = "expired"
	ReasonExcludedCategory    Reason = "excluded_category"
)

// Predicate decides which rows are kept. Column positions are resolved once
// when the predicate is built.
type Predicate struct {
	width         int
	endDate       int
	commission    int
	category      int
	reencoded     []int
	minCommission float64
	cutoff        time.Time
	excluded      mapset.Set[string]
}

// NewPredicate binds cfg's thresholds to the positions in cols.
func NewPredicate(cols *ColumnIndex, cfg RunConfig) *Predicate {
	excluded := mapset.NewThreadUnsafeSet[string]()
	if cfg.ExcludedCategories != nil {
		excluded = cfg.ExcludedCategories.Clone()
	}
	return &Predicate{
		width:      cols.Width(),
		endDate:    cols.mustPosition(ColumnEndDate),
		commission: cols.mustPosition(ColumnCommissionRate),
		category:   cols.mustPosition(ColumnCategoryID),
		reencoded: []int{
			cols.mustPosition(ColumnImage),
			cols.mustPosition(ColumnName),
			cols.mustPosition(ColumnTitle),
			cols.mustPosition(ColumnURL),
		},
		minCommission: cfg.MinCommission,
		cutoff:        cfg.CutoffDate,
		excluded:      excluded,
	}
}

// Evaluate returns ReasonAccepted and the transformed row when row passes the
// filter, or the rejection reason and nil otherwise. The input row is modified
// in place on acceptance.
func (p *Predicate) Evaluate(row Row) (Row, Reason) {
	// trailing extra fields (e.g. a final ";") are kept and written as read
	if len(row) < p.width {
		return nil, ReasonColumnCountMismatch
	}

	rawDate := row[p.endDate]
	if rawDate == "" {
		return nil, ReasonMissingEndDate
	}
	endDate, err := parseDate(rawDate)
	if err != nil {
		return nil, ReasonInvalidEndDate
	}

	commission, reason := parseCommission(row[p.commission])
	if reason != ReasonAccepted {
		return nil, reason
	}

	// NaN fails this comparison and is rejected with it.
	if !(commission >= p.minCommission) {
		return nil, ReasonLowCommission
	}
	if endDate.Before(p.cutoff) {
		return nil, ReasonExpired
	}
	if p.excluded.Contains(row[p.category]) {
		return nil, ReasonExcludedCategory
	}

	for _, i := range p.reencoded {
		row[i] = strings.ToValidUTF8(row[i], "\uFFFD")
	}
	return row, ReasonAccepted
}

func parseCommission(raw string) (float64, Reason) {
	if raw == "" {
		return 0, ReasonMissingCommission
	}
	s := strings.TrimRight(strings.TrimSpace(raw), "%")
	if s == "" {
		return 0, ReasonInvalidCommission
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, ReasonInvalidCommission
	}
	return v, ReasonAccepted
}
