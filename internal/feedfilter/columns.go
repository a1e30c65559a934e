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
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Column names used by the predicate and the row transform.
const (
	ColumnID             = "id"
	ColumnEndDate        = "endDate"
	ColumnCommissionRate = "commissionRate"
	ColumnCategoryID     = "categoryId"
	ColumnImage          = "image"
	ColumnName           = "name"
	ColumnTitle          = "title"
	ColumnURL            = "url"
)

// RequiredColumns lists every column a feed header must contain.
var RequiredColumns = []string{
	ColumnID,
	ColumnEndDate,
	ColumnCommissionRate,
	ColumnCategoryID,
	ColumnImage,
	ColumnName,
	ColumnTitle,
	ColumnURL,
}

const utf8BOM = "\ufeff"

// ColumnIndex maps header names to their position in a row.
type ColumnIndex struct {
	header    []string
	positions map[string]int
}

// ResolveHeader builds the ColumnIndex for a feed's first row. The row must
// contain an id column and every entry of RequiredColumns.
func ResolveHeader(header []string) (*ColumnIndex, error) {
	if len(header) == 0 {
		return nil, ErrNoHeader
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		// first occurrence wins for duplicated names
		if _, ok := positions[name]; !ok {
			positions[name] = i
		}
	}

	if _, ok := positions[ColumnID]; !ok {
		return nil, ErrNotHeader
	}

	var errs *multierror.Error
	for _, name := range RequiredColumns {
		if _, ok := positions[name]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s", ErrMissingColumn, name))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return &ColumnIndex{
		header:    slices.Clone(header),
		positions: positions,
	}, nil
}

// Position returns the index of the named column.
func (c *ColumnIndex) Position(name string) (int, bool) {
	i, ok := c.positions[name]
	return i, ok
}

// Header returns the header row exactly as it was read.
func (c *ColumnIndex) Header() []string {
	return c.header
}

// Width is the number of fields every data row is expected to have.
func (c *ColumnIndex) Width() int {
	return len(c.header)
}

func (c *ColumnIndex) mustPosition(name string) int {
	i, ok := c.positions[name]
	if !ok {
		panic(fmt.Sprintf("column %q was not resolved", name))
	}
	return i
}
