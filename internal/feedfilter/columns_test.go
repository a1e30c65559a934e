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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHeader(t *testing.T) {
	header := []string{"url", "categoryId", "extra", "id", "name", "commissionRate", "title", "image", "endDate"}

	cols, err := ResolveHeader(header)
	require.NoError(t, err)

	expected := map[string]int{
		ColumnURL:            0,
		ColumnCategoryID:     1,
		"extra":              2,
		ColumnID:             3,
		ColumnName:           4,
		ColumnCommissionRate: 5,
		ColumnTitle:          6,
		ColumnImage:          7,
		ColumnEndDate:        8,
	}
	for name, want := range expected {
		got, ok := cols.Position(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := cols.Position("missing")
	assert.False(t, ok)
	assert.Equal(t, len(header), cols.Width())
}

func TestResolveHeader_KeepsOwnCopy(t *testing.T) {
	header := strings.Split(testHeader, ";")
	cols, err := ResolveHeader(header)
	require.NoError(t, err)

	header[0] = "changed"
	assert.Equal(t, "id", cols.Header()[0])
}

func TestResolveHeader_Errors(t *testing.T) {
	tests := []struct {
		name       string
		header     []string
		target     error
		missingCol []string
	}{
		{
			name:   "empty row",
			header: nil,
			target: ErrNoHeader,
		},
		{
			name:   "data row instead of header",
			header: []string{"123", "Product", "2024-06-01", "15%"},
			target: ErrNotHeader,
		},
		{
			name:       "missing one column",
			header:     []string{"id", "name", "title", "url", "image", "endDate", "commissionRate"},
			target:     ErrMissingColumn,
			missingCol: []string{"categoryId"},
		},
		{
			name:       "missing several columns",
			header:     []string{"id", "name", "title", "url", "image"},
			target:     ErrMissingColumn,
			missingCol: []string{"endDate", "commissionRate", "categoryId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ResolveHeader(tt.header)
			require.Error(t, err)
			assert.Nil(t, cols)
			assert.ErrorIs(t, err, tt.target)
			for _, c := range tt.missingCol {
				assert.Contains(t, err.Error(), c)
			}
		})
	}
}

func TestResolveHeader_ByteOrderMark(t *testing.T) {
	header := strings.Split(testHeader, ";")
	header[0] = "\ufeff" + header[0]

	cols, err := ResolveHeader(header)
	require.NoError(t, err)

	pos, ok := cols.Position(ColumnID)
	assert.True(t, ok)
	assert.Equal(t, 0, pos)
	// the raw header is preserved for output
	assert.Equal(t, "\ufeffid", cols.Header()[0])
}

func TestResolveHeader_DuplicateColumns(t *testing.T) {
	header := append(strings.Split(testHeader, ";"), "id")

	cols, err := ResolveHeader(header)
	require.NoError(t, err)

	pos, _ := cols.Position(ColumnID)
	assert.Equal(t, 0, pos)
}
