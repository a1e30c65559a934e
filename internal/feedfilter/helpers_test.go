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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testHeader = "id;name;title;url;image;endDate;commissionRate;categoryId"

// feedRow renders a data row matching testHeader.
func feedRow(id, endDate, commission, category string) string {
	return fmt.Sprintf("%s;Product %s;Title %s;https://example.com/p/%s;https://example.com/i/%s.jpg;%s;%s;%s",
		id, id, id, id, id, endDate, commission, category)
}

func writeFeed(t *testing.T, dir string, rows ...string) string {
	t.Helper()
	lines := append([]string{testHeader}, rows...)
	path := filepath.Join(dir, "feed.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func testConfig(t *testing.T, input, outDir string, minCommission float64, cutoff string, excluded []string, maxBytes int64) RunConfig {
	t.Helper()
	cfg, err := NewRunConfig(input, outDir, minCommission, cutoff, excluded, maxBytes)
	require.NoError(t, err)
	return cfg
}

// chunkFiles lists <dir>/filtered-<N>.csv in index order.
func chunkFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	for i := 1; ; i++ {
		p := filepath.Join(dir, fmt.Sprintf("%s-%d.csv", DefaultBaseName, i))
		if _, err := os.Stat(p); err != nil {
			break
		}
		out = append(out, p)
	}
	return out
}

// readLines returns the newline-terminated lines of a chunk without terminators.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := strings.TrimSuffix(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// dataRows concatenates the data rows of every chunk in dir.
func dataRows(t *testing.T, dir string) []string {
	t.Helper()
	var rows []string
	for _, p := range chunkFiles(t, dir) {
		lines := readLines(t, p)
		require.NotEmpty(t, lines, "chunk %s has no header", p)
		rows = append(rows, lines[1:]...)
	}
	return rows
}

func drainMessages(q *ProgressQueue) []string {
	var msgs []string
	for _, ev := range q.Drain() {
		if ev.Message != "" {
			msgs = append(msgs, ev.Message)
		}
	}
	return msgs
}
