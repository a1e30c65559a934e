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
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const readBufferSize = 256 * 1024

type inputFile struct {
	file *os.File
	gz   *gzip.Reader
	r    *bufio.Reader
}

func openInput(path string) (*inputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	in := &inputFile{file: f}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		in.r = bufio.NewReaderSize(f, readBufferSize)
		return in, nil
	}

	gz, err := gzip.NewReader(bufio.NewReaderSize(f, readBufferSize))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
	}
	in.gz = gz
	in.r = bufio.NewReaderSize(gz, readBufferSize)
	return in, nil
}

func (in *inputFile) Read(p []byte) (int, error) {
	return in.r.Read(p)
}

func (in *inputFile) Close() error {
	var gzErr error
	if in.gz != nil {
		gzErr = in.gz.Close()
	}
	return errors.Join(gzErr, in.file.Close())
}

// readHeaderLine consumes the first non-blank line of r and returns it
// verbatim, without its line terminator, together with its parsed fields.
func readHeaderLine(r *bufio.Reader) (string, []string, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", nil, err
		}
		raw := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if raw == "" {
			if err != nil {
				return "", nil, ErrNoHeader
			}
			continue
		}

		fields, perr := newFeedReader(strings.NewReader(raw)).Read()
		if perr != nil {
			return "", nil, fmt.Errorf("parse header: %w", perr)
		}
		return raw, fields, nil
	}
}

func newFeedReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// countDataRows scans the whole input and returns the number of records after
// the header. Unparseable records are counted too since the filter pass will
// visit them. It returns ctx.Err() when cancelled mid-scan.
func countDataRows(ctx context.Context, path string) (int64, error) {
	in, err := openInput(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	cr := newFeedReader(in)
	var records int64
	for {
		if records%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return 0, fmt.Errorf("count rows in %s: %w", path, err)
		}
		records++
	}

	if records == 0 {
		return 0, nil
	}
	return records - 1, nil
}
