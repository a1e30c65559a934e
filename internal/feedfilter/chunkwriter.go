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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	// Delimiter separates fields in both the input and the output.
	Delimiter = ';'

	writeBufferSize = 64 * 1024
)

// ChunkInfo describes one finished (or abandoned) output chunk.
type ChunkInfo struct {
	Index int    `yaml:"index"`
	Path  string `yaml:"path"`
	Rows  int64  `yaml:"rows"`
	Bytes int64  `yaml:"bytes"`
}

// fileCreator opens a chunk for writing; replaced in tests.
type fileCreator func(name string) (*os.File, error)

// countingWriter tracks the logical offset of the chunk stream.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// chunkWriter writes rows to <dir>/<base>-<N>.csv, rotating to a new file
// once the current one reaches maxBytes. header is the raw input header line
// and is copied verbatim to the top of every chunk.
type chunkWriter struct {
	dir      string
	base     string
	header   string
	maxBytes int64
	create   fileCreator

	index   int
	file    *os.File
	buf     *bufio.Writer
	counter *countingWriter
	line    []byte
	rows    int64

	chunks []ChunkInfo
}

func newChunkWriter(dir, base, header string, maxBytes int64, create fileCreator) *chunkWriter {
	if create == nil {
		create = os.Create
	}
	return &chunkWriter{
		dir:      dir,
		base:     base,
		header:   header,
		maxBytes: maxBytes,
		create:   create,
	}
}

func (w *chunkWriter) pathFor(index int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%d.csv", w.base, index))
}

// Path is the file name of the current, or most recently closed, chunk.
func (w *chunkWriter) Path() string {
	return w.pathFor(max(w.index, 1))
}

// NextPath is the file name Open will create.
func (w *chunkWriter) NextPath() string {
	return w.pathFor(w.index + 1)
}

// Open creates the next chunk and writes the header to it.
func (w *chunkWriter) Open() error {
	if w.file != nil {
		return errors.New("chunk already open")
	}

	path := w.NextPath()
	f, err := w.create(path)
	if err != nil {
		return err
	}
	w.index++
	w.file = f
	w.buf = bufio.NewWriterSize(f, writeBufferSize)
	w.counter = &countingWriter{w: w.buf}
	w.rows = 0

	if _, err := io.WriteString(w.counter, w.header+"\n"); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	return nil
}

// Size is the number of bytes written to the current chunk, header included.
func (w *chunkWriter) Size() int64 {
	if w.counter == nil {
		return 0
	}
	return w.counter.n
}

// Rows is the number of data rows in the current chunk.
func (w *chunkWriter) Rows() int64 {
	return w.rows
}

// NeedsRotation reports whether the next row belongs in a new chunk. A chunk
// that holds only the header is never rotated.
func (w *chunkWriter) NeedsRotation() bool {
	return w.maxBytes > 0 && w.rows > 0 && w.Size() >= w.maxBytes
}

// Write appends one data row to the current chunk.
func (w *chunkWriter) Write(row []string) error {
	if w.file == nil {
		return errors.New("no open chunk")
	}
	if err := w.writeRecord(row); err != nil {
		return fmt.Errorf("write row to %s: %w", w.Path(), err)
	}
	w.rows++
	return nil
}

// writeRecord encodes record as one output line. The counter sees its bytes
// immediately; they reach the file when the buffer fills or on Close.
func (w *chunkWriter) writeRecord(record []string) error {
	w.line = appendRecord(w.line[:0], record)
	_, err := w.counter.Write(w.line)
	return err
}

// appendRecord encodes record with minimal quoting: a field is quoted only
// when it contains the delimiter, a quote or a line break. Quotes inside a
// quoted field are doubled. A record made of one empty field is written as ""
// so that it does not read back as a blank line.
func appendRecord(dst []byte, record []string) []byte {
	if len(record) == 1 && record[0] == "" {
		return append(dst, '"', '"', '\n')
	}
	for i, field := range record {
		if i > 0 {
			dst = append(dst, Delimiter)
		}
		if !fieldNeedsQuotes(field) {
			dst = append(dst, field...)
			continue
		}
		dst = append(dst, '"')
		dst = append(dst, strings.ReplaceAll(field, `"`, `""`)...)
		dst = append(dst, '"')
	}
	return append(dst, '\n')
}

func fieldNeedsQuotes(field string) bool {
	return strings.ContainsAny(field, string(Delimiter)+"\"\r\n")
}

// Close flushes and closes the current chunk and records it. Calling Close
// without an open chunk is a no-op.
func (w *chunkWriter) Close() error {
	if w.file == nil {
		return nil
	}

	var errs *multierror.Error
	if err := w.buf.Flush(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := w.file.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}

	w.chunks = append(w.chunks, ChunkInfo{
		Index: w.index,
		Path:  w.pathFor(w.index),
		Rows:  w.rows,
		Bytes: w.Size(),
	})

	w.file = nil
	w.buf = nil
	w.counter = nil
	w.rows = 0

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("close %s: %w", w.pathFor(w.index), err)
	}
	return nil
}

// Chunks returns every chunk closed so far.
func (w *chunkWriter) Chunks() []ChunkInfo {
	return w.chunks
}
