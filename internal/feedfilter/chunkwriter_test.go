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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkWriter_WritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w := newChunkWriter(dir, "out", testHeader, 0, nil)

	require.NoError(t, w.Open())
	assert.Equal(t, filepath.Join(dir, "out-1.csv"), w.Path())
	assert.Equal(t, int64(len(testHeader)+1), w.Size(), "header bytes are counted")

	row := strings.Split(feedRow("1", "2024-06-01", "15%", "5"), ";")
	require.NoError(t, w.Write(row))
	assert.Equal(t, int64(1), w.Rows())
	require.NoError(t, w.Close())

	b, err := os.ReadFile(filepath.Join(dir, "out-1.csv"))
	require.NoError(t, err)
	assert.Equal(t, testHeader+"\n"+feedRow("1", "2024-06-01", "15%", "5")+"\n", string(b))

	chunks := w.Chunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, ChunkInfo{Index: 1, Path: filepath.Join(dir, "out-1.csv"), Rows: 1, Bytes: int64(len(b))}, chunks[0])
}

func TestChunkWriter_SizeTracksEncodedBytes(t *testing.T) {
	dir := t.TempDir()
	w := newChunkWriter(dir, "out", "id;name", 0, nil)
	require.NoError(t, w.Open())

	// the delimiter inside a field forces quoting
	require.NoError(t, w.Write([]string{"1", "a;b"}))
	require.NoError(t, w.Close())

	b, err := os.ReadFile(filepath.Join(dir, "out-1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id;name\n1;\"a;b\"\n", string(b))
	assert.Equal(t, int64(len(b)), w.Chunks()[0].Bytes)
}

func TestChunkWriter_NeedsRotation(t *testing.T) {
	dir := t.TempDir()
	// "id;name\n" is 8 bytes, each "N;xxxx\n" row is 7 bytes
	w := newChunkWriter(dir, "out", "id;name", 20, nil)
	require.NoError(t, w.Open())

	assert.False(t, w.NeedsRotation(), "empty chunk")

	require.NoError(t, w.Write([]string{"1", "xxxx"}))
	assert.False(t, w.NeedsRotation(), "15 bytes")

	require.NoError(t, w.Write([]string{"2", "xxxx"}))
	assert.True(t, w.NeedsRotation(), "22 bytes")

	require.NoError(t, w.Close())
	require.NoError(t, w.Open())
	assert.Equal(t, filepath.Join(dir, "out-2.csv"), w.Path())
	assert.False(t, w.NeedsRotation(), "fresh chunk")
	require.NoError(t, w.Close())

	chunks := w.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, int64(22), chunks[0].Bytes)
	assert.Equal(t, int64(8), chunks[1].Bytes)
}

func TestChunkWriter_HeaderOnlyChunkNeverRotates(t *testing.T) {
	w := newChunkWriter(t.TempDir(), "out", testHeader, 10, nil)
	require.NoError(t, w.Open())
	defer func() { _ = w.Close() }()

	assert.Greater(t, w.Size(), int64(10))
	assert.False(t, w.NeedsRotation())
}

func TestChunkWriter_Unlimited(t *testing.T) {
	w := newChunkWriter(t.TempDir(), "out", "id", NoChunkLimit, nil)
	require.NoError(t, w.Open())
	defer func() { _ = w.Close() }()

	for i := 0; i < 1000; i++ {
		require.NoError(t, w.Write([]string{"row"}))
	}
	assert.False(t, w.NeedsRotation())
}

func TestChunkWriter_OpenError(t *testing.T) {
	denied := func(name string) (*os.File, error) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	dir := t.TempDir()
	w := newChunkWriter(dir, "out", "id", 0, denied)

	err := w.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, filepath.Join(dir, "out-1.csv"), w.NextPath())
	assert.NoError(t, w.Close(), "closing without an open chunk is a no-op")
	assert.Empty(t, w.Chunks())
}

func TestChunkWriter_WriteWithoutOpen(t *testing.T) {
	w := newChunkWriter(t.TempDir(), "out", "id", 0, nil)
	assert.Error(t, w.Write([]string{"1"}))
}

func TestChunkWriter_HeaderCopiedVerbatim(t *testing.T) {
	dir := t.TempDir()
	header := `"id";"name";"title"`
	w := newChunkWriter(dir, "out", header, 0, nil)
	require.NoError(t, w.Open())
	require.NoError(t, w.Write([]string{"1", "a", "b"}))
	require.NoError(t, w.Close())

	b, err := os.ReadFile(filepath.Join(dir, "out-1.csv"))
	require.NoError(t, err)
	assert.Equal(t, header+"\n1;a;b\n", string(b))
}

func TestAppendRecord(t *testing.T) {
	tests := []struct {
		name     string
		record   []string
		expected string
	}{
		{"plain", []string{"1", "abc"}, "1;abc\n"},
		{"leading space stays bare", []string{" lead space", "x "}, " lead space;x \n"},
		{"empty fields", []string{"1", "", ""}, "1;;\n"},
		{"delimiter", []string{"a;b"}, "\"a;b\"\n"},
		{"quote doubled", []string{`say "hi"`}, "\"say \"\"hi\"\"\"\n"},
		{"line break", []string{"a\nb", "c\rd"}, "\"a\nb\";\"c\rd\"\n"},
		{"comma is not special", []string{"a,b"}, "a,b\n"},
		{"single empty field", []string{""}, "\"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(appendRecord(nil, tt.record)))
		})
	}
}
