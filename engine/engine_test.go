package engine

import (
	"bytes"
	stdgzip "compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/FitrahHaque/deflate-engine/compressor/flate"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestEngines(t *testing.T) {
	assert.Equal(t, []string{"stored", "fixed", "dynamic"}, Engines)
}

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("a"))
	b := writeFile(t, dir, "nested/deeper/b.txt", []byte("b"))
	writeFile(t, dir, "c.log", []byte("c"))

	files, err := ExpandPatterns([]string{filepath.Join(dir, "**", "*.txt"), a})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)

	_, err = ExpandPatterns([]string{filepath.Join(dir, "*.missing")})
	assert.Error(t, err)
}

func TestCompressDecompressFiles(t *testing.T) {
	content := bytes.Repeat([]byte("compress me, then give me back\n"), 100)
	for _, bt := range flate.BlockTypes() {
		t.Run(bt.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "input.txt", content)
			mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
			require.NoError(t, os.Chtimes(path, mtime, mtime))

			var out bytes.Buffer
			e := New(Options{BlockType: bt, Delete: true, Output: &out})
			results, err := e.CompressFiles([]string{path})
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, path+".gz", results[0].Output)
			assert.Equal(t, len(content), results[0].InputSize)
			assert.Contains(t, out.String(), "Compressed")
			assert.NoFileExists(t, path)

			// the standard library agrees on content and header
			data, err := os.ReadFile(path + ".gz")
			require.NoError(t, err)
			zr, err := stdgzip.NewReader(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, "input.txt", zr.Name)
			assert.True(t, mtime.Equal(zr.ModTime))
			got, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Equal(t, content, got)

			results, err = e.DecompressFiles([]string{path + ".gz"})
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, path, results[0].Output)
			assert.NoFileExists(t, path+".gz")

			restored, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, content, restored)
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.True(t, mtime.Equal(info.ModTime()))
		})
	}
}

func TestCompressKeepsInputWithoutDelete(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "keep.txt", []byte("keep"))
	e := New(Options{BlockType: flate.FixedHuffman, Extension: ".dfl"})
	_, err := e.CompressFiles([]string{path})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.FileExists(t, path+".dfl")
}

func TestCompressStoredTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.bin", make([]byte, 70000))
	e := New(Options{BlockType: flate.Stored})
	_, err := e.CompressFiles([]string{path})
	assert.Error(t, err)
	assert.NoFileExists(t, path+".gz")
}

func TestDecompressRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plain.txt", []byte("not gzip"))
	_, err := New(Options{}).DecompressFiles([]string{path})
	assert.Error(t, err)
}

func TestDecompressCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "corrupt.gz", []byte("definitely not a gzip member"))
	_, err := New(Options{}).DecompressFiles([]string{path})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "corrupt"))
}

func TestProgressOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "progress.txt", bytes.Repeat([]byte("p"), 4096))
	var progress bytes.Buffer
	e := New(Options{BlockType: flate.DynamicHuffman, Progress: &progress})
	_, err := e.CompressFiles([]string{path})
	require.NoError(t, err)
	assert.NotZero(t, progress.Len())
}

func TestBenchmark(t *testing.T) {
	dir := t.TempDir()
	small := writeFile(t, dir, "small.txt", bytes.Repeat([]byte("benchmark "), 500))
	large := writeFile(t, dir, "large.bin", bytes.Repeat([]byte{1, 2, 3, 4, 5}, 20000))

	var out bytes.Buffer
	e := New(Options{Output: &out})
	results, err := e.Benchmark([]string{small, large})
	require.NoError(t, err)
	codecs := benchCodecs()
	require.Len(t, results, 2*len(codecs))

	for _, r := range results {
		if r.File == large && r.Codec == "gzip/stored" {
			assert.NotEmpty(t, r.Error)
			assert.False(t, r.Verified)
			continue
		}
		assert.Empty(t, r.Error, "%s %s", r.File, r.Codec)
		assert.True(t, r.Verified, "%s %s", r.File, r.Codec)
		assert.NotEmpty(t, r.Digest)
	}
	assert.Contains(t, out.String(), "lz4")

	report := filepath.Join(dir, "report.yaml")
	require.NoError(t, WriteReport(report, results))
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var decoded []BenchmarkResult
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, results, decoded)
}
