package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FitrahHaque/deflate-engine/compressor/flate"
)

func TestSetTOMLDefaults(t *testing.T) {
	assert.Error(t, setTOMLDefaults(nil))

	cfg := &TOML{}
	require.NoError(t, setTOMLDefaults(cfg))
	assert.Equal(t, DefaultBlockType, cfg.Compress.BlockType)
	assert.Equal(t, DefaultExtension, cfg.Compress.Extension)
	assert.False(t, cfg.Compress.Delete)
	assert.Empty(t, cfg.Benchmark.Report)
	assert.NoError(t, validateTOML(cfg))
}

func TestValidateTOML(t *testing.T) {
	cases := []struct {
		name string
		toml *TOML
	}{
		{"nil", nil},
		{"missing compress", &TOML{Benchmark: &TOMLBenchmark{}}},
		{"bad block type", &TOML{Compress: &TOMLCompress{BlockType: "lzw", Extension: ".gz"}, Benchmark: &TOMLBenchmark{}}},
		{"extension without dot", &TOML{Compress: &TOMLCompress{BlockType: "fixed", Extension: "gz"}, Benchmark: &TOMLBenchmark{}}},
		{"bare dot", &TOML{Compress: &TOMLCompress{BlockType: "fixed", Extension: "."}, Benchmark: &TOMLBenchmark{}}},
		{"separator", &TOML{Compress: &TOMLCompress{BlockType: "fixed", Extension: ".a/b"}, Benchmark: &TOMLBenchmark{}}},
		{"report not yaml", &TOML{Compress: &TOMLCompress{BlockType: "fixed", Extension: ".gz"}, Benchmark: &TOMLBenchmark{Report: "out.json"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Error(t, validateTOML(c.toml))
		})
	}
}

func TestReadTOML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "deflate-engine.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[compress]
block_type = "stored"
extension = ".dfl"
delete = true

[benchmark]
report = "bench.yml"
`), 0644))

	cfg, err := readTOML(file)
	require.NoError(t, err)
	assert.Equal(t, "stored", cfg.Compress.BlockType)
	assert.Equal(t, ".dfl", cfg.Compress.Extension)
	assert.True(t, cfg.Compress.Delete)
	assert.Equal(t, "bench.yml", cfg.Benchmark.Report)
}

func TestReadTOMLMissingFileUsesDefaults(t *testing.T) {
	cfg, err := readTOML(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockType, cfg.Compress.BlockType)
	assert.Equal(t, DefaultExtension, cfg.Compress.Extension)
}

func TestReadTOMLInvalid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(file, []byte("[compress\nblock_type = "), 0644))
	_, err := readTOML(file)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(file, []byte("[compress]\nblock_type = \"huffman\"\n"), 0644))
	_, err = readTOML(file)
	assert.Error(t, err)
}

func TestReadCLIArgs(t *testing.T) {
	cli, err := readCLIArgs([]string{"--debug", "compress", "--block-type", "fixed", "--delete", "a.txt", "b/**/*.log"})
	require.NoError(t, err)
	assert.True(t, cli.Debug)
	assert.Equal(t, "fixed", cli.Compress.BlockType)
	assert.True(t, cli.Compress.Delete)
	assert.Equal(t, []string{"a.txt", "b/**/*.log"}, cli.Compress.Files)

	cfg := &Config{CLI: cli, TOML: &TOML{}}
	require.NoError(t, setTOMLDefaults(cfg.TOML))
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "compress", cfg.Command())
	bt, err := cfg.BlockType()
	require.NoError(t, err)
	assert.Equal(t, flate.FixedHuffman, bt)
	assert.Equal(t, DefaultExtension, cfg.Extension())
	assert.True(t, cfg.Delete())
	assert.Equal(t, cli.Compress.Files, cfg.Files())
}

func TestReadCLIArgsRejectsBadBlockType(t *testing.T) {
	_, err := readCLIArgs([]string{"compress", "--block-type", "lzw", "a.txt"})
	assert.Error(t, err)
}

func TestReadCLIArgsRequiresFiles(t *testing.T) {
	_, err := readCLIArgs([]string{"decompress"})
	assert.Error(t, err)
}

func TestTOMLFillsUnsetFlags(t *testing.T) {
	cli, err := readCLIArgs([]string{"decompress", "x.dfl"})
	require.NoError(t, err)
	cfg := &Config{CLI: cli, TOML: &TOML{
		Compress:  &TOMLCompress{BlockType: "stored", Extension: ".dfl", Delete: true},
		Benchmark: &TOMLBenchmark{},
	}}
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "decompress", cfg.Command())
	assert.Equal(t, ".dfl", cfg.Extension())
	assert.True(t, cfg.Delete())
	assert.Equal(t, []string{"x.dfl"}, cfg.Files())
}

func TestBenchmarkReportFlag(t *testing.T) {
	cli, err := readCLIArgs([]string{"benchmark", "--report", "out.yaml", "a.txt"})
	require.NoError(t, err)
	cfg := &Config{CLI: cli, TOML: &TOML{}}
	require.NoError(t, setTOMLDefaults(cfg.TOML))
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "benchmark", cfg.Command())
	assert.Equal(t, "out.yaml", filepath.Base(cfg.Report()))
}
