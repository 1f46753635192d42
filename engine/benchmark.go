package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
	kgzip "github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/FitrahHaque/deflate-engine/compressor/flate"
	"github.com/FitrahHaque/deflate-engine/compressor/gzip"
)

// BenchmarkResult is one codec run over one file.
type BenchmarkResult struct {
	File           string        `yaml:"file"`
	Codec          string        `yaml:"codec"`
	InputSize      int           `yaml:"input_size"`
	OutputSize     int           `yaml:"output_size"`
	Ratio          float64       `yaml:"ratio"`
	CompressTime   time.Duration `yaml:"compress_time"`
	DecompressTime time.Duration `yaml:"decompress_time"`
	Digest         string        `yaml:"digest"`
	Verified       bool          `yaml:"verified"`
	Error          string        `yaml:"error,omitempty"`
}

type benchCodec struct {
	name       string
	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)
}

func benchCodecs() []benchCodec {
	var codecs []benchCodec
	for _, bt := range flate.BlockTypes() {
		bt := bt
		codecs = append(codecs, benchCodec{
			name:       "gzip/" + bt.String(),
			compress:   func(p []byte) ([]byte, error) { return gzip.Compress(p, bt) },
			decompress: gzip.Decompress,
		})
	}
	return append(codecs,
		benchCodec{name: "klauspost/gzip", compress: klauspostCompress, decompress: klauspostDecompress},
		benchCodec{name: "lz4", compress: lz4Compress, decompress: lz4Decompress},
	)
}

func klauspostCompress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := kgzip.NewWriterLevel(&buf, kgzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func klauspostDecompress(src []byte) ([]byte, error) {
	r, err := kgzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func lz4Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4Decompress(src []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
}

// Benchmark runs every codec over every matched file and checks that each
// round trip reproduces the input digest.
func (e *Engine) Benchmark(patterns []string) ([]BenchmarkResult, error) {
	files, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	codecs := benchCodecs()
	var results []BenchmarkResult
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return results, errors.Wrapf(err, "unable to stat %s", file)
		}
		content, err := e.readFile(file, info.Size())
		if err != nil {
			return results, errors.Wrapf(err, "unable to read %s", file)
		}
		digest := xxhash.Sum64(content)
		for _, c := range codecs {
			res := runCodec(c, content, digest)
			res.File = file
			results = append(results, res)
		}
	}
	e.printBenchmark(results)
	return results, nil
}

func runCodec(c benchCodec, content []byte, digest uint64) BenchmarkResult {
	res := BenchmarkResult{
		Codec:     c.name,
		InputSize: len(content),
		Digest:    strconv.FormatUint(digest, 16),
	}

	start := time.Now()
	compressed, err := c.compress(content)
	res.CompressTime = time.Since(start)
	if err != nil {
		logrus.Debugf("benchmark: %s could not compress: %s", c.name, err)
		res.Error = err.Error()
		return res
	}
	res.OutputSize = len(compressed)
	if len(content) > 0 {
		res.Ratio = float64(len(compressed)) / float64(len(content)) * 100
	}

	start = time.Now()
	decompressed, err := c.decompress(compressed)
	res.DecompressTime = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Verified = xxhash.Sum64(decompressed) == digest
	if !res.Verified {
		res.Error = "round trip digest mismatch"
	}
	return res
}

func (e *Engine) printBenchmark(results []BenchmarkResult) {
	header := color.New(color.Bold, color.Underline)
	failed := color.New(color.FgRed)
	lastFile := ""
	for _, r := range results {
		if r.File != lastFile {
			header.Fprintf(e.opts.Output, "%s (%d bytes)\n", r.File, r.InputSize)
			lastFile = r.File
		}
		if r.Error != "" {
			failed.Fprintf(e.opts.Output, "  %-16s %s\n", r.Codec, r.Error)
			continue
		}
		fmt.Fprintf(e.opts.Output, "  %-16s %10d bytes %7.2f%%  compress %-12s decompress %s\n",
			r.Codec, r.OutputSize, r.Ratio, r.CompressTime, r.DecompressTime)
	}
}

// WriteReport saves results as YAML.
func WriteReport(path string, results []BenchmarkResult) error {
	data, err := yaml.Marshal(results)
	if err != nil {
		return errors.Wrap(err, "unable to encode benchmark report")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "unable to write benchmark report")
	}
	return nil
}
