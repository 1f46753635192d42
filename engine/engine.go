package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/deflate-engine/compressor/flate"
	"github.com/FitrahHaque/deflate-engine/compressor/gzip"
)

const DefaultExtension = ".gz"

// Engines lists the block encodings a file can be compressed with.
var Engines = func() []string {
	var names []string
	for _, bt := range flate.BlockTypes() {
		names = append(names, bt.String())
	}
	return names
}()

type Options struct {
	BlockType flate.BlockType
	Extension string
	Delete    bool

	// Output receives the per-file summaries, Progress the read progress
	// bars. A nil writer silences that stream.
	Output   io.Writer
	Progress io.Writer
}

type Engine struct {
	opts Options
}

// Result describes one processed file.
type Result struct {
	Input      string
	Output     string
	InputSize  int
	OutputSize int
}

// Ratio is the output size as a percentage of the input size.
func (r Result) Ratio() float64 {
	if r.InputSize == 0 {
		return 0
	}
	return float64(r.OutputSize) / float64(r.InputSize) * 100
}

func New(opts Options) *Engine {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	return &Engine{opts: opts}
}

// ExpandPatterns resolves doublestar patterns to regular files, in match
// order and without duplicates. A pattern that matches nothing is an error.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to stat %s", m)
			}
			if info.IsDir() {
				logrus.Debugf("skipping directory %s", m)
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}

func (e *Engine) CompressFiles(patterns []string) ([]Result, error) {
	files, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, file := range files {
		res, err := e.compressFile(file)
		if err != nil {
			return results, errors.Wrapf(err, "unable to compress %s", file)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) DecompressFiles(patterns []string) ([]Result, error) {
	files, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, file := range files {
		res, err := e.decompressFile(file)
		if err != nil {
			return results, errors.Wrapf(err, "unable to decompress %s", file)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) compressFile(path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, errors.Wrap(err, "unable to stat input")
	}
	content, err := e.readFile(path, info.Size())
	if err != nil {
		return Result{}, err
	}

	logrus.Infof("compressing %s as %s", path, e.opts.BlockType)
	header := gzip.Header{
		ModTime: info.ModTime(),
		OS:      gzip.Unix,
		Name:    filepath.Base(path),
	}
	compressed, err := gzip.CompressWithHeader(content, e.opts.BlockType, header)
	if err != nil {
		return Result{}, err
	}

	output := path + e.opts.Extension
	if err := os.WriteFile(output, compressed, 0644); err != nil {
		return Result{}, errors.Wrap(err, "unable to write output")
	}
	res := Result{Input: path, Output: output, InputSize: len(content), OutputSize: len(compressed)}
	e.printSummary("Compressed", res)
	return res, e.deleteInput(path)
}

func (e *Engine) decompressFile(path string) (Result, error) {
	if !strings.HasSuffix(path, e.opts.Extension) || len(path) == len(e.opts.Extension) {
		return Result{}, errors.Errorf("file name does not end in %s", e.opts.Extension)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, errors.Wrap(err, "unable to stat input")
	}
	data, err := e.readFile(path, info.Size())
	if err != nil {
		return Result{}, err
	}

	logrus.Infof("decompressing %s", path)
	content, header, err := gzip.DecompressWithHeader(data)
	if err != nil {
		return Result{}, err
	}
	if header.Name != "" {
		logrus.Debugf("%s carries original name %q", path, header.Name)
	}

	output := strings.TrimSuffix(path, e.opts.Extension)
	if err := os.WriteFile(output, content, 0644); err != nil {
		return Result{}, errors.Wrap(err, "unable to write output")
	}
	if !header.ModTime.IsZero() {
		if err := os.Chtimes(output, header.ModTime, header.ModTime); err != nil {
			logrus.Warnf("unable to restore modification time of %s: %s", output, err)
		}
	}
	res := Result{Input: path, Output: output, InputSize: len(data), OutputSize: len(content)}
	e.printSummary("Decompressed", res)
	return res, e.deleteInput(path)
}

func (e *Engine) readFile(path string, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open input")
	}
	defer f.Close()

	var r io.Reader = f
	if e.opts.Progress != nil {
		bar := pb.New64(size)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(e.opts.Progress)
		bar.Start()
		defer bar.Finish()
		r = bar.NewProxyReader(f)
	}
	var buf bytes.Buffer
	buf.Grow(int(size))
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, errors.Wrap(err, "unable to read input")
	}
	return buf.Bytes(), nil
}

func (e *Engine) deleteInput(path string) error {
	if !e.opts.Delete {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrap(err, "unable to delete input")
	}
	logrus.Debugf("deleted %s", path)
	return nil
}

func (e *Engine) printSummary(action string, res Result) {
	bold := color.New(color.Bold)
	bold.Fprintf(e.opts.Output, "%s %s -> %s\n", action, res.Input, res.Output)
	fmt.Fprintf(e.opts.Output, "  input size (in bytes): %v\n", res.InputSize)
	fmt.Fprintf(e.opts.Output, "  output size (in bytes): %v\n", res.OutputSize)
	ratio := color.New(color.FgGreen)
	if res.OutputSize > res.InputSize {
		ratio = color.New(color.FgYellow)
	}
	ratio.Fprintf(e.opts.Output, "  ratio: %.2f%%\n", res.Ratio())
}
