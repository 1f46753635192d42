package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/deflate-engine/config"
	"github.com/FitrahHaque/deflate-engine/engine"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Println("ERROR: ", err)
		os.Exit(1)
	}

	if cfg.CLI.Debug {
		logrus.Info("debug mode enabled")
		logrus.SetLevel(logrus.DebugLevel)
	}

	if cfg.CLI.DisableColor {
		color.NoColor = true
	}

	displayConfig(cfg)

	if err := run(cfg); err != nil {
		logrus.Errorf("%s failed: %s", cfg.Command(), err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	bt, err := cfg.BlockType()
	if err != nil {
		return err
	}
	opts := engine.Options{
		BlockType: bt,
		Extension: cfg.Extension(),
		Delete:    cfg.Delete(),
	}
	if !cfg.CLI.Quiet {
		opts.Output = os.Stdout
		opts.Progress = os.Stderr
	}
	e := engine.New(opts)

	switch cfg.Command() {
	case "compress":
		_, err = e.CompressFiles(cfg.Files())
	case "decompress":
		_, err = e.DecompressFiles(cfg.Files())
	case "benchmark":
		var results []engine.BenchmarkResult
		results, err = e.Benchmark(cfg.Files())
		if err == nil && cfg.Report() != "" {
			err = engine.WriteReport(cfg.Report(), results)
		}
	default:
		err = fmt.Errorf("unknown command %q", cfg.Command())
	}
	return err
}

func displayConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	logrus.Debug("deflate-engine settings:")
	logrus.Debug("  [CLI]")
	logrus.Debugf("  version: %s", config.VERSION)
	logrus.Debugf("  command: %s", cfg.Command())
	logrus.Debugf("  config file: %s", cfg.CLI.ConfigFile)
	logrus.Debugf("  disable color: %v", cfg.CLI.DisableColor)
	logrus.Debugf("  quiet: %v", cfg.CLI.Quiet)
	logrus.Debugf("  files: %v", cfg.Files())
	logrus.Debug("")
	logrus.Debug("  [COMPRESS]")
	logrus.Debugf("  compress.block_type: %s", cfg.TOML.Compress.BlockType)
	logrus.Debugf("  compress.extension: %s", cfg.TOML.Compress.Extension)
	logrus.Debugf("  compress.delete: %v", cfg.TOML.Compress.Delete)
	logrus.Debug("")
	logrus.Debug("  [BENCHMARK]")
	logrus.Debugf("  benchmark.report: %s", cfg.TOML.Benchmark.Report)
}
