package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/deflate-engine/compressor/flate"
)

const (
	EnvVarPrefix = "DEFLATE_ENGINE"

	DefaultConfigFile = "deflate-engine.toml"
	DefaultBlockType  = "dynamic"
	DefaultExtension  = ".gz"
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	validReportExtensions = map[string]struct{}{
		".yaml": {},
		".yml":  {},
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML
}

type TOML struct {
	Compress  *TOMLCompress  `toml:"compress"`
	Benchmark *TOMLBenchmark `toml:"benchmark"`
}

type TOMLCompress struct {
	BlockType string `toml:"block_type"`
	Extension string `toml:"extension"`
	Delete    bool   `toml:"delete"`
}

type TOMLBenchmark struct {
	Report string `toml:"report"`
}

type CLI struct {
	ConfigFile   string `kong:"help='Path to the TOML config file',type='path',default='${config_file}',short='c'"`
	DisableColor bool   `kong:"help='Disable color output',short='C'"`
	Quiet        bool   `kong:"help='Disable progress bars and summaries',short='q'"`

	Debug   bool             `kong:"help='Enable debug output',short='d'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`

	Compress   CompressCmd   `kong:"cmd,help='Compress files into gzip members'"`
	Decompress DecompressCmd `kong:"cmd,help='Decompress gzip members back into files'"`
	Benchmark  BenchmarkCmd  `kong:"cmd,help='Compare block types against reference codecs'"`

	// Internal bits
	Ctx *kong.Context `kong:"-"`
}

type CompressCmd struct {
	BlockType string   `kong:"help='Block encoding: stored, fixed or dynamic',short='t'"`
	Ext       string   `kong:"help='Extension appended to compressed files',short='e'"`
	Delete    bool     `kong:"help='Delete inputs after compression',short='D'"`
	Files     []string `kong:"arg,help='Files or doublestar patterns'"`
}

type DecompressCmd struct {
	Ext    string   `kong:"help='Extension stripped from compressed files',short='e'"`
	Delete bool     `kong:"help='Delete inputs after decompression',short='D'"`
	Files  []string `kong:"arg,help='Files or doublestar patterns'"`
}

type BenchmarkCmd struct {
	Report string   `kong:"help='Write results to this YAML file',type='path',short='r'"`
	Files  []string `kong:"arg,help='Files or doublestar patterns'"`
}

func NewConfig() (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs(os.Args[1:])
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	tomlConfig, err := readTOML(cli.ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	cfg := &Config{
		CLI:  cli,
		TOML: tomlConfig,
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "error validating config")
	}

	return cfg, nil
}

// Command is the name of the selected subcommand.
func (c *Config) Command() string {
	if c.CLI == nil || c.CLI.Ctx == nil {
		return ""
	}
	fields := strings.Fields(c.CLI.Ctx.Command())
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// BlockType resolves the compress block type; the CLI flag wins over TOML.
func (c *Config) BlockType() (flate.BlockType, error) {
	name := c.TOML.Compress.BlockType
	if c.CLI.Compress.BlockType != "" {
		name = c.CLI.Compress.BlockType
	}
	return flate.ParseBlockType(name)
}

func (c *Config) Extension() string {
	var ext string
	switch c.Command() {
	case "compress":
		ext = c.CLI.Compress.Ext
	case "decompress":
		ext = c.CLI.Decompress.Ext
	}
	if ext == "" {
		ext = c.TOML.Compress.Extension
	}
	return ext
}

func (c *Config) Delete() bool {
	switch c.Command() {
	case "compress":
		return c.CLI.Compress.Delete || c.TOML.Compress.Delete
	case "decompress":
		return c.CLI.Decompress.Delete || c.TOML.Compress.Delete
	}
	return false
}

func (c *Config) Report() string {
	if c.CLI.Benchmark.Report != "" {
		return c.CLI.Benchmark.Report
	}
	return c.TOML.Benchmark.Report
}

func (c *Config) Files() []string {
	switch c.Command() {
	case "compress":
		return c.CLI.Compress.Files
	case "decompress":
		return c.CLI.Decompress.Files
	case "benchmark":
		return c.CLI.Benchmark.Files
	}
	return nil
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Compress == nil {
		t.Compress = &TOMLCompress{}
	}

	if t.Benchmark == nil {
		t.Benchmark = &TOMLBenchmark{}
	}

	// Set defaults for [compress]
	if t.Compress.BlockType == "" {
		t.Compress.BlockType = DefaultBlockType
	}

	if t.Compress.Extension == "" {
		t.Compress.Extension = DefaultExtension
	}

	return nil
}

func Validate(c *Config) error {
	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if err := validateTOML(c.TOML); err != nil {
		return errors.Wrap(err, "error validating toml config")
	}

	if _, err := c.BlockType(); err != nil {
		return errors.Wrap(err, "error resolving block type")
	}

	if err := validateExtension(c.Extension()); err != nil {
		return errors.Wrap(err, "error resolving extension")
	}

	if err := validateReport(c.Report()); err != nil {
		return errors.Wrap(err, "error resolving benchmark report")
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	// Validate [compress]
	if err := validateTOMLCompress(t.Compress); err != nil {
		return errors.Wrap(err, "compress error(s)")
	}

	// Validate [benchmark]
	if err := validateTOMLBenchmark(t.Benchmark); err != nil {
		return errors.Wrap(err, "benchmark error(s)")
	}

	return nil
}

func validateTOMLCompress(c *TOMLCompress) error {
	if c == nil {
		return errors.New("compress cannot be empty")
	}

	if _, err := flate.ParseBlockType(c.BlockType); err != nil {
		return errors.Wrap(err, "compress.block_type is invalid")
	}

	if err := validateExtension(c.Extension); err != nil {
		return errors.Wrap(err, "compress.extension is invalid")
	}

	return nil
}

func validateTOMLBenchmark(b *TOMLBenchmark) error {
	if b == nil {
		return errors.New("benchmark cannot be empty")
	}

	if err := validateReport(b.Report); err != nil {
		return errors.Wrap(err, "benchmark.report is invalid")
	}

	return nil
}

func validateExtension(ext string) error {
	if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
		return errors.Errorf("extension %q must be a dot followed by at least one character", ext)
	}

	if strings.ContainsAny(ext, `/\`) {
		return errors.Errorf("extension %q cannot contain a path separator", ext)
	}

	return nil
}

func validateReport(report string) error {
	if report == "" {
		return nil
	}

	if _, ok := validReportExtensions[strings.ToLower(filepath.Ext(report))]; !ok {
		return errors.Errorf("report %s must be a .yaml or .yml file", report)
	}

	return nil
}

func newParser(cli *CLI) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("deflate-engine"),
		kong.Description("DEFLATE/gzip compressor with stored, fixed and dynamic Huffman blocks"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version":     VERSION,
			"config_file": DefaultConfigFile,
		})
}

func readCLIArgs(args []string) (*CLI, error) {
	cli := &CLI{}
	parser, err := newParser(cli)
	if err != nil {
		return nil, errors.Wrap(err, "error building CLI parser")
	}

	cli.Ctx, err = parser.Parse(args)
	if err != nil {
		return nil, err
	}

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

// readTOML loads file, falling back to defaults when it does not exist.
func readTOML(file string) (*TOML, error) {
	tomlConfig := &TOML{}

	// Attempt to load file
	data, err := os.ReadFile(file)
	switch {
	case os.IsNotExist(err):
		logrus.Debugf("config file %s not found, using defaults", file)
	case err != nil:
		return nil, errors.Wrap(err, "error reading file")
	default:
		if err := toml.Unmarshal(data, tomlConfig); err != nil {
			return nil, errors.Wrap(err, "error parsing TOML config")
		}
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	// Validate loaded config
	if err := validateTOML(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error validating TOML config")
	}

	return tomlConfig, nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if cli.Compress.BlockType != "" {
		if _, err := flate.ParseBlockType(cli.Compress.BlockType); err != nil {
			return errors.Wrap(err, "--block-type is invalid")
		}
	}

	return nil
}
