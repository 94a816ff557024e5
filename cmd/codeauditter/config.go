package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/policy"
	"github.com/kluth/npm-code-auditter/internal/reporter"
)

const envPrefix = "CODEAUDITTER_"

type configFile struct {
	Format      string         `yaml:"format" toml:"format"`
	Severity    string         `yaml:"severity" toml:"severity"`
	FailOn      string         `yaml:"fail-on" toml:"fail-on"`
	Concurrency int            `yaml:"concurrency" toml:"concurrency"`
	MaxFileSize int64          `yaml:"max-file-size" toml:"max-file-size"`
	Quiet       bool           `yaml:"quiet" toml:"quiet"`
	Verbose     bool           `yaml:"verbose" toml:"verbose"`
	LogLevel    string         `yaml:"log-level" toml:"log-level"`
	Policy      *policy.Policy `yaml:"policy" toml:"policy"`
}

// loadConfiguration layers config file, .env and environment under the
// explicitly set flags, then validates the result.
func loadConfiguration(cmd *cobra.Command, opts *options) error {
	if cfgPath := findConfigFile(); cfgPath != "" {
		cfg, err := loadConfigFile(cfgPath)
		if err != nil {
			return err
		}
		applyConfig(cmd, opts, cfg)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	resolveConfig(cmd, opts)

	if opts.quiet && opts.verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	if opts.jsonOutput {
		opts.format = reporter.FormatJSON
	}
	if err := reporter.ValidateFormat(opts.format); err != nil {
		return err
	}
	if opts.minSeverity != "" {
		if _, err := analyzer.ParseSeverity(opts.minSeverity); err != nil {
			return err
		}
	}
	if opts.failOn != "" {
		if _, err := analyzer.ParseSeverity(opts.failOn); err != nil {
			return err
		}
	}
	if opts.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", opts.concurrency)
	}
	return nil
}

func loadConfigFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg configFile
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	if cfg.Policy != nil {
		if err := cfg.Policy.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}
	return &cfg, nil
}

func findConfigFile() string {
	for _, name := range []string{".codeauditter.yaml", ".codeauditter.yml", ".codeauditter.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".config", "codeauditter", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func applyConfig(cmd *cobra.Command, opts *options, cfg *configFile) {
	if cfg == nil {
		return
	}
	if cfg.Format != "" && !flagChanged(cmd, "format") {
		opts.format = cfg.Format
	}
	if cfg.Severity != "" && !flagChanged(cmd, "severity") {
		opts.minSeverity = cfg.Severity
	}
	if cfg.FailOn != "" && !flagChanged(cmd, "fail-on") {
		opts.failOn = cfg.FailOn
	}
	if cfg.Concurrency != 0 && !flagChanged(cmd, "concurrency") {
		opts.concurrency = cfg.Concurrency
	}
	if cfg.MaxFileSize != 0 && !flagChanged(cmd, "max-file-size") {
		opts.maxFileSize = cfg.MaxFileSize
	}
	if cfg.Quiet && !flagChanged(cmd, "quiet") {
		opts.quiet = true
	}
	if cfg.Verbose && !flagChanged(cmd, "verbose") {
		opts.verbose = true
	}
	if cfg.LogLevel != "" && !flagChanged(cmd, "log-level") {
		opts.logLevel = cfg.LogLevel
	}
	opts.policy = cfg.Policy
}

func resolveStringEnv(cmd *cobra.Command, flagName, envKey string, target *string) {
	if flagChanged(cmd, flagName) {
		return
	}
	if v := os.Getenv(envPrefix + envKey); v != "" {
		*target = v
	}
}

func resolveIntEnv(cmd *cobra.Command, flagName, envKey string, target *int) {
	if flagChanged(cmd, flagName) {
		return
	}
	if v := os.Getenv(envPrefix + envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func resolveInt64Env(cmd *cobra.Command, flagName, envKey string, target *int64) {
	if flagChanged(cmd, flagName) {
		return
	}
	if v := os.Getenv(envPrefix + envKey); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = n
		}
	}
}

func resolveBoolEnv(cmd *cobra.Command, flagName, envKey string, target *bool) {
	if flagChanged(cmd, flagName) {
		return
	}
	if v := os.Getenv(envPrefix + envKey); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func resolveConfig(cmd *cobra.Command, opts *options) {
	resolveStringEnv(cmd, "format", "FORMAT", &opts.format)
	resolveStringEnv(cmd, "severity", "SEVERITY", &opts.minSeverity)
	resolveStringEnv(cmd, "fail-on", "FAIL_ON", &opts.failOn)
	resolveIntEnv(cmd, "concurrency", "CONCURRENCY", &opts.concurrency)
	resolveInt64Env(cmd, "max-file-size", "MAX_FILE_SIZE", &opts.maxFileSize)
	resolveBoolEnv(cmd, "quiet", "QUIET", &opts.quiet)
	resolveStringEnv(cmd, "log-level", "LOG_LEVEL", &opts.logLevel)
}
