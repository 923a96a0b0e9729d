// Package config loads drmeter settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"drmeter/internal/logging"
	"drmeter/pkg/audioengine"
	"drmeter/pkg/spec"
)

type Analysis struct {
	BlockSeconds   float64 `yaml:"block_seconds"`
	UpmostRatio    float64 `yaml:"upmost_ratio"`
	NthHighestPeak int     `yaml:"nth_highest_peak"`
}

type Batch struct {
	// Workers <= 0 means one per CPU.
	Workers   int  `yaml:"workers"`
	Recursive bool `yaml:"recursive"`
	// Extensions narrows directory scans; empty means every decodable file.
	Extensions []string `yaml:"extensions"`
}

type Output struct {
	JSON     string `yaml:"json"`
	LogFile  bool   `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
	Quiet    bool   `yaml:"quiet"`
	Digest   bool   `yaml:"digest"`
}

type Root struct {
	Analysis Analysis `yaml:"analysis"`
	Batch    Batch    `yaml:"batch"`
	Output   Output   `yaml:"output"`
}

// Default returns the settings used when no file is found.
func Default() *Root {
	return &Root{
		Analysis: Analysis{
			BlockSeconds:   spec.BlockSeconds,
			UpmostRatio:    spec.UpmostBlocksRatio,
			NthHighestPeak: spec.NthHighestPeak,
		},
		Output: Output{LogLevel: "info"},
	}
}

// Candidates lists the files Load tries, in order, when no path is given.
func Candidates() []string {
	var guess []string
	if env := os.Getenv(spec.ConfigEnv); env != "" {
		guess = append(guess, env)
	}
	guess = append(guess, spec.ConfigFileName)
	if home, err := os.UserHomeDir(); err == nil {
		guess = append(guess, filepath.Join(home, ".config", spec.AppName, "config.yaml"))
	}
	return guess
}

// Load reads explicit if set, which must exist. Otherwise the first existing
// candidate is used, and defaults when there is none. Values missing from the
// file keep their defaults. It returns the path actually read.
func Load(explicit string) (*Root, string, error) {
	if explicit != "" {
		cfg, err := loadFile(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, explicit, nil
	}
	for _, p := range Candidates() {
		cfg, err := loadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return cfg, p, nil
	}
	return Default(), "", nil
}

func loadFile(path string) (*Root, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no analysis can run with.
func (r *Root) Validate() error {
	if err := r.AnalyzerConfig().Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(r.Output.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", audioengine.ErrInvalidConfiguration, err)
	}
	for _, ext := range r.Batch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", audioengine.ErrInvalidConfiguration, ext)
		}
	}
	return nil
}

// AnalyzerConfig converts the analysis section.
func (r *Root) AnalyzerConfig() audioengine.Config {
	return audioengine.Config{
		BlockSeconds:   r.Analysis.BlockSeconds,
		UpmostRatio:    r.Analysis.UpmostRatio,
		NthHighestPeak: r.Analysis.NthHighestPeak,
	}
}

// Level is the configured log level; Quiet wins over LogLevel.
func (r *Root) Level() logging.Level {
	if r.Output.Quiet {
		return logging.SilentLevel
	}
	lvl, _ := logging.ParseLevel(r.Output.LogLevel)
	return lvl
}
