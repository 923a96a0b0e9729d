/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"drmeter/internal/batch"
	"drmeter/internal/codec"
	"drmeter/internal/config"
	"drmeter/internal/logging"
	"drmeter/internal/report"
	"drmeter/pkg/audioengine"
	"drmeter/pkg/spec"
)

const usageText = "Usage: drmeter [flags] FILE_OR_DIRECTORY"

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitInterrupt = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	writeLog    bool
	quiet       bool
	listFormats bool
	jsonPath    string
	workers     int
	recursive   bool
	digest      bool
	configPath  string
	verbose     bool
	version     bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(spec.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s version %s\n%s\n", spec.AppName, spec.Version(), usageText)
		fs.PrintDefaults()
	}

	var o options
	fs.BoolVar(&o.writeLog, "l", false, "write "+spec.LogFileName+" next to the analyzed files")
	fs.BoolVar(&o.quiet, "q", false, "print nothing")
	fs.BoolVar(&o.listFormats, "list-formats", false, "list decodable formats and exit")
	fs.StringVar(&o.jsonPath, "json", "", "write measurements as JSON to this path")
	fs.IntVar(&o.workers, "workers", 0, "files analyzed at once (default: one per CPU)")
	fs.BoolVar(&o.recursive, "r", false, "scan directories recursively")
	fs.BoolVar(&o.digest, "digest", false, "fingerprint files with blake2b")
	fs.StringVar(&o.configPath, "config", "", "config file (default: $"+spec.ConfigEnv+", ./"+spec.ConfigFileName+", ~/.config/"+spec.AppName+"/config.yaml)")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if o.version {
		fmt.Fprintf(stdout, "%s version %s\n", spec.AppName, spec.Version())
		return exitOK
	}
	if o.listFormats {
		printFormats(stdout)
		return exitOK
	}

	cfg, cfgPath, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "[FAIL] config: %v\n", err)
		return exitUsage
	}
	applyFlags(fs, &o, cfg)

	target := fs.Arg(0)
	if target == "" {
		if !report.IsTerminal(stdout) {
			fs.Usage()
			return exitUsage
		}
		answers, err := runInterview(stdin, stdout, cfg.Batch.Workers)
		if err != nil {
			fmt.Fprintf(stderr, "[FAIL] %v\n", err)
			return exitUsage
		}
		target, cfg.Batch.Workers = answers.path, answers.workers
	}

	live := !cfg.Output.Quiet
	tty := live && report.IsTerminal(stdout)

	logger := logging.NewWriterLogger(stdout, stderr, report.IsTerminal(stderr))
	level := cfg.Level()
	if o.verbose {
		level = logging.DebugLevel
	} else if tty && level < logging.ErrorLevel {
		// the live table owns the terminal; failures show up in it
		level = logging.ErrorLevel
	}
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)
	if cfgPath != "" {
		logger.Debug("config loaded", logging.Fields{"path": cfgPath})
	}

	files, err := collectFiles(target, cfg.Batch.Recursive, cfg.Batch.Extensions)
	if err != nil {
		fmt.Fprintf(stderr, "[FAIL] %v\n", err)
		return exitUsage
	}

	analyzer, err := audioengine.NewAnalyzer(cfg.AnalyzerConfig())
	if err != nil {
		fmt.Fprintf(stderr, "[FAIL] %v\n", err)
		return exitUsage
	}

	opts := report.Options{Digest: cfg.Output.Digest}
	coordOpts := []batch.Option{
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithAnalyzer(analyzer),
		batch.WithLogger(logger),
	}
	if cfg.Output.Digest {
		coordOpts = append(coordOpts, batch.WithDigest(codec.Fingerprint))
	}

	var display *report.Live
	if live {
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			fmt.Fprintf(stdout, "Analyzing Dynamic Range of files in %s ...\n", target)
		} else {
			fmt.Fprintf(stdout, "Analyzing Dynamic Range of %s ...\n", target)
		}
		display = report.NewLive(stdout, opts)
		coordOpts = append(coordOpts, batch.WithObserver(display.Observe))
	}

	coord := batch.New(coordOpts...)
	coord.Submit(files...)
	runErr := coord.Run(ctx)
	st := coord.Snapshot()

	if display != nil {
		display.Finish(st)
	}

	code := exitOK
	if cfg.Output.LogFile {
		path := logPath(target)
		if err := report.WriteLog(path, st, opts); err != nil {
			fmt.Fprintf(stderr, "[FAIL] log: %v\n", err)
			code = exitFailure
		} else {
			logger.Info("log written", logging.Fields{"path": path})
		}
	}
	if cfg.Output.JSON != "" {
		if err := report.WriteJSON(cfg.Output.JSON, st); err != nil {
			fmt.Fprintf(stderr, "[FAIL] json: %v\n", err)
			code = exitFailure
		} else {
			logger.Info("json written", logging.Fields{"path": cfg.Output.JSON})
		}
	}

	if runErr != nil {
		if !cfg.Output.Quiet {
			fmt.Fprintf(stderr, "[INTERRUPTED] %d of %d files analyzed\n", st.Completed, st.Total)
		}
		return exitInterrupt
	}
	return code
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(fs *flag.FlagSet, o *options, cfg *config.Root) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "l":
			cfg.Output.LogFile = o.writeLog
		case "q":
			cfg.Output.Quiet = o.quiet
		case "json":
			cfg.Output.JSON = o.jsonPath
		case "workers":
			cfg.Batch.Workers = o.workers
		case "r":
			cfg.Batch.Recursive = o.recursive
		case "digest":
			cfg.Output.Digest = o.digest
		}
	})
}

// logPath puts the log in the analyzed directory, or next to a single file.
func logPath(target string) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, spec.LogFileName)
	}
	return filepath.Join(filepath.Dir(target), spec.LogFileName)
}

func printFormats(w io.Writer) {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Extension", "Description").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, f := range codec.Formats() {
		t.Row(f.Extension, f.Name)
	}
	fmt.Fprintln(w, t.String())
}
