package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/class"
	"github.com/wippyai/slotbridge/decl"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
	"github.com/wippyai/slotbridge/slots"
	"github.com/wippyai/slotbridge/trampoline"
	"github.com/wippyai/slotbridge/wasmabi"
)

func main() {
	var (
		declFiles   = flag.String("decl", "", "Declaration files (comma-separated)")
		format      = flag.String("format", "text", "Report format (text, yaml)")
		list        = flag.Bool("list", false, "List the protocol method catalog and exit")
		verbose     = flag.Bool("v", false, "Log planning steps to stderr (development logger)")
		interactive = flag.Bool("i", false, "Interactive catalog browser")
	)
	flag.Parse()

	if *declFiles == "" && !*list && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: slotgen -decl <file.yaml>[,<file.yaml>...] [-format text|yaml] [-v]")
		fmt.Fprintln(os.Stderr, "       slotgen -list")
		fmt.Fprintln(os.Stderr, "       slotgen -i  (interactive mode)")
		os.Exit(1)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	if *verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	setLoggers(logger)

	if *interactive {
		if !isTerminal(os.Stdout) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	st := newStyler(isTerminal(os.Stdout))
	if err := run(context.Background(), os.Stdout, st, splitList(*declFiles), *format, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, st styler, paths []string, format string, listOnly bool) error {
	if format != "text" && format != "yaml" {
		return errors.InvalidInput(errors.PhaseHost, "unknown format "+format)
	}

	if listOnly {
		if format == "yaml" {
			return writeYAML(out, catalogDoc(slots.Catalog()))
		}
		renderCatalog(out, st, slots.Catalog())
		return nil
	}

	files, err := decl.LoadAll(ctx, paths)
	if err != nil {
		return err
	}

	var failed []error
	for _, f := range files {
		rep, err := decl.Plan(f)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", f.Path, err))
		}
		if format == "yaml" {
			if err := writeYAML(out, rep); err != nil {
				return err
			}
			continue
		}
		renderReport(out, st, rep)
	}
	return stderrors.Join(failed...)
}

// setLoggers hands every package that logs a child of logger.
func setLoggers(logger *zap.Logger) {
	trampoline.SetLogger(logger.Named("trampoline"))
	class.SetLogger(logger.Named("class"))
	foreign.SetLogger(logger.Named("foreign"))
	wasmabi.SetLogger(logger.Named("wasmabi"))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
