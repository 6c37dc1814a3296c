//go:build !js

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bleurgh/pkg/compiler"
	"bleurgh/pkg/config"
	"bleurgh/pkg/index"
	"bleurgh/pkg/object"
)

const usage = "Usage: bleurgh <input> [output]"

var (
	configPath string
	logLevel   string
	logFile    string
	showAsm    bool
	runObject  bool
	indexDSN   string
)

var rootCmd = &cobra.Command{
	Use:   "bleurgh <input> [output]",
	Short: "Compile a bleurgh source file and run it, or write an object file",
	Long: `bleurgh compiles function declarations and arithmetic definitions.

With one argument the program is compiled and its entry point is run on the
virtual machine. With two arguments an object file is written instead.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || len(args) > 2 {
			return errors.New(usage)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "config file (default $"+config.EnvFile+" or ./"+config.DefaultFile+")")
	f.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error, none")
	f.StringVar(&logFile, "log-file", "", "log file path (if not set, logs to stderr)")
	f.BoolVar(&showAsm, "show-asm", false, "print the generated assembly")
	f.BoolVar(&runObject, "run-object", false, "treat <input> as an object file and run it")
	f.StringVar(&indexDSN, "index", "", "record symbols in this database (sqlite3:path, mysql://..., postgres://...)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if indexDSN != "" {
		cfg.Index.DSN = indexDSN
	}

	logWriter, closeLog := config.OpenLogWriter(cfg.Log.File)
	defer closeLog()
	logger := config.NewLogger(logWriter, cfg.Log)
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	input := args[0]

	if runObject {
		if len(args) != 1 {
			return errors.New(usage)
		}
		return runObjectFile(out, input, cfg)
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input file %q: %w", input, err)
	}

	start := time.Now()
	res, err := compiler.Compile(string(source), compiler.Options{File: input, Logger: logger})
	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}
	if err != nil {
		return err
	}
	logger.Info("compiled", slog.String("file", input), slog.Int("items", len(res.Items)),
		slog.Int("bytes", len(res.Program.Code)), slog.Duration("elapsed", time.Since(start)))

	if showAsm {
		fmt.Fprint(out, res.Assembly)
	}

	if cfg.Index.DSN != "" {
		if err := recordSymbols(cmd.Context(), cfg.Index.DSN, input, res); err != nil {
			return err
		}
	}

	if len(args) == 2 {
		obj := object.New(res.Program, res.Assembly, input, cfg.EntryPoint)
		if err := obj.WriteFile(args[1]); err != nil {
			return fmt.Errorf("failed to write object file %q: %w", args[1], err)
		}
		logger.Info("wrote object file", slog.String("path", args[1]))
		return nil
	}

	v, err := compiler.Run(res.Program, cfg.EntryPoint, cfg.Run.MaxSteps)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Output: %.6g\n", v)
	return nil
}

func runObjectFile(out io.Writer, path string, cfg config.Configuration) error {
	obj, err := object.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read object file %q: %w", path, err)
	}
	entry := cfg.EntryPoint
	if obj.Manifest.EntryPoint != "" && entry == config.Default().EntryPoint {
		entry = obj.Manifest.EntryPoint
	}
	v, err := compiler.Run(obj.Program(), entry, cfg.Run.MaxSteps)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Output: %.6g\n", v)
	return nil
}

func recordSymbols(ctx context.Context, dsn, unit string, res *compiler.Result) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ix, err := index.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("symbol index: %w", err)
	}
	defer ix.Close()
	if err := ix.Record(ctx, unit, res.Program.Symbols); err != nil {
		return fmt.Errorf("symbol index: %w", err)
	}
	slog.Info("recorded symbols", slog.String("unit", unit), slog.Int("count", len(res.Program.Symbols)))
	return nil
}

// reportError prints err, followed by whatever parse failure explains it.
func reportError(w io.Writer, err error) {
	var d *compiler.Diagnostic
	if !errors.As(err, &d) {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, d)
	for c := d.Cause; c != nil; c = c.Cause {
		fmt.Fprintln(w, c)
	}
}
