package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/codeobjkit/internal/config"
	"github.com/joshuapare/codeobjkit/internal/logger"
	"github.com/joshuapare/codeobjkit/pkg/codeobj"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string

	// cfg is loaded before every command runs.
	cfg = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "codeobjctl",
	Short: "Inspect AMDGPU code objects",
	Long: `codeobjctl reads AMDGPU code objects and their metadata. It decodes PAL
pipeline descriptions, lists function symbols, dumps the raw metadata tree and
drives external tools to disassemble or compile code objects.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to the configuration file")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and initializes logging.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	opts := cfg.LoggerOptions()
	if verbose {
		opts.Enabled = true
		opts.Level = slog.LevelDebug
	}
	if opts.Enabled && opts.LogDir == "" {
		opts.Writer = cmd.ErrOrStderr()
	}
	return logger.Init(opts)
}

// openCodeObj opens path with the decode options and tools from the
// configuration.
func openCodeObj(path string, extra ...codeobj.Option) (*codeobj.CodeObj, error) {
	options := []codeobj.Option{
		codeobj.WithOptions(cfg.OpenOptions()),
		codeobj.WithWorkDir(cfg.Bridge.WorkingDirectory),
	}
	actor, err := cfg.Actor(logger.L)
	if err != nil {
		return nil, err
	}
	if actor != nil {
		options = append(options, codeobj.WithActor(actor))
	}
	printVerbose("Opening code object: %s\n", path)
	return codeobj.OpenFile(path, append(options, extra...)...)
}

// Helper functions for output

var numbers = message.NewPrinter(language.English)

// formatSize renders a byte count with thousands separators.
func formatSize(n int) string {
	if n == 1 {
		return "1 byte"
	}
	return numbers.Sprintf("%d bytes", n)
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	printVerbose("Wrote %s to %s\n", formatSize(len(data)), path)
	return nil
}
