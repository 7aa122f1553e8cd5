// Package app wires the bddkit command line: code generation, the UPTRMS
// twin server and version output.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uptrms/bddkit/internal/comment_parser"
	"github.com/uptrms/bddkit/internal/generator"
)

type options struct {
	logFormat string
	debug     bool
	parser    generator.GoCodeParser
}

// Option customises the root command; used by tests to inject a parser.
type Option func(*options)

func WithCodeParser(p generator.GoCodeParser) Option {
	return func(o *options) { o.parser = p }
}

// NewRootCmd builds the bddkit command tree.
func NewRootCmd(version string, opts ...Option) *cobra.Command {
	o := &options{parser: comment_parser.NewGoSourceFileParser()}
	for _, opt := range opts {
		opt(o)
	}

	root := &cobra.Command{
		Use:   "bddkit",
		Short: "Run Gherkin scenarios against the UPTRMS API",
		Long: `bddkit generates the Go test entry point for annotated step functions
and serves an in-memory UPTRMS twin that scenarios can run against.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "bddkit version %s\n" .Version}}`)
	root.PersistentFlags().StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().BoolVar(&o.debug, "debug", false, "enable debug logging")

	root.AddCommand(newGenerateCmd(o))
	root.AddCommand(newTwinCmd(o))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command tree with args and returns the first error.
func Execute(ctx context.Context, version string, args []string, opts ...Option) error {
	root := NewRootCmd(version, opts...)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (o *options) logger(w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(o.logFormat) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", o.logFormat)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bddkit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bddkit version %s\n", cmd.Root().Version)
		},
	}
}
