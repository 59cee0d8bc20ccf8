package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/domsnap/internal/deliver"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "domsnap",
		Short: "Serialize a DOM subtree into compact JSON",
		Long: `domsnap turns an element and its descendants into a JSON tree that keeps
only the styles that differ from the browser default for each tag, a short
whitelist of attributes, and collapsed text leaves.

Elements come from a local HTML file, a headless render of a URL, or a live
browser tab reached over the Chrome DevTools Protocol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		fileCmd(),
		renderCmd(),
		pickCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setupLogger sends logs to console and, when filename is set, to a rotating
// file.
func setupLogger(level, filename string, console io.Writer) error {
	w := console
	if filename != "" {
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return err
		}
		logWriter := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
		w = io.MultiWriter(console, logWriter)
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(h))
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// outputFlags are shared by the one-shot commands.
type outputFlags struct {
	selector string
	tree     bool
	out      string
	save     string
	verbose  bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.selector, "selector", "s", "", "CSS selector of the element to serialize")
	cmd.Flags().BoolVar(&f.tree, "tree", false, "Print an indented tree instead of JSON")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().StringVar(&f.save, "save", "", "Also store the capture in this directory")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log progress to stderr")
	_ = cmd.MarkFlagRequired("selector")
}

func (f *outputFlags) setupLogger() error {
	level := "warn"
	if f.verbose {
		level = "debug"
	}
	return setupLogger(level, "", os.Stderr)
}

// emit writes node as JSON (or a tree) to stdout or --out and stores it when
// --save is set.
func (f *outputFlags) emit(ctx context.Context, stdout io.Writer, r deliver.Result) error {
	w := stdout
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return err
		}
		defer func() {
			if err := file.Close(); err != nil {
				slog.Debug("output close failed", "path", f.out, "error", err)
			}
		}()
		w = file
	}

	var sinks []deliver.Sink
	if f.tree {
		if _, err := io.WriteString(w, prune.Dump(r.Node)); err != nil {
			return err
		}
	} else {
		sinks = append(sinks, &deliver.WriterSink{W: w})
	}
	if f.save != "" {
		store, err := snapshot.NewStore(f.save)
		if err != nil {
			return err
		}
		sinks = append(sinks, &deliver.StoreSink{Store: store})
	}
	return deliver.NewFanout(sinks...).Deliver(ctx, r)
}

func newResult(source string, node *prune.SerializedNode) (deliver.Result, error) {
	return deliver.NewResult(snapshot.NewID(), source, node)
}
