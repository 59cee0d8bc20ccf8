package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/domsnap/internal/config"
	"github.com/dgnsrekt/domsnap/internal/render"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

func renderCmd() *cobra.Command {
	var (
		flags   outputFlags
		wait    string
		settle  time.Duration
		timeout time.Duration
		width   int
		height  int
	)

	cmd := &cobra.Command{
		Use:   "render <url|path>",
		Short: "Load a page in headless Chrome and serialize an element",
		Long: `Load a URL (or a local file) in a headless Chrome, wait for the page to
settle, and serialize the first element matching --selector using the
browser's computed styles.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.setupLogger(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			r := render.New(render.Options{
				BrowserPath:  cfg.BrowserPath,
				Width:        width,
				Height:       height,
				WaitSelector: wait,
				Settle:       settle,
				Timeout:      timeout,
			})
			capture, err := r.Capture(cmd.Context(), args[0], flags.selector)
			if err != nil {
				return err
			}

			res, err := newResult(snapshot.SourceRender, capture.Serialize())
			if err != nil {
				return err
			}
			res.URL = capture.URL
			res.Title = capture.Title
			res.Selector = capture.Selector
			return flags.emit(cmd.Context(), cmd.OutOrStdout(), res)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&wait, "wait", "body", "Selector to wait for before capturing")
	cmd.Flags().DurationVar(&settle, "settle", 0, "Extra delay after the page is ready")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall render timeout")
	cmd.Flags().IntVar(&width, "width", 1280, "Viewport width")
	cmd.Flags().IntVar(&height, "height", 800, "Viewport height")
	return cmd
}
