package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/config"
	"github.com/dgnsrekt/domsnap/internal/deliver"
	"github.com/dgnsrekt/domsnap/internal/pagecapture"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

func pickCmd() *cobra.Command {
	var (
		tabID       string
		tree        bool
		out         string
		save        string
		noClipboard bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick an element in a live browser tab",
		Long: `Show the element picker overlay in a tab of a browser started with remote
debugging. Click an element to serialize it: the JSON is printed and copied
to the page clipboard. Escape cancels.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := outputFlags{tree: tree, out: out, save: save, verbose: verbose}
			if err := flags.setupLogger(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := cdpcontrol.NewClient(cfg.CDPURL(), cfg.TabURLFilter, cfg.EvalTimeout(), cfg.PickTimeout())
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("connect %s: %w", cfg.CDPURL(), err)
			}
			defer func() {
				if err := client.Close(); err != nil {
					slog.Debug("cdp client close failed", "error", err)
				}
			}()

			tab, err := resolveTab(ctx, client, tabID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Click an element in %s (Escape cancels)\n", tab)
			capture, err := client.Pick(ctx, tab, pagecapture.PickerOptions{Color: cfg.PickerColor})
			if err != nil {
				var coded *cdpcontrol.CodedError
				if errors.As(err, &coded) && coded.Code == cdpcontrol.CodePickCancelled {
					// the overlay may still be up when ctx was cancelled
					if _, offErr := client.PickerOff(context.WithoutCancel(ctx), tab); offErr != nil {
						slog.Debug("picker cleanup failed", "tab_id", tab, "error", offErr)
					}
					return fmt.Errorf("pick cancelled")
				}
				return err
			}

			r, err := newResult(snapshot.SourcePick, capture.Serialize())
			if err != nil {
				return err
			}
			r.TabID = tab
			r.URL = capture.URL
			r.Title = capture.Title

			if err := flags.emit(ctx, cmd.OutOrStdout(), r); err != nil {
				return err
			}
			if noClipboard || !cfg.Clipboard {
				return nil
			}
			clip := &deliver.ClipboardSink{Writer: client}
			if err := clip.Deliver(ctx, r); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "clipboard: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tabID, "tab", "t", "", "Target id of the tab (default: first matching tab)")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print an indented tree instead of JSON")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().StringVar(&save, "save", "", "Also store the capture in this directory")
	cmd.Flags().BoolVar(&noClipboard, "no-clipboard", false, "Do not copy the JSON to the page clipboard")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
	return cmd
}

type tabLister interface {
	ListTabs(ctx context.Context) ([]cdpcontrol.TabInfo, error)
}

// resolveTab returns tabID when set, otherwise the first listed tab.
func resolveTab(ctx context.Context, tabs tabLister, tabID string) (string, error) {
	if id := strings.TrimSpace(tabID); id != "" {
		return id, nil
	}
	list, err := tabs.ListTabs(ctx)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("no page tabs found")
	}
	return list[0].TabID, nil
}
