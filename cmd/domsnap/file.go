package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/domsnap/internal/domtree"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

func fileCmd() *cobra.Command {
	var flags outputFlags

	cmd := &cobra.Command{
		Use:   "file <path.html>",
		Short: "Serialize an element of a local HTML file",
		Long: `Parse a local HTML file, resolve its <style> sheets and inline styles
against built-in user-agent defaults, and serialize the first element
matching --selector. No browser is needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.setupLogger(); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := domtree.Parse(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			el, err := doc.Query(flags.selector)
			if errors.Is(err, domtree.ErrNoMatch) {
				return fmt.Errorf("no element matches %q in %s", flags.selector, args[0])
			}
			if err != nil {
				return err
			}

			r, err := newResult(snapshot.SourceFile, prune.Serialize(doc, el))
			if err != nil {
				return err
			}
			r.URL = args[0]
			r.Selector = flags.selector
			return flags.emit(cmd.Context(), cmd.OutOrStdout(), r)
		},
	}

	flags.register(cmd)
	return cmd
}
