package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/export"
	"github.com/unkn0wn-root/httpoutline/internal/outfmt"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/render"
	"github.com/unkn0wn-root/httpoutline/internal/restfile"
	"github.com/unkn0wn-root/httpoutline/internal/session"
	"github.com/unkn0wn-root/httpoutline/internal/ui"
	"github.com/unkn0wn-root/httpoutline/internal/watcher"
)

func (a *app) treeCmd() *cobra.Command {
	var format, query string
	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the outline of a request file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := outfmt.ParseFormat(format)
			if err != nil {
				return err
			}
			o, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			styled := f == outfmt.FormatText && isTerminal(a.stdout)
			return outfmt.NewPrinter(a.stdout, f, query).Print(o.Document(), render.Tree(o, styled))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&query, "jq", "", "jq expression applied to json/yaml output")
	return cmd
}

type nodeResult struct {
	Found bool          `json:"found"          yaml:"found"`
	Node  *outline.Node `json:"node,omitempty" yaml:"node,omitempty"`
}

func (a *app) nodeCmd() *cobra.Command {
	var (
		line, col     int
		format, query string
	)
	cmd := &cobra.Command{
		Use:   "node FILE",
		Short: "Show the group or request at a position",
		Long: heredoc.Doc(`
			Prints the innermost outline node containing the position.
			Lines are 1-based; columns count characters from 0.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if line < 1 {
				return errdef.New(errdef.CodeConfig, "--line must be at least 1")
			}
			if col < 0 {
				return errdef.New(errdef.CodeConfig, "--col must not be negative")
			}
			f, err := outfmt.ParseFormat(format)
			if err != nil {
				return err
			}
			o, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pos := restfile.Position{Line: line, Column: col}
			n, ok := o.NodeAt(pos)
			text := fmt.Sprintf("no node at %d:%d\n", line, col)
			if ok {
				text = fmt.Sprintf("%s  %s\n", n.Label, lineSpan(n.Range))
			}
			return outfmt.NewPrinter(a.stdout, f, query).Print(nodeResult{Found: ok, Node: n}, text)
		},
	}
	cmd.Flags().IntVarP(&line, "line", "l", 0, "1-based line number")
	cmd.Flags().IntVarP(&col, "col", "c", 0, "0-based column")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&query, "jq", "", "jq expression applied to json/yaml output")
	_ = cmd.MarkFlagRequired("line")
	return cmd
}

func lineSpan(r restfile.Range) string {
	if r.Start.Line == r.End.Line {
		return fmt.Sprintf("L%d", r.Start.Line)
	}
	return fmt.Sprintf("L%d-L%d", r.Start.Line, r.End.Line)
}

func (a *app) exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export the outline as Markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			o, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := export.Render(o, f)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprint(a.stdout, doc)
				return err
			}
			if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
				return errdef.Wrap(errdef.CodeFilesystem, err, "write %s", out)
			}
			fmt.Fprintf(a.stderr, "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Export format: markdown or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Reprint the outline whenever the file changes on disk",
		Long: heredoc.Doc(`
			Prints the outline once, then polls the file. Every change prints a
			unified diff between the previous and the new text tree.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	return cmd
}

func (a *app) watch(ctx context.Context, path string, interval time.Duration) error {
	sess := a.newSession(func(err error) {
		fmt.Fprintf(a.stderr, "error: %s\n", errdef.Message(err))
	})
	defer sess.Close()
	if err := sess.Handle(ctx, session.ActiveFileChanged(path)); err != nil {
		return err
	}

	w := watcher.New(watcher.Options{Interval: interval})
	if err := w.Track(path, nil); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "watch %s", path)
	}
	w.Start()
	defer w.Stop()

	prev := render.Tree(sess.Outline(), false)
	fmt.Fprint(a.stdout, prev)

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events():
			if !ok {
				return nil
			}
			if evt.Kind == watcher.EventMissing {
				fmt.Fprintf(a.stderr, "error: %s removed on disk\n", filepath.Base(evt.Path))
				continue
			}
			// Read failures were already printed by OnError.
			if err := sess.Handle(ctx, session.ContentSaved(path)); err != nil {
				continue
			}
			next := render.Tree(sess.Outline(), false)
			if diff := outlineDiff(prev, next); diff != "" {
				fmt.Fprint(a.stdout, diff)
			}
			prev = next
		}
	}
}

// outlineDiff returns a unified diff of two rendered trees, or "" when
// they are equal.
func outlineDiff(prev, next string) string {
	if prev == next {
		return ""
	}
	diff := udiff.Unified("before", "after", prev, next)
	if diff != "" && !strings.HasSuffix(diff, "\n") {
		diff += "\n"
	}
	return diff
}

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui FILE",
		Short: "Open the outline sidebar next to the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(a.stdout) {
				return errdef.New(errdef.CodeConfig, "tui needs an interactive terminal")
			}
			return ui.Run(ui.Options{
				Path:         args[0],
				Display:      a.display(),
				Debounce:     a.settings.Refresh.Debounce(),
				Telemetry:    a.tel,
				Watcher:      watcher.New(watcher.Options{}),
				SidebarWidth: a.settings.Layout.SidebarWidth,
				Styled:       true,
			})
		},
	}
}
