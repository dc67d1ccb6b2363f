package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/filesvc"
	"github.com/unkn0wn-root/httpoutline/internal/index"
	"github.com/unkn0wn-root/httpoutline/internal/outfmt"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/parser"
	"github.com/unkn0wn-root/httpoutline/internal/watcher"
)

type indexSummary struct {
	Indexed   int `json:"indexed"   yaml:"indexed"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Removed   int `json:"removed"   yaml:"removed"`
}

func (a *app) indexCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "index [DIR]",
		Short: "Index every request file under a directory",
		Long: heredoc.Doc(`
			Parses each .http file matched by the [index] include and exclude
			patterns and stores its outline in the workspace index. Files
			whose content did not change since the last run are skipped, and
			files that disappeared are dropped from the index.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			sum, err := a.index(cmd.Context(), root, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "indexed %d files (%d unchanged, %d removed)\n",
				sum.Indexed, sum.Unchanged, sum.Removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reindex files even when unchanged")
	return cmd
}

func (a *app) index(ctx context.Context, root string, force bool) (indexSummary, error) {
	var sum indexSummary
	abs, err := filepath.Abs(root)
	if err != nil {
		return sum, errdef.Wrap(errdef.CodeFilesystem, err, "resolve %s", root)
	}
	entries, err := filesvc.Match(abs, a.settings.Index.Include, a.settings.Index.Exclude)
	if err != nil {
		return sum, err
	}

	store, err := index.Open(a.indexPath())
	if err != nil {
		return sum, err
	}
	defer store.Close()

	bar := newIndexBar(a.stderr, len(entries))
	seen := make(map[string]bool, len(entries))
	display := a.display()
	for _, entry := range entries {
		seen[entry.Path] = true
		changed, err := a.indexFile(ctx, store, entry.Path, display, force)
		if err != nil {
			return sum, err
		}
		if changed {
			sum.Indexed++
		} else {
			sum.Unchanged++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	files, err := store.Files(ctx)
	if err != nil {
		return sum, err
	}
	prefix := abs + string(filepath.Separator)
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) || seen[f.Path] {
			continue
		}
		if err := store.Remove(ctx, f.Path); err != nil {
			return sum, err
		}
		sum.Removed++
	}
	return sum, nil
}

func (a *app) indexFile(ctx context.Context, store *index.Store, path string, display outline.Display, force bool) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errdef.Wrap(errdef.CodeFilesystem, err, "read %s", path)
	}
	fp := watcher.Sum(data)
	if !force {
		prev, err := store.Fingerprint(ctx, path)
		if err != nil {
			return false, err
		}
		if prev == fp {
			return false, nil
		}
	}
	o := outline.Build(path, parser.ParseBytes(data), display)
	if err := store.Put(ctx, path, fp, o); err != nil {
		return false, err
	}
	return true, nil
}

// newIndexBar draws to w only when it is a terminal.
func newIndexBar(w io.Writer, total int) *progressbar.ProgressBar {
	if !isTerminal(w) {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

func (a *app) searchCmd() *cobra.Command {
	var (
		limit         int
		format, query string
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search indexed groups and requests",
		Long: heredoc.Doc(`
			Matches QUERY case-insensitively against labels, names, URLs and
			methods of everything stored by "httpoutline index".
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := outfmt.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := index.Open(a.indexPath())
			if err != nil {
				return err
			}
			defer store.Close()

			hits, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if hits == nil {
				hits = []index.Hit{}
			}
			return outfmt.NewPrinter(a.stdout, f, query).Print(hits, formatHits(hits))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", index.DefaultLimit, "Maximum number of hits")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&query, "jq", "", "jq expression applied to json/yaml output")
	return cmd
}

func formatHits(hits []index.Hit) string {
	if len(hits) == 0 {
		return "no matches\n"
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "%s:%d  %s", h.Path, h.StartLine, h.Label)
		if h.Method != "" {
			fmt.Fprintf(&b, "  %s %s", h.Method, h.URL)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
