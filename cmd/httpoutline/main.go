package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/unkn0wn-root/httpoutline/internal/config"
	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/session"
	"github.com/unkn0wn-root/httpoutline/internal/telemetry"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: log.New(stderr, "httpoutline: ", log.LstdFlags),
		tel:    telemetry.Noop(),
	}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", errdef.Message(err))
		return 1
	}
	return 0
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *log.Logger

	configDir      string
	showMethod     bool
	methodPosition string
	debounce       time.Duration

	settings config.Settings
	handle   config.SettingsHandle
	tel      telemetry.Instrumenter
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "httpoutline",
		Short: "Outline .http request files",
		Long: heredoc.Doc(`
			httpoutline reads .http request files and shows their structure:
			groups of requests, each with its method, URL and source range.

			The outline is available as a text tree, JSON or YAML, through a
			terminal sidebar, a language server and an HTTP API.

			Settings are read from settings.toml (or settings.json) in the
			config directory. HTTPOUTLINE_CONFIG_DIR overrides its location.
		`),
		Example: heredoc.Doc(`
			httpoutline tree api.http
			httpoutline tree api.http --format json --jq '.nodes[].label'
			httpoutline node api.http --line 12
			httpoutline tui api.http
		`),
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", "", "Directory holding settings.toml and the index")
	flags.BoolVar(&a.showMethod, "show-method", true, "Show the HTTP method next to request names")
	flags.StringVar(&a.methodPosition, "method-position", "", "Where the method goes: prefix or suffix")
	flags.DurationVar(&a.debounce, "debounce", 0, "Delay before rebuilding after an edit")

	root.AddCommand(
		a.treeCmd(),
		a.nodeCmd(),
		a.watchCmd(),
		a.tuiCmd(),
		a.exportCmd(),
		a.lspCmd(),
		a.serveCmd(),
		a.indexCmd(),
		a.searchCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads settings, applies flag overrides and starts telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.configDir != "" {
		a.settings, a.handle, err = config.LoadSettingsFrom(a.configDir)
	} else {
		a.settings, a.handle, err = config.LoadSettings()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("show-method") {
		show := a.showMethod
		a.settings.Display.ShowMethod = &show
	}
	if flags.Changed("method-position") {
		pos := outline.MethodPosition(strings.ToLower(strings.TrimSpace(a.methodPosition)))
		if pos != outline.MethodPrefix && pos != outline.MethodSuffix {
			return errdef.New(errdef.CodeConfig, "invalid --method-position %q (expected prefix|suffix)", a.methodPosition)
		}
		a.settings.Display.MethodPosition = pos
	}
	if flags.Changed("debounce") {
		a.settings.Refresh.DebounceMS = int(a.debounce / time.Millisecond)
	}
	a.settings = a.settings.Normalise()

	cfg := telemetry.ConfigFromEnv(os.Getenv)
	cfg.Version = version
	tel, err := telemetry.New(cfg)
	if err != nil {
		a.logger.Printf("telemetry init error: %v", err)
		return nil
	}
	a.tel = tel
	return nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Printf("telemetry shutdown: %v", err)
	}
}

func (a *app) display() outline.Display {
	return a.settings.Display.OutlineDisplay()
}

func (a *app) newSession(onError func(error)) *session.Session {
	return session.New(session.Options{
		Display:   a.display(),
		Debounce:  a.settings.Refresh.Debounce(),
		OnError:   onError,
		Telemetry: a.tel,
	})
}

// load builds the outline of one file through a short-lived session.
func (a *app) load(ctx context.Context, path string) (*outline.Outline, error) {
	sess := a.newSession(nil)
	defer sess.Close()
	if err := sess.Handle(ctx, session.ActiveFileChanged(path)); err != nil {
		return nil, err
	}
	return sess.Outline(), nil
}

func (a *app) indexPath() string {
	if a.configDir != "" {
		return filepath.Join(a.configDir, "index.db")
	}
	return config.IndexPath()
}

func isTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
