package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/httpapi"
	"github.com/unkn0wn-root/httpoutline/internal/lsp"
	"github.com/unkn0wn-root/httpoutline/internal/session"
)

const defaultAddr = "127.0.0.1:7357"

// stdio joins the process streams into one connection for the language
// server. Closing it leaves the streams open.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

func (a *app) lspCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server on stdin/stdout",
		Long: heredoc.Doc(`
			Speaks JSON-RPC with LSP framing on stdin and stdout. Logs go to
			stderr. Besides textDocument/documentSymbol the server answers
			httpOutline/tree and httpOutline/nodeAt, and sends
			httpOutline/didChangeTree after every rebuild.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := lsp.NewServer(lsp.Options{
				Display:   a.display(),
				Debounce:  a.settings.Refresh.Debounce(),
				Telemetry: a.tel,
				Logger:    log.New(a.stderr, "httpoutline-lsp: ", log.LstdFlags),
				Version:   version,
			})
			return srv.Serve(cmd.Context(), stdio{Reader: a.stdin, Writer: a.stdout})
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	var addr, file string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the outline over HTTP and WebSocket",
		Long: heredoc.Doc(`
			Routes:
			  GET  /health
			  GET  /api/outline?path=FILE
			  GET  /api/outline/node?path=FILE&line=N&col=C
			  POST /api/events
			  GET  /api/events/ws   sends "changed" after every rebuild
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr, file)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "Listen address")
	cmd.Flags().StringVar(&file, "file", "", "Request file to activate on start")
	return cmd
}

func (a *app) serve(ctx context.Context, addr, file string) error {
	sess := a.newSession(func(err error) {
		a.logger.Printf("rebuild failed: %s", errdef.Message(err))
	})
	defer sess.Close()
	if file != "" {
		if err := sess.Handle(ctx, session.ActiveFileChanged(file)); err != nil {
			return err
		}
	}

	srv := httpapi.NewServer(sess, a.logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	a.logger.Printf("listening on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errdef.Wrap(errdef.CodeConfig, err, "listen on %s", addr)
	case <-ctx.Done():
	}

	a.logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Websocket subscribers end with the hub; Shutdown does not wait on
	// hijacked connections.
	srv.Close()
	return httpServer.Shutdown(shutdownCtx)
}
