// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawdis/webchat/internal/issue"
	"github.com/clawdis/webchat/internal/watch"
	"github.com/clawdis/webchat/internal/webchat"
	"github.com/clawdis/webchat/internal/workspace"
	"github.com/clawdis/webchat/pkg/types"
)

var errDisabled = errors.New("webchat is disabled")

// serveOptions carries the serve flags. onReady is called once the base URL
// is known.
type serveOptions struct {
	root    string
	port    int
	portSet bool
	watch   bool
	onReady func(*url.URL)
}

func newServeCommand(app *App) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat UI bundle until interrupted",
		Long: `Serve the chat UI bundle on 127.0.0.1 until interrupted.

The root and port default to webchat.root and webchat.port from the
configuration. Port 0 lets the operating system choose a free port; a
non-zero port is bound exactly or the command fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.portSet = cmd.Flags().Changed("port")
			return runServe(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "directory holding the chat UI bundle")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "preferred loopback port (0 picks a free one)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "report changes to the bundle while serving")

	return cmd
}

// serverConfig merges flags over the loaded configuration.
func (a *App) serverConfig(root string, port int, portSet bool) (webchat.Config, error) {
	if root == "" {
		root = a.cfg.Webchat.Root
	}
	if root == "" {
		return webchat.Config{}, issue.NewErrorContext().
			WithOperation("serve chat UI").
			WithSuggestion("Pass --root with the directory holding index.html").
			WithSuggestion("Or run: webchat config set webchat.root <dir>").
			WithIssue(issue.RootInvalidId).
			Wrap(fmt.Errorf("%w: no root configured", webchat.ErrInvalidRoot)).
			BuildError()
	}
	resolved, err := workspace.ResolvePath(root)
	if err != nil {
		return webchat.Config{}, err
	}

	if !portSet {
		port = a.cfg.Webchat.Port
	}
	listenPort := types.ListenPort(port)
	if err := listenPort.Validate(); err != nil {
		return webchat.Config{}, err
	}

	cfg := webchat.DefaultConfig()
	cfg.Root = types.FilesystemPath(resolved)
	cfg.PreferredPort = listenPort
	if d := a.cfg.Webchat.StartupTimeout; d > 0 {
		cfg.StartupTimeout = d
	}
	if d := a.cfg.Webchat.ShutdownTimeout; d > 0 {
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}

func runServe(ctx context.Context, app *App, opts *serveOptions) error {
	if !app.cfg.Webchat.Enabled {
		return app.fail(issue.NewErrorContext().
			WithOperation("serve chat UI").
			WithSuggestion("Run: webchat config set webchat.enabled true").
			Wrap(errDisabled).
			BuildError())
	}

	cfg, err := app.serverConfig(opts.root, opts.port, opts.portSet)
	if err != nil {
		return app.fail(err)
	}

	srv := webchat.New(cfg, webchat.WithLogger(app.logger))
	if err := srv.Start(ctx); err != nil {
		_ = srv.Stop()
		return app.fail(err)
	}

	base := srv.BaseURL()
	fmt.Fprintf(app.stdout, "%s webchat ready at %s\n", SuccessStyle.Render(markOK), CmdStyle.Render(base.String()))
	fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("root:"), workspace.DisplayPath(srv.Root()))
	if opts.onReady != nil {
		opts.onReady(base)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchErr := make(chan error, 1)
	if opts.watch {
		w, err := watch.New(watch.Config{
			Root:     srv.Root(),
			Logger:   app.logger,
			OnChange: bundleChangeReporter(app, srv.Root()),
		})
		if err != nil {
			_ = srv.Stop()
			return app.fail(err)
		}
		go func() { watchErr <- w.Run(watchCtx) }()
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("watching for bundle changes"))
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case <-srv.Done():
		serveErr = srv.LastError()
	case err := <-watchErr:
		serveErr = err
	}
	stopWatch()

	stopStart := time.Now()
	if err := srv.Stop(); err != nil {
		return app.fail(err)
	}
	if serveErr != nil {
		return app.fail(serveErr)
	}
	fmt.Fprintf(app.stdout, "%s webchat stopped (%s)\n", SubtitleStyle.Render(markOK), time.Since(stopStart).Round(time.Millisecond))
	return nil
}

// bundleChangeReporter prints each debounced batch of bundle changes and
// warns when the index disappeared.
func bundleChangeReporter(app *App, root string) func(context.Context, []string) error {
	return func(_ context.Context, changed []string) error {
		fmt.Fprintf(app.stdout, "%s bundle changed: %s\n", CmdStyle.Render("↻"), strings.Join(changed, ", "))
		if _, err := os.Stat(filepath.Join(root, webchat.IndexFile)); err != nil {
			fmt.Fprintf(app.stdout, "%s %s is missing; / will answer 404\n", WarningStyle.Render("!"), webchat.IndexFile)
		}
		return nil
	}
}
