// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawdis/webchat/internal/webchat"
	"github.com/clawdis/webchat/pkg/types"
)

type (
	checkOptions struct {
		root    string
		timeout time.Duration
	}

	// checkResult is one line of the check report.
	checkResult struct {
		target string
		status int
		detail string
		ok     bool
	}
)

func newCheckCommand(app *App) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a chat UI bundle can be served",
		Long: `Start the server on a free port, wait until it is ready, then request
the index and every top-level file with GET and HEAD. Both methods must
agree on status and headers. The server is stopped before returning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "directory holding the chat UI bundle")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "how long to wait for readiness (default webchat.startup_timeout)")

	return cmd
}

func runCheck(ctx context.Context, app *App, opts *checkOptions) error {
	cfg, err := app.serverConfig(opts.root, 0, true)
	if err != nil {
		return app.fail(err)
	}
	if opts.timeout > 0 {
		cfg.StartupTimeout = opts.timeout
	}

	srv := webchat.New(cfg, webchat.WithLogger(app.logger))
	if err := srv.Start(ctx); err != nil {
		_ = srv.Stop()
		return app.fail(err)
	}
	defer func() { _ = srv.Stop() }()

	waitCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout)
	defer cancel()
	base, err := webchat.WaitForBaseURL(waitCtx, srv, webchat.DefaultPollInterval)
	if err != nil {
		return app.fail(err)
	}

	targets, err := topLevelFiles(srv.Root())
	if err != nil {
		return app.fail(err)
	}

	client := &http.Client{Timeout: cfg.StartupTimeout}
	results := []checkResult{checkTarget(ctx, client, base, "/")}
	for _, name := range targets {
		results = append(results, checkTarget(ctx, client, base, "/"+url.PathEscape(name)))
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Checking "+base.String()))
	failed := 0
	for _, r := range results {
		mark := SuccessStyle.Render(markOK)
		if !r.ok {
			mark = ErrorStyle.Render(markFail)
			failed++
		}
		fmt.Fprintf(app.stdout, "%s GET %s %d %s\n", mark, r.target, r.status, SubtitleStyle.Render(r.detail))
	}

	if failed > 0 {
		return &ExitError{
			Code: types.ExitFailure,
			Err:  fmt.Errorf("%d of %d checks failed", failed, len(results)),
		}
	}
	fmt.Fprintf(app.stdout, "%s %d checks passed\n", SuccessStyle.Render(markOK), len(results))
	return nil
}

// topLevelFiles lists non-directory entries directly under root.
func topLevelFiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// checkTarget issues GET and HEAD for target and compares them.
func checkTarget(ctx context.Context, client *http.Client, base *url.URL, target string) checkResult {
	res := checkResult{target: target}
	u := base.String() + target[1:]

	get, body, err := fetch(ctx, client, http.MethodGet, u)
	if err != nil {
		res.detail = err.Error()
		return res
	}
	res.status = get.StatusCode

	head, headBody, err := fetch(ctx, client, http.MethodHead, u)
	if err != nil {
		res.detail = "HEAD: " + err.Error()
		return res
	}

	switch {
	case get.StatusCode != http.StatusOK:
		res.detail = http.StatusText(get.StatusCode)
	case head.StatusCode != get.StatusCode:
		res.detail = fmt.Sprintf("HEAD answered %d", head.StatusCode)
	case head.Header.Get("Content-Type") != get.Header.Get("Content-Type"):
		res.detail = "HEAD Content-Type differs"
	case head.Header.Get("Content-Length") != get.Header.Get("Content-Length"):
		res.detail = "HEAD Content-Length differs"
	case len(headBody) != 0:
		res.detail = "HEAD returned a body"
	case get.ContentLength != int64(len(body)):
		res.detail = "body length differs from Content-Length"
	default:
		res.ok = true
		res.detail = fmt.Sprintf("%s, %d bytes", get.Header.Get("Content-Type"), len(body))
	}
	return res
}

func fetch(ctx context.Context, client *http.Client, method, u string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}
