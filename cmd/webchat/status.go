// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clawdis/webchat/internal/control"
	"github.com/clawdis/webchat/internal/webchat"
	"github.com/clawdis/webchat/pkg/types"
)

type statusOptions struct {
	rpc  bool
	open bool
	json bool
	root string
}

func newStatusCommand(app *App) *cobra.Command {
	opts := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Answer a control request",
		Long: `Answer a control request the way the host application does.

Without flags the status request is sent. --rpc asks for the webchat server
state and --open starts the server for the main session and reports its
URL. While paused every request answers "clawdis paused" and the command
exits with code 4. A not-running server exits with code 3.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.rpc, "rpc", false, "send the rpcStatus request")
	cmd.Flags().BoolVar(&opts.open, "open", false, "send the openWebChat request")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the raw JSON response")
	cmd.Flags().StringVar(&opts.root, "root", "", "chat UI root used by --open")
	cmd.MarkFlagsMutuallyExclusive("rpc", "open")

	return cmd
}

func (o *statusOptions) request() control.Request {
	switch {
	case o.rpc:
		return control.RequestRPCStatus
	case o.open:
		return control.RequestOpenWebChat
	default:
		return control.RequestStatus
	}
}

func runStatus(ctx context.Context, app *App, opts *statusOptions) error {
	registry := webchat.NewRegistry(webchat.WithLogger(app.logger))
	defer func() { _ = registry.Close() }()

	handlerOpts := []control.HandlerOption{control.WithLogger(app.logger)}
	if opts.open {
		cfg, err := app.serverConfig(opts.root, 0, false)
		if err != nil {
			return app.fail(err)
		}
		handlerOpts = append(handlerOpts, control.WithServerConfig(cfg))
	}

	paused := app.cfg.Paused
	handler, err := control.NewHandler(registry, control.PauseFunc(func() bool { return paused }), handlerOpts...)
	if err != nil {
		return app.fail(err)
	}

	resp, err := handler.Process(ctx, opts.request())
	if err != nil {
		return app.fail(err)
	}

	if opts.json {
		data, err := resp.JSON()
		if err != nil {
			return app.fail(err)
		}
		fmt.Fprintln(app.stdout, string(data))
	} else {
		mark := SuccessStyle.Render(markOK)
		if !resp.OK {
			mark = WarningStyle.Render(markFail)
		}
		fmt.Fprintf(app.stdout, "%s %s\n", mark, resp.Message)
	}

	if resp.OK {
		return nil
	}
	code := types.ExitNotReady
	if paused {
		code = types.ExitPaused
	}
	return &ExitError{Code: code, Err: fmt.Errorf("%s: %s", opts.request(), resp.Message)}
}
