// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawdis/webchat/internal/probe"
)

type probeOptions struct {
	expectBooted bool
	timeout      time.Duration
	interval     time.Duration
}

func newProbeCommand(app *App) *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe <base-url>",
		Short: "Wait until a webchat base URL answers",
		Long: `Poll a webchat base URL until it answers 200, the same way a window
controller waits before loading the UI. With --expect-booted the served
index must also contain an element with id="app" and data-booted="1".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), app, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.expectBooted, "expect-booted", false, "require the app element to be marked booted")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Second, "overall probe timeout")
	cmd.Flags().DurationVar(&opts.interval, "interval", probe.DefaultPollInterval, "poll interval")

	return cmd
}

func runProbe(ctx context.Context, app *App, rawURL string, opts *probeOptions) error {
	base, err := probe.ParseBaseURL(rawURL)
	if err != nil {
		return app.fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	client := probe.NewClient(probe.WithPollInterval(opts.interval))
	res, err := client.Probe(ctx, base, opts.expectBooted)
	if err != nil {
		return app.fail(err)
	}

	booted := "not checked"
	if opts.expectBooted {
		booted = "booted"
	}
	fmt.Fprintf(app.stdout, "%s %s answered %d in %s (%s)\n",
		SuccessStyle.Render(markOK),
		CmdStyle.Render(res.URL),
		res.Status,
		res.Elapsed.Round(time.Millisecond),
		booted,
	)
	return nil
}
