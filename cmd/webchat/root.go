// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// annotationSkipConfig marks commands that must work without a readable
// configuration file.
const annotationSkipConfig = "webchat/skip-config"

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the full command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "webchat",
		Short: "Serve the chat UI bundle on a loopback port",
		Long: TitleStyle.Render("webchat") + SubtitleStyle.Render(" - embedded loopback server for the chat UI") + `

webchat serves a directory of static files on 127.0.0.1 so a native window
or panel can load the chat UI from a local HTTP origin. Only GET and HEAD
are answered and nothing outside the root directory is ever served.

` + SubtitleStyle.Render("Examples:") + `
  webchat serve --root ./webchat      Serve a bundle on an ephemeral port
  webchat check --root ./webchat      Verify a bundle is servable
  webchat probe http://127.0.0.1:8080/ --expect-booted
  webchat workspace init              Create the agent workspace
  webchat config show                 Show current configuration`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if cmd.Annotations[annotationSkipConfig] != "" {
				app.logger = newLogger(app.stderr, app.verbose)
				return
			}
			app.loadConfig(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is the platform config dir)")

	rootCmd.AddCommand(
		newServeCommand(app),
		newCheckCommand(app),
		newProbeCommand(app),
		newStatusCommand(app),
		newWorkspaceCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// fang.WithVersion is required because fang overrides rootCmd.Version.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
