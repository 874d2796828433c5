// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clawdis/webchat/internal/issue"
	"github.com/clawdis/webchat/internal/workspace"
)

func newWorkspaceCommand(app *App) *cobra.Command {
	wsCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage the agent workspace",
		Long: `Manage the agent workspace directory.

DIR defaults to the configured workspace (` + "`workspace`" + ` key, "~/clawd").`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	wsCmd.AddCommand(&cobra.Command{
		Use:   "init [DIR]",
		Short: "Create the workspace and its AGENTS.md",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return initWorkspace(app, args)
		},
	})

	wsCmd.AddCommand(&cobra.Command{
		Use:   "path [DIR]",
		Short: "Show the resolved workspace path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir, err := app.workspaceDir(args)
			if err != nil {
				return app.fail(err)
			}
			fmt.Fprintf(app.stdout, "Workspace: %s\n", workspace.DisplayPath(dir))
			fmt.Fprintf(app.stdout, "Directory: %s\n", dir)
			fmt.Fprintf(app.stdout, "Agents file: %s\n", workspace.AgentsPath(dir))
			return nil
		},
	})

	return wsCmd
}

func (a *App) workspaceDir(args []string) (string, error) {
	raw := a.cfg.Workspace
	if len(args) > 0 {
		raw = args[0]
	}
	return workspace.ResolvePath(raw)
}

func initWorkspace(app *App, args []string) error {
	dir, err := app.workspaceDir(args)
	if err != nil {
		return app.fail(err)
	}

	_, statErr := os.Stat(workspace.AgentsPath(dir))
	existed := statErr == nil

	path, err := workspace.Bootstrap(dir)
	if err != nil {
		return app.fail(issue.NewErrorContext().
			WithOperation("prepare agent workspace").
			WithResource(workspace.DisplayPath(dir)).
			WithIssue(issue.WorkspaceBootstrapFailedId).
			Wrap(err).
			BuildError())
	}

	if existed {
		fmt.Fprintf(app.stdout, "%s Workspace already initialized at %s\n", SubtitleStyle.Render(markOK), workspace.DisplayPath(dir))
	} else {
		fmt.Fprintf(app.stdout, "%s Workspace ready at %s\n", SuccessStyle.Render(markOK), workspace.DisplayPath(dir))
	}
	fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("agents file:"), path)
	return nil
}
