// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clawdis/webchat/internal/config"
	"github.com/clawdis/webchat/internal/workspace"
)

// newConfigCommand creates the `webchat config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage webchat configuration",
		Long: `Manage webchat configuration.

Configuration is stored in:
  - Linux: ~/.config/webchat/config.cue
  - macOS: ~/Library/Application Support/webchat/config.cue
  - Windows: %APPDATA%\webchat\config.cue

Every key can be overridden with a WEBCHAT_ environment variable, for
example WEBCHAT_PORT or WEBCHAT_UI_VERBOSE.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Create default configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, args[0], args[1])
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return dumpConfig(cmd.Context(), app, config.Format(format))
		},
	}
	dumpCmd.Flags().StringVarP(&format, "format", "f", string(config.FormatCUE), "output format ("+formatList()+")")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func formatList() string {
	formats := config.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

func showConfig(ctx context.Context, app *App) error {
	cfg, source, err := config.LoadWithSource(ctx, app.loadOptions())
	if err != nil {
		return app.fail(err)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)

	if source != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), source)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.stdout)

	root := cfg.Webchat.Root
	if root == "" {
		root = SubtitleStyle.Render("(not set)")
	}

	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("webchat"))
	fmt.Fprintf(app.stdout, "  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Webchat.Enabled)))
	fmt.Fprintf(app.stdout, "  root: %s\n", valueStyle.Render(root))
	fmt.Fprintf(app.stdout, "  port: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Webchat.Port)))
	fmt.Fprintf(app.stdout, "  startup_timeout: %s\n", valueStyle.Render(cfg.Webchat.StartupTimeout.String()))
	fmt.Fprintf(app.stdout, "  shutdown_timeout: %s\n", valueStyle.Render(cfg.Webchat.ShutdownTimeout.String()))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("connection_mode"), valueStyle.Render(cfg.ConnectionMode.String()))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("paused"), valueStyle.Render(fmt.Sprintf("%v", cfg.Paused)))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("workspace"), valueStyle.Render(cfg.Workspace))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(app.stdout, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
	fmt.Fprintf(app.stdout, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))

	if dir, err := workspace.ResolvePath(cfg.Workspace); err == nil {
		fmt.Fprintln(app.stdout)
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Workspace directory"), dir)
	}

	return nil
}

func initConfig(app *App, force bool) error {
	path, wrote, err := config.CreateDefaultConfig(app.loadOptions(), force)
	if err != nil {
		return app.fail(fmt.Errorf("failed to create config: %w", err))
	}

	if !wrote {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s (use --force to overwrite)\n", SubtitleStyle.Render(markOK), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render(markOK), path)
	return nil
}

func showConfigPath(app *App) error {
	path, err := config.FilePath(app.loadOptions())
	if err != nil {
		return app.fail(err)
	}

	cfgDir, err := config.ConfigDir()
	if err == nil {
		fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	}
	fmt.Fprintf(app.stdout, "Config file: %s\n", path)
	return nil
}

func setConfigValue(ctx context.Context, app *App, key, value string) error {
	cfg, err := app.strictConfig(ctx)
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return app.fail(err)
	}

	if err := config.Save(cfg, app.loadOptions()); err != nil {
		return app.fail(fmt.Errorf("failed to save config: %w", err))
	}

	fmt.Fprintf(app.stdout, "%s Set %s = %s\n", SuccessStyle.Render(markOK), key, value)
	return nil
}

func dumpConfig(ctx context.Context, app *App, format config.Format) error {
	if err := format.Validate(); err != nil {
		return app.fail(err)
	}

	cfg, err := app.strictConfig(ctx)
	if err != nil {
		return err
	}

	data, err := config.Export(cfg, format)
	if err != nil {
		return app.fail(err)
	}
	_, err = app.stdout.Write(data)
	return err
}
