// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/clawdis/webchat/internal/config"
	"github.com/clawdis/webchat/internal/issue"
	"github.com/clawdis/webchat/internal/probe"
	"github.com/clawdis/webchat/internal/webchat"
	"github.com/clawdis/webchat/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every Cobra handler
	// receives an App and reads configuration and writers through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// Set by the root command's persistent flags.
		verbose    bool
		configPath string

		// Loaded once per invocation by loadConfig.
		cfg    *config.Config
		logger *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		cfg:    config.DefaultConfig(),
		logger: newLogger(deps.Stderr, false),
	}
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "webchat",
		ReportTimestamp: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.configPath}
}

// loadConfig reads configuration for commands that can run on defaults. A
// load failure is reported as a warning and defaults are used instead.
func (a *App) loadConfig(ctx context.Context) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg
	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}
	a.logger = newLogger(a.stderr, a.verbose)
}

// strictConfig loads configuration and fails on any error.
func (a *App) strictConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, a.fail(err)
	}
	return cfg, nil
}

// glamourStyle maps the configured color scheme onto a glamour style name.
func (a *App) glamourStyle() string {
	switch a.cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// fail renders the catalog entry matching err on stderr and wraps err in an
// ExitError carrying the matching exit code.
func (a *App) fail(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	id, code := classifyError(err)
	if id != 0 {
		if rendered, renderErr := issue.Get(id).Render(a.glamourStyle()); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	return &ExitError{Code: code, Err: err}
}

// classifyError maps a domain error onto an issue and exit code.
func classifyError(err error) (issue.Id, types.ExitCode) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.IssueId != 0 {
		return ae.IssueId, types.ExitFailure
	}

	switch {
	case errors.Is(err, webchat.ErrInvalidRoot):
		return issue.RootInvalidId, types.ExitFailure
	case errors.Is(err, webchat.ErrPortUnavailable), errors.Is(err, webchat.ErrPermissionDenied):
		return issue.PortUnavailableId, types.ExitFailure
	case errors.Is(err, webchat.ErrNotReady),
		errors.Is(err, probe.ErrUnreachable),
		errors.Is(err, probe.ErrNotBooted),
		errors.Is(err, context.DeadlineExceeded):
		return issue.ServerNotReadyId, types.ExitNotReady
	default:
		return 0, types.ExitFailure
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render their suggestions; verbose mode adds the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
