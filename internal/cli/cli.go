// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/counsel-tui/internal/api"
	"github.com/jeranaias/counsel-tui/internal/app"
	"github.com/jeranaias/counsel-tui/internal/auth"
	"github.com/jeranaias/counsel-tui/internal/config"
	"github.com/jeranaias/counsel-tui/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}

// =============================================================================
// RUNTIME ENVIRONMENT
// =============================================================================

// globalOptions are the persistent flags.
type globalOptions struct {
	configPath string
	apiURL     string
	noColor    bool
	jsonOut    bool
	logLevel   string
	verbose    bool
}

// env is built once per invocation before any command runs.
type env struct {
	opts    globalOptions
	cfg     *config.Config
	logger  *zap.Logger
	level   zap.AtomicLevel
	profile termenv.Profile
}

// load reads configuration, applies flag overrides, and builds the logger.
// Flags win over environment variables, which win over the config file.
func (e *env) load(cmd *cobra.Command) error {
	var cfg *config.Config
	var err error
	if e.opts.configPath != "" {
		cfg, err = config.LoadFromPath(e.opts.configPath)
		if err != nil {
			return &ConfigError{Err: err}
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return &ConfigError{Err: err}
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v (using defaults)\n", WarningStyle.Render("[WARN]"), err)
		}
	}

	if e.opts.apiURL != "" {
		cfg.API.URL = e.opts.apiURL
	}
	if e.opts.logLevel != "" {
		cfg.Log.Level = e.opts.logLevel
	}
	if e.opts.noColor {
		cfg.UI.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}
	e.cfg = cfg
	e.profile = configureColors(cfg.UI.NoColor)

	logger, level, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s logging disabled: %v\n", WarningStyle.Render("[WARN]"), err)
		logger, level = logging.Nop(), zap.NewAtomicLevel()
	}
	if e.opts.verbose {
		level.SetLevel(zap.DebugLevel)
	}
	e.logger, e.level = logger, level
	e.logger.Debug("command start",
		zap.String("command", cmd.CommandPath()),
		zap.String("api_url", cfg.API.URL))
	return nil
}

func (e *env) close() {
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// tokenSource resolves the bearer token per request: an explicit token
// (config or COUNSEL_TOKEN) first, then the token file written by login.
func (e *env) tokenSource() auth.TokenSource {
	return auth.Chain(
		auth.StaticToken(e.cfg.Auth.Token),
		auth.FileSource(e.cfg.Auth.TokenFile),
	)
}

func (e *env) client() *api.Client {
	return api.NewClient(e.cfg.API.URL, e.tokenSource()).
		WithTimeout(e.cfg.API.Timeout()).
		WithRateLimit(e.cfg.API.RequestsPerSecond, e.cfg.API.Burst).
		WithProvider(e.cfg.API.Provider).
		WithLogger(e.logger)
}

func (e *env) workspace() *app.Workspace {
	return app.New(e.client(), app.Config{
		MessageLimit: e.cfg.API.MessageLimit,
		AutoTitle:    e.cfg.UI.AutoTitle,
	}, e.logger)
}

// markdownTheme maps the ui settings to a renderer theme; "" disables
// markdown.
func (e *env) markdownTheme() string {
	switch {
	case !e.cfg.UI.RenderMarkdown:
		return ""
	case e.profile == termenv.Ascii:
		return "plain"
	default:
		return e.cfg.UI.Theme
	}
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "counsel",
		Short: "Terminal client for the counsel assistant",
		Long: `counsel talks to a counsel backend: ask questions, keep conversations
as sessions, and browse, rename, export or delete them.

Running counsel with no command opens the terminal UI.

Configuration:
  ~/.counsel/config.toml (COUNSEL_HOME moves the directory)
  COUNSEL_API_URL, COUNSEL_TOKEN, COUNSEL_TOKEN_FILE, COUNSEL_TIMEOUT,
  COUNSEL_PROVIDER, COUNSEL_LOG_LEVEL, NO_COLOR

Quick Start:
  counsel login                  # store your access token
  counsel chat                   # line-mode chat
  counsel sessions list          # list your sessions`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.opts.configPath, "config", "", "config file (default ~/.counsel/config.toml)")
	flags.StringVar(&e.opts.apiURL, "api-url", "", "backend base URL (overrides COUNSEL_API_URL)")
	flags.BoolVar(&e.opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&e.opts.jsonOut, "json", false, "machine-readable output")
	flags.StringVar(&e.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVarP(&e.opts.verbose, "verbose", "v", false, "debug logging")

	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ValidationError{Field: "flags", Reason: err.Error(), Example: cmd.UseLine()}
	})

	root.AddCommand(
		newTUICmd(e),
		newChatCmd(e),
		newSessionsCmd(e),
		newHealthCmd(e),
		newLoginCmd(e),
		newLogoutCmd(e),
		newConfigCmd(e),
		newVersionCmd(e),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		jsonMode, _ := root.PersistentFlags().GetBool("json")
		DisplayError(os.Stderr, err, jsonMode)
	}
	return GetExitCode(err)
}

// exactArgs is cobra.ExactArgs with a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return rangeArgs(n, n)
}

// rangeArgs is cobra.RangeArgs with a usage error.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= lo && len(args) <= hi {
			return nil
		}
		want := fmt.Sprintf("%d", lo)
		if hi != lo {
			want = fmt.Sprintf("%d to %d", lo, hi)
		}
		return &ValidationError{
			Field:   "arguments",
			Reason:  fmt.Sprintf("accepts %s arg(s), received %d", want, len(args)),
			Example: cmd.UseLine(),
		}
	}
}
