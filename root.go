package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/osmoscraft/osmosync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath    string
	flagBookmarksFile string
	flagJSON          bool
	flagVerbose       bool
	flagQuiet         bool
)

// skipConfigAnnotation marks commands that load (or create) the config file
// themselves. PersistentPreRunE still builds a CLIContext for them, with a
// nil Resolved.
const skipConfigAnnotation = "skipConfig"

// Rotated log files are capped at this size before lumberjack rolls them.
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 5
)

// CLIFlags is a snapshot of the persistent flags for one invocation.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries everything a subcommand needs. It is attached to the
// command's context by PersistentPreRunE.
type CLIContext struct {
	Flags  CLIFlags
	Logger *slog.Logger

	Env        config.EnvOverrides
	CLI        config.CLIOverrides
	ConfigPath string
	TokenPath  string

	// Cfg and Resolved are nil for commands carrying skipConfigAnnotation.
	Cfg      *config.Config
	Resolved *config.Resolved
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext installed by PersistentPreRunE.
// Panics if absent, which is a wiring bug.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		panic("BUG: CLIContext missing from command context")
	}

	return cc
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "osmosync",
		Short: "Sync browser bookmarks with a Markdown file on GitHub",
		Long: `Keep a Chromium bookmark folder and a Markdown link list in a GitHub
repository in agreement. Bookmarks that exist only in the browser are
imported into the document; the document is then mirrored onto the folder.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc := newCLIContext(cmd)

			if cmd.Annotations[skipConfigAnnotation] != "true" {
				if err := cc.loadConfig(); err != nil {
					return err
				}

				logger, err := buildLogger(cc.Resolved, cc.Flags)
				if err != nil {
					return err
				}

				cc.Logger = logger
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagBookmarksFile, "bookmarks-file", "", "path to the browser's Bookmarks file")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newConnectCmd())
	cmd.AddCommand(newDisconnectCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newTagsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newCLIContext snapshots the flags and environment for cmd. Only an
// explicitly set --bookmarks-file reaches the override chain.
func newCLIContext(cmd *cobra.Command) *CLIContext {
	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}
	if cmd.Flags().Changed("bookmarks-file") {
		v := flagBookmarksFile
		cli.BookmarksFile = &v
	}

	env := config.ReadEnvOverrides()

	return &CLIContext{
		Flags:      flags,
		Logger:     bootstrapLogger(flags),
		Env:        env,
		CLI:        cli,
		ConfigPath: config.ConfigPath(env, cli),
		TokenPath:  config.DefaultTokenPath(),
	}
}

// loadConfig resolves the effective configuration from the override chain.
func (cc *CLIContext) loadConfig() error {
	cfg, resolved, err := config.LoadResolved(cc.Env, cc.CLI, cc.TokenPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc.Cfg = cfg
	cc.Resolved = resolved

	return nil
}

// bootstrapLogger is used before the config file is read, and by commands
// that never read it. Warnings only unless --verbose or --quiet say otherwise.
func bootstrapLogger(flags CLIFlags) *slog.Logger {
	level := slog.LevelWarn

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildLogger creates the logger configured by the resolved config and CLI
// flags. The config-file level is the baseline; --verbose and --quiet win.
// With log_file set, output is also written to a rotating file.
func buildLogger(r *config.Resolved, flags CLIFlags) (*slog.Logger, error) {
	level := slog.LevelInfo
	format := config.LogFormatAuto

	var w io.Writer = os.Stderr

	if r != nil {
		level = parseLogLevel(r.LogLevel)
		format = r.LogFormat

		if r.LogFile != "" {
			w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
				Filename:   r.LogFile,
				MaxSize:    logFileMaxSizeMB,
				MaxBackups: logFileMaxBackups,
				MaxAge:     r.LogRetentionDays,
			})
		}
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case config.LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case config.LogFormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case config.LogFormatAuto, "":
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}

		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
