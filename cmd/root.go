package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"quadsync/internal/app"
	"quadsync/internal/config"
	"quadsync/internal/formatting"
)

// Exit codes for the quadsync process.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (pass failure, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfiguration indicates a configuration or preflight failure.
	ExitCodeConfiguration = 2
)

const versionTemplate = `{{printf "quadsync version %s\n" .Version}}`

// rootOptions holds the values bound to the root command's flags.
type rootOptions struct {
	once   bool
	watch  bool
	status bool

	configPath string
	sourceDirs []string
	targetDir  string
	lockFile   string

	debug     bool
	logLevel  string
	logFormat string

	output   string
	template string
}

// rootCmd represents the quadsync command. It has no subcommands: the mode
// is selected with --once, --watch or --status.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quadsync [--once | --watch | --status]",
		Short: "Keep Podman Quadlet units linked from source directories",
		Long: `quadsync links Quadlet .container definitions from one or more source
directories into the systemd generator directory, reloads the service
manager when links change and starts every desired service that is not
running. Links that point outside the source directories and regular files
in the target directory are never touched.

Modes:
  --watch   (default) reconcile now, then again on every change in a source
            directory and at least once per poll interval, until SIGINT or
            SIGTERM.
  --once    reconcile exactly once and exit.
  --status  print desired versus actual state without changing anything.

Configuration is read from /etc/quadsync/config.yaml (or --config or
QUADSYNC_CONFIG), then QUADSYNC_SOURCE_DIRS, QUADSYNC_TARGET_DIR and
QUADSYNC_LOCK_FILE, then the flags below.

Exit codes: 0 success, 1 error, 2 configuration or preflight failure.`,
		Args: cobra.NoArgs,
		// Errors are printed by Execute so configuration errors can be
		// shown in detail.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}
	cmd.SetVersionTemplate(versionTemplate)

	f := cmd.Flags()
	f.BoolVar(&opts.once, "once", false, "Run a single reconciliation pass and exit")
	f.BoolVar(&opts.watch, "watch", false, "Reconcile continuously until terminated (default)")
	f.BoolVar(&opts.status, "status", false, "Print a read-only status report and exit")
	cmd.MarkFlagsMutuallyExclusive("once", "watch", "status")

	f.StringVar(&opts.configPath, "config", "", "Configuration file (default "+config.DefaultConfigPath+")")
	f.StringArrayVar(&opts.sourceDirs, "source-dir", nil, "Source directory, repeatable; earlier directories win name clashes")
	f.StringVar(&opts.targetDir, "target-dir", "", "Directory to manage links in (default "+config.DefaultTargetDir+")")
	f.StringVar(&opts.lockFile, "lock-file", "", "Instance lock file (default "+config.DefaultLockPath+")")

	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	f.StringVarP(&opts.output, "output", "o", "", "Status output format: "+formatList())
	f.StringVar(&opts.template, "template", "", "Go template for --output template (sprig functions available)")

	return cmd
}

func formatList() string {
	names := make([]string, len(formatting.Formats))
	for i, f := range formatting.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func (o *rootOptions) mode() app.Mode {
	switch {
	case o.once:
		return app.ModeOnce
	case o.status:
		return app.ModeStatus
	default:
		return app.ModeWatch
	}
}

// outputOptions validates --output and --template. A template without an
// explicit format selects the template format.
func (o *rootOptions) outputOptions() (formatting.Options, error) {
	if (o.output != "" || o.template != "") && !o.status {
		return formatting.Options{}, errors.New("--output and --template require --status")
	}

	format, err := formatting.ParseFormat(o.output)
	if err != nil {
		return formatting.Options{}, err
	}
	if o.output == "" && o.template != "" {
		format = formatting.FormatTemplate
	}
	if o.template != "" && format != formatting.FormatTemplate {
		return formatting.Options{}, fmt.Errorf("--template cannot be combined with --output %s", format)
	}
	return formatting.Options{Format: format, Template: o.template}, nil
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	output, err := opts.outputOptions()
	if err != nil {
		return err
	}

	cfg := app.NewConfig(opts.mode(), opts.debug, opts.configPath)
	cfg.Overrides = config.Overrides{
		SourceDirs: opts.sourceDirs,
		TargetDir:  opts.targetDir,
		LockPath:   opts.lockFile,
		LogLevel:   opts.logLevel,
		LogFormat:  opts.logFormat,
	}
	cfg.Output = output
	cfg.Stdout = cmd.OutOrStdout()
	cfg.Stderr = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(getExitCode(err))
	}
}

func printError(w io.Writer, err error) {
	var ce *config.ConfigurationError
	if errors.As(err, &ce) {
		fmt.Fprintln(w, ce.DetailedError())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if config.IsConfigurationError(err) {
		return ExitCodeConfiguration
	}
	return ExitCodeError
}
