package main

import (
	"fmt"
	"io"
	"os"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/stakekit/internal/config"
	"github.com/altuslabsxyz/stakekit/internal/di"
	"github.com/altuslabsxyz/stakekit/internal/domain/common"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/interactive"
	"github.com/altuslabsxyz/stakekit/internal/output"
	"github.com/altuslabsxyz/stakekit/internal/version"
)

// Command group IDs for organized help output.
const (
	GroupStaking = "staking"
	GroupQuery   = "query"
)

// skipSession marks commands that run without loading config or opening a
// session.
const skipSession = "skip-session"

// app holds global flags and the session shared by every command.
type app struct {
	homeDir    string
	configPath string
	logLevel   string
	noColor    bool
	keystore   string
	from       string
	dryRun     bool
	assumeYes  bool
	format     string

	// extra container options, used by tests to inject chain clients
	diOptions []di.Option

	cfg       *config.Config
	container *di.Container
	out       *output.Logger
}

// NewRootCmd creates the stakectl command tree.
func NewRootCmd(opts ...di.Option) *cobra.Command {
	a := &app{diOptions: opts}

	cmd := &cobra.Command{
		Use:   "stakectl",
		Short: "Build, estimate and submit staking transactions",
		Long: `stakectl encodes calls to the staking and fast-unstake precompiles, batches
them through Multicall3, estimates fees, and tracks submitted transactions
until they are finalized. It also follows staking balances over the
substrate storage subscription API.

Examples:
  # Bond 100 tokens, restake rewards and nominate in one transaction
  stakectl bond 100 --restake --nominate 0xabc...,0xdef...

  # Show the fee without sending
  stakectl unbond 10 --dry-run

  # Follow balances of an account
  stakectl balances 0x1234... --watch`,
		SilenceUsage:  false,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSession] == "true" {
				return nil
			}
			return a.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.container != nil {
				a.container.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.homeDir, "home", config.DefaultHomeDir(), "Directory holding stakectl.toml")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a config file (overrides --home)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&a.keystore, "keystore", "", "Keystore file of the signing account")
	cmd.PersistentFlags().StringVar(&a.from, "from", "", "Sending account (defaults to the wallet address)")
	cmd.PersistentFlags().BoolVar(&a.dryRun, "dry-run", false, "Estimate the fee without submitting")
	cmd.PersistentFlags().BoolVarP(&a.assumeYes, "yes", "y", false, "Submit without asking for confirmation")
	cmd.PersistentFlags().StringVarP(&a.format, "output", "o", "text", "Output format (text|json|yaml)")

	cmd.AddGroup(&cobra.Group{ID: GroupStaking, Title: "Staking Commands:"})
	cmd.AddGroup(&cobra.Group{ID: GroupQuery, Title: "Query Commands:"})

	for _, c := range a.stakingCommands() {
		c.GroupID = GroupStaking
		cmd.AddCommand(c)
	}
	balancesCmd := a.newBalancesCmd()
	balancesCmd.GroupID = GroupQuery
	calldataCmd := a.newCalldataCmd()
	calldataCmd.GroupID = GroupQuery

	versionCmd := version.NewCmd("stakectl")
	versionCmd.Annotations = map[string]string{skipSession: "true"}

	cmd.AddCommand(balancesCmd, calldataCmd, a.newConfigCmd(), versionCmd)
	return cmd
}

// open loads configuration and creates the session container.
// Priority: default < stakectl.toml < environment < flag
func (a *app) open(cmd *cobra.Command) error {
	loader := config.NewLoader(a.homeDir, a.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return a.fail(cmd, &common.ConfigError{Path: loader.Path(), Err: err})
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("no-color") && a.noColor {
		cfg.Log.Color = false
	}
	if flags.Changed("keystore") {
		cfg.Wallet.Keystore = a.keystore
	}
	if err := config.Validate(cfg); err != nil {
		return a.fail(cmd, &common.ConfigError{Path: loader.Path(), Err: err})
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return a.fail(cmd, err)
	}

	a.cfg = cfg
	a.out = output.NewLoggerWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
	a.out.SetNoColor(!cfg.Log.Color)
	a.out.SetVerbose(cfg.Log.Level == "debug" || cfg.Log.Level == "trace")
	a.out.SetJSONMode(a.format == "json")

	opts := []di.Option{
		di.WithLogger(logger),
		di.WithOutput(a.out),
		di.WithConfirmer(interactive.NewConfirmer(a.assumeYes)),
	}
	a.container = di.New(cfg, append(opts, a.diOptions...)...)
	return nil
}

// newLogger builds the structured logger for library components.
func newLogger(w io.Writer, cfg config.LogConfig) (log.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	return log.NewLogger(w, log.LevelOption(level), log.ColorOption(cfg.Color)), nil
}

// fail prints err the way the user should see it and returns it for the
// exit status.
func (a *app) fail(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if common.ShouldSilenceUsage(err) {
		cmd.SilenceUsage = true
	}

	errOut := cmd.ErrOrStderr()
	if errOut == nil {
		errOut = os.Stderr
	}
	fmt.Fprintf(errOut, "Error: %s\n", err)
	if msg := common.GetUserMessage(err); msg != err.Error() {
		fmt.Fprintf(errOut, "  %s\n", msg)
	}
	if hint := common.GetRecoveryHint(err); hint != "" {
		fmt.Fprintf(errOut, "\nHint: %s\n", hint)
	}
	return &reportedError{err: err}
}

// reportedError is an error that was already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// run adapts a command body so its errors are reported once.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return a.fail(cmd, fn(cmd, args))
	}
}
