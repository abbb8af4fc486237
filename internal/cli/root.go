package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lydakis/masq/internal/cmdcontext"
	"github.com/lydakis/masq/internal/commands"
	"github.com/lydakis/masq/internal/config"
	"github.com/lydakis/masq/internal/logging"
	"github.com/lydakis/masq/internal/paths"
	"github.com/lydakis/masq/internal/processor"
)

var (
	newCommandFactory = func() commands.Factory {
		return commands.RealFactory{StdinPiped: stdinPipedFn()}
	}
	newProcessorFactory = func(cfg *config.Config, logger zerolog.Logger) processor.Factory {
		return processor.RealFactory{Contexts: cmdcontext.RealFactory{
			Host:            cfg.Host,
			ConnectTimeout:  cfg.ConnectTimeoutDuration(),
			TransactTimeout: cfg.TransactTimeoutDuration(),
			Logger:          logger,
		}}
	}
)

// Run is the main CLI entry point. Returns an exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand(args)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintln(rootStderr, ee.err)
		return ee.code
	}
	fmt.Fprintf(rootStderr, "masq: %v\n", err)
	return ExitUsageErr
}

func newRootCommand(rawArgs []string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "masq",
		Short:         "Command-line UI for a MASQ Node or Daemon",
		Version:       buildVersion,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, rawArgs, args)
		},
	}
	root.SetIn(rootStdin)
	root.SetOut(rootStdout)
	root.SetErr(rootStderr)
	root.SetVersionTemplate("masq {{.Version}}\n")
	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		printRootHelp(cmd.OutOrStdout(), cmd)
	})
	bindRootFlags(root, opts)
	return root
}

func runRoot(cmd *cobra.Command, opts *rootOptions, rawArgs, pieces []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return usageErr(fmt.Errorf("masq: %w", err))
	}

	logger := logging.New(rootStderr, cfg.Log).With().Str("session", uuid.NewString()).Logger()
	if opts.logLevel != "" {
		if level, err := zerolog.ParseLevel(strings.ToLower(opts.logLevel)); err == nil {
			logger = logger.Level(level)
		}
	}

	if opts.initConfig {
		return writeConfig(cmd, opts, cfg)
	}

	if len(pieces) == 0 {
		return commandErr(fmt.Errorf("No masq subcommand found in '%s'", strings.Join(append([]string{"masq"}, rawArgs...), " ")))
	}

	command, err := newCommandFactory().Make(pieces)
	if err != nil {
		return usageErr(err)
	}
	logger.Debug().Strs("pieces", pieces).Int("ui_port", cfg.UIPort).Msg("running command")

	ctx := cmd.Context()
	streams := cmdcontext.Streams{Stdin: rootStdin, Stdout: rootStdout, Stderr: rootStderr}
	proc, err := newProcessorFactory(cfg, logger).Make(ctx, uint16(cfg.UIPort), streams)
	if err != nil {
		return commandErr(err)
	}
	defer proc.Close()

	if err := proc.Process(ctx, command); err != nil {
		var serr *commands.SyntaxError
		if errors.As(err, &serr) {
			return usageErr(err)
		}
		return commandErr(err)
	}
	return nil
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("ui-port") {
		cfg.UIPort = opts.uiPort
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func writeConfig(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) error {
	path := opts.configPath
	if path == "" {
		path = paths.ConfigFile()
	}
	if err := config.WriteNew(path, cfg); err != nil {
		return commandErr(fmt.Errorf("masq: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
	return nil
}
