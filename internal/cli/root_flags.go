package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lydakis/masq/internal/commands"
	"github.com/lydakis/masq/internal/config"
)

var (
	rootStdout   io.Writer = os.Stdout
	rootStderr   io.Writer = os.Stderr
	rootStdin    io.Reader = os.Stdin
	buildVersion           = "dev"

	stdinPipedFn = func() bool {
		fd := os.Stdin.Fd()
		return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	}
)

func init() {
	buildVersion = resolveBuildVersion(buildVersion)
}

type rootOptions struct {
	uiPort     int
	configPath string
	logLevel   string
	initConfig bool
}

func bindRootFlags(cmd *cobra.Command, opts *rootOptions) {
	flags := cmd.Flags()
	flags.IntVar(&opts.uiPort, "ui-port", config.DefaultUIPort, "port the Node or Daemon listens on for UIs")
	flags.StringVar(&opts.configPath, "config", "", "config file (default "+config.ExampleConfigPath()+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "diagnostic log level: trace, debug, info, warn, error, disabled")
	flags.BoolVar(&opts.initConfig, "init-config", false, "write the effective configuration to the config file and exit")
	flags.SetInterspersed(false)
}

func resolveBuildVersion(defaultVersion string) string {
	if defaultVersion != "" && defaultVersion != "dev" {
		return defaultVersion
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return defaultVersion
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return defaultVersion
	}
	return info.Main.Version
}

func printRootHelp(out io.Writer, cmd *cobra.Command) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  masq [GLOBAL FLAGS] <subcommand> [ARGS]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Subcommands:")
	fmt.Fprint(out, commands.Usage())
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Global flags:")
	fmt.Fprint(out, cmd.Flags().FlagUsages())
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Environment: %s overrides ui_port from the config file.\n", config.UIPortEnv)
}
