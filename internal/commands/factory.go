package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/lydakis/masq/internal/messages"
)

// Factory turns the command-line pieces after the global flags into a
// Command.
type Factory interface {
	Make(pieces []string) (Command, error)
}

// RealFactory knows every masq subcommand.
type RealFactory struct {
	// StdinPiped lets setup read values from stdin when none are given.
	StdinPiped bool
}

type builder func(f RealFactory, fs *pflag.FlagSet, args []string) (Command, error)

type commandSpec struct {
	usage string
	build builder
	flags func(fs *pflag.FlagSet)
}

var commandSpecs = map[string]commandSpec{
	"setup": {
		usage: "setup [name=value ...]",
		build: buildSetup,
	},
	"start": {
		usage: "start",
		build: noArgs(StartCommand{}),
	},
	"shutdown": {
		usage: "shutdown",
		build: noArgs(ShutdownCommand{}),
	},
	"descriptor": {
		usage: "descriptor",
		build: noArgs(DescriptorCommand{}),
	},
	"crash": {
		usage: "crash [actor] [message]",
		build: buildCrash,
	},
	"check-password": {
		usage: "check-password [password]",
		build: buildCheckPassword,
	},
	"change-password": {
		usage: "change-password --old OLD NEW",
		build: buildChangePassword,
		flags: func(fs *pflag.FlagSet) { fs.String("old", "", "current database password") },
	},
	"set-password": {
		usage: "set-password NEW",
		build: buildSetPassword,
	},
}

// Names lists the known subcommands in order.
func Names() []string {
	names := make([]string, 0, len(commandSpecs))
	for name := range commandSpecs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Usage returns the usage line for each subcommand, in Names order.
func Usage() string {
	var b strings.Builder
	for _, name := range Names() {
		fmt.Fprintf(&b, "  %s\n", commandSpecs[name].usage)
	}
	return b.String()
}

func (f RealFactory) Make(pieces []string) (Command, error) {
	if len(pieces) == 0 {
		return nil, &SyntaxError{Message: "No command given"}
	}
	name := pieces[0]
	spec, ok := commandSpecs[name]
	if !ok {
		return nil, &SyntaxError{Message: fmt.Sprintf("Unrecognized command: '%s'", name)}
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if spec.flags != nil {
		spec.flags(fs)
	}
	if err := fs.Parse(pieces[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, &SyntaxError{Message: fmt.Sprintf("Usage: masq %s", spec.usage)}
		}
		return nil, &SyntaxError{Message: fmt.Sprintf("%s: %v\nUsage: masq %s", name, err, spec.usage)}
	}
	cmd, err := spec.build(f, fs, fs.Args())
	if problem, ok := err.(usageProblem); ok {
		return nil, &SyntaxError{Message: fmt.Sprintf("%s: %s\nUsage: masq %s", name, string(problem), spec.usage)}
	}
	return cmd, err
}

// usageProblem is returned by builders and decorated with usage by Make.
type usageProblem string

func (p usageProblem) Error() string {
	return string(p)
}

func noArgs(cmd Command) builder {
	return func(_ RealFactory, _ *pflag.FlagSet, args []string) (Command, error) {
		if len(args) > 0 {
			return nil, usageProblem("takes no arguments")
		}
		return cmd, nil
	}
}

func buildSetup(f RealFactory, _ *pflag.FlagSet, args []string) (Command, error) {
	values := make([]messages.UiSetupValue, 0, len(args))
	for _, arg := range args {
		v, err := parseSetupValue(arg)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &SetupCommand{Values: values, FromStdin: len(values) == 0 && f.StdinPiped}, nil
}

func buildCrash(_ RealFactory, _ *pflag.FlagSet, args []string) (Command, error) {
	cmd := CrashCommand{Actor: defaultCrashActor, Message: defaultCrashMessage}
	switch len(args) {
	case 0:
	case 1:
		cmd.Actor = args[0]
	case 2:
		cmd.Actor, cmd.Message = args[0], args[1]
	default:
		return nil, usageProblem("too many arguments")
	}
	return cmd, nil
}

func buildCheckPassword(_ RealFactory, _ *pflag.FlagSet, args []string) (Command, error) {
	switch len(args) {
	case 0:
		return CheckPasswordCommand{}, nil
	case 1:
		return CheckPasswordCommand{Password: &args[0]}, nil
	default:
		return nil, usageProblem("too many arguments")
	}
}

func buildChangePassword(_ RealFactory, fs *pflag.FlagSet, args []string) (Command, error) {
	if !fs.Changed("old") {
		return nil, usageProblem("--old is required")
	}
	if len(args) != 1 {
		return nil, usageProblem("expected exactly one new password")
	}
	old, _ := fs.GetString("old")
	return ChangePasswordCommand{OldPassword: &old, NewPassword: args[0]}, nil
}

func buildSetPassword(_ RealFactory, _ *pflag.FlagSet, args []string) (Command, error) {
	if len(args) != 1 {
		return nil, usageProblem("expected exactly one new password")
	}
	return ChangePasswordCommand{NewPassword: args[0]}, nil
}
