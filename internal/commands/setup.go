package commands

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/lydakis/masq/internal/cmdcontext"
	"github.com/lydakis/masq/internal/messages"
)

const setupNameWidth = 26

// SetupCommand sends configuration values to the Daemon and prints the
// configuration it reports back. With FromStdin set, values are read as
// name=value lines from the Context's stdin instead.
type SetupCommand struct {
	Values    []messages.UiSetupValue
	FromStdin bool
}

func (s *SetupCommand) Execute(ctx context.Context, c cmdcontext.Context) error {
	values := s.Values
	if s.FromStdin {
		read, err := readSetupValues(c.Stdin())
		if err != nil {
			return err
		}
		values = append(slices.Clone(values), read...)
	}

	resp, err := cmdcontext.Transact[messages.UiSetup](ctx, c, messages.UiSetup{Values: values})
	if err != nil {
		return transactionError(err)
	}

	shown := slices.Clone(resp.Values)
	slices.SortStableFunc(shown, func(a, b messages.UiSetupValue) int { return cmp.Compare(a.Name, b.Name) })

	out := c.Stdout()
	fmt.Fprintf(out, "%-*s%s\n", setupNameWidth, "NAME", "VALUE")
	for _, v := range shown {
		fmt.Fprintf(out, "%-*s%s\n", setupNameWidth, v.Name, v.Value)
	}
	return nil
}

func parseSetupValue(arg string) (messages.UiSetupValue, error) {
	name, value, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return messages.UiSetupValue{}, &SyntaxError{Message: fmt.Sprintf("setup: expected name=value, got '%s'", arg)}
	}
	return messages.NewUiSetupValue(name, strings.TrimSpace(value)), nil
}

// readSetupValues reads name=value lines. Blank lines and lines starting
// with # are skipped.
func readSetupValues(r io.Reader) ([]messages.UiSetupValue, error) {
	if r == nil {
		return nil, nil
	}
	var values []messages.UiSetupValue
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := parseSetupValue(line)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading setup values: %w", err)
	}
	return values, nil
}
