// Package processor runs commands against a Context it owns.
package processor

import (
	"context"

	"github.com/lydakis/masq/internal/cmdcontext"
	"github.com/lydakis/masq/internal/commands"
)

// Processor executes commands. Close must be called once when done.
type Processor interface {
	Process(ctx context.Context, cmd commands.Command) error
	Close()
}

// Factory builds a Processor connected to a UI port.
type Factory interface {
	Make(ctx context.Context, port uint16, streams cmdcontext.Streams) (Processor, error)
}

// Real runs each command against one shared Context.
type Real struct {
	context cmdcontext.Context
}

// New wraps c. The Processor takes ownership of c.
func New(c cmdcontext.Context) *Real {
	return &Real{context: c}
}

func (p *Real) Process(ctx context.Context, cmd commands.Command) error {
	return cmd.Execute(ctx, p.context)
}

func (p *Real) Close() {
	p.context.Close()
}

// RealFactory gets its Context from Contexts.
type RealFactory struct {
	Contexts cmdcontext.Factory
}

func (f RealFactory) Make(ctx context.Context, port uint16, streams cmdcontext.Streams) (Processor, error) {
	c, err := f.Contexts.Make(ctx, port, streams)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}
