package commands

import (
	"context"
	"fmt"

	"github.com/lydakis/masq/internal/cmdcontext"
	"github.com/lydakis/masq/internal/messages"
)

// StartCommand asks the Daemon to launch the Node.
type StartCommand struct{}

func (StartCommand) Execute(ctx context.Context, c cmdcontext.Context) error {
	resp, err := cmdcontext.Transact[messages.UiStartResponse](ctx, c, messages.UiStartOrder{})
	if err != nil {
		return transactionError(err)
	}
	fmt.Fprintf(c.Stdout(), "MASQNode successfully started as process %d, listening for UIs on port %d\n",
		resp.NewProcessID, resp.RedirectUIPort)
	return nil
}

// ShutdownCommand tells the Node to stop. The Node does not answer.
type ShutdownCommand struct{}

func (ShutdownCommand) Execute(ctx context.Context, c cmdcontext.Context) error {
	if err := c.Send(ctx, messages.UiShutdownOrder{}); err != nil {
		return transactionError(err)
	}
	fmt.Fprintln(c.Stdout(), "MASQNode was instructed to shut down")
	return nil
}

// DescriptorCommand prints the Node's descriptor.
type DescriptorCommand struct{}

func (DescriptorCommand) Execute(ctx context.Context, c cmdcontext.Context) error {
	resp, err := cmdcontext.Transact[messages.UiDescriptorResponse](ctx, c, messages.UiDescriptorRequest{})
	if err != nil {
		return transactionError(err)
	}
	fmt.Fprintln(c.Stdout(), resp.NodeDescriptor)
	return nil
}

const (
	defaultCrashActor   = "BlockchainBridge"
	defaultCrashMessage = "Intentional crash"
)

// CrashCommand makes an actor inside the Node panic. Only Nodes built for
// testing honour it.
type CrashCommand struct {
	Actor   string
	Message string
}

func (cc CrashCommand) Execute(ctx context.Context, c cmdcontext.Context) error {
	req := messages.UiCrashRequest{Actor: cc.Actor, PanicMessage: cc.Message}
	if err := c.Send(ctx, req); err != nil {
		return transactionError(err)
	}
	return nil
}
