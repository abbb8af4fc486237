package commands

import (
	"context"
	"fmt"

	"github.com/lydakis/masq/internal/cmdcontext"
	"github.com/lydakis/masq/internal/messages"
)

// CheckPasswordCommand asks whether Password matches the database password.
// A nil Password checks that no password has been set.
type CheckPasswordCommand struct {
	Password *string
}

func (cp CheckPasswordCommand) Execute(ctx context.Context, c cmdcontext.Context) error {
	resp, err := cmdcontext.Transact[messages.UiCheckPasswordResponse](ctx, c,
		messages.UiCheckPasswordRequest{DBPasswordOpt: cp.Password})
	if err != nil {
		return transactionError(err)
	}
	if resp.Matches {
		fmt.Fprintln(c.Stdout(), "Password is correct")
	} else {
		fmt.Fprintln(c.Stdout(), "Password is incorrect")
	}
	return nil
}

// ChangePasswordCommand replaces the database password. OldPassword is nil
// for set-password, when no password exists yet.
type ChangePasswordCommand struct {
	OldPassword *string
	NewPassword string
}

func (cp ChangePasswordCommand) Execute(ctx context.Context, c cmdcontext.Context) error {
	_, err := cmdcontext.Transact[messages.UiChangePasswordResponse](ctx, c, messages.UiChangePasswordRequest{
		OldPasswordOpt: cp.OldPassword,
		NewPassword:    cp.NewPassword,
	})
	if err != nil {
		return transactionError(err)
	}
	fmt.Fprintln(c.Stdout(), "Database password has been changed")
	return nil
}
