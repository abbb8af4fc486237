// Package commands implements the masq subcommands on top of a
// cmdcontext.Context.
package commands

import (
	"context"

	"github.com/lydakis/masq/internal/cmdcontext"
)

// Command is one parsed subcommand, ready to run.
type Command interface {
	Execute(ctx context.Context, c cmdcontext.Context) error
}

// TransactionError is what a command returns when a Context call fails.
type TransactionError struct {
	Message string
	Err     error
}

func (e *TransactionError) Error() string {
	return e.Message
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

func transactionError(err error) error {
	return &TransactionError{Message: err.Error(), Err: err}
}

// SyntaxError reports a malformed command line or command input.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string {
	return e.Message
}
