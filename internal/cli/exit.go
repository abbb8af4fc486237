package cli

// Exit codes.
const (
	ExitOK         = 0
	ExitCommandErr = 1
	ExitUsageErr   = 2
)

// exitError carries the process exit status for an error RunE returns.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageErr(err error) error {
	return &exitError{code: ExitUsageErr, err: err}
}

func commandErr(err error) error {
	return &exitError{code: ExitCommandErr, err: err}
}
