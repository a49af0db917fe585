package cli

import (
	stdErrors "errors"

	"layered/internal/core/errors"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	// ExitCheck covers failed checks and failing external tools.
	ExitCheck = 3
)

// ExitError carries a specific process exit code. Commands return it when
// a run completed but its outcome is a failure, e.g. verify found issues.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if stdErrors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch errors.CodeOf(err) {
	case errors.CodeInvalidRoot, errors.CodeConflict:
		return ExitUsage
	case errors.CodeExternalTool:
		return ExitCheck
	}
	return ExitFailure
}
