package main

// Exit codes. Scripts rely on stop returning exitNothingStopped when there was nothing to do.
const (
	exitGeneral        = 1
	exitNothingStopped = 1
	exitProvisioning   = 2
	exitNotReady       = 3
)

// exitError carries a specific process exit code through cobra's RunE.
// A nil err means the command already reported everything it had to say.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }
