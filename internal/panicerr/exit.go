package panicerr

import (
	"errors"
	"fmt"
)

// recoverExitError only gets to send when neither f returned nor a panic was
// recovered, which leaves runtime.Goexit as the only way out.
func recoverExitError(name string, errch chan<- error) {
	select {
	case errch <- exitError(name):
	default:
	}
}

type exitError string

func (name exitError) Error() string {
	if name == "" {
		return "runtime.Goexit called"
	}
	return fmt.Sprintf("%v called runtime.Goexit", string(name))
}

// IsExit returns true if err indicates a recovered runtime.Goexit.
func IsExit(err error) bool {
	var xe exitError
	return errors.As(err, &xe)
}
