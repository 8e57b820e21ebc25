package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"mediasort/internal/failure"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) || errors.Is(err, failure.ErrInterrupted) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process status. Interruption uses the
// conventional 128+SIGINT so wrappers can tell it apart from failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, failure.ErrInterrupted):
		return 130
	default:
		return 1
	}
}
