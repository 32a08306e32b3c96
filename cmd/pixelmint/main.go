package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"pixelmint/internal/publish"
)

// Process exit status by publication failure kind.
const (
	exitFailure       = 1
	exitAuthorization = 2
	exitPublish       = 3
	exitCommit        = 4
	exitEncoding      = 5
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, publish.ErrAuthorization):
		return exitAuthorization
	case errors.Is(err, publish.ErrPublish):
		return exitPublish
	case errors.Is(err, publish.ErrCommit):
		return exitCommit
	case errors.Is(err, publish.ErrEncoding):
		return exitEncoding
	default:
		return exitFailure
	}
}
