// Package main provides the panelrt CLI entrypoint.
//
// The CLI drives the Lua handler runtime directly: `run` executes a
// handler once, `stats` reports a fresh runtime's health snapshot,
// `inspect` surfaces a suspension a handler produced, and `infer`
// prints a handler's lexically inferred capability set.
//
// Exit codes for `run`/`inspect`:
//   - 0: success
//   - 1: internal/unclassified error
//   - 64: invalid argument (EX_USAGE)
//   - 77: permission denied (EX_NOPERM)
//   - 124: timeout
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/panelrt/cli/cmd"
	"github.com/justapithecus/panelrt/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "panelrt",
		Usage:          "panelrt handler runtime CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.StatsCommand(),
			cmd.InspectCommand(),
			cmd.InferCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// Only print if there's a real message (not just "exit status N")
		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
