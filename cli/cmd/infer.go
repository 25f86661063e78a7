package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/panelrt/capability"
	"github.com/justapithecus/panelrt/cli/render"
)

// InferResponse is the rendered outcome of `panelrt infer`.
type InferResponse struct {
	Capabilities []string `json:"capabilities"`
}

// InferCommand returns the `infer` command: prints the lexically
// inferred capability set for a handler source file, the developer
// tool capability.Infer anticipates.
func InferCommand() *cli.Command {
	return &cli.Command{
		Name:      "infer",
		Usage:     "Print the lexically inferred capability set for a handler",
		ArgsUsage: "<handler.lua>",
		Flags:     ReadOnlyFlags(),
		Action:    inferAction,
	}
}

func inferAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for infer command", 1)
	}

	handlerPath := c.Args().First()
	if handlerPath == "" {
		return cli.Exit("infer: missing <handler.lua> argument", exitInvalidArgument)
	}
	source, err := os.ReadFile(handlerPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("infer: %v", err), exitInvalidArgument)
	}

	caps := capability.Infer(string(source))
	return r.Render(InferResponse{Capabilities: caps})
}
