package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/panelrt/cli/render"
	"github.com/justapithecus/panelrt/cli/tui"
	"github.com/justapithecus/panelrt/engine"
	"github.com/justapithecus/panelrt/rtcontext"
)

// InspectResponse is the non-TUI rendering of `panelrt inspect`: either
// a suspension the run produced, or an explanation that there is
// nothing to inspect.
type InspectResponse struct {
	Suspended  bool                   `json:"suspended"`
	Suspension *engine.SuspensionInfo `json:"suspension,omitempty"`
	Extension  string                 `json:"extension,omitempty"`
	Method     string                 `json:"method,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

// InspectCommand returns the `inspect` command: executes a handler and
// renders the suspension it produced, if any, as a deep single-entity
// view — the same data a host would use to correlate an eventual
// resume of that suspension.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Execute a handler and inspect the suspension it produces",
		ArgsUsage: "<handler.lua>",
		Flags: append(TUIReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{
				Name:  "context",
				Usage: "Path to a JSON invocation context file",
			},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	handlerPath := c.Args().First()
	if handlerPath == "" {
		return cli.Exit("inspect: missing <handler.lua> argument", exitInvalidArgument)
	}
	source, err := os.ReadFile(handlerPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect: %v", err), exitInvalidArgument)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect: %v", err), exitInvalidArgument)
	}

	wasmCtx, timeoutMs, err := loadInvocationContext(c.String("context"), handlerPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect: %v", err), exitInvalidArgument)
	}

	eng, err := engine.New(cfg, defaultRegistry())
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect: %v", err), 1)
	}
	defer eng.Shutdown()

	effectiveMs := cfg.TimeoutMs
	if timeoutMs > 0 {
		effectiveMs = timeoutMs
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(effectiveMs)*time.Millisecond*2)
	defer cancel()

	res, err := eng.ExecuteHandler(ctx, string(source), wasmCtx, timeoutMs)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect: %v", err), 1)
	}

	if res.Status != rtcontext.StatusSuspended || res.Suspension == nil {
		resp := InspectResponse{Message: "handler did not suspend; nothing to inspect"}
		return r.Render(resp)
	}

	var info *engine.SuspensionInfo
	for _, s := range eng.ListSuspensions() {
		if s.SuspensionID == res.Suspension.ID {
			s := s
			info = &s
			break
		}
	}

	if c.Bool("tui") {
		view := &tui.SuspensionView{SuspensionID: res.Suspension.ID}
		if info != nil {
			view.InstanceID = info.InstanceID
			view.SuspendedAt = info.SuspendedAt
			view.MemoryUsed = info.MemoryUsed
		}
		return r.RenderTUI("inspect_suspension", view)
	}

	resp := InspectResponse{
		Suspended:  true,
		Suspension: info,
		Extension:  res.Suspension.Extension,
		Method:     res.Suspension.Method,
	}
	return r.Render(resp)
}
