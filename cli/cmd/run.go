package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/panelrt/capability"
	"github.com/justapithecus/panelrt/cli/render"
	"github.com/justapithecus/panelrt/config"
	"github.com/justapithecus/panelrt/engine"
	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/value"
)

// invocationFile is the JSON shape `panelrt run`'s --context flag
// reads: the WasmContext fields a CLI invocation needs but a handler
// source file can't carry on its own.
type invocationFile struct {
	PanelID      string         `json:"panel_id"`
	HandlerName  string         `json:"handler_name"`
	State        map[string]any `json:"state"`
	Args         map[string]any `json:"args"`
	Scope        map[string]any `json:"scope"`
	Capabilities []string       `json:"capabilities"`
	// TimeoutMs, when positive, overrides the config's timeout_ms for
	// this invocation only (spec.md §4.6's per-call override).
	TimeoutMs int64 `json:"timeout_ms"`
}

// RunResponse is the JSON/table/yaml-rendered outcome of `panelrt run`.
type RunResponse struct {
	Status      string        `json:"status"`
	ReturnValue any           `json:"return_value,omitempty"`
	Mutations   int           `json:"mutations"`
	Events      int           `json:"events"`
	HostCalls   int           `json:"host_calls"`
	Error       *RunErrorBody `json:"error,omitempty"`
}

// RunErrorBody is the rendered shape of a WasmError.
type RunErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunCommand returns the `run` command.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Execute a handler against a context file and print the result",
		ArgsUsage: "<handler.lua>",
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{
				Name:  "context",
				Usage: "Path to a JSON invocation context file",
			},
		),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for run command", 1)
	}

	handlerPath := c.Args().First()
	if handlerPath == "" {
		return cli.Exit("run: missing <handler.lua> argument", exitInvalidArgument)
	}
	source, err := os.ReadFile(handlerPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitInvalidArgument)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitInvalidArgument)
	}

	wasmCtx, timeoutMs, err := loadInvocationContext(c.String("context"), handlerPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitInvalidArgument)
	}

	eng, err := engine.New(cfg, defaultRegistry())
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), 1)
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
		return cli.Exit(fmt.Sprintf("run: %v", err), 1)
	}

	resp := RunResponse{
		Mutations: len(res.Effects.Mutations),
		Events:    len(res.Effects.Events),
		HostCalls: res.HostCalls,
	}

	switch res.Status {
	case rtcontext.StatusSuccess:
		resp.Status = "success"
		resp.ReturnValue = res.ReturnValue.GoValue()
	case rtcontext.StatusSuspended:
		resp.Status = "suspended"
	case rtcontext.StatusError:
		resp.Status = "error"
		we := rterror.ToWasmError(res.Err)
		if we != nil {
			resp.Error = &RunErrorBody{Code: string(we.Code), Message: we.Message}
		} else if res.Err != nil {
			resp.Error = &RunErrorBody{Code: string(rterror.CodeInternalError), Message: res.Err.Error()}
		}
	}

	if err := r.Render(resp); err != nil {
		return err
	}

	if resp.Error != nil {
		return cli.Exit("", exitCodeForWasmError(resp.Error.Code))
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.RuntimeConfig, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadInvocationContext builds the WasmContext an invocation file
// describes, along with its optional per-call timeout_ms override (0
// if unset or no context file was given).
func loadInvocationContext(path, handlerPath string) (*rtcontext.WasmContext, int64, error) {
	wasmCtx := rtcontext.NewWasmContext("cli", handlerPath)
	if path == "" {
		return wasmCtx, 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading context file: %w", err)
	}

	var inv invocationFile
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, 0, fmt.Errorf("parsing context file: %w", err)
	}

	if inv.PanelID != "" {
		wasmCtx.PanelID = inv.PanelID
	}
	if inv.HandlerName != "" {
		wasmCtx.HandlerName = inv.HandlerName
	}
	if inv.State != nil {
		v, err := value.FromGoValue(inv.State)
		if err != nil {
			return nil, 0, fmt.Errorf("context state: %w", err)
		}
		wasmCtx.State = v
	}
	if inv.Args != nil {
		v, err := value.FromGoValue(inv.Args)
		if err != nil {
			return nil, 0, fmt.Errorf("context args: %w", err)
		}
		wasmCtx.Args = v
	}
	if inv.Scope != nil {
		v, err := value.FromGoValue(inv.Scope)
		if err != nil {
			return nil, 0, fmt.Errorf("context scope: %w", err)
		}
		wasmCtx.Scope = v
	}
	wasmCtx.Capabilities = capability.ParseSet(inv.Capabilities)

	return wasmCtx, inv.TimeoutMs, nil
}

// defaultRegistry registers the extensions a CLI-driven invocation can
// exercise without any external wiring: the http extension, which
// needs no connection setup up front.
func defaultRegistry() *extension.Registry {
	reg := extension.NewRegistry()
	reg.Register("http", extension.NewHTTPExtension(10*time.Second))
	return reg
}

// Process exit codes for `run`, mapping runtime error kinds onto
// conventional codes: 64 and 77 are the BSD sysexits EX_USAGE and
// EX_NOPERM; 124 is the code timeout(1) exits with.
const (
	exitPermissionDenied = 77
	exitTimeout          = 124
	exitInvalidArgument  = 64
)

func exitCodeForWasmError(code string) int {
	switch rterror.Code(code) {
	case rterror.CodePermissionDenied:
		return exitPermissionDenied
	case rterror.CodeTimeout:
		return exitTimeout
	case rterror.CodeInvalidArgument:
		return exitInvalidArgument
	default:
		return 1
	}
}
