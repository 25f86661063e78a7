package boundary

import (
	"context"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/panelrt/config"
	"github.com/justapithecus/panelrt/engine"
	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/rtcontext"
)

// Runtime is the boundary's single entry-point object: a thin
// msgpack/framing wrapper around an engine.Engine, exposing the same
// operation set as the façade so an embedder can call it either
// in-process (direct Go calls below) or across a framed stream via
// Serve.
type Runtime struct {
	engine *engine.Engine
}

// New builds a Runtime from cfg, wiring registry as the extension set
// ext_suspend may target.
func New(cfg *config.RuntimeConfig, registry *extension.Registry) (*Runtime, error) {
	e, err := engine.New(cfg, registry)
	if err != nil {
		return nil, err
	}
	return &Runtime{engine: e}, nil
}

func (rt *Runtime) ExecuteHandler(ctx context.Context, handlerSource string, wasmCtx *rtcontext.WasmContext, timeoutMs int64) (rtcontext.WasmResult, error) {
	return rt.engine.ExecuteHandler(ctx, handlerSource, wasmCtx, timeoutMs)
}

func (rt *Runtime) ExecuteCompiledHandler(ctx context.Context, wrapped []byte, wasmCtx *rtcontext.WasmContext, timeoutMs int64) (rtcontext.WasmResult, error) {
	return rt.engine.ExecuteCompiledHandler(ctx, wrapped, wasmCtx, timeoutMs)
}

func (rt *Runtime) PrecompileHandler(handlerSource string) ([]byte, error) {
	return rt.engine.PrecompileHandler(handlerSource)
}

func (rt *Runtime) ResumeHandler(ctx context.Context, suspensionID string, asyncResult rtcontext.AsyncResult, timeoutMs int64) (rtcontext.WasmResult, error) {
	return rt.engine.ResumeHandler(ctx, suspensionID, asyncResult, timeoutMs)
}

func (rt *Runtime) GetStats() engine.RuntimeStats {
	return rt.engine.GetStats()
}

func (rt *Runtime) GetMetricsText() string {
	return rt.engine.GetMetricsText()
}

func (rt *Runtime) InferCapabilities(handlerSource string) []string {
	return rt.engine.InferCapabilities(handlerSource)
}

func (rt *Runtime) Shutdown() {
	rt.engine.Shutdown()
}

// HandleRequest dispatches a decoded Request to the matching engine
// operation and builds the matching Response. This is the single
// place request kinds are interpreted, used identically by Serve and
// by anything driving the boundary without a framed stream (e.g. a
// test harness, or an in-process transport).
func (rt *Runtime) HandleRequest(ctx context.Context, req *Request) Response {
	switch req.Kind {
	case RequestExecuteHandler:
		res, err := rt.ExecuteHandler(ctx, req.HandlerSource, req.WasmContext(), req.TimeoutMs)
		if err != nil {
			return Response{Kind: req.Kind, Err: err.Error()}
		}
		return FromWasmResult(req.Kind, res)

	case RequestExecuteCompiledHandler:
		res, err := rt.ExecuteCompiledHandler(ctx, req.WrappedArtifact, req.WasmContext(), req.TimeoutMs)
		if err != nil {
			return Response{Kind: req.Kind, Err: err.Error()}
		}
		return FromWasmResult(req.Kind, res)

	case RequestPrecompileHandler:
		artifact, err := rt.PrecompileHandler(req.HandlerSource)
		if err != nil {
			return Response{Kind: req.Kind, Err: err.Error()}
		}
		return Response{Kind: req.Kind, PrecompiledArtifact: artifact}

	case RequestResumeHandler:
		res, err := rt.ResumeHandler(ctx, req.SuspensionID, req.AsyncResult(), req.TimeoutMs)
		if err != nil {
			return Response{Kind: req.Kind, Err: err.Error()}
		}
		return FromWasmResult(req.Kind, res)

	case RequestGetStats:
		s := rt.GetStats()
		return Response{Kind: req.Kind, Stats: &StatsWire{
			TotalExecutions:    s.TotalExecutions,
			ActiveInstances:    s.ActiveInstances,
			AvailableInstances: s.AvailableInstances,
			SuspendedInstances: s.SuspendedInstances,
			CacheHitRate:       s.CacheHitRate,
			AvgExecutionTimeUs: s.AvgExecutionTimeUs,
			TotalMemoryBytes:   s.TotalMemoryBytes,
		}}

	case RequestGetMetricsText:
		return Response{Kind: req.Kind, MetricsText: rt.GetMetricsText()}

	case RequestInferCapabilities:
		return Response{Kind: req.Kind, Capabilities: rt.InferCapabilities(req.HandlerSource)}

	case RequestShutdown:
		rt.Shutdown()
		return Response{Kind: req.Kind}

	default:
		return Response{Kind: req.Kind, Err: "boundary: unknown request kind"}
	}
}

// Serve reads framed requests from r and writes framed responses to w
// until r is exhausted or a fatal frame error occurs. A malformed
// payload (the frame boundary itself intact, but the msgpack body
// doesn't decode as a Request) is reported back as an error Response
// rather than terminating the stream; a truncated or oversized frame
// desynchronizes the stream and is fatal, same as ipc.FrameError's
// IsFatal split.
func (rt *Runtime) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := NewFrameDecoder(r)
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req Request
		if err := msgpack.Unmarshal(payload, &req); err != nil {
			if werr := WriteResponse(w, Response{Err: "boundary: failed to decode request: " + err.Error()}); werr != nil {
				return werr
			}
			continue
		}

		resp := rt.HandleRequest(ctx, &req)
		if err := WriteResponse(w, resp); err != nil {
			return err
		}
	}
}
