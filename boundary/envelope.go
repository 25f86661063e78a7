// Package boundary implements the runtime's external wire contract: a
// msgpack request/response envelope pair, framed with a 4-byte
// big-endian length-prefixed binary framing, and a Runtime façade that
// decodes a request, drives the engine, and encodes the response.
package boundary

import (
	"github.com/justapithecus/panelrt/capability"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/value"
)

// RequestKind discriminates a Request's operation.
type RequestKind string

const (
	RequestExecuteHandler         RequestKind = "execute_handler"
	RequestExecuteCompiledHandler RequestKind = "execute_compiled_handler"
	RequestPrecompileHandler      RequestKind = "precompile_handler"
	RequestResumeHandler          RequestKind = "resume_handler"
	RequestGetStats               RequestKind = "get_stats"
	RequestGetMetricsText         RequestKind = "get_metrics_text"
	RequestInferCapabilities      RequestKind = "infer_capabilities"
	RequestShutdown               RequestKind = "shutdown"
)

// Request is the boundary's single incoming envelope shape; only the
// fields relevant to Kind are populated.
type Request struct {
	Kind RequestKind `msgpack:"kind"`

	// execute_handler / infer_capabilities / precompile_handler
	HandlerSource string `msgpack:"handler_source,omitempty"`

	// execute_compiled_handler
	WrappedArtifact []byte `msgpack:"wrapped_artifact,omitempty"`

	// execute_handler / execute_compiled_handler
	PanelID      string       `msgpack:"panel_id,omitempty"`
	HandlerName  string       `msgpack:"handler_name,omitempty"`
	State        value.Value  `msgpack:"state,omitempty"`
	Args         value.Value  `msgpack:"args,omitempty"`
	Scope        value.Value  `msgpack:"scope,omitempty"`
	Capabilities []string     `msgpack:"capabilities,omitempty"`

	// execute_handler / execute_compiled_handler / resume_handler; a
	// per-call override that wins over the engine's configured
	// cfg.TimeoutMs whenever it is positive (spec.md §4.6).
	TimeoutMs int64 `msgpack:"timeout_ms,omitempty"`

	// resume_handler
	SuspensionID  string      `msgpack:"suspension_id,omitempty"`
	AsyncValue    value.Value `msgpack:"async_value,omitempty"`
	AsyncError    string      `msgpack:"async_error,omitempty"`
	AsyncHasError bool        `msgpack:"async_has_error,omitempty"`
}

// WasmContext builds the rtcontext.WasmContext this request describes.
func (r *Request) WasmContext() *rtcontext.WasmContext {
	ctx := rtcontext.NewWasmContext(r.PanelID, r.HandlerName)
	if !r.State.IsNull() {
		ctx.State = r.State
	}
	if !r.Args.IsNull() {
		ctx.Args = r.Args
	}
	if !r.Scope.IsNull() {
		ctx.Scope = r.Scope
	}
	ctx.Capabilities = capability.ParseSet(r.Capabilities)
	return ctx
}

// AsyncResult builds the rtcontext.AsyncResult a resume_handler request
// describes.
func (r *Request) AsyncResult() rtcontext.AsyncResult {
	if r.AsyncHasError {
		msg := r.AsyncError
		return rtcontext.AsyncResult{Err: &msg}
	}
	return rtcontext.AsyncResult{Value: r.AsyncValue}
}

// ResponseStatus mirrors rtcontext.ExecutionStatus for the subset of
// response kinds that carry an execution outcome.
type ResponseStatus string

const (
	StatusSuccess   ResponseStatus = "success"
	StatusSuspended ResponseStatus = "suspended"
	StatusError     ResponseStatus = "error"
)

// MutationWire is the wire shape of one rtcontext.StateMutation.
type MutationWire struct {
	Key       string      `msgpack:"key"`
	Operation string      `msgpack:"operation"`
	Value     value.Value `msgpack:"value"`
}

// EventWire is the wire shape of one rtcontext.EmittedEvent.
type EventWire struct {
	Name    string      `msgpack:"name"`
	Payload value.Value `msgpack:"payload"`
}

// ViewCommandWire is the wire shape of one rtcontext.ViewCommand.
type ViewCommandWire struct {
	Type        string      `msgpack:"type"`
	ComponentID string      `msgpack:"component_id"`
	Args        value.Value `msgpack:"args"`
}

// LogWire is the wire shape of one rtcontext.LogMessage.
type LogWire struct {
	Level   string `msgpack:"level"`
	Message string `msgpack:"message"`
}

// SuspensionWire is the wire shape of one rtcontext.SuspensionRecord.
type SuspensionWire struct {
	ID        string        `msgpack:"id"`
	Extension string        `msgpack:"extension"`
	Method    string        `msgpack:"method"`
	Args      []value.Value `msgpack:"args"`
}

// Response is the boundary's single outgoing envelope shape.
type Response struct {
	Kind RequestKind `msgpack:"kind"`

	// execution outcome (execute_handler / execute_compiled_handler / resume_handler)
	Status       ResponseStatus    `msgpack:"status,omitempty"`
	ReturnValue  value.Value       `msgpack:"return_value,omitempty"`
	Mutations    []MutationWire    `msgpack:"mutations,omitempty"`
	Events       []EventWire       `msgpack:"events,omitempty"`
	ViewCommands []ViewCommandWire `msgpack:"view_commands,omitempty"`
	Logs         []LogWire         `msgpack:"logs,omitempty"`
	Suspension   *SuspensionWire   `msgpack:"suspension,omitempty"`
	ErrorCode    string            `msgpack:"error_code,omitempty"`
	ErrorMessage string            `msgpack:"error_message,omitempty"`
	HostCalls    int               `msgpack:"host_calls,omitempty"`

	// precompile_handler
	PrecompiledArtifact []byte `msgpack:"precompiled_artifact,omitempty"`

	// get_stats
	Stats *StatsWire `msgpack:"stats,omitempty"`

	// get_metrics_text
	MetricsText string `msgpack:"metrics_text,omitempty"`

	// infer_capabilities
	Capabilities []string `msgpack:"capabilities,omitempty"`

	// a request-level failure (decode error, unknown suspension id, ...)
	Err string `msgpack:"err,omitempty"`
}

// StatsWire is the wire shape of engine.RuntimeStats.
type StatsWire struct {
	TotalExecutions    int64   `msgpack:"total_executions"`
	ActiveInstances     int     `msgpack:"active_instances"`
	AvailableInstances  int     `msgpack:"available_instances"`
	SuspendedInstances  int     `msgpack:"suspended_instances"`
	CacheHitRate        float64 `msgpack:"cache_hit_rate"`
	AvgExecutionTimeUs  float64 `msgpack:"avg_execution_time_us"`
	TotalMemoryBytes    int64   `msgpack:"total_memory_bytes"`
}

// FromWasmResult converts an engine execution outcome into a Response
// of the given kind.
func FromWasmResult(kind RequestKind, res rtcontext.WasmResult) Response {
	resp := Response{Kind: kind, HostCalls: res.HostCalls}

	switch res.Status {
	case rtcontext.StatusSuccess:
		resp.Status = StatusSuccess
		resp.ReturnValue = res.ReturnValue
	case rtcontext.StatusSuspended:
		resp.Status = StatusSuspended
		if res.Suspension != nil {
			resp.Suspension = &SuspensionWire{
				ID:        res.Suspension.ID,
				Extension: res.Suspension.Extension,
				Method:    res.Suspension.Method,
				Args:      res.Suspension.Args,
			}
		}
	case rtcontext.StatusError:
		resp.Status = StatusError
		if we := rterror.ToWasmError(res.Err); we != nil {
			resp.ErrorCode = string(we.Code)
			resp.ErrorMessage = we.Message
		}
	}

	for _, m := range res.Effects.Mutations {
		resp.Mutations = append(resp.Mutations, MutationWire{Key: m.Key, Operation: m.Operation.String(), Value: m.Value})
	}
	for _, ev := range res.Effects.Events {
		resp.Events = append(resp.Events, EventWire{Name: ev.Name, Payload: ev.Payload})
	}
	for _, v := range res.Effects.ViewCommands {
		resp.ViewCommands = append(resp.ViewCommands, ViewCommandWire{Type: v.Type.String(), ComponentID: v.ComponentID, Args: v.Args})
	}
	for _, l := range res.Effects.Logs {
		resp.Logs = append(resp.Logs, LogWire{Level: string(l.Level), Message: l.Message})
	}

	return resp
}
