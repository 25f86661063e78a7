// Package engine implements the handler execution engine: the
// per-instance Lua state machine, the instance pool that reuses them,
// and the façade that ties compilation, pooling, timeouts, and
// metrics together into execute/resume/precompile/stats operations.
//
// Grounded on original_source/.../engine/{instance,pool,mod}.rs for
// the state machine edges, acquire/release bookkeeping, and the
// timeout-as-error-result façade control flow. Unlike the original —
// whose execute_internal/resume_internal are explicitly simulated
// stand-ins for a WasmEdge/QuickJS integration that was never wired up
// — this engine runs real Lua via gopher-lua, including real
// suspend/resume through its coroutines.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/justapithecus/panelrt/cache"
	"github.com/justapithecus/panelrt/config"
	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/hostfn"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/value"
)

// State is a WASM instance's lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateExecuting
	StateSuspended
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StateSuspended:
		return "suspended"
	default:
		return "terminated"
	}
}

// Instance is a single reusable Lua interpreter. Every invocation runs
// the wrapped handler source on a fresh coroutine thread off the
// instance's persistent base state, so host-function closures and any
// pending suspension are scoped to that one invocation.
type Instance struct {
	mu sync.Mutex

	id    string
	state State

	createdAt      time.Time
	executionCount uint64
	memoryUsed     int64
	memoryPeak     int64

	base *lua.LState
	co   *lua.LState
	ec   *rtcontext.ExecutionContext

	suspensionID string
	suspendedAt  time.Time
}

// New creates a fresh, idle instance.
func New(_ *config.RuntimeConfig) *Instance {
	return &Instance{
		id:        uuid.NewString(),
		state:     StateIdle,
		createdAt: time.Now(),
		base:      lua.NewState(),
	}
}

func (inst *Instance) ID() string { return inst.id }

func (inst *Instance) State() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

// MemoryUsed approximates this instance's footprint. gopher-lua has no
// exposed per-state memory accounting (there is no linear memory the
// way a real WASM sandbox has one to measure), so this tracks the
// wrapped source size of the last artifact executed as a rough proxy
// — good enough for the pool's total_memory_bytes stat, not a real
// resource-limiting signal.
func (inst *Instance) MemoryUsed() int64 {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.memoryUsed
}

func (inst *Instance) MemoryPeak() int64 {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.memoryPeak
}

func (inst *Instance) SuspensionID() string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.suspensionID
}

func (inst *Instance) SuspendedAt() time.Time {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.suspendedAt
}

// Reset returns a non-terminated instance to Idle, dropping any
// coroutine/context left over from its previous invocation.
func (inst *Instance) Reset() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state == StateTerminated {
		return fmt.Errorf("engine: cannot reset terminated instance %s", inst.id)
	}
	inst.state = StateIdle
	inst.co = nil
	inst.ec = nil
	inst.suspensionID = ""
	inst.memoryUsed = 0
	return nil
}

// Terminate tears the instance down permanently.
func (inst *Instance) Terminate() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state == StateTerminated {
		return
	}
	inst.state = StateTerminated
	inst.co = nil
	inst.ec = nil
	if inst.base != nil {
		inst.base.Close()
	}
}

// Execute runs a compiled artifact against wasmCtx to completion,
// suspension, or error.
func (inst *Instance) Execute(artifact *cache.CompiledArtifact, wasmCtx *rtcontext.WasmContext, registry *extension.Registry, limits hostfn.Limits) rtcontext.WasmResult {
	inst.mu.Lock()
	if inst.state != StateIdle {
		inst.mu.Unlock()
		return rtcontext.ErrorResult(rtcontext.Effects{}, rterror.New(rterror.CodeInternalError,
			fmt.Sprintf("instance not idle: %s", inst.state)))
	}
	inst.state = StateExecuting
	inst.executionCount++
	inst.memoryUsed = int64(len(artifact.WrappedSource))
	if inst.memoryUsed > inst.memoryPeak {
		inst.memoryPeak = inst.memoryUsed
	}

	ec := rtcontext.NewExecutionContext(wasmCtx)
	co := inst.base.NewThread()
	hostfn.Install(co, ec, registry, limits)
	inst.co = co
	inst.ec = ec
	inst.mu.Unlock()

	fn, err := co.LoadString(artifact.WrappedSource)
	if err != nil {
		return inst.finish(rtcontext.ErrorResult(ec.SnapshotEffects(), rterror.CompilationError(err.Error())), ec)
	}

	st, values, resumeErr := inst.base.Resume(co, fn)
	return inst.handleResume(st, values, resumeErr, ec)
}

// Resume continues a suspended instance with the host-provided async
// result.
func (inst *Instance) Resume(asyncResult rtcontext.AsyncResult) rtcontext.WasmResult {
	inst.mu.Lock()
	if inst.state != StateSuspended {
		inst.mu.Unlock()
		return rtcontext.ErrorResult(rtcontext.Effects{}, rterror.New(rterror.CodeInternalError,
			fmt.Sprintf("instance not suspended: %s", inst.state)))
	}
	inst.state = StateExecuting
	co := inst.co
	ec := inst.ec
	inst.suspensionID = ""
	inst.mu.Unlock()

	resultVal, code := hostfn.AsyncResultToLua(co, asyncResult)
	st, values, resumeErr := inst.base.Resume(co, nil, resultVal, lua.LNumber(code))
	return inst.handleResume(st, values, resumeErr, ec)
}

func (inst *Instance) handleResume(st lua.ResumeState, values []lua.LValue, resumeErr error, ec *rtcontext.ExecutionContext) rtcontext.WasmResult {
	eff := ec.SnapshotEffects()

	switch st {
	case lua.ResumeYield:
		rec := ec.Suspension()
		inst.mu.Lock()
		inst.state = StateSuspended
		inst.suspendedAt = time.Now()
		if rec != nil {
			inst.suspensionID = rec.ID
		}
		inst.mu.Unlock()
		res := rtcontext.SuspendedResult(eff, rec)
		res.HostCalls = ec.HostCalls()
		return res

	case lua.ResumeError:
		inst.mu.Lock()
		inst.state = StateIdle
		inst.co = nil
		inst.mu.Unlock()
		msg := "handler execution failed"
		if resumeErr != nil {
			msg = resumeErr.Error()
		}
		res := inst.finish(rtcontext.ErrorResult(eff, rterror.ExecutionError(msg)), ec)
		return res

	default: // lua.ResumeOK
		inst.mu.Lock()
		inst.state = StateIdle
		inst.co = nil
		inst.mu.Unlock()
		ret := firstReturnValue(values)
		res := rtcontext.Success(eff, ret)
		return inst.finish(res, ec)
	}
}

func (inst *Instance) finish(res rtcontext.WasmResult, ec *rtcontext.ExecutionContext) rtcontext.WasmResult {
	res.HostCalls = ec.HostCalls()
	return res
}

// firstReturnValue converts a handler's top-level Lua return value
// (if any) into the runtime's tagged value, defaulting to Null for a
// handler that returns nothing.
func firstReturnValue(values []lua.LValue) value.Value {
	if len(values) == 0 {
		return value.Null
	}
	return hostfn.ValueFromLua(values[0])
}
