// Package rtcontext implements the runtime's per-invocation context
// types: the immutable WasmContext a handler is invoked with, and the
// mutable ExecutionContext the engine accumulates effects into while
// the guest runs.
//
// Grounded on original_source/.../context.rs, adapted field-for-field
// to the tagged value.Value type and to Go's mutex-guarded-struct idiom
// in place of Rust's RwLock<T>.
package rtcontext

import (
	"sync"
	"time"

	"github.com/justapithecus/panelrt/capability"
	"github.com/justapithecus/panelrt/value"
)

// WasmContext is the immutable input to a handler invocation: the
// panel and handler identity, the state snapshot the handler may read,
// the arguments it was invoked with, its lexical scope, its granted
// capabilities, and the set of extensions/methods it may call.
type WasmContext struct {
	PanelID      string
	HandlerName  string
	State        value.Value // must be a Map
	Args         value.Value // must be a Map
	Scope        value.Value // must be a Map
	Capabilities capability.Set
	// Extensions maps extension name to its registered method names.
	// The host functions do not read it: ext_exists/ext_methods/ext_list
	// query the extension.Registry directly.
	Extensions map[string][]string
}

// NewWasmContext builds a WasmContext with empty map defaults for
// State/Args/Scope, convenient for tests and CLI construction.
func NewWasmContext(panelID, handlerName string) *WasmContext {
	return &WasmContext{
		PanelID:     panelID,
		HandlerName: handlerName,
		State:       value.Map(),
		Args:        value.Map(),
		Scope:       value.Map(),
		Extensions:  make(map[string][]string),
	}
}

// WithState returns a copy of c with State replaced.
func (c *WasmContext) WithState(state value.Value) *WasmContext {
	out := *c
	out.State = state
	return &out
}

// WithArgs returns a copy of c with Args replaced.
func (c *WasmContext) WithArgs(args value.Value) *WasmContext {
	out := *c
	out.Args = args
	return &out
}

// WithCapabilities returns a copy of c with Capabilities replaced.
func (c *WasmContext) WithCapabilities(caps capability.Set) *WasmContext {
	out := *c
	out.Capabilities = caps
	return &out
}

// MutationOperation discriminates a StateMutation's effect.
type MutationOperation uint8

const (
	MutationSet MutationOperation = iota
	MutationDelete
)

func (op MutationOperation) String() string {
	if op == MutationDelete {
		return "delete"
	}
	return "set"
}

// StateMutation records one state write a handler performed. Delete
// mutations carry a Null value; the operation tag is what the host
// applies, not the value itself.
type StateMutation struct {
	Key       string
	Operation MutationOperation
	Value     value.Value
}

// EmittedEvent records one event a handler emitted.
type EmittedEvent struct {
	Name    string
	Payload value.Value
}

// ViewCommandType discriminates a ViewCommand's kind.
type ViewCommandType uint8

const (
	ViewSetFilter ViewCommandType = iota
	ViewScrollTo
	ViewFocus
	ViewCustom
)

func (t ViewCommandType) String() string {
	switch t {
	case ViewSetFilter:
		return "set_filter"
	case ViewScrollTo:
		return "scroll_to"
	case ViewFocus:
		return "focus"
	default:
		return "custom"
	}
}

// ViewCommand records one view update a handler requested.
type ViewCommand struct {
	Type      ViewCommandType
	ComponentID string
	Args      value.Value // must be a Map
}

// SetFilterCommand constructs a SetFilter view command.
func SetFilterCommand(componentID string, args value.Value) ViewCommand {
	return ViewCommand{Type: ViewSetFilter, ComponentID: componentID, Args: args}
}

// ScrollToCommand constructs a ScrollTo view command.
func ScrollToCommand(componentID string, args value.Value) ViewCommand {
	return ViewCommand{Type: ViewScrollTo, ComponentID: componentID, Args: args}
}

// FocusCommand constructs a Focus view command.
func FocusCommand(componentID string) ViewCommand {
	return ViewCommand{Type: ViewFocus, ComponentID: componentID, Args: value.Map()}
}

// CustomCommand constructs a Custom view command.
func CustomCommand(componentID string, args value.Value) ViewCommand {
	return ViewCommand{Type: ViewCustom, ComponentID: componentID, Args: args}
}

// LogLevel mirrors the guest's log(level, msg) levels.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogMessage records one log() call a handler made.
type LogMessage struct {
	Level   LogLevel
	Message string
}

// SuspensionRecord describes an in-flight ext_suspend call: the
// extension and method targeted, the arguments passed, and the id the
// host will use to correlate the eventual resume.
type SuspensionRecord struct {
	ID        string
	Extension string
	Method    string
	Args      []value.Value
	// SuspendedAt records when the suspension was created, used by the
	// instance pool's cleanup_stale sweep.
	SuspendedAt time.Time
}

// AsyncResult is the host-provided outcome of a suspended extension
// call, injected back into the guest on resume.
type AsyncResult struct {
	Value value.Value
	Err   *string
}

// ExecutionStatus discriminates a WasmResult's outcome.
type ExecutionStatus uint8

const (
	StatusSuccess ExecutionStatus = iota
	StatusSuspended
	StatusError
)

// ExecutionContext is the mutable per-invocation accumulator the
// engine builds from a WasmContext and host functions write into. It
// is guarded by a mutex because host functions may run on the
// goroutine driving the guest's Lua coroutine, distinct from whatever
// goroutine is waiting on the result.
type ExecutionContext struct {
	mu sync.Mutex

	wasm *WasmContext

	mutations    []StateMutation
	events       []EmittedEvent
	viewCommands []ViewCommand
	logs         []LogMessage

	hostCalls int
	checker   *capability.Checker

	suspension *SuspensionRecord
}

// NewExecutionContext builds a fresh accumulator for one invocation.
func NewExecutionContext(wasm *WasmContext) *ExecutionContext {
	return &ExecutionContext{
		wasm:    wasm,
		checker: capability.NewChecker(wasm.Capabilities),
	}
}

// HasCapability reports whether the invocation was granted a
// capability satisfying required.
func (c *ExecutionContext) HasCapability(required string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checker.Check(required)
}

// Checker exposes the underlying capability.Checker for call sites
// that want the typed CanXxx predicates directly.
func (c *ExecutionContext) Checker() *capability.Checker {
	return c.checker
}

// Wasm returns the context's immutable input.
func (c *ExecutionContext) Wasm() *WasmContext { return c.wasm }

// IncrementHostCalls increments and returns the new host-call count.
func (c *ExecutionContext) IncrementHostCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostCalls++
	return c.hostCalls
}

// HostCalls returns the current host-call count.
func (c *ExecutionContext) HostCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hostCalls
}

// AddMutation records a state mutation.
func (c *ExecutionContext) AddMutation(m StateMutation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutations = append(c.mutations, m)
}

// AddEvent records an emitted event.
func (c *ExecutionContext) AddEvent(e EmittedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// AddViewCommand records a view command.
func (c *ExecutionContext) AddViewCommand(v ViewCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewCommands = append(c.viewCommands, v)
}

// AddLog records a log line.
func (c *ExecutionContext) AddLog(l LogMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, l)
}

// MutationCount returns the number of mutations recorded so far.
func (c *ExecutionContext) MutationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mutations)
}

// EventCount returns the number of events recorded so far.
func (c *ExecutionContext) EventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Suspend records a new suspension, overwriting any previous one.
func (c *ExecutionContext) Suspend(rec SuspensionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspension = &rec
}

// Suspension returns the current suspension record, or nil.
func (c *ExecutionContext) Suspension() *SuspensionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspension
}

// Effects is a read-only snapshot of everything accumulated so far,
// taken under lock. Used when building a WasmResult.
type Effects struct {
	Mutations    []StateMutation
	Events       []EmittedEvent
	ViewCommands []ViewCommand
	Logs         []LogMessage
}

// SnapshotEffects copies out the accumulated effects.
func (c *ExecutionContext) SnapshotEffects() Effects {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Effects{
		Mutations:    append([]StateMutation(nil), c.mutations...),
		Events:       append([]EmittedEvent(nil), c.events...),
		ViewCommands: append([]ViewCommand(nil), c.viewCommands...),
		Logs:         append([]LogMessage(nil), c.logs...),
	}
}

// WasmResult is the outcome of execute/resume: a status, the
// accumulated effects, and status-specific payload (return value,
// suspension details, or error).
type WasmResult struct {
	Status       ExecutionStatus
	Effects      Effects
	ReturnValue  value.Value
	Suspension   *SuspensionRecord
	Err          error
	DurationUs   int64
	CacheHit     bool
	HostCalls    int
}

// Success builds a Success result.
func Success(effects Effects, ret value.Value) WasmResult {
	return WasmResult{Status: StatusSuccess, Effects: effects, ReturnValue: ret}
}

// SuspendedResult builds a Suspended result.
func SuspendedResult(effects Effects, rec *SuspensionRecord) WasmResult {
	return WasmResult{Status: StatusSuspended, Effects: effects, Suspension: rec}
}

// ErrorResult builds an Error result, preserving partial effects.
func ErrorResult(effects Effects, err error) WasmResult {
	return WasmResult{Status: StatusError, Effects: effects, Err: err}
}
