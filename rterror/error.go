// Package rterror implements the runtime's error taxonomy: the
// enumerated error codes returned to the guest/host boundary, rich
// location metadata for compile/execution errors, and the internal
// error type the engine uses before it's converted to the
// guest-facing form.
//
// Grounded on original_source/.../error.rs: the code list, the
// WasmError constructors, and the RuntimeError→WasmError conversion
// table are carried over field-for-field.
package rterror

import "fmt"

// Code enumerates the kinds of error the runtime can surface.
type Code string

const (
	CodeTimeout            Code = "TIMEOUT"
	CodeMemoryLimit        Code = "MEMORY_LIMIT"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeExecutionError     Code = "EXECUTION_ERROR"
	CodeCompilationError   Code = "COMPILATION_ERROR"
	CodeInvalidHandler     Code = "INVALID_HANDLER"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeResourceLimit      Code = "RESOURCE_LIMIT"
	CodeWasmError          Code = "WASM_ERROR"
	CodeSerializationError Code = "SERIALIZATION_ERROR"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeExtensionNotFound  Code = "EXTENSION_NOT_FOUND"
	CodeMethodNotFound     Code = "METHOD_NOT_FOUND"
)

// SourceLocation is a 1-indexed line/column in handler source.
type SourceLocation struct {
	Line   uint32 `msgpack:"line"`
	Column uint32 `msgpack:"column"`
}

// CodeSnippet is a multi-line block of source around an error
// location, with the offending line marked.
type CodeSnippet struct {
	Code          string `msgpack:"code"`
	HighlightLine uint32 `msgpack:"highlightLine"`
}

// WasmError is the guest-facing error shape that crosses the
// boundary: a code, a message, and optional stack/location/snippet/
// context detail.
type WasmError struct {
	Code     Code           `msgpack:"code"`
	Message  string         `msgpack:"message"`
	Stack    string         `msgpack:"stack,omitempty"`
	Location *SourceLocation `msgpack:"location,omitempty"`
	Snippet  *CodeSnippet    `msgpack:"snippet,omitempty"`
	Context  map[string]any  `msgpack:"context,omitempty"`
}

// Error implements the error interface.
func (e *WasmError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("[%s] %s at line %d:%d", e.Code, e.Message, e.Location.Line, e.Location.Column)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// New constructs a WasmError with no optional detail.
func New(code Code, message string) *WasmError {
	return &WasmError{Code: code, Message: message}
}

// Timeout constructs a Timeout error for a given budget in ms.
func Timeout(timeoutMs int64) *WasmError {
	return New(CodeTimeout, fmt.Sprintf("Handler exceeded %dms time limit", timeoutMs))
}

// MemoryLimit constructs a MemoryLimit error.
func MemoryLimit(limitBytes, usedBytes int64) *WasmError {
	return New(CodeMemoryLimit, fmt.Sprintf(
		"Handler exceeded memory limit: %d bytes used, %d bytes allowed", usedBytes, limitBytes))
}

// PermissionDenied constructs a PermissionDenied error naming the
// capability required and the operation attempted.
func PermissionDenied(capability, operation string) *WasmError {
	return New(CodePermissionDenied, fmt.Sprintf(
		"Permission denied: %s requires capability '%s'", operation, capability))
}

// ExecutionError constructs an ExecutionError.
func ExecutionError(message string) *WasmError {
	return New(CodeExecutionError, message)
}

// CompilationError constructs a CompilationError.
func CompilationError(message string) *WasmError {
	return New(CodeCompilationError, message)
}

// InvalidHandler constructs an InvalidHandler error.
func InvalidHandler(message string) *WasmError {
	return New(CodeInvalidHandler, message)
}

// InternalError constructs an InternalError.
func InternalError(message string) *WasmError {
	return New(CodeInternalError, message)
}

// ResourceLimit constructs a ResourceLimit error naming the exceeded
// resource and its used/limit counts.
func ResourceLimit(resource string, limit, used int) *WasmError {
	return New(CodeResourceLimit, fmt.Sprintf(
		"Resource limit exceeded: %s (used: %d, limit: %d)", resource, used, limit))
}

// ExtensionNotFound constructs an ExtensionNotFound error.
func ExtensionNotFound(name string) *WasmError {
	return New(CodeExtensionNotFound, fmt.Sprintf("Extension '%s' not found", name))
}

// MethodNotFound constructs a MethodNotFound error.
func MethodNotFound(extension, method string) *WasmError {
	return New(CodeMethodNotFound, fmt.Sprintf(
		"Method '%s' not found on extension '%s'", method, extension))
}

// WithStack attaches a stack trace and returns e for chaining.
func (e *WasmError) WithStack(stack string) *WasmError {
	e.Stack = stack
	return e
}

// WithLocation attaches a source location and returns e for chaining.
func (e *WasmError) WithLocation(line, column uint32) *WasmError {
	e.Location = &SourceLocation{Line: line, Column: column}
	return e
}

// WithSnippet attaches a code snippet and returns e for chaining.
func (e *WasmError) WithSnippet(code string, highlightLine uint32) *WasmError {
	e.Snippet = &CodeSnippet{Code: code, HighlightLine: highlightLine}
	return e
}

// WithContext attaches free-form debugging context and returns e for
// chaining.
func (e *WasmError) WithContext(ctx map[string]any) *WasmError {
	e.Context = ctx
	return e
}

// ToWasmError normalizes any error into the boundary-facing WasmError
// shape. A *WasmError passes through unchanged; any other error is
// wrapped as InternalError, mirroring RuntimeError::to_wasm_error's
// fallback in the original.
func ToWasmError(err error) *WasmError {
	if err == nil {
		return nil
	}
	var we *WasmError
	if AsWasmError(err, &we) {
		return we
	}
	return InternalError(err.Error())
}

// AsWasmError reports whether err is itself a *WasmError, storing it
// in target. It is a plain type assertion: unlike errors.As, it does
// not unwrap wrapped errors.
func AsWasmError(err error, target **WasmError) bool {
	if we, ok := err.(*WasmError); ok {
		*target = we
		return true
	}
	return false
}

// Small integer result codes returned to the guest by host functions,
// per SPEC_FULL.md §4.8.
const (
	ResultSuccess          int32 = 0
	ResultPermissionDenied int32 = -1
	ResultResourceLimit    int32 = -2
	ResultInvalidArgument  int32 = -3
	ResultNotFound         int32 = -4
	ResultInternalError    int32 = -5
)
