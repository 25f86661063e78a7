package rterror

import (
	"strings"
	"testing"
)

func TestTimeoutError(t *testing.T) {
	err := Timeout(5000)
	if err.Code != CodeTimeout {
		t.Fatalf("expected CodeTimeout, got %s", err.Code)
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestWithLocation(t *testing.T) {
	err := ExecutionError("boom").WithLocation(10, 5)
	if err.Location == nil || err.Location.Line != 10 || err.Location.Column != 5 {
		t.Fatalf("location not attached correctly: %+v", err.Location)
	}
}

func TestPermissionDeniedIncludesCapabilityAndOperation(t *testing.T) {
	err := PermissionDenied("state:write:count", "write state.count")
	if err.Code != CodePermissionDenied {
		t.Fatalf("wrong code")
	}
	if !strings.Contains(err.Message, "state:write:count") || !strings.Contains(err.Message, "write state.count") {
		t.Fatalf("message missing capability/operation detail: %s", err.Message)
	}
}

func TestToWasmErrorPassesThrough(t *testing.T) {
	original := Timeout(1000)
	converted := ToWasmError(original)
	if converted.Code != CodeTimeout {
		t.Fatalf("expected pass-through of *WasmError")
	}
}

func TestToWasmErrorWrapsPlainError(t *testing.T) {
	plain := New(CodeInternalError, "").Error() // just to exercise Error(); unrelated to wrap test below
	_ = plain
	wrapped := ToWasmError(errString("disk full"))
	if wrapped.Code != CodeInternalError {
		t.Fatalf("expected InternalError wrap, got %s", wrapped.Code)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
