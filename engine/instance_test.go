package engine

import (
	"testing"

	"github.com/justapithecus/panelrt/cache"
	"github.com/justapithecus/panelrt/config"
	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/hostfn"
	"github.com/justapithecus/panelrt/rtcontext"
)

func testLimits() hostfn.Limits {
	return hostfn.Limits{MaxHostCalls: 100, MaxStateMutations: 10, MaxEvents: 10}
}

func compile(t *testing.T, src string) *cache.CompiledArtifact {
	t.Helper()
	c := cache.New("", 0)
	art, err := c.Compile(src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return art
}

func TestInstanceStartsIdle(t *testing.T) {
	inst := New(config.Default())
	if inst.State() != StateIdle {
		t.Fatalf("expected new instance to be idle, got %v", inst.State())
	}
	if inst.ID() == "" {
		t.Fatal("expected a non-empty instance id")
	}
}

func TestInstanceExecuteReturnsToIdle(t *testing.T) {
	inst := New(config.Default())
	art := compile(t, `return "ok"`)
	res := inst.Execute(art, rtcontext.NewWasmContext("p", "h"), extension.NewRegistry(), testLimits())
	if res.Status != rtcontext.StatusSuccess {
		t.Fatalf("expected success, got %v (err=%v)", res.Status, res.Err)
	}
	if inst.State() != StateIdle {
		t.Fatalf("expected instance to return to idle after a normal return, got %v", inst.State())
	}
	s, _ := res.ReturnValue.AsString()
	if s != "ok" {
		t.Fatalf("expected return value %q, got %q", "ok", s)
	}
}

func TestInstanceRejectsExecuteWhenNotIdle(t *testing.T) {
	inst := New(config.Default())
	inst.state = StateExecuting

	art := compile(t, `return 1`)
	res := inst.Execute(art, rtcontext.NewWasmContext("p", "h"), extension.NewRegistry(), testLimits())
	if res.Status != rtcontext.StatusError {
		t.Fatalf("expected error for a non-idle instance, got %v", res.Status)
	}
}

func TestInstanceResetClearsSuspension(t *testing.T) {
	inst := New(config.Default())
	inst.state = StateSuspended
	inst.suspensionID = "abc"

	if err := inst.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if inst.State() != StateIdle {
		t.Fatalf("expected idle after reset, got %v", inst.State())
	}
	if inst.SuspensionID() != "" {
		t.Fatalf("expected suspension id cleared, got %q", inst.SuspensionID())
	}
}

func TestInstanceResetRejectsTerminated(t *testing.T) {
	inst := New(config.Default())
	inst.Terminate()
	if err := inst.Reset(); err == nil {
		t.Fatal("expected Reset on a terminated instance to fail")
	}
}

func TestInstanceTerminateIsIdempotent(t *testing.T) {
	inst := New(config.Default())
	inst.Terminate()
	inst.Terminate()
	if inst.State() != StateTerminated {
		t.Fatalf("expected terminated, got %v", inst.State())
	}
}

func TestInstanceExecuteCompilationError(t *testing.T) {
	inst := New(config.Default())
	art := &cache.CompiledArtifact{WrappedSource: "this is not valid lua ("}
	res := inst.Execute(art, rtcontext.NewWasmContext("p", "h"), extension.NewRegistry(), testLimits())
	if res.Status != rtcontext.StatusError {
		t.Fatalf("expected compilation error, got %v", res.Status)
	}
}

func TestInstanceExecuteRuntimeErrorReturnsToIdle(t *testing.T) {
	inst := New(config.Default())
	art := compile(t, `error("boom")`)
	res := inst.Execute(art, rtcontext.NewWasmContext("p", "h"), extension.NewRegistry(), testLimits())
	if res.Status != rtcontext.StatusError {
		t.Fatalf("expected error status, got %v", res.Status)
	}
	if inst.State() != StateIdle {
		t.Fatalf("expected instance to return to idle after a runtime error, got %v", inst.State())
	}
}
