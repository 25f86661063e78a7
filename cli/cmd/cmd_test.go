package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/justapithecus/panelrt/rterror"
)

func TestLoadInvocationContext_NoPath(t *testing.T) {
	wasmCtx, timeoutMs, err := loadInvocationContext("", "handler.lua")
	if err != nil {
		t.Fatalf("loadInvocationContext: %v", err)
	}
	if wasmCtx.PanelID != "cli" {
		t.Errorf("PanelID = %q, want %q", wasmCtx.PanelID, "cli")
	}
	if wasmCtx.HandlerName != "handler.lua" {
		t.Errorf("HandlerName = %q, want %q", wasmCtx.HandlerName, "handler.lua")
	}
	if len(wasmCtx.Capabilities) != 0 {
		t.Errorf("Capabilities = %v, want empty", wasmCtx.Capabilities)
	}
	if timeoutMs != 0 {
		t.Errorf("timeoutMs = %d, want 0", timeoutMs)
	}
}

func TestLoadInvocationContext_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.json")
	inv := invocationFile{
		PanelID:      "panel-1",
		HandlerName:  "on_click",
		State:        map[string]any{"count": 1.0},
		Args:         map[string]any{"x": "y"},
		Scope:        map[string]any{},
		Capabilities: []string{"state:read:*"},
		TimeoutMs:    2500,
	}
	data, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	wasmCtx, timeoutMs, err := loadInvocationContext(path, "handler.lua")
	if err != nil {
		t.Fatalf("loadInvocationContext: %v", err)
	}
	if wasmCtx.PanelID != "panel-1" {
		t.Errorf("PanelID = %q, want %q", wasmCtx.PanelID, "panel-1")
	}
	if wasmCtx.HandlerName != "on_click" {
		t.Errorf("HandlerName = %q, want %q", wasmCtx.HandlerName, "on_click")
	}
	count, ok := wasmCtx.State.Field("count")
	if !ok {
		t.Fatal("expected state.count to be set")
	}
	n, _ := count.AsNumber()
	if n != 1.0 {
		t.Errorf("state.count = %v, want 1", n)
	}
	if len(wasmCtx.Capabilities) != 1 {
		t.Errorf("Capabilities = %v, want 1 entry", wasmCtx.Capabilities)
	}
	if timeoutMs != 2500 {
		t.Errorf("timeoutMs = %d, want 2500", timeoutMs)
	}
}

func TestLoadInvocationContext_MissingFile(t *testing.T) {
	if _, _, err := loadInvocationContext(filepath.Join(t.TempDir(), "missing.json"), "handler.lua"); err == nil {
		t.Error("expected error for missing context file")
	}
}

func TestExitCodeForWasmError(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{string(rterror.CodePermissionDenied), exitPermissionDenied},
		{string(rterror.CodeTimeout), exitTimeout},
		{string(rterror.CodeInvalidArgument), exitInvalidArgument},
		{string(rterror.CodeInternalError), 1},
		{string(rterror.CodeResourceLimit), 1},
	}
	for _, tt := range tests {
		if got := exitCodeForWasmError(tt.code); got != tt.want {
			t.Errorf("exitCodeForWasmError(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
