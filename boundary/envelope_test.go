package boundary

import (
	"testing"

	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/value"
)

func TestRequestWasmContextAppliesCapabilities(t *testing.T) {
	req := Request{
		PanelID:      "p1",
		HandlerName:  "onClick",
		Capabilities: []string{"state:read:count"},
	}
	ctx := req.WasmContext()
	if ctx.PanelID != "p1" || ctx.HandlerName != "onClick" {
		t.Fatalf("unexpected context identity: %+v", ctx)
	}
	if !ctx.Capabilities[0].Matches("state:read:count") {
		t.Fatalf("expected capability to be parsed, got %+v", ctx.Capabilities)
	}
}

func TestRequestAsyncResultValue(t *testing.T) {
	req := Request{AsyncValue: value.String("ok")}
	ar := req.AsyncResult()
	if ar.Err != nil {
		t.Fatalf("expected no error, got %v", *ar.Err)
	}
	s, _ := ar.Value.AsString()
	if s != "ok" {
		t.Fatalf("expected 'ok', got %q", s)
	}
}

func TestRequestAsyncResultError(t *testing.T) {
	req := Request{AsyncHasError: true, AsyncError: "boom"}
	ar := req.AsyncResult()
	if ar.Err == nil || *ar.Err != "boom" {
		t.Fatalf("expected error 'boom', got %v", ar.Err)
	}
}

func TestFromWasmResultSuccess(t *testing.T) {
	eff := rtcontext.Effects{
		Mutations: []rtcontext.StateMutation{{Key: "x", Operation: rtcontext.MutationSet, Value: value.Number(1)}},
	}
	res := rtcontext.Success(eff, value.Bool(true))
	resp := FromWasmResult(RequestExecuteHandler, res)

	if resp.Status != StatusSuccess {
		t.Fatalf("expected success, got %v", resp.Status)
	}
	if len(resp.Mutations) != 1 || resp.Mutations[0].Operation != "set" {
		t.Fatalf("unexpected mutations: %+v", resp.Mutations)
	}
}

func TestFromWasmResultError(t *testing.T) {
	res := rtcontext.ErrorResult(rtcontext.Effects{}, rterror.Timeout(5000))
	resp := FromWasmResult(RequestExecuteHandler, res)

	if resp.Status != StatusError {
		t.Fatalf("expected error, got %v", resp.Status)
	}
	if resp.ErrorCode != string(rterror.CodeTimeout) {
		t.Fatalf("expected timeout code, got %q", resp.ErrorCode)
	}
}

func TestFromWasmResultSuspended(t *testing.T) {
	rec := &rtcontext.SuspensionRecord{ID: "s1", Extension: "kv", Method: "get"}
	res := rtcontext.SuspendedResult(rtcontext.Effects{}, rec)
	resp := FromWasmResult(RequestExecuteHandler, res)

	if resp.Status != StatusSuspended {
		t.Fatalf("expected suspended, got %v", resp.Status)
	}
	if resp.Suspension == nil || resp.Suspension.ID != "s1" {
		t.Fatalf("unexpected suspension: %+v", resp.Suspension)
	}
}
