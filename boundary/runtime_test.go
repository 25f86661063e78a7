package boundary

import (
	"bytes"
	"context"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/panelrt/config"
	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/value"
)

func encodeRawRequestForServe(req Request) ([]byte, error) {
	payload, err := msgpack.Marshal(req)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(payload)
}

func decodeResponse(payload []byte, resp *Response) error {
	return msgpack.Unmarshal(payload, resp)
}

type fakeKV struct{}

func (fakeKV) Methods() []string { return []string{"get"} }

func (fakeKV) Call(ctx context.Context, method string, args []value.Value) (value.Value, error) {
	return value.String("unused"), nil
}

func testRuntime(t *testing.T, reg *extension.Registry) *Runtime {
	t.Helper()
	cfg := config.Default()
	cfg.CacheDir = ""
	rt, err := New(cfg, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt
}

func TestHandleRequestExecuteHandlerSuccess(t *testing.T) {
	rt := testRuntime(t, nil)
	resp := rt.HandleRequest(context.Background(), &Request{
		Kind:          RequestExecuteHandler,
		HandlerSource: `return 7`,
		PanelID:       "p1",
		HandlerName:   "onClick",
	})
	if resp.Err != "" {
		t.Fatalf("unexpected request-level error: %s", resp.Err)
	}
	if resp.Status != StatusSuccess {
		t.Fatalf("expected success, got %v (%s)", resp.Status, resp.ErrorMessage)
	}
	n, ok := resp.ReturnValue.AsNumber()
	if !ok || n != 7 {
		t.Fatalf("expected return value 7, got %v", resp.ReturnValue)
	}
}

func TestHandleRequestExecuteHandlerPerCallTimeoutOverridesConfig(t *testing.T) {
	rt := testRuntime(t, nil)
	resp := rt.HandleRequest(context.Background(), &Request{
		Kind:          RequestExecuteHandler,
		HandlerSource: `while true do end`,
		PanelID:       "p1",
		HandlerName:   "onClick",
		TimeoutMs:     50,
	})
	if resp.Status != StatusError || resp.ErrorCode != "TIMEOUT" {
		t.Fatalf("expected a timeout error well under the default config timeout, got %v (%s)", resp.Status, resp.ErrorCode)
	}
}

func TestHandleRequestInferCapabilities(t *testing.T) {
	rt := testRuntime(t, nil)
	resp := rt.HandleRequest(context.Background(), &Request{
		Kind:          RequestInferCapabilities,
		HandlerSource: `emit("done", {})`,
	})
	if len(resp.Capabilities) == 0 {
		t.Fatal("expected at least one inferred capability")
	}
}

func TestHandleRequestGetStats(t *testing.T) {
	rt := testRuntime(t, nil)
	resp := rt.HandleRequest(context.Background(), &Request{Kind: RequestGetStats})
	if resp.Stats == nil {
		t.Fatal("expected a stats payload")
	}
}

func TestHandleRequestUnknownKind(t *testing.T) {
	rt := testRuntime(t, nil)
	resp := rt.HandleRequest(context.Background(), &Request{Kind: "nonsense"})
	if resp.Err == "" {
		t.Fatal("expected an error for an unknown request kind")
	}
}

func TestHandleRequestSuspendAndResume(t *testing.T) {
	reg := extension.NewRegistry()
	reg.Register("kv", fakeKV{})
	rt := testRuntime(t, reg)

	suspendResp := rt.HandleRequest(context.Background(), &Request{
		Kind:          RequestExecuteHandler,
		HandlerSource: `local v = ext.suspend("kv", "get", "x"); state.set("r", v)`,
		PanelID:       "p1",
		HandlerName:   "onClick",
		Capabilities:  []string{"ext:kv", "state:write:r"},
	})
	if suspendResp.Status != StatusSuspended {
		t.Fatalf("expected suspended, got %v (%s)", suspendResp.Status, suspendResp.ErrorMessage)
	}
	if suspendResp.Suspension == nil {
		t.Fatal("expected a suspension record")
	}

	resumeResp := rt.HandleRequest(context.Background(), &Request{
		Kind:         RequestResumeHandler,
		SuspensionID: suspendResp.Suspension.ID,
		AsyncValue:   value.String("ok"),
	})
	if resumeResp.Status != StatusSuccess {
		t.Fatalf("expected success after resume, got %v (%s)", resumeResp.Status, resumeResp.ErrorMessage)
	}
	if len(resumeResp.Mutations) != 1 || resumeResp.Mutations[0].Key != "r" {
		t.Fatalf("expected mutation of key 'r', got %+v", resumeResp.Mutations)
	}
}

func TestServeRoundTrip(t *testing.T) {
	rt := testRuntime(t, nil)

	req := Request{Kind: RequestExecuteHandler, HandlerSource: `return "hi"`, PanelID: "p1", HandlerName: "h"}
	payload, err := encodeRawRequestForServe(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out bytes.Buffer
	if err := rt.Serve(context.Background(), bytes.NewReader(payload), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	dec := NewFrameDecoder(&out)
	respPayload, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	var resp Response
	if err := decodeResponse(respPayload, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusSuccess {
		t.Fatalf("expected success, got %v", resp.Status)
	}
	s, _ := resp.ReturnValue.AsString()
	if s != "hi" {
		t.Fatalf("expected 'hi', got %q", s)
	}
}

func TestServeReportsMalformedPayloadWithoutTerminating(t *testing.T) {
	rt := testRuntime(t, nil)

	bad, _ := EncodeFrame([]byte{0xFF, 0xFF, 0xFF})
	good, _ := encodeRawRequestForServe(Request{Kind: RequestGetMetricsText})
	stream := append(bad, good...)

	var out bytes.Buffer
	if err := rt.Serve(context.Background(), bytes.NewReader(stream), &out); err != nil {
		t.Fatalf("expected Serve to tolerate a malformed payload, got %v", err)
	}

	dec := NewFrameDecoder(&out)
	first, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame (error response): %v", err)
	}
	var errResp Response
	if err := decodeResponse(first, &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Err == "" {
		t.Fatal("expected the first response to carry a decode error")
	}

	second, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame (good response): %v", err)
	}
	var goodResp Response
	if err := decodeResponse(second, &goodResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if goodResp.MetricsText == "" {
		t.Fatal("expected the stream to continue processing after a malformed frame")
	}
}
