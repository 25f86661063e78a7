package boundary

import (
	"bytes"
	"io"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func encodeRawRequest(t *testing.T, req Request) []byte {
	t.Helper()
	payload, err := msgpack.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	framed, err := EncodeFrame(payload)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	return framed
}

func TestFrameRoundTrip(t *testing.T) {
	req := Request{Kind: RequestExecuteHandler, HandlerSource: "return 1", PanelID: "p1"}
	buf := bytes.NewBuffer(encodeRawRequest(t, req))

	dec := NewFrameDecoder(buf)
	got, err := dec.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if got.Kind != req.Kind || got.HandlerSource != req.HandlerSource || got.PanelID != req.PanelID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestFrameDecoderEmptyStreamReturnsEOF(t *testing.T) {
	dec := NewFrameDecoder(bytes.NewReader(nil))
	if _, err := dec.ReadFrame(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestFrameDecoderTruncatedLengthPrefix(t *testing.T) {
	dec := NewFrameDecoder(bytes.NewReader([]byte{0x00, 0x01}))
	_, err := dec.ReadFrame()
	if err == nil {
		t.Fatal("expected an error for a truncated length prefix")
	}
	var fe *FrameError
	if !errorsAs(err, &fe) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
}

func TestFrameDecoderOversizedFrame(t *testing.T) {
	buf := make([]byte, LengthPrefixSize)
	buf[0] = 0xFF // absurd length
	buf[1] = 0xFF
	buf[2] = 0xFF
	buf[3] = 0xFF
	dec := NewFrameDecoder(bytes.NewReader(buf))
	_, err := dec.ReadFrame()
	if err == nil {
		t.Fatal("expected an error for an oversized frame")
	}
}

func TestFrameDecoderPartialPayload(t *testing.T) {
	buf := make([]byte, LengthPrefixSize)
	buf[3] = 10 // claims 10 bytes of payload
	buf = append(buf, []byte("short")...)
	dec := NewFrameDecoder(bytes.NewReader(buf))
	_, err := dec.ReadFrame()
	if err == nil {
		t.Fatal("expected an error for a truncated payload")
	}
}

func TestEncodeResponseRoundTrip(t *testing.T) {
	resp := Response{Kind: RequestGetMetricsText, MetricsText: "total 1\n"}
	framed, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	dec := NewFrameDecoder(bytes.NewReader(framed))
	payload, err := dec.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	var got Response
	if err := msgpack.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.MetricsText != resp.MetricsText {
		t.Fatalf("expected metrics text %q, got %q", resp.MetricsText, got.MetricsText)
	}
}

func errorsAs(err error, target **FrameError) bool {
	fe, ok := err.(*FrameError)
	if !ok {
		return false
	}
	*target = fe
	return true
}
