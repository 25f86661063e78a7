package policy_test

import (
	"errors"
	"testing"

	"github.com/justapithecus/panelrt/policy"
)

func TestStubEffectSinkRecordsWrites(t *testing.T) {
	sink := policy.NewStubEffectSink()

	if err := sink.WriteEffect(t.Context(), policy.EffectMutation, "k1", 1); err != nil {
		t.Fatalf("WriteEffect: %v", err)
	}
	if err := sink.WriteEffect(t.Context(), policy.EffectEvent, "toast", "hi"); err != nil {
		t.Fatalf("WriteEffect: %v", err)
	}

	if sink.Count() != 2 {
		t.Fatalf("expected 2 recorded effects, got %d", sink.Count())
	}
}

func TestStubEffectSinkErrorOnWrite(t *testing.T) {
	sink := policy.NewStubEffectSink()
	sink.ErrorOnWrite = errors.New("boom")

	if err := sink.WriteEffect(t.Context(), policy.EffectMutation, "k", nil); err == nil {
		t.Fatal("expected configured error")
	}
	if sink.Count() != 0 {
		t.Fatalf("expected no effects recorded on error, got %d", sink.Count())
	}
}

func TestStubEffectSinkClose(t *testing.T) {
	sink := policy.NewStubEffectSink()
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sink.Closed {
		t.Fatal("expected Closed to be true")
	}
}

func TestNewLodeEffectSinkRequiresConfig(t *testing.T) {
	if _, err := policy.NewLodeEffectSink(nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}
