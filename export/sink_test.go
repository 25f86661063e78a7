package export

import (
	"context"
	"testing"

	"github.com/justapithecus/panelrt/config"
)

func TestNewWithNilConfigReturnsNilSink(t *testing.T) {
	sink, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil): %v", err)
	}
	if sink != nil {
		t.Fatal("expected a nil sink when no export config is supplied")
	}
}

func TestNilSinkWritesAreNoOps(t *testing.T) {
	var sink *Sink
	if err := sink.WriteExecution(context.Background(), ExecutionRecord{}); err != nil {
		t.Fatalf("expected nil-sink WriteExecution to be a no-op, got %v", err)
	}
	if err := sink.WriteArtifact(context.Background(), ArtifactRecord{}); err != nil {
		t.Fatalf("expected nil-sink WriteArtifact to be a no-op, got %v", err)
	}
}

func TestNewFSBackendBuildsDataset(t *testing.T) {
	dir := t.TempDir()
	sink, err := New(&config.ExportConfig{Backend: "fs", Path: dir, Dataset: "panelrt-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sink == nil {
		t.Fatal("expected a non-nil sink for an fs export config")
	}

	if err := sink.WriteExecution(context.Background(), ExecutionRecord{
		PanelID: "p1", HandlerName: "onClick", Outcome: "success", Day: "2026-07-31",
	}); err != nil {
		t.Fatalf("WriteExecution: %v", err)
	}
}

func TestNewS3BackendRequiresBucket(t *testing.T) {
	_, err := New(&config.ExportConfig{Backend: "s3"})
	if err == nil {
		t.Fatal("expected an error for an s3 backend without a bucket")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(&config.ExportConfig{Backend: "nope"})
	if err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
