package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/panelrt/config"
)

// LodeEffectSink persists streamed effects via lode, grounded on the
// teacher's Sink/StubSink split (sink.go) and on export/sink.go's
// FS-backed dataset construction — the same Hive-partitioned JSONL
// dataset shape, keyed by day and effect kind instead of by panel ID.
type LodeEffectSink struct {
	dataset lode.Dataset
}

// NewLodeEffectSink builds a LodeEffectSink from cfg. A nil cfg
// disables streaming persistence (callers should use a nil EffectSink
// in that case rather than constructing one).
func NewLodeEffectSink(cfg *config.ExportConfig) (*LodeEffectSink, error) {
	if cfg == nil {
		return nil, fmt.Errorf("policy: streaming effect sink requires an export config")
	}

	dataset := cfg.Dataset
	if dataset == "" {
		dataset = "panelrt-effects"
	}

	var factory lode.StoreFactory
	switch cfg.Backend {
	case "", "fs":
		factory = lode.NewFSFactory(cfg.Path)
	default:
		return nil, fmt.Errorf("policy: unsupported streaming sink backend %q", cfg.Backend)
	}

	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("day", "kind"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: failed to build effect dataset: %w", err)
	}

	return &LodeEffectSink{dataset: ds}, nil
}

func (s *LodeEffectSink) WriteEffect(ctx context.Context, kind EffectKind, key string, value any) error {
	row := map[string]any{
		"kind":  string(kind),
		"key":   key,
		"value": value,
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"day":   time.Now().UTC().Format("2006-01-02"),
	}
	_, err := s.dataset.Write(ctx, []any{row}, lode.Metadata{})
	return err
}

func (s *LodeEffectSink) Close() error { return nil }

// StubEffectSink is a test double recording every streamed effect
// in-memory, adapted from the teacher's StubSink (sink.go).
type StubEffectSink struct {
	mu sync.Mutex

	Written      []StubEffect
	Closed       bool
	ErrorOnWrite error
}

// StubEffect is one recorded WriteEffect call.
type StubEffect struct {
	Kind  EffectKind
	Key   string
	Value any
}

func NewStubEffectSink() *StubEffectSink {
	return &StubEffectSink{}
}

func (s *StubEffectSink) WriteEffect(_ context.Context, kind EffectKind, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.Written = append(s.Written, StubEffect{Kind: kind, Key: key, Value: value})
	return nil
}

func (s *StubEffectSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

func (s *StubEffectSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Written)
}
