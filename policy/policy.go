// Package policy governs what happens when a handler invocation's
// mutation or event accumulator is already at its per-invocation cap
// (config.RuntimeConfig.MaxStateMutations / MaxEvents).
//
// Adapted from the teacher's ingestion-pipeline Policy interface
// (IngestEvent/IngestArtifactChunk/Flush/Close/Stats, policy.go and
// strict.go/buffered.go/streaming.go in this package): the same
// strict/buffered/streaming shape, retargeted from "should this event
// envelope be persisted or dropped" to "should this mutation or event
// be admitted into the handler's effect accumulator, buffered for
// diagnostics only, or rejected outright".
package policy

import "sync"

// Verdict is the admission decision Admit returns for a single
// mutation or event against the invocation's cap.
type Verdict int

const (
	// Proceed admits the effect: the caller should record it in the
	// execution context and return success to the Lua caller.
	Proceed Verdict = iota
	// Overflow means the cap is exceeded but the policy still wants
	// the attempt recorded for diagnostics; the effect itself is
	// dropped from the final result, but the host call still returns
	// success to the Lua caller (the handler is not interrupted).
	Overflow
	// Reject means the call must fail immediately with ResourceLimit.
	Reject
)

// EffectKind distinguishes state mutations from emitted events, since
// each tracks its own cap and its own Stats counters.
type EffectKind string

const (
	EffectMutation EffectKind = "mutation"
	EffectEvent    EffectKind = "event"
)

// EffectPolicy is the interface hostfn consults before admitting a
// state mutation or emitted event into an invocation's accumulator.
type EffectPolicy interface {
	// Name identifies the policy (matches config.PolicyConfig.Name).
	Name() string

	// Admit decides the outcome for one more effect of kind, given the
	// accumulator's current count and the configured cap. cap <= 0
	// means unlimited (always Proceed).
	Admit(kind EffectKind, current, cap int) Verdict

	// Record is called once per Admit outcome (Proceed, Overflow, or
	// Reject) so the policy can update Stats and, for streaming
	// policies, forward the effect to a sink as it is produced. value
	// is the raw mutation/event payload; key is the state key for
	// mutations and the event name for events.
	Record(kind EffectKind, verdict Verdict, key string, value any)

	// Stats returns an atomic snapshot of the policy's counters.
	Stats() Stats

	// Close releases any resources the policy holds (e.g. a streaming
	// sink's underlying connection).
	Close() error
}

// Stats is the policy's observability snapshot.
type Stats struct {
	TotalMutations      int64
	MutationsAdmitted   int64
	MutationsOverflowed int64
	MutationsRejected   int64

	TotalEvents      int64
	EventsAdmitted   int64
	EventsOverflowed int64
	EventsRejected   int64

	Errors int64
}

// statsRecorder is the thread-safe counter helper shared by every
// EffectPolicy implementation in this package, adapted from the
// teacher's statsRecorder (policy.go) for the mutation/event shape.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func (r *statsRecorder) record(kind EffectKind, verdict Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case EffectMutation:
		r.stats.TotalMutations++
		switch verdict {
		case Proceed:
			r.stats.MutationsAdmitted++
		case Overflow:
			r.stats.MutationsOverflowed++
		case Reject:
			r.stats.MutationsRejected++
		}
	case EffectEvent:
		r.stats.TotalEvents++
		switch verdict {
		case Proceed:
			r.stats.EventsAdmitted++
		case Overflow:
			r.stats.EventsOverflowed++
		case Reject:
			r.stats.EventsRejected++
		}
	}
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
