package policy

import (
	"sync"

	"github.com/justapithecus/panelrt/rtlog"
)

// BufferedPolicy admits effects past the cap up to an extra overflow
// headroom (config.PolicyConfig.BufferOverflow): those overflow
// effects are recorded in Stats for diagnostics but dropped from the
// invocation's final result. Only once the overflow headroom is also
// exhausted does the policy reject outright.
//
// Adapted from the teacher's BufferedPolicy (buffered.go), which
// bounded an event/chunk buffer and dropped droppable event types on
// overflow rather than failing the run; this keeps that "absorb
// overflow instead of failing immediately" shape but retargets it
// from event-type droppability to a flat per-kind overflow counter.
type BufferedPolicy struct {
	overflow int // extra headroom past cap before rejecting
	logger   *rtlog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewBufferedPolicy creates a buffered policy with the given overflow
// headroom. overflow <= 0 behaves like StrictPolicy (no headroom).
func NewBufferedPolicy(overflow int, logger *rtlog.Logger) *BufferedPolicy {
	return &BufferedPolicy{overflow: overflow, logger: logger}
}

func (p *BufferedPolicy) Name() string { return "buffered" }

// Admit proceeds under cap, overflows into the headroom band, and
// rejects once current has consumed cap+overflow.
func (p *BufferedPolicy) Admit(_ EffectKind, current, cap int) Verdict {
	if cap <= 0 {
		return Proceed
	}
	if current < cap {
		return Proceed
	}
	if current < cap+p.overflow {
		return Overflow
	}
	return Reject
}

func (p *BufferedPolicy) Record(kind EffectKind, verdict Verdict, key string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch kind {
	case EffectMutation:
		p.stats.TotalMutations++
		switch verdict {
		case Proceed:
			p.stats.MutationsAdmitted++
		case Overflow:
			p.stats.MutationsOverflowed++
			p.logOverflow(kind, key)
		case Reject:
			p.stats.MutationsRejected++
		}
	case EffectEvent:
		p.stats.TotalEvents++
		switch verdict {
		case Proceed:
			p.stats.EventsAdmitted++
		case Overflow:
			p.stats.EventsOverflowed++
			p.logOverflow(kind, key)
		case Reject:
			p.stats.EventsRejected++
		}
	}
}

func (p *BufferedPolicy) logOverflow(kind EffectKind, key string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("effect buffered past cap", map[string]any{
		"kind":   string(kind),
		"key":    key,
		"policy": "buffered",
	})
}

func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *BufferedPolicy) Close() error { return nil }
