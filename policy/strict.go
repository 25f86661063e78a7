package policy

// StrictPolicy rejects any effect past its cap outright. This is the
// literal behavior hostfn/state.go and hostfn/events.go enforced
// inline before this package existed, and remains the default
// (config.PolicyConfig{Name: "strict"}).
type StrictPolicy struct {
	recorder statsRecorder
}

// NewStrictPolicy creates a new strict policy.
func NewStrictPolicy() *StrictPolicy {
	return &StrictPolicy{}
}

func (p *StrictPolicy) Name() string { return "strict" }

// Admit proceeds while current is under cap and rejects immediately
// once the cap is reached. cap <= 0 means unlimited.
func (p *StrictPolicy) Admit(_ EffectKind, current, cap int) Verdict {
	if cap <= 0 {
		return Proceed
	}
	if current >= cap {
		return Reject
	}
	return Proceed
}

func (p *StrictPolicy) Record(kind EffectKind, verdict Verdict, _ string, _ any) {
	p.recorder.record(kind, verdict)
}

func (p *StrictPolicy) Stats() Stats { return p.recorder.snapshot() }

func (p *StrictPolicy) Close() error { return nil }
