package policy_test

import (
	"sync"
	"testing"

	"github.com/justapithecus/panelrt/policy"
)

// TestBufferedPolicyStatsConcurrentAccess verifies that Stats() is safe
// under concurrent Admit/Record calls. Run with -race.
func TestBufferedPolicyStatsConcurrentAccess(t *testing.T) {
	pol := policy.NewBufferedPolicy(10, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v := pol.Admit(policy.EffectMutation, n, 20)
			pol.Record(policy.EffectMutation, v, "k", n)
		}(i)
	}
	wg.Wait()

	stats := pol.Stats()
	if stats.TotalMutations != 50 {
		t.Fatalf("expected 50 total mutations, got %d", stats.TotalMutations)
	}
}

func TestStrictPolicyStatsConcurrentAccess(t *testing.T) {
	pol := policy.NewStrictPolicy()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v := pol.Admit(policy.EffectEvent, n, 25)
			pol.Record(policy.EffectEvent, v, "e", n)
		}(i)
	}
	wg.Wait()

	stats := pol.Stats()
	if stats.EventsAdmitted+stats.EventsRejected != 50 {
		t.Fatalf("expected 50 accounted events, got %d", stats.EventsAdmitted+stats.EventsRejected)
	}
}
