package policy_test

import (
	"testing"

	"github.com/justapithecus/panelrt/policy"
)

func TestNoopPolicyAlwaysAdmitsAndRecordsNothing(t *testing.T) {
	pol := policy.NewNoopPolicy()

	if v := pol.Admit(policy.EffectMutation, 1_000_000, 1); v != policy.Proceed {
		t.Fatalf("expected Proceed, got %v", v)
	}
	pol.Record(policy.EffectMutation, policy.Proceed, "k", nil)

	if stats := pol.Stats(); stats != (policy.Stats{}) {
		t.Fatalf("expected zero-value stats, got %+v", stats)
	}
	if err := pol.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
