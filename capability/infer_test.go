package capability

import (
	"slices"
	"testing"
)

func TestInferBasic(t *testing.T) {
	source := `
local current = state.get('count')
state.set('count', current + 1)
emit('toast', {message = 'hi'})
ext.http.get('https://example.com')
`
	got := Infer(source)
	want := []string{
		"state:read:count",
		"state:write:count",
		"events:emit:toast",
		"ext:http",
	}
	for _, w := range want {
		if !slices.Contains(got, w) {
			t.Fatalf("expected inferred set %v to contain %q", got, w)
		}
	}
}

func TestInferStateKeysYieldsWildcard(t *testing.T) {
	got := Infer(`local ks = state.keys()`)
	if !slices.Contains(got, "state:read:*") {
		t.Fatalf("state.keys() should infer state:read:*, got %v", got)
	}
}

func TestInferIsAdvisoryNotExhaustive(t *testing.T) {
	// Dynamic construction of the key defeats lexical inference; this
	// is expected and documented, not a bug.
	got := Infer(`state.get(dynamicKey())`)
	if len(got) != 0 {
		t.Fatalf("expected no inference for dynamically constructed key, got %v", got)
	}
}
