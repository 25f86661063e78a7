package capability

import "regexp"

// Infer scans handler source text for lexical patterns identifying
// likely required capabilities. This is advisory metadata for
// developer tooling (the CLI's `infer` subcommand) — it must never
// replace the runtime capability checks performed at execution time.
//
// Patterns recognized, grounded on the handler surface's Lua global
// table methods (state, emit, view, ext — see SPEC_FULL.md §4.2/§4.3,
// §4.8's host-function table):
//   - state.get('<key>')/.has('<key>')/.keys() → state:read:<key>|*
//   - state.set('<key>', ...)/.delete('<key>') → state:write:<key>
//   - emit('<name>', ...)                      → events:emit:<name>
//   - ext.<name>                                → ext:<name>
func Infer(source string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	for _, m := range stateWritePattern.FindAllStringSubmatch(source, -1) {
		add(FamilyStateWrite.String() + ":" + m[1])
	}
	for _, m := range stateReadPattern.FindAllStringSubmatch(source, -1) {
		add(FamilyStateRead.String() + ":" + m[1])
	}
	if stateKeysPattern.MatchString(source) {
		add(FamilyStateRead.String() + ":" + Wildcard)
	}
	for _, m := range emitPattern.FindAllStringSubmatch(source, -1) {
		add(FamilyEventsEmit.String() + ":" + m[1])
	}
	for _, m := range extPattern.FindAllStringSubmatch(source, -1) {
		add("ext:" + m[1])
	}
	return out
}

var (
	stateWritePattern = regexp.MustCompile(`\bstate\.(?:set|delete)\(\s*['"]([^'"]+)['"]`)
	stateReadPattern  = regexp.MustCompile(`\bstate\.(?:get|has)\(\s*['"]([^'"]+)['"]`)
	stateKeysPattern  = regexp.MustCompile(`\bstate\.keys\(\s*\)`)
	emitPattern       = regexp.MustCompile(`\bemit\(\s*['"]([^'"]+)['"]`)
	extPattern        = regexp.MustCompile(`\bext\.([A-Za-z_][A-Za-z0-9_]*)`)
)
