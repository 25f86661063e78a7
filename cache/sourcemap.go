package cache

import "strings"

// SourceMap records line-start byte offsets for a handler's source
// text, letting the engine translate a byte offset or a Lua line
// number (gopher-lua errors report 1-indexed lines directly, so this
// mostly aids rendering a code snippet around an error) into a
// location and a surrounding snippet.
//
// Grounded on original_source/.../engine/compiler.rs's SourceMap
// (from_source/get_location/get_snippet).
type SourceMap struct {
	source      string
	lineOffsets []int // byte offset of the start of each line
}

// NewSourceMap scans source once, recording the byte offset of the
// start of every line.
func NewSourceMap(source string) *SourceMap {
	offsets := []int{0}
	for i, r := range source {
		if r == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &SourceMap{source: source, lineOffsets: offsets}
}

// Location is a 1-indexed line/column pair.
type Location struct {
	Line   uint32
	Column uint32
}

// GetLocation converts a byte offset into a 1-indexed (line, column).
// Offsets past the end of the source clamp to the last line.
func (sm *SourceMap) GetLocation(offset int) Location {
	line := 0
	for i, start := range sm.lineOffsets {
		if start > offset {
			break
		}
		line = i
	}
	lineStart := sm.lineOffsets[line]
	col := offset - lineStart
	if col < 0 {
		col = 0
	}
	return Location{Line: uint32(line) + 1, Column: uint32(col) + 1}
}

// GetSnippet returns a multi-line block of source centered on line
// (1-indexed) with context lines of padding on each side, and reports
// which line within the returned block to highlight (1-indexed within
// the snippet).
func (sm *SourceMap) GetSnippet(line int, context int) (code string, highlightLine uint32) {
	lines := strings.Split(sm.source, "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}

	start := line - context
	if start < 1 {
		start = 1
	}
	end := line + context
	if end > len(lines) {
		end = len(lines)
	}

	block := lines[start-1 : end]
	return strings.Join(block, "\n"), uint32(line - start + 1)
}
