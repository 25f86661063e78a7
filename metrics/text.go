package metrics

import (
	"sort"
	"strconv"
	"strings"
)

// textBuilder accumulates "key value" lines for Snapshot.Text, sorting
// labeled lines by label so the output is deterministic for tests and
// diffable across runs.
type textBuilder struct {
	lines []string
}

func (b *textBuilder) line(key string, n int64) {
	b.lines = append(b.lines, key+" "+strconv.FormatInt(n, 10))
}

func (b *textBuilder) floatLine(key string, f float64) {
	b.lines = append(b.lines, key+" "+strconv.FormatFloat(f, 'f', 4, 64))
}

func (b *textBuilder) labeledLine(key, label string, n int64) {
	b.lines = append(b.lines, key+"{code="+label+"} "+strconv.FormatInt(n, 10))
}

func (b *textBuilder) String() string {
	sort.Strings(b.lines)
	return strings.Join(b.lines, "\n") + "\n"
}
