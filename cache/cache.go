// Package cache implements the handler compiler's two-tier artifact
// cache: an in-memory LRU tier and an on-disk tier keyed by a
// fingerprint of the wrapped handler source, plus the source map used
// to render error locations back against the original handler text.
//
// Grounded on original_source/.../engine/compiler.rs (HandlerCompiler,
// CacheEntry, SourceMap, CompilerStats).
//
// Compilation note: gopher-lua does not expose a stable, public binary
// chunk serialization for *lua.FunctionProto the way reference Lua's
// string.dump does, so the "artifact bytes" this cache stores and
// fingerprints are the wrapped Lua source text rather than a dumped
// bytecode blob. A cache hit still avoids re-wrapping, re-fingerprinting,
// and (for the disk tier) a second disk round trip; only the final
// lua.LState.LoadString parse is repeated on every hit. This is
// documented as a deliberate simplification in DESIGN.md rather than
// depending on gopher-lua's unexported proto internals.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// versionTag changes invalidate every prior artifact: bump it whenever
// the wrapping prologue (§4.3) changes shape.
const versionTag = ":v1"

// CompiledArtifact is the result of a successful compile or cache hit:
// the fingerprint, the wrapped source (the "artifact bytes" — see the
// package doc), its source map, and whether this particular lookup was
// served from cache.
type CompiledArtifact struct {
	Fingerprint  string
	WrappedSource string
	SourceMap    *SourceMap
	FromCache    bool
}

// cacheEntry is the in-memory LRU's bookkeeping for one fingerprint.
type cacheEntry struct {
	fingerprint  string
	wrappedSource string
	sourceMap    *SourceMap
	size         int64
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  int64
	elem         *list.Element
}

// Stats reports cache hit/miss/compile counters and derived hit rate.
type Stats struct {
	Hits         int64
	Misses       int64
	Compilations int64
	Entries      int
	Bytes        int64
}

// HitRate returns Hits / (Hits + Misses), or 0 if there have been no
// lookups yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Compiler is the two-tier handler compiler/cache. Safe for concurrent
// use; the memory tier is guarded by a RWMutex, matching the
// "never hold the cache lock across a guest invocation" discipline
// from §5 of the expanded spec.
type Compiler struct {
	cacheDir    string
	maxBytes    int64

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	lru     *list.List // front = most recently used
	bytes   int64

	hits         int64
	misses       int64
	compilations int64
}

// New builds a Compiler rooted at cacheDir with a memory-tier budget
// of maxBytes. Creating cacheDir is best-effort: a failure here does
// not prevent memory-tier-only operation.
func New(cacheDir string, maxBytes int64) *Compiler {
	if cacheDir != "" {
		_ = os.MkdirAll(cacheDir, 0o755)
	}
	return &Compiler{
		cacheDir: cacheDir,
		maxBytes: maxBytes,
		entries:  make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Fingerprint computes the stable cache key for a wrapped source: a
// SHA-256 hash of the source plus the version tag, hex-encoded.
func Fingerprint(wrappedSource string) string {
	sum := sha256.Sum256([]byte(wrappedSource + versionTag))
	return hex.EncodeToString(sum[:])
}

// Wrap embeds raw handler source inside the fixed host-surface
// prologue (§4.3), producing the text that gets fingerprinted and
// compiled.
func Wrap(handlerSource string) string {
	var b strings.Builder
	b.WriteString("local state, args, emit, view, ext, log = __panelrt_state, __panelrt_args, __panelrt_emit, __panelrt_view, __panelrt_ext, __panelrt_log\n")
	b.WriteString("local function __panelrt_handler()\n")
	b.WriteString(handlerSource)
	b.WriteString("\nend\n")
	b.WriteString("return __panelrt_handler()\n")
	return b.String()
}

// Compile wraps handlerSource, fingerprints it, and resolves the
// compiled artifact via (1) memory LRU, (2) on-disk artifact file,
// (3) fresh compile — in that order. A disk-tier hit is promoted into
// the memory tier; a fresh compile populates both tiers.
func (c *Compiler) Compile(handlerSource string) (*CompiledArtifact, error) {
	wrapped := Wrap(handlerSource)
	fp := Fingerprint(wrapped)

	if art, ok := c.lookupMemory(fp); ok {
		return art, nil
	}

	if art, ok := c.lookupDisk(fp); ok {
		c.insertMemory(fp, art.WrappedSource, art.SourceMap)
		return art, nil
	}

	c.mu.Lock()
	c.misses++
	c.compilations++
	c.mu.Unlock()

	sm := NewSourceMap(handlerSource)
	c.insertMemory(fp, wrapped, sm)
	c.writeDisk(fp, wrapped)

	return &CompiledArtifact{Fingerprint: fp, WrappedSource: wrapped, SourceMap: sm, FromCache: false}, nil
}

// Lookup resolves an existing fingerprint without compiling, for
// execute_compiled_handler-style call sites that already hold
// artifact bytes from a prior precompile.
func (c *Compiler) Lookup(fingerprint string) (*CompiledArtifact, bool) {
	if art, ok := c.lookupMemory(fingerprint); ok {
		return art, true
	}
	if art, ok := c.lookupDisk(fingerprint); ok {
		c.insertMemory(fingerprint, art.WrappedSource, art.SourceMap)
		return art, true
	}
	return nil, false
}

func (c *Compiler) lookupMemory(fp string) (*CompiledArtifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		return nil, false
	}
	e.lastAccessed = time.Now()
	e.accessCount++
	c.lru.MoveToFront(e.elem)
	c.hits++

	return &CompiledArtifact{Fingerprint: fp, WrappedSource: e.wrappedSource, SourceMap: e.sourceMap, FromCache: true}, true
}

func (c *Compiler) lookupDisk(fp string) (*CompiledArtifact, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.artifactPath(fp))
	if err != nil {
		return nil, false
	}
	wrapped := string(data)
	// The source map is rebuilt from the wrapped text's handler body;
	// since wrapping is deterministic, re-deriving it from the cached
	// wrapped source on a disk hit is equivalent to the one computed
	// at compile time.
	sm := NewSourceMap(unwrap(wrapped))
	return &CompiledArtifact{Fingerprint: fp, WrappedSource: wrapped, SourceMap: sm, FromCache: true}, true
}

func (c *Compiler) writeDisk(fp, wrapped string) {
	if c.cacheDir == "" {
		return
	}
	_ = os.WriteFile(c.artifactPath(fp), []byte(wrapped), 0o644)
}

func (c *Compiler) artifactPath(fp string) string {
	return filepath.Join(c.cacheDir, fp+".artifact")
}

// insertMemory adds or refreshes a memory-tier entry, evicting
// least-recently-used entries until the new entry fits the budget.
func (c *Compiler) insertMemory(fp, wrapped string, sm *SourceMap) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(wrapped))

	if e, ok := c.entries[fp]; ok {
		e.lastAccessed = time.Now()
		e.accessCount++
		c.lru.MoveToFront(e.elem)
		return
	}

	for c.maxBytes > 0 && c.bytes+size > c.maxBytes && c.lru.Len() > 0 {
		back := c.lru.Back()
		victim := back.Value.(*cacheEntry)
		c.lru.Remove(back)
		delete(c.entries, victim.fingerprint)
		c.bytes -= victim.size
	}

	e := &cacheEntry{
		fingerprint:   fp,
		wrappedSource: wrapped,
		sourceMap:     sm,
		size:          size,
		createdAt:     time.Now(),
		lastAccessed:  time.Now(),
		accessCount:   1,
	}
	e.elem = c.lru.PushFront(e)
	c.entries[fp] = e
	c.bytes += size
}

// Stats returns a point-in-time snapshot of cache counters.
func (c *Compiler) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:         c.hits,
		Misses:       c.misses,
		Compilations: c.compilations,
		Entries:      len(c.entries),
		Bytes:        c.bytes,
	}
}

// Clear drops every memory entry and deletes every on-disk artifact
// file under cacheDir matching the `{fingerprint}.artifact` naming
// convention. Safe to call at any time.
func (c *Compiler) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.lru = list.New()
	c.bytes = 0
	c.mu.Unlock()

	if c.cacheDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(c.cacheDir, "*.artifact"))
	if err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cache: clear %s: %w", m, err)
		}
	}
	return nil
}

// unwrap strips the §4.3 prologue/epilogue back off a wrapped source,
// recovering the original handler body for source-map purposes. The
// wrapping shape is fixed, so this is a plain line-count skip rather
// than a parser.
func unwrap(wrapped string) string {
	lines := strings.Split(wrapped, "\n")
	if len(lines) <= 3 {
		return wrapped
	}
	// Drop the two prologue lines and the trailing "end"/"return ..."
	// lines added by Wrap, plus the empty element after its final
	// newline.
	body := lines[2:]
	if len(body) >= 3 {
		body = body[:len(body)-3]
	}
	return strings.Join(body, "\n")
}
