package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/panelrt/cache"
	"github.com/justapithecus/panelrt/capability"
	"github.com/justapithecus/panelrt/config"
	"github.com/justapithecus/panelrt/export"
	"github.com/justapithecus/panelrt/extension"
	"github.com/justapithecus/panelrt/hostfn"
	"github.com/justapithecus/panelrt/metrics"
	"github.com/justapithecus/panelrt/policy"
	"github.com/justapithecus/panelrt/rterror"
	"github.com/justapithecus/panelrt/rtcontext"
	"github.com/justapithecus/panelrt/rtlog"
)

// RuntimeStats is the façade's coarse health snapshot, grounded on the
// original's get_stats/RuntimeStats shape.
type RuntimeStats struct {
	TotalExecutions    int64
	ActiveInstances    int
	AvailableInstances int
	SuspendedInstances int
	CacheHitRate       float64
	AvgExecutionTimeUs float64
	TotalMemoryBytes   int64
}

// Engine is the runtime's top-level façade: compile → acquire →
// execute-with-timeout → release → record metrics, plus the
// resume/precompile/stats/shutdown operations the boundary layer
// exposes to callers.
type Engine struct {
	cfg      *config.RuntimeConfig
	pool     *Pool
	compiler *cache.Compiler
	registry *extension.Registry
	metrics  *metrics.Collector
	export   *export.Sink
	policy   policy.EffectPolicy
}

// New builds an Engine from cfg, validating it first. A nil registry
// is replaced with an empty one (no extensions reachable, but ext.*
// introspection still works). The export sink is built from
// cfg.Export and is nil (a no-op) unless that block is set.
func New(cfg *config.RuntimeConfig, registry *extension.Registry) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}
	if registry == nil {
		registry = extension.NewRegistry()
	}

	sink, err := export.New(cfg.Export)
	if err != nil {
		return nil, fmt.Errorf("engine: invalid export config: %w", err)
	}

	effectPolicy, err := policy.New(cfg.Policy, rtlog.NewLogger(rtlog.InvocationMeta{}))
	if err != nil {
		return nil, fmt.Errorf("engine: invalid policy config: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		pool:     NewPool(cfg),
		compiler: cache.New(cfg.CacheDir, cfg.MaxCacheSizeBytes),
		registry: registry,
		metrics:  metrics.NewCollector(),
		export:   sink,
		policy:   effectPolicy,
	}, nil
}

func (e *Engine) limits() hostfn.Limits {
	return hostfn.Limits{
		MaxHostCalls:      e.cfg.MaxHostCalls,
		MaxStateMutations: e.cfg.MaxStateMutations,
		MaxEvents:         e.cfg.MaxEvents,
		Policy:            e.policy,
	}
}

// ExecuteHandler compiles (or reuses a cached compile of) handlerSource
// and executes it against wasmCtx. timeoutMs, when positive, overrides
// cfg.TimeoutMs for this call only, per spec.md §4.6's
// execute_handler(source, context, timeout_ms) signature; pass 0 to use
// the engine's configured default.
func (e *Engine) ExecuteHandler(ctx context.Context, handlerSource string, wasmCtx *rtcontext.WasmContext, timeoutMs int64) (rtcontext.WasmResult, error) {
	artifact, err := e.compiler.Compile(handlerSource)
	if err != nil {
		e.metrics.RecordError(string(rterror.CodeCompilationError))
		return rtcontext.WasmResult{}, err
	}
	e.recordArtifact(artifact)
	return e.executeArtifact(ctx, artifact, wasmCtx, artifact.FromCache, timeoutMs)
}

// ExecuteCompiledHandler executes a previously precompiled artifact
// (wrapped source bytes returned by PrecompileHandler) directly,
// skipping the compiler's cache lookup — it is unconditionally treated
// as a cache hit, mirroring the original's "pre-compiled is always a
// cache hit" comment. timeoutMs overrides cfg.TimeoutMs when positive.
func (e *Engine) ExecuteCompiledHandler(ctx context.Context, wrapped []byte, wasmCtx *rtcontext.WasmContext, timeoutMs int64) (rtcontext.WasmResult, error) {
	source := string(wrapped)
	artifact := &cache.CompiledArtifact{
		Fingerprint:   cache.Fingerprint(source),
		WrappedSource: source,
		SourceMap:     cache.NewSourceMap(source),
		FromCache:     true,
	}
	return e.executeArtifact(ctx, artifact, wasmCtx, true, timeoutMs)
}

// PrecompileHandler wraps and fingerprints handlerSource without
// executing it, returning the artifact bytes a later
// ExecuteCompiledHandler call can replay.
func (e *Engine) PrecompileHandler(handlerSource string) ([]byte, error) {
	artifact, err := e.compiler.Compile(handlerSource)
	if err != nil {
		return nil, err
	}
	e.recordArtifact(artifact)
	return []byte(artifact.WrappedSource), nil
}

// ResumeHandler continues a suspended handler identified by
// suspensionID with the host-resolved asyncResult. timeoutMs overrides
// cfg.TimeoutMs when positive.
func (e *Engine) ResumeHandler(ctx context.Context, suspensionID string, asyncResult rtcontext.AsyncResult, timeoutMs int64) (rtcontext.WasmResult, error) {
	inst, ok := e.pool.GetSuspended(suspensionID)
	if !ok {
		return rtcontext.WasmResult{}, fmt.Errorf("engine: suspension not found: %s", suspensionID)
	}

	start := time.Now()
	done := make(chan rtcontext.WasmResult, 1)
	go func() { done <- inst.Resume(asyncResult) }()

	resolvedMs := e.resolveTimeoutMs(timeoutMs)
	select {
	case res := <-done:
		e.pool.Release(inst)
		e.recordOutcome(res, nil, true, start)
		return res, nil
	case <-time.After(time.Duration(resolvedMs) * time.Millisecond):
		inst.Terminate()
		res := rtcontext.ErrorResult(rtcontext.Effects{}, rterror.Timeout(resolvedMs))
		e.recordOutcome(res, nil, true, start)
		return res, nil
	}
}

// InferCapabilities returns the capability strings handlerSource's
// lexical scan implies it needs, for developer tooling (`panelrt infer`).
func (e *Engine) InferCapabilities(handlerSource string) []string {
	return capability.Infer(handlerSource)
}

// GetStats returns the façade's coarse health snapshot.
func (e *Engine) GetStats() RuntimeStats {
	snap := e.metrics.Snapshot()
	return RuntimeStats{
		TotalExecutions:    snap.TotalExecutions,
		ActiveInstances:    e.pool.ActiveCount(),
		AvailableInstances: e.pool.AvailableCount(),
		SuspendedInstances: e.pool.SuspendedCount(),
		CacheHitRate:       snap.CacheHitRate(),
		AvgExecutionTimeUs: snap.AvgExecutionTimeUs(),
		TotalMemoryBytes:   e.pool.TotalMemory(),
	}
}

// GetMetricsText renders the full metrics snapshot in the runtime's
// line-oriented text format.
func (e *Engine) GetMetricsText() string {
	return e.metrics.Snapshot().Text()
}

// ListSuspensions returns a snapshot of every currently suspended
// instance, for `panelrt inspect`.
func (e *Engine) ListSuspensions() []SuspensionInfo {
	return e.pool.ListSuspensions()
}

// CleanupStaleSuspensions evicts suspended instances older than the
// configured suspension TTL, returning the number removed.
func (e *Engine) CleanupStaleSuspensions() int {
	ttl := time.Duration(e.cfg.SuspensionTTLMs) * time.Millisecond
	return e.pool.CleanupStale(ttl)
}

// Shutdown terminates every instance the engine holds and closes its
// effect policy (flushing a streaming policy's sink, if configured).
func (e *Engine) Shutdown() {
	e.pool.Shutdown()
	if e.policy != nil {
		_ = e.policy.Close()
	}
}

// PolicyStats returns the effect policy's admitted/overflowed/rejected
// mutation and event counters, for `panelrt stats`.
func (e *Engine) PolicyStats() policy.Stats {
	if e.policy == nil {
		return policy.Stats{}
	}
	return e.policy.Stats()
}

func (e *Engine) executeArtifact(ctx context.Context, artifact *cache.CompiledArtifact, wasmCtx *rtcontext.WasmContext, cacheHit bool, timeoutMs int64) (rtcontext.WasmResult, error) {
	inst, err := e.pool.Acquire(ctx)
	if err != nil {
		return rtcontext.WasmResult{}, err
	}

	start := time.Now()
	done := make(chan rtcontext.WasmResult, 1)
	go func() {
		done <- inst.Execute(artifact, wasmCtx, e.registry, e.limits())
	}()

	resolvedMs := e.resolveTimeoutMs(timeoutMs)
	select {
	case res := <-done:
		e.pool.Release(inst)
		e.recordOutcome(res, wasmCtx, cacheHit, start)
		return res, nil
	case <-time.After(time.Duration(resolvedMs) * time.Millisecond):
		// gopher-lua's LState has no safe mid-execution cancellation,
		// so a timed-out instance is abandoned to its goroutine and
		// terminated rather than returned to the pool — the same
		// timeout-as-error-result shape the original façade uses.
		inst.Terminate()
		e.pool.Release(inst)
		res := rtcontext.ErrorResult(rtcontext.Effects{}, rterror.Timeout(resolvedMs))
		e.recordOutcome(res, wasmCtx, cacheHit, start)
		return res, nil
	}
}

// resolveTimeoutMs returns timeoutMs when positive, else falls back to
// the engine's configured default — the per-call override spec.md
// §4.6 documents winning over cfg.TimeoutMs whenever a caller supplies
// one.
func (e *Engine) resolveTimeoutMs(timeoutMs int64) int64 {
	if timeoutMs > 0 {
		return timeoutMs
	}
	return e.cfg.TimeoutMs
}

func (e *Engine) recordOutcome(res rtcontext.WasmResult, wasmCtx *rtcontext.WasmContext, cacheHit bool, start time.Time) {
	durationUs := time.Since(start).Microseconds()
	m := metrics.ExecutionMetrics{
		DurationUs:    durationUs,
		CacheHit:      cacheHit,
		Success:       res.Status != rtcontext.StatusError,
		HostCalls:     res.HostCalls,
		MutationCount: len(res.Effects.Mutations),
		EventCount:    len(res.Effects.Events),
	}
	var errorCode string
	if res.Status == rtcontext.StatusError && res.Err != nil {
		if we := rterror.ToWasmError(res.Err); we != nil {
			errorCode = string(we.Code)
			m.ErrorCode = errorCode
		}
	}
	e.metrics.RecordExecution(m)

	if e.export == nil {
		return
	}
	record := export.ExecutionRecord{
		Outcome:       outcomeLabel(res.Status),
		ErrorCode:     errorCode,
		DurationUs:    durationUs,
		CacheHit:      cacheHit,
		HostCalls:     res.HostCalls,
		MutationCount: m.MutationCount,
		EventCount:    m.EventCount,
		Ts:            start.Format(time.RFC3339Nano),
		Day:           export.DeriveDay(start),
	}
	if wasmCtx != nil {
		record.PanelID = wasmCtx.PanelID
		record.HandlerName = wasmCtx.HandlerName
	}
	go func() {
		_ = e.export.WriteExecution(context.Background(), record)
	}()
}

func outcomeLabel(status rtcontext.ExecutionStatus) string {
	switch status {
	case rtcontext.StatusSuccess:
		return "success"
	case rtcontext.StatusSuspended:
		return "suspended"
	default:
		return "error"
	}
}

func (e *Engine) recordArtifact(artifact *cache.CompiledArtifact) {
	if e.export == nil || artifact.FromCache {
		return
	}
	now := time.Now()
	record := export.ArtifactRecord{
		Fingerprint:  artifact.Fingerprint,
		SizeBytes:    len(artifact.WrappedSource),
		HasSourceMap: artifact.SourceMap != nil,
		Ts:           now.Format(time.RFC3339Nano),
		Day:          export.DeriveDay(now),
	}
	go func() {
		_ = e.export.WriteArtifact(context.Background(), record)
	}()
}
