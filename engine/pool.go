package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/justapithecus/panelrt/config"
)

// Pool manages a set of reusable instances, bounded by
// config.MaxInstances via a buffered-channel counting semaphore: an
// acquire receives a slot, and release is the only path that returns
// one — the idiomatic Go equivalent of the original's
// `std::mem::forget(permit)` plus manual active-count bookkeeping.
type Pool struct {
	cfg *config.RuntimeConfig

	mu        sync.Mutex
	available []*Instance
	suspended map[string]*Instance
	shutdown  bool

	sem chan struct{}

	instancesCreated int64
	activeCount      int64
	totalMemory      int64
}

// NewPool builds a pool pre-warmed with cfg.MinInstances idle
// instances.
func NewPool(cfg *config.RuntimeConfig) *Pool {
	p := &Pool{
		cfg:       cfg,
		suspended: make(map[string]*Instance),
		sem:       make(chan struct{}, cfg.MaxInstances),
	}
	for i := 0; i < cfg.MinInstances; i++ {
		p.available = append(p.available, New(cfg))
		p.instancesCreated++
	}
	return p
}

// Acquire returns an idle instance, creating one if the pool has
// capacity and none are idle, or blocking until one frees up or ctx is
// done.
func (p *Pool) Acquire(ctx context.Context) (*Instance, error) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil, fmt.Errorf("engine: pool is shut down")
	}
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		<-p.sem
		return nil, fmt.Errorf("engine: pool is shut down")
	}

	var inst *Instance
	if n := len(p.available); n > 0 {
		// LIFO: the most recently released instance is the most
		// likely to still have warm OS page cache behind it.
		inst = p.available[n-1]
		p.available = p.available[:n-1]
		if err := inst.Reset(); err != nil {
			inst = New(p.cfg)
			p.instancesCreated++
		}
	} else {
		inst = New(p.cfg)
		p.instancesCreated++
	}

	p.activeCount++
	p.totalMemory += inst.MemoryUsed()
	return inst, nil
}

// Release returns inst to the pool, to the suspended map, or
// terminates it, depending on its post-execution state.
func (p *Pool) Release(inst *Instance) {
	p.mu.Lock()
	p.activeCount--
	p.totalMemory -= inst.MemoryUsed()
	p.mu.Unlock()
	<-p.sem

	switch inst.State() {
	case StateIdle:
		if err := inst.Reset(); err == nil {
			p.mu.Lock()
			p.available = append(p.available, inst)
			p.mu.Unlock()
		} else {
			inst.Terminate()
		}
	case StateSuspended:
		id := inst.SuspensionID()
		if id == "" {
			inst.Terminate()
			return
		}
		p.mu.Lock()
		p.suspended[id] = inst
		p.mu.Unlock()
	case StateExecuting:
		// Releasing a still-executing instance means the façade
		// abandoned it (e.g. a timeout); it cannot be trusted back
		// into circulation.
		inst.Terminate()
	case StateTerminated:
	}
}

// GetSuspended removes and returns the instance waiting on
// suspensionID, if any, marking it active again.
func (p *Pool) GetSuspended(suspensionID string) (*Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst, ok := p.suspended[suspensionID]
	if !ok {
		return nil, false
	}
	delete(p.suspended, suspensionID)
	p.activeCount++
	p.totalMemory += inst.MemoryUsed()
	return inst, true
}

// SuspensionInfo is a read-only snapshot of one suspended instance,
// for `panelrt inspect`/`panelrt stats` tooling.
type SuspensionInfo struct {
	SuspensionID string
	InstanceID   string
	SuspendedAt  time.Time
	MemoryUsed   int64
}

// ListSuspensions returns a snapshot of every currently suspended
// instance, for inspect/debug tooling.
func (p *Pool) ListSuspensions() []SuspensionInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SuspensionInfo, 0, len(p.suspended))
	for id, inst := range p.suspended {
		out = append(out, SuspensionInfo{
			SuspensionID: id,
			InstanceID:   inst.ID(),
			SuspendedAt:  inst.SuspendedAt(),
			MemoryUsed:   inst.MemoryUsed(),
		})
	}
	return out
}

// CleanupStale terminates and evicts suspended instances older than
// maxAge, returning the number removed. It also caps the suspension
// map at cfg.MaxInstances entries: once age-based eviction is done, any
// excess beyond that ceiling is evicted oldest-first, so a suspend-heavy
// workload can't grow the map without bound between TTL sweeps.
func (p *Pool) CleanupStale(maxAge time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, inst := range p.suspended {
		if now.Sub(inst.SuspendedAt()) > maxAge {
			inst.Terminate()
			delete(p.suspended, id)
			removed++
		}
	}

	if excess := len(p.suspended) - p.cfg.MaxInstances; excess > 0 {
		ids := make([]string, 0, len(p.suspended))
		for id := range p.suspended {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return p.suspended[ids[i]].SuspendedAt().Before(p.suspended[ids[j]].SuspendedAt())
		})
		for _, id := range ids[:excess] {
			p.suspended[id].Terminate()
			delete(p.suspended, id)
			removed++
		}
	}

	return removed
}

func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.activeCount)
}

func (p *Pool) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

func (p *Pool) SuspendedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.suspended)
}

func (p *Pool) TotalMemory() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalMemory
}

func (p *Pool) InstancesCreated() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instancesCreated
}

// Shutdown marks the pool closed and terminates every instance it
// currently holds, idle or suspended.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true

	for _, inst := range p.available {
		inst.Terminate()
	}
	p.available = nil

	for id, inst := range p.suspended {
		inst.Terminate()
		delete(p.suspended, id)
	}
}
