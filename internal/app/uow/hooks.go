package uow

import (
	"context"
	"sync"
)

// Hooks collects callbacks to run once a unit finishes. Units embed it.
type Hooks struct {
	mu          sync.Mutex
	afterCommit []func(context.Context)
	onFinish    []func()
}

// AfterCommit registers fn to run only if the unit commits.
func (h *Hooks) AfterCommit(fn func(context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterCommit = append(h.afterCommit, fn)
}

// OnFinish registers fn to run after commit or rollback.
func (h *Hooks) OnFinish(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFinish = append(h.onFinish, fn)
}

// RunCommitted runs finish hooks, then commit hooks, once. Locks tied to the
// unit are released before commit callbacks start further work.
func (h *Hooks) RunCommitted(ctx context.Context) {
	commit, finish := h.take()
	for _, fn := range finish {
		fn()
	}
	for _, fn := range commit {
		fn(ctx)
	}
}

// RunRolledBack drops commit hooks and runs finish hooks once.
func (h *Hooks) RunRolledBack() {
	_, finish := h.take()
	for _, fn := range finish {
		fn()
	}
}

func (h *Hooks) take() ([]func(context.Context), []func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	commit, finish := h.afterCommit, h.onFinish
	h.afterCommit, h.onFinish = nil, nil
	return commit, finish
}

type hooked interface {
	AfterCommit(fn func(context.Context))
	OnFinish(fn func())
}

// AfterCommit defers fn until the unit in ctx commits. Without a hook-aware
// unit fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if unit, ok := FromContext(ctx); ok {
		if h, ok := unit.(hooked); ok {
			h.AfterCommit(fn)
			return
		}
	}
	fn(ctx)
}

// OnFinish ties fn to the lifetime of the unit in ctx. It reports false when
// no hook-aware unit is present and the caller must run fn itself.
func OnFinish(ctx context.Context, fn func()) bool {
	if unit, ok := FromContext(ctx); ok {
		if h, ok := unit.(hooked); ok {
			h.OnFinish(fn)
			return true
		}
	}
	return false
}
