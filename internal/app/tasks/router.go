package tasks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"staysync/internal/app/outbox"
)

var ErrDuplicateRoute = errors.New("tasks: route already registered")

// Handler reacts to one delivered event. Delivery is at-least-once, so
// handlers must tolerate redelivery.
type Handler func(ctx context.Context, rec outbox.EventRecord) error

// Route binds a named task to an event name. The task name scopes
// retries and inbox deduplication.
type Route struct {
	Event  string
	Task   string
	Handle Handler
}

// Router fans events out to the tasks subscribed to them.
type Router struct {
	mu     sync.RWMutex
	routes map[string][]Route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string][]Route)}
}

func (r *Router) On(event, task string, h Handler) {
	if event == "" || task == "" || h == nil {
		panic("tasks: incomplete route registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.routes[event] {
		if existing.Task == task {
			panic(ErrDuplicateRoute)
		}
	}
	r.routes[event] = append(r.routes[event], Route{Event: event, Task: task, Handle: h})
}

// Routes returns the tasks subscribed to event.
func (r *Router) Routes(event string) []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Route(nil), r.routes[event]...)
}

// Events lists every event name with at least one route.
func (r *Router) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for name := range r.routes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Deliver runs every route for rec, continuing past failures.
func (r *Router) Deliver(ctx context.Context, rec outbox.EventRecord) error {
	var errs []error
	for _, route := range r.Routes(rec.Name) {
		if err := route.Handle(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
