// Package dispatch routes map-marker actions to handlers keyed by marker
// id. Marker ids look like "guest:g1", "vehicle:v1" or "activity"; a
// handler registered for "guest:*" serves every guest marker that has no
// exact registration of its own.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNoHandler is returned when no handler is registered for a marker
// and action.
var ErrNoHandler = errors.New("no handler for marker action")

// Handler performs an action on the entity behind a marker. markerID is the
// concrete id that was dispatched, even when the handler was registered
// under a wildcard.
type Handler func(ctx context.Context, markerID string, payload json.RawMessage) (any, error)

const wildcard = "*"

// Dispatcher is a concurrency-safe registry of marker action handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]map[string]Handler)}
}

// Register binds handler to action on markerID, replacing any previous
// binding. markerID is either exact or "<kind>:*".
func (d *Dispatcher) Register(markerID, action string, handler Handler) error {
	if markerID == "" || action == "" {
		return fmt.Errorf("dispatch: marker id and action are required")
	}
	if handler == nil {
		return fmt.Errorf("dispatch: nil handler for %s/%s", markerID, action)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	actions, ok := d.handlers[markerID]
	if !ok {
		actions = make(map[string]Handler)
		d.handlers[markerID] = actions
	}
	actions[action] = handler
	return nil
}

// Unregister removes the binding for action on markerID. An empty action
// removes every binding for the marker.
func (d *Dispatcher) Unregister(markerID, action string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if action == "" {
		delete(d.handlers, markerID)
		return
	}
	if actions, ok := d.handlers[markerID]; ok {
		delete(actions, action)
		if len(actions) == 0 {
			delete(d.handlers, markerID)
		}
	}
}

// Dispatch invokes the handler for action on markerID. Exact registrations
// win over wildcard ones.
func (d *Dispatcher) Dispatch(ctx context.Context, markerID, action string, payload json.RawMessage) (any, error) {
	handler, ok := d.lookup(markerID, action)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoHandler, markerID, action)
	}
	return handler(ctx, markerID, payload)
}

// Actions lists the actions available on markerID, sorted.
func (d *Dispatcher) Actions(markerID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := make(map[string]struct{})
	for _, key := range candidates(markerID) {
		for action := range d.handlers[key] {
			set[action] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for action := range set {
		out = append(out, action)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) lookup(markerID, action string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, key := range candidates(markerID) {
		if h, ok := d.handlers[key][action]; ok {
			return h, true
		}
	}
	return nil, false
}

// candidates returns the registration keys that can serve markerID, most
// specific first.
func candidates(markerID string) []string {
	kind, _, found := strings.Cut(markerID, ":")
	if !found || markerID == kind+":"+wildcard {
		return []string{markerID}
	}
	return []string{markerID, kind + ":" + wildcard}
}

// SplitMarkerID returns the kind and entity id of a marker. The activity
// marker has kind "activity" and an empty id.
func SplitMarkerID(markerID string) (kind, id string) {
	kind, id, _ = strings.Cut(markerID, ":")
	return kind, id
}
