// Package tabstate holds the process-wide registry mapping browser tabs to
// their detected video, resolved sync pack, and role. The coordinator is the
// registry's only writer; every other participant reads it through the
// message protocol.
package tabstate

import (
	"sync"

	"github.com/bmorante2012/CleanStream/internal/syncpack"
)

// TabState is one registry entry. Role is always derived from
// (VideoID, Pack), never set independently.
type TabState struct {
	VideoID string             `json:"videoId"`
	Pack    *syncpack.SyncPack `json:"syncPack"`
	Role    syncpack.Role      `json:"role"`
}

type entry struct {
	state     TabState
	hasState  bool
	latestSeq uint64
}

// Registry tracks per-tab state with per-tab navigation sequencing. A pack
// lookup for an earlier navigation can finish after a later navigation's
// lookup; Commit only accepts the newest sequence issued for a tab, so slow
// stale results lose instead of overwriting fresh ones.
type Registry struct {
	mu   sync.Mutex
	tabs map[int]*entry
}

func NewRegistry() *Registry {
	return &Registry{tabs: make(map[int]*entry)}
}

// BeginNavigation records that a navigation-triggered lookup is starting for
// tabID and returns its sequence number. Each call supersedes all earlier
// in-flight lookups for the tab.
func (r *Registry) BeginNavigation(tabID int) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tabs[tabID]
	if !ok {
		e = &entry{}
		r.tabs[tabID] = e
	}
	e.latestSeq++
	return e.latestSeq
}

// Commit installs the lookup result for seq. It returns false — and leaves
// the registry untouched — when a newer navigation has started for the tab
// or the tab was closed while the lookup was in flight. Re-navigation
// replaces the whole entry; there is no partial-update path.
func (r *Registry) Commit(tabID int, seq uint64, state TabState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tabs[tabID]
	if !ok || seq != e.latestSeq {
		return false
	}
	e.state = state
	e.hasState = true
	return true
}

// Get returns the tab's current state. ok is false when the tab is unknown
// or its first lookup has not committed yet.
func (r *Registry) Get(tabID int) (TabState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tabs[tabID]
	if !ok || !e.hasState {
		return TabState{}, false
	}
	return e.state, true
}

// Remove drops all record of a closed tab, including its sequence counter,
// so a lookup still in flight for it can never resurrect the entry.
func (r *Registry) Remove(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, tabID)
}

// Len reports how many tabs currently have a committed state.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.tabs {
		if e.hasState {
			n++
		}
	}
	return n
}
