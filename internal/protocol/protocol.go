// Package protocol defines the message contract between the three sync
// participants: the coordinator (privileged, owns the tab registry), the
// page agents (one per video tab, own playback), and the control surface
// (the user-facing panel).
//
// Everything is request/response except RoleClassified, which the
// coordinator pushes fire-and-forget after a navigation match. The contract
// gives no ordering guarantee across participants: a page agent may miss the
// push entirely and recover by asking GetTabState, and both paths converge
// to the same state.
package protocol

import (
	"fmt"

	"github.com/bmorante2012/CleanStream/internal/syncpack"
	"github.com/bmorante2012/CleanStream/internal/tabstate"
)

// Well-known bus addresses.
const (
	CoordinatorAddress    = "coordinator"
	ControlSurfaceAddress = "sidepanel"
)

// TabAddress is the bus address of the page agent embedded in tabID.
func TabAddress(tabID int) string {
	return fmt.Sprintf("tab/%d", tabID)
}

// RoleClassified is pushed by the coordinator to a tab's page agent when a
// navigation resolved to a sync pack. Re-delivery with an identical payload
// must leave the agent's state unchanged. Delivery is best effort: if the
// agent is not attached yet the push is dropped and the agent's own
// GetTabState query is the recovery path.
type RoleClassified struct {
	Pack *syncpack.SyncPack `json:"syncPack"`
	Role syncpack.Role      `json:"role"`
}

// GetTabState asks the coordinator for the sender tab's registry entry.
type GetTabState struct {
	TabID int `json:"tabId"`
}

// TabStateReply answers GetTabState. Known is false when the registry has
// no committed entry for the tab, a normal outcome.
type TabStateReply struct {
	Known bool              `json:"known"`
	State tabstate.TabState `json:"state"`
}

// GetSyncPackBySlug asks the coordinator to fetch a pack from the server.
type GetSyncPackBySlug struct {
	Slug string `json:"slug"`
}

// OpenTab asks the coordinator to open url in a new background tab.
type OpenTab struct {
	URL string `json:"url"`
}

// ListMatchingTabs asks the coordinator for all open tabs matching a host
// pattern, annotated with their registry state where known.
type ListMatchingTabs struct {
	URLPattern string `json:"urlPattern"`
}

// TabInfo describes one open tab in a ListMatchingTabs reply.
type TabInfo struct {
	ID    int                `json:"id"`
	URL   string             `json:"url"`
	Title string             `json:"title"`
	State *tabstate.TabState `json:"state,omitempty"`
}

// GetPlayerState asks a page agent for its current playback and sync state.
type GetPlayerState struct{}

// PlayerState answers GetPlayerState.
type PlayerState struct {
	CurrentTimeMs int64              `json:"currentTimeMs"`
	Playing       bool               `json:"isPlaying"`
	Pack          *syncpack.SyncPack `json:"syncPack"`
	Role          syncpack.Role      `json:"role"`
	LocalOffsetMs int64              `json:"localOffsetMs"`
}

// Seek instructs a page agent to seek its player to an absolute position.
type Seek struct {
	TimeMs int64 `json:"timeMs"`
}

// Play instructs a page agent to start playback.
type Play struct{}

// Pause instructs a page agent to pause playback.
type Pause struct{}

// SetLocalOffset replaces the viewer's local adjustment for the agent's
// current pack.
type SetLocalOffset struct {
	OffsetMs int64 `json:"offsetMs"`
}

// NudgeOffset shifts the local adjustment by a delta. Additive and not
// idempotent: senders must not resubmit until acknowledged.
type NudgeOffset struct {
	DeltaMs int64 `json:"deltaMs"`
}

// OffsetChanged acknowledges SetLocalOffset and NudgeOffset with the new
// local and effective values.
type OffsetChanged struct {
	LocalOffsetMs     int64 `json:"localOffsetMs"`
	EffectiveOffsetMs int64 `json:"effectiveOffsetMs"`
}

// Ack is the empty acknowledgement for commands with no other reply.
type Ack struct{}
