// Package pageagent implements the per-tab sync participant embedded in a
// video page. It owns the player handle and the viewer-facing overlay state,
// keeps a local copy of {pack, role, local adjustment} for its own tab, and
// tolerates loading before, during, or after the coordinator's detection.
package pageagent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bmorante2012/CleanStream/internal/bus"
	"github.com/bmorante2012/CleanStream/internal/offsetstore"
	"github.com/bmorante2012/CleanStream/internal/protocol"
	"github.com/bmorante2012/CleanStream/internal/syncpack"
)

// Player is the playback capability of the page the agent is embedded in.
// The agent decides what offset applies; the player carries out the motions.
type Player interface {
	CurrentTimeMs() int64
	Playing() bool
	SeekTo(timeMs int64)
	Play()
	Pause()
}

// Agent is one tab's sync participant.
type Agent struct {
	tabID   int
	bus     *bus.Bus
	player  Player
	offsets *offsetstore.Store
	detach  func()

	mu            sync.Mutex
	pack          *syncpack.SyncPack
	role          syncpack.Role
	localOffsetMs int64
}

func New(b *bus.Bus, tabID int, player Player, offsets *offsetstore.Store) *Agent {
	a := &Agent{
		tabID:   tabID,
		bus:     b,
		player:  player,
		offsets: offsets,
	}
	a.detach = b.Attach(protocol.TabAddress(tabID), a)
	return a
}

// Close detaches the agent from the bus.
func (a *Agent) Close() {
	if a.detach != nil {
		a.detach()
	}
}

// Start asks the coordinator for this tab's state. It covers the race where
// the RoleClassified push fired before the agent attached: both paths land
// on the same adopted state.
func (a *Agent) Start(ctx context.Context) {
	reply, err := a.bus.Request(ctx, protocol.CoordinatorAddress, protocol.GetTabState{TabID: a.tabID})
	if err != nil {
		// Coordinator unreachable: stay in the "no sync pack" state.
		slog.Warn("pageagent: tab state query failed", "tab_id", a.tabID, "error", err)
		return
	}

	ts, ok := reply.(protocol.TabStateReply)
	if !ok || !ts.Known || ts.State.Pack == nil {
		return
	}
	a.adopt(ctx, ts.State.Pack, ts.State.Role)
}

// Navigated handles an in-tab route change (single-page-app navigation):
// the local copy is discarded and the coordinator is re-queried from
// scratch.
func (a *Agent) Navigated(ctx context.Context) {
	a.mu.Lock()
	a.pack = nil
	a.role = syncpack.RoleNone
	a.localOffsetMs = 0
	a.mu.Unlock()

	a.Start(ctx)
}

func (a *Agent) adopt(ctx context.Context, pack *syncpack.SyncPack, role syncpack.Role) {
	a.mu.Lock()
	if a.pack != nil && pack != nil && a.pack.ID == pack.ID && a.role == role {
		// Re-delivery of the same classification; nothing changes.
		a.mu.Unlock()
		return
	}
	a.pack = pack
	a.role = role
	a.mu.Unlock()

	offset, err := a.offsets.Load(ctx, pack.ID)
	if err != nil {
		slog.Warn("pageagent: local offset load failed", "pack_id", pack.ID, "error", err)
		offset = 0
	}

	a.mu.Lock()
	// Only apply if the pack did not change while loading.
	if a.pack != nil && a.pack.ID == pack.ID {
		a.localOffsetMs = offset
	}
	a.mu.Unlock()
}

// OverlayText is the badge the page overlay shows for the current state.
func (a *Agent) OverlayText() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.pack == nil:
		return "No Sync Pack"
	case a.role.IsReaction():
		return "Reaction Video - Sync Available"
	case a.role.IsOfficial():
		return "Official Track"
	default:
		return "No Sync Pack"
	}
}

// HandleMessage serves the agent's side of the protocol.
func (a *Agent) HandleMessage(ctx context.Context, msg any) (any, error) {
	switch m := msg.(type) {
	case protocol.RoleClassified:
		if m.Pack != nil {
			a.adopt(ctx, m.Pack, m.Role)
		}
		return protocol.Ack{}, nil

	case protocol.GetPlayerState:
		a.mu.Lock()
		state := protocol.PlayerState{
			CurrentTimeMs: a.player.CurrentTimeMs(),
			Playing:       a.player.Playing(),
			Pack:          a.pack,
			Role:          a.role,
			LocalOffsetMs: a.localOffsetMs,
		}
		a.mu.Unlock()
		return state, nil

	case protocol.Seek:
		a.player.SeekTo(m.TimeMs)
		return protocol.Ack{}, nil

	case protocol.Play:
		a.player.Play()
		return protocol.Ack{}, nil

	case protocol.Pause:
		a.player.Pause()
		return protocol.Ack{}, nil

	case protocol.SetLocalOffset:
		return a.setLocalOffset(ctx, m.OffsetMs)

	case protocol.NudgeOffset:
		a.mu.Lock()
		next := syncpack.Nudge(a.localOffsetMs, m.DeltaMs)
		a.mu.Unlock()
		return a.setLocalOffset(ctx, next)

	default:
		return nil, fmt.Errorf("pageagent: unknown message %T", msg)
	}
}

// setLocalOffset applies the new adjustment optimistically: memory first so
// the UI reflects it immediately, persistence after. A persistence failure
// is returned to the caller but does not roll back the in-memory value.
func (a *Agent) setLocalOffset(ctx context.Context, offsetMs int64) (any, error) {
	a.mu.Lock()
	pack := a.pack
	if pack == nil {
		a.mu.Unlock()
		return protocol.OffsetChanged{}, nil
	}
	a.localOffsetMs = offsetMs
	effective := pack.EffectiveOffsetMs(offsetMs)
	a.mu.Unlock()

	reply := protocol.OffsetChanged{LocalOffsetMs: offsetMs, EffectiveOffsetMs: effective}
	if err := a.offsets.Save(ctx, pack.ID, offsetMs); err != nil {
		return reply, err
	}
	return reply, nil
}
