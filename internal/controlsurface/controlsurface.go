// Package controlsurface implements the user-facing sync panel. It has no
// detection logic of its own: its whole view derives from querying the
// focused tab's page agent first and the coordinator's tab registry as a
// fallback, refreshed periodically and on user action. Its local-offset copy
// is independent of the page agent's and allowed to be briefly stale.
package controlsurface

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bmorante2012/CleanStream/internal/bus"
	"github.com/bmorante2012/CleanStream/internal/offsetstore"
	"github.com/bmorante2012/CleanStream/internal/protocol"
	"github.com/bmorante2012/CleanStream/internal/syncpack"
	"github.com/bmorante2012/CleanStream/internal/videoid"
)

// DefaultTabPattern matches the video host's tabs.
const DefaultTabPattern = "*://*.youtube.com/*"

// DefaultRefreshInterval is how often Run re-queries the tab registry.
const DefaultRefreshInterval = 5 * time.Second

// ActiveTabFunc reports the currently focused tab, a capability granted by
// the host runtime.
type ActiveTabFunc func(ctx context.Context) (tabID int, ok bool)

// View is a render-ready snapshot of the surface's state.
type View struct {
	Pack              *syncpack.SyncPack
	LocalOffsetMs     int64
	EffectiveOffsetMs int64
	ReactionTabID     int // 0 when not discovered
	OfficialTabID     int // 0 when not discovered
	Tabs              []protocol.TabInfo
}

// Surface is the zero-or-one user-facing participant.
type Surface struct {
	bus        *bus.Bus
	offsets    *offsetstore.Store
	activeTab  ActiveTabFunc
	tabPattern string

	mu            sync.Mutex
	pack          *syncpack.SyncPack
	localOffsetMs int64
	reactionTabID int
	officialTabID int
	tabs          []protocol.TabInfo
}

func New(b *bus.Bus, offsets *offsetstore.Store, activeTab ActiveTabFunc) *Surface {
	return &Surface{
		bus:        b,
		offsets:    offsets,
		activeTab:  activeTab,
		tabPattern: DefaultTabPattern,
	}
}

// Init derives the initial view: the focused tab's page agent first, then
// the coordinator's registry when the agent is unreachable or has no pack.
func (s *Surface) Init(ctx context.Context) {
	if tabID, ok := s.activeTab(ctx); ok {
		reply, err := s.bus.Request(ctx, protocol.TabAddress(tabID), protocol.GetPlayerState{})
		if err == nil {
			if state, ok := reply.(protocol.PlayerState); ok && state.Pack != nil {
				s.mu.Lock()
				s.pack = state.Pack
				s.localOffsetMs = state.LocalOffsetMs
				s.mu.Unlock()
				s.RefreshTabs(ctx)
				return
			}
		}
		// Agent absent or packless: fall through to the registry.
	}

	s.RefreshTabs(ctx)

	s.mu.Lock()
	needPack := s.pack == nil
	tabs := s.tabs
	s.mu.Unlock()

	if needPack {
		for _, tab := range tabs {
			if tab.State != nil && tab.State.Pack != nil {
				pack := tab.State.Pack
				offset, err := s.offsets.Load(ctx, pack.ID)
				if err != nil {
					slog.Warn("controlsurface: local offset load failed", "pack_id", pack.ID, "error", err)
					offset = 0
				}
				s.mu.Lock()
				s.pack = pack
				s.localOffsetMs = offset
				s.mu.Unlock()
				break
			}
		}
		s.RefreshTabs(ctx)
	}
}

// RefreshTabs re-queries the coordinator's registry and rediscovers which
// open tabs hold the current pack's reaction and official sides.
func (s *Surface) RefreshTabs(ctx context.Context) {
	reply, err := s.bus.Request(ctx, protocol.CoordinatorAddress, protocol.ListMatchingTabs{URLPattern: s.tabPattern})
	if err != nil {
		slog.Warn("controlsurface: tab listing failed", "error", err)
		return
	}
	tabs, ok := reply.([]protocol.TabInfo)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tabs = tabs
	s.reactionTabID = 0
	s.officialTabID = 0

	if s.pack == nil {
		return
	}
	for _, tab := range tabs {
		id := videoid.Extract(tab.URL)
		if id == "" {
			continue
		}
		if s.pack.Reaction.Contains(id) {
			s.reactionTabID = tab.ID
		}
		if s.pack.Official.Contains(id) {
			s.officialTabID = tab.ID
		}
	}
}

// OpenOfficialTrack asks the coordinator to open the pack's official track
// in a new background tab.
func (s *Surface) OpenOfficialTrack(ctx context.Context) error {
	s.mu.Lock()
	pack := s.pack
	s.mu.Unlock()
	if pack == nil {
		return fmt.Errorf("no sync pack selected")
	}

	reply, err := s.bus.Request(ctx, protocol.CoordinatorAddress, protocol.OpenTab{URL: pack.Official.URL})
	if err != nil {
		return fmt.Errorf("open official track: %w", err)
	}
	if info, ok := reply.(protocol.TabInfo); ok {
		s.mu.Lock()
		s.officialTabID = info.ID
		s.mu.Unlock()
	}

	s.RefreshTabs(ctx)
	return nil
}

// Nudge shifts the viewer's adjustment for the current pack.
func (s *Surface) Nudge(ctx context.Context, deltaMs int64) error {
	s.mu.Lock()
	next := syncpack.Nudge(s.localOffsetMs, deltaMs)
	s.mu.Unlock()
	return s.setLocalOffset(ctx, next)
}

// ResetOffset clears the viewer's adjustment. The pack's base offset is
// untouched.
func (s *Surface) ResetOffset(ctx context.Context) error {
	return s.setLocalOffset(ctx, syncpack.ResetOffsetMs)
}

// setLocalOffset writes the surface's own copy: memory first, persistence
// after, keeping the optimistic value on a failed write.
func (s *Surface) setLocalOffset(ctx context.Context, offsetMs int64) error {
	s.mu.Lock()
	pack := s.pack
	if pack == nil {
		s.mu.Unlock()
		return nil
	}
	s.localOffsetMs = offsetMs
	s.mu.Unlock()

	return s.offsets.Save(ctx, pack.ID, offsetMs)
}

// View snapshots the current state for rendering.
func (s *Surface) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Pack:          s.pack,
		LocalOffsetMs: s.localOffsetMs,
		ReactionTabID: s.reactionTabID,
		OfficialTabID: s.officialTabID,
		Tabs:          s.tabs,
	}
	if s.pack != nil {
		v.EffectiveOffsetMs = s.pack.EffectiveOffsetMs(s.localOffsetMs)
	}
	return v
}

// Run refreshes the tab view on a fixed interval until ctx is cancelled.
// Staleness between ticks is the accepted consistency model; there is no
// push-invalidation channel.
func (s *Surface) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("controlsurface: shutting down")
			return
		case <-ticker.C:
			s.RefreshTabs(ctx)
		}
	}
}

// FormatMs renders a signed millisecond value the way the panel displays
// offsets: "+350ms", "-1.200s".
func FormatMs(ms int64) string {
	return syncpack.FormatMs(ms)
}
