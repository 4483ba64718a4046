// Package coordinator implements the privileged, long-lived sync
// participant. It is the single writer of the tab registry, the only
// participant allowed to enumerate or open tabs, and the serving side of
// the GetTabState / GetSyncPackBySlug / OpenTab / ListMatchingTabs queries.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bmorante2012/CleanStream/internal/bus"
	"github.com/bmorante2012/CleanStream/internal/protocol"
	"github.com/bmorante2012/CleanStream/internal/syncpack"
	"github.com/bmorante2012/CleanStream/internal/tabstate"
	"github.com/bmorante2012/CleanStream/internal/videoid"
)

// HostTab describes an open tab as reported by the host runtime.
type HostTab struct {
	ID    int
	URL   string
	Title string
}

// TabHost is the tab capability the host runtime grants the coordinator:
// enumerate open tabs by URL pattern and open new background tabs.
type TabHost interface {
	QueryTabs(ctx context.Context, urlPattern string) ([]HostTab, error)
	CreateTab(ctx context.Context, url string) (HostTab, error)
}

// PackSource fetches sync packs from the external store. A lookup miss is
// (nil, nil); only transport-level failures return an error.
type PackSource interface {
	ByVideoID(ctx context.Context, videoID string) (*syncpack.SyncPack, error)
	BySlug(ctx context.Context, slug string) (*syncpack.SyncPack, error)
}

// Coordinator owns the tab registry and answers protocol queries.
type Coordinator struct {
	registry *tabstate.Registry
	bus      *bus.Bus
	host     TabHost
	packs    PackSource
	detach   func()
}

func New(b *bus.Bus, host TabHost, packs PackSource) *Coordinator {
	c := &Coordinator{
		registry: tabstate.NewRegistry(),
		bus:      b,
		host:     host,
		packs:    packs,
	}
	c.detach = b.Attach(protocol.CoordinatorAddress, c)
	return c
}

// Close detaches the coordinator from the bus.
func (c *Coordinator) Close() {
	if c.detach != nil {
		c.detach()
	}
}

// OnNavigationComplete handles a completed navigation in tabID. When the URL
// carries a video id, the coordinator looks up a matching pack, commits the
// resulting state under a navigation sequence number, and pushes the role
// classification to the tab's page agent. A pack-store failure degrades to
// "no pack"; a stale lookup (superseded navigation or closed tab) is
// discarded.
func (c *Coordinator) OnNavigationComplete(ctx context.Context, tabID int, url string) {
	videoID := videoid.Extract(url)
	if videoID == "" {
		return
	}

	seq := c.registry.BeginNavigation(tabID)

	pack, err := c.packs.ByVideoID(ctx, videoID)
	if err != nil {
		slog.Error("coordinator: pack lookup failed", "tab_id", tabID, "video_id", videoID, "error", err)
		pack = nil
	}

	state := tabstate.TabState{VideoID: videoID, Pack: pack}
	if pack != nil {
		state.Role = pack.ClassifyByURL(videoID)
	}

	if !c.registry.Commit(tabID, seq, state) {
		return
	}

	if pack != nil {
		// Fire and forget: the agent may not be attached yet, in which
		// case its own GetTabState query covers the gap.
		c.bus.Send(protocol.TabAddress(tabID), protocol.RoleClassified{
			Pack: pack,
			Role: state.Role,
		})
	}
}

// OnTabClosed removes the tab's registry entry and invalidates any lookup
// still in flight for it.
func (c *Coordinator) OnTabClosed(tabID int) {
	c.registry.Remove(tabID)
}

// State returns the registry entry for tabID, if committed.
func (c *Coordinator) State(tabID int) (tabstate.TabState, bool) {
	return c.registry.Get(tabID)
}

// HandleMessage serves the coordinator's side of the protocol.
func (c *Coordinator) HandleMessage(ctx context.Context, msg any) (any, error) {
	switch m := msg.(type) {
	case protocol.GetTabState:
		state, ok := c.registry.Get(m.TabID)
		return protocol.TabStateReply{Known: ok, State: state}, nil

	case protocol.GetSyncPackBySlug:
		pack, err := c.packs.BySlug(ctx, m.Slug)
		if err != nil {
			slog.Error("coordinator: pack fetch by slug failed", "slug", m.Slug, "error", err)
			return (*syncpack.SyncPack)(nil), nil
		}
		return pack, nil

	case protocol.OpenTab:
		tab, err := c.host.CreateTab(ctx, m.URL)
		if err != nil {
			return nil, fmt.Errorf("open tab: %w", err)
		}
		return protocol.TabInfo{ID: tab.ID, URL: tab.URL, Title: tab.Title}, nil

	case protocol.ListMatchingTabs:
		return c.listMatchingTabs(ctx, m.URLPattern)

	default:
		return nil, fmt.Errorf("coordinator: unknown message %T", msg)
	}
}

func (c *Coordinator) listMatchingTabs(ctx context.Context, pattern string) ([]protocol.TabInfo, error) {
	tabs, err := c.host.QueryTabs(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("query tabs: %w", err)
	}

	infos := make([]protocol.TabInfo, 0, len(tabs))
	for _, tab := range tabs {
		info := protocol.TabInfo{ID: tab.ID, URL: tab.URL, Title: tab.Title}
		if state, ok := c.registry.Get(tab.ID); ok {
			s := state
			info.State = &s
		}
		infos = append(infos, info)
	}
	return infos, nil
}
