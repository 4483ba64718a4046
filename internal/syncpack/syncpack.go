// Package syncpack defines the sync pack value object, the tab role
// classification, and the offset arithmetic shared by every participant.
package syncpack

import (
	"strings"

	"github.com/bmorante2012/CleanStream/internal/videoid"
)

// VideoRef points at one side of a pack: the creator-supplied URL plus the
// canonical id extracted from it.
type VideoRef struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// NewVideoRef builds a ref from a raw URL, extracting the canonical id.
func NewVideoRef(url string) VideoRef {
	return VideoRef{URL: url, ID: videoid.Extract(url)}
}

// Matches reports whether videoID equals this ref's canonical id.
func (r VideoRef) Matches(videoID string) bool {
	return videoID != "" && r.ID == videoID
}

// Contains reports whether the stored URL contains videoID as a substring.
// Tab matching uses containment rather than id equality to tolerate URL
// variants the creator may have pasted (mobile links, tracking params).
func (r VideoRef) Contains(videoID string) bool {
	return videoID != "" && strings.Contains(r.URL, videoID)
}

// SyncPack pairs a reaction video with its official track and carries the
// creator-set timing parameters. Server-authoritative; version bumps on
// every server-side mutation. Immutable once fetched by a client.
type SyncPack struct {
	ID                string   `json:"id"`
	Slug              string   `json:"slug"`
	Reaction          VideoRef `json:"reaction"`
	Official          VideoRef `json:"official"`
	ReactionTitle     string   `json:"reactionTitle,omitempty"`
	OfficialTitle     string   `json:"officialTitle,omitempty"`
	BaseOffsetMs      int64    `json:"baseOffsetMs"`
	DriftCorrectionMs int64    `json:"driftCorrectionMs"`
	Notes             string   `json:"notes,omitempty"`
	Version           int      `json:"version"`
	Published         bool     `json:"isPublished"`
}

// Role classifies a video relative to a pack. A tagged variant rather than
// two independent booleans so callers must handle the degenerate case where
// the creator pointed both refs at the same video.
type Role int

const (
	RoleNone Role = iota
	RoleReaction
	RoleOfficial
	RoleBoth
)

func (r Role) String() string {
	switch r {
	case RoleReaction:
		return "reaction"
	case RoleOfficial:
		return "official"
	case RoleBoth:
		return "both"
	default:
		return "none"
	}
}

// IsReaction reports whether the role includes the reaction side.
func (r Role) IsReaction() bool { return r == RoleReaction || r == RoleBoth }

// IsOfficial reports whether the role includes the official side.
func (r Role) IsOfficial() bool { return r == RoleOfficial || r == RoleBoth }

func roleOf(isReaction, isOfficial bool) Role {
	switch {
	case isReaction && isOfficial:
		return RoleBoth
	case isReaction:
		return RoleReaction
	case isOfficial:
		return RoleOfficial
	default:
		return RoleNone
	}
}

// ClassifyByID classifies videoID against the pack by canonical-id equality.
func (p *SyncPack) ClassifyByID(videoID string) Role {
	return roleOf(p.Reaction.Matches(videoID), p.Official.Matches(videoID))
}

// ClassifyByURL classifies videoID against the pack by URL containment.
// This is the matching rule the tab registry uses.
func (p *SyncPack) ClassifyByURL(videoID string) Role {
	return roleOf(p.Reaction.Contains(videoID), p.Official.Contains(videoID))
}
