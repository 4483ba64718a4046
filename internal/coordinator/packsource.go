package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bmorante2012/CleanStream/internal/syncpack"
)

// HTTPPackSource fetches sync packs from the CleanStream web service's JSON
// API. Non-2xx responses are lookup misses, not errors: the caller degrades
// to "no sync pack", which is always a valid state.
type HTTPPackSource struct {
	baseURL string
	http    *http.Client
}

func NewHTTPPackSource(baseURL string) *HTTPPackSource {
	return &HTTPPackSource{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ByVideoID lists packs whose stored references contain videoID and returns
// the first whose reaction URL matches, or nil when none does.
func (s *HTTPPackSource) ByVideoID(ctx context.Context, videoID string) (*syncpack.SyncPack, error) {
	var packs []syncpack.SyncPack
	target := s.baseURL + "/api/sync-packs?videoId=" + url.QueryEscape(videoID)
	if ok, err := s.getJSON(ctx, target, &packs); err != nil || !ok {
		return nil, err
	}

	for i := range packs {
		if packs[i].Reaction.Contains(videoID) {
			return &packs[i], nil
		}
	}
	return nil, nil
}

// BySlug fetches a single pack, or nil when the slug is unknown.
func (s *HTTPPackSource) BySlug(ctx context.Context, slug string) (*syncpack.SyncPack, error) {
	var pack syncpack.SyncPack
	target := s.baseURL + "/api/sync-packs/" + url.PathEscape(slug)
	ok, err := s.getJSON(ctx, target, &pack)
	if err != nil || !ok {
		return nil, err
	}
	return &pack, nil
}

func (s *HTTPPackSource) getJSON(ctx context.Context, target string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("create pack request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetch pack: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode pack response: %w", err)
	}
	return true, nil
}
