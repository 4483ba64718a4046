package syncpack

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mssola/useragent"

	"github.com/bmorante2012/CleanStream/internal/auth"
	"github.com/bmorante2012/CleanStream/internal/database"
	"github.com/bmorante2012/CleanStream/internal/geoip"
	"github.com/bmorante2012/CleanStream/internal/httputil"
	"github.com/bmorante2012/CleanStream/internal/validate"
	"github.com/bmorante2012/CleanStream/internal/videoid"
)

// Handler serves the sync pack REST API.
type Handler struct {
	db  database.DBTX
	geo *geoip.Resolver
}

func NewHandler(db database.DBTX, geo *geoip.Resolver) *Handler {
	return &Handler{db: db, geo: geo}
}

const packColumns = `id, slug, reaction_url, reaction_video_id, reaction_title,
	official_url, official_video_id, official_title,
	base_offset_ms, drift_correction_ms, notes, version, is_published`

func scanPack(row pgx.Row) (*SyncPack, error) {
	var p SyncPack
	var reactionTitle, officialTitle, notes *string
	err := row.Scan(
		&p.ID, &p.Slug,
		&p.Reaction.URL, &p.Reaction.ID, &reactionTitle,
		&p.Official.URL, &p.Official.ID, &officialTitle,
		&p.BaseOffsetMs, &p.DriftCorrectionMs, &notes,
		&p.Version, &p.Published,
	)
	if err != nil {
		return nil, err
	}
	if reactionTitle != nil {
		p.ReactionTitle = *reactionTitle
	}
	if officialTitle != nil {
		p.OfficialTitle = *officialTitle
	}
	if notes != nil {
		p.Notes = *notes
	}
	return &p, nil
}

type createRequest struct {
	ReactionURL       string `json:"reactionUrl"`
	OfficialURL       string `json:"officialUrl"`
	ReactionTitle     string `json:"reactionTitle"`
	OfficialTitle     string `json:"officialTitle"`
	BaseOffsetMs      int64  `json:"baseOffsetMs"`
	DriftCorrectionMs int64  `json:"driftCorrectionMs"`
	Notes             string `json:"notes"`
	Published         bool   `json:"isPublished"`
}

func (req *createRequest) validate() string {
	if req.ReactionURL == "" || req.OfficialURL == "" {
		return "reactionUrl and officialUrl are required"
	}
	for _, check := range []string{
		validate.VideoURL(req.ReactionURL),
		validate.VideoURL(req.OfficialURL),
		validate.Title(req.ReactionTitle),
		validate.Title(req.OfficialTitle),
		validate.Notes(req.Notes),
		validate.OffsetMs(req.BaseOffsetMs, "baseOffsetMs"),
		validate.OffsetMs(req.DriftCorrectionMs, "driftCorrectionMs"),
	} {
		if check != "" {
			return check
		}
	}
	if videoid.Extract(req.ReactionURL) == "" {
		return "reactionUrl is not a recognized video URL"
	}
	if videoid.Extract(req.OfficialURL) == "" {
		return "officialUrl is not a recognized video URL"
	}
	return ""
}

// Create registers a new sync pack owned by the authenticated creator.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	slug, err := generateSlug()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate slug")
		return
	}

	reaction := NewVideoRef(req.ReactionURL)
	official := NewVideoRef(req.OfficialURL)

	row := h.db.QueryRow(r.Context(),
		`INSERT INTO sync_packs (slug, creator_id, reaction_url, reaction_video_id, reaction_title,
			official_url, official_video_id, official_title,
			base_offset_ms, drift_correction_ms, notes, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+packColumns,
		slug, userID, reaction.URL, reaction.ID, nullable(req.ReactionTitle),
		official.URL, official.ID, nullable(req.OfficialTitle),
		req.BaseOffsetMs, req.DriftCorrectionMs, nullable(req.Notes), req.Published,
	)
	pack, err := scanPack(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			httputil.WriteError(w, http.StatusConflict, "slug collision, retry the request")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create sync pack")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, pack)
}

// List returns published packs, optionally filtered to those whose stored
// URLs contain the given video id. Containment rather than exact id match
// so packs created from URL variants still resolve.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	rows, err := h.db.Query(r.Context(),
		`SELECT `+packColumns+` FROM sync_packs
		 WHERE is_published = true
		   AND ($1 = '' OR strpos(reaction_url, $1) > 0 OR strpos(official_url, $1) > 0)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		videoID, limit, offset,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list sync packs")
		return
	}
	defer rows.Close()

	packs := []*SyncPack{}
	for rows.Next() {
		pack, err := scanPack(rows)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to read sync packs")
			return
		}
		packs = append(packs, pack)
	}
	if rows.Err() != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read sync packs")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, packs)
}

type packStats struct {
	RatingCount       int64   `json:"ratingCount"`
	AvgReactionRating float64 `json:"avgReactionRating"`
	AvgTrackRating    float64 `json:"avgTrackRating"`
	ViewCount         int64   `json:"viewCount"`
}

type packDetail struct {
	*SyncPack
	Stats packStats `json:"stats"`
}

// GetBySlug returns a single pack with its rating and view statistics.
// The slug acts as a capability: unpublished packs resolve too, so
// creators can test before publishing.
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	pack, err := scanPack(h.db.QueryRow(r.Context(),
		`SELECT `+packColumns+` FROM sync_packs WHERE slug = $1`, slug))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "sync pack not found")
		return
	}

	var stats packStats
	err = h.db.QueryRow(r.Context(),
		`SELECT COUNT(*), COALESCE(AVG(reaction_rating), 0), COALESCE(AVG(track_rating), 0)
		 FROM ratings WHERE sync_pack_id = $1`, pack.ID,
	).Scan(&stats.RatingCount, &stats.AvgReactionRating, &stats.AvgTrackRating)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load rating stats")
		return
	}

	err = h.db.QueryRow(r.Context(),
		`SELECT COUNT(*) FROM view_events WHERE sync_pack_id = $1 AND event_type = 'view'`, pack.ID,
	).Scan(&stats.ViewCount)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load view stats")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, packDetail{SyncPack: pack, Stats: stats})
}

type updateRequest struct {
	ReactionURL       *string `json:"reactionUrl"`
	OfficialURL       *string `json:"officialUrl"`
	ReactionTitle     *string `json:"reactionTitle"`
	OfficialTitle     *string `json:"officialTitle"`
	BaseOffsetMs      *int64  `json:"baseOffsetMs"`
	DriftCorrectionMs *int64  `json:"driftCorrectionMs"`
	Notes             *string `json:"notes"`
	Published         *bool   `json:"isPublished"`
}

// Update applies a partial update to a pack the caller owns. Every
// successful update bumps the version so clients can detect changes.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	setClauses := []string{}
	args := []any{}
	paramIdx := 1

	addClause := func(clause string, value any) {
		setClauses = append(setClauses, fmt.Sprintf(clause, paramIdx))
		args = append(args, value)
		paramIdx++
	}

	if req.ReactionURL != nil {
		if msg := validate.VideoURL(*req.ReactionURL); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		ref := NewVideoRef(*req.ReactionURL)
		if ref.ID == "" {
			httputil.WriteError(w, http.StatusBadRequest, "reactionUrl is not a recognized video URL")
			return
		}
		addClause("reaction_url = $%d", ref.URL)
		addClause("reaction_video_id = $%d", ref.ID)
	}
	if req.OfficialURL != nil {
		if msg := validate.VideoURL(*req.OfficialURL); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		ref := NewVideoRef(*req.OfficialURL)
		if ref.ID == "" {
			httputil.WriteError(w, http.StatusBadRequest, "officialUrl is not a recognized video URL")
			return
		}
		addClause("official_url = $%d", ref.URL)
		addClause("official_video_id = $%d", ref.ID)
	}
	if req.ReactionTitle != nil {
		if msg := validate.Title(*req.ReactionTitle); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		addClause("reaction_title = $%d", nullable(*req.ReactionTitle))
	}
	if req.OfficialTitle != nil {
		if msg := validate.Title(*req.OfficialTitle); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		addClause("official_title = $%d", nullable(*req.OfficialTitle))
	}
	if req.BaseOffsetMs != nil {
		if msg := validate.OffsetMs(*req.BaseOffsetMs, "baseOffsetMs"); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		addClause("base_offset_ms = $%d", *req.BaseOffsetMs)
	}
	if req.DriftCorrectionMs != nil {
		if msg := validate.OffsetMs(*req.DriftCorrectionMs, "driftCorrectionMs"); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		addClause("drift_correction_ms = $%d", *req.DriftCorrectionMs)
	}
	if req.Notes != nil {
		if msg := validate.Notes(*req.Notes); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		addClause("notes = $%d", nullable(*req.Notes))
	}
	if req.Published != nil {
		addClause("is_published = $%d", *req.Published)
	}

	if len(setClauses) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	setClauses = append(setClauses, "version = version + 1", "updated_at = now()")
	query := fmt.Sprintf(
		`UPDATE sync_packs SET %s WHERE slug = $%d AND creator_id = $%d RETURNING `+packColumns,
		strings.Join(setClauses, ", "), paramIdx, paramIdx+1,
	)
	args = append(args, slug, userID)

	pack, err := scanPack(h.db.QueryRow(r.Context(), query, args...))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "sync pack not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pack)
}

// Delete removes a pack the caller owns, along with its ratings and events.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	slug := chi.URLParam(r, "slug")

	tag, err := h.db.Exec(r.Context(),
		`DELETE FROM sync_packs WHERE slug = $1 AND creator_id = $2`, slug, userID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete sync pack")
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteError(w, http.StatusNotFound, "sync pack not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var allowedEventTypes = map[string]bool{
	"view":            true,
	"sync_started":    true,
	"sync_stopped":    true,
	"offset_adjusted": true,
}

type eventRequest struct {
	EventType string          `json:"eventType"`
	Metadata  json.RawMessage `json:"metadata"`
}

// RecordEvent stores an anonymous usage event enriched with coarse client
// info (browser family, device class, geo) derived server-side.
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventType == "" {
		req.EventType = "view"
	}
	if !allowedEventTypes[req.EventType] {
		httputil.WriteError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	var packID string
	err := h.db.QueryRow(r.Context(),
		`SELECT id FROM sync_packs WHERE slug = $1`, slug,
	).Scan(&packID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "sync pack not found")
		return
	}

	browser, device := classifyClient(r.UserAgent())
	country, city := h.geo.Lookup(clientIP(r))

	var metadata any
	if len(req.Metadata) > 0 {
		metadata = req.Metadata
	}

	_, err = h.db.Exec(r.Context(),
		`INSERT INTO view_events (sync_pack_id, event_type, metadata, browser, device, country, city)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		packID, req.EventType, metadata, browser, device, country, city,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func classifyClient(uaString string) (browser, device string) {
	ua := useragent.New(uaString)
	browser, _ = ua.Browser()
	switch {
	case ua.Bot():
		device = "bot"
	case ua.Mobile():
		device = "mobile"
	default:
		device = "desktop"
	}
	return browser, device
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func generateSlug() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
