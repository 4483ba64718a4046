// Package rating handles viewer ratings of sync packs. One rating per
// viewer fingerprint per pack; resubmitting replaces the earlier rating.
package rating

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bmorante2012/CleanStream/internal/database"
	"github.com/bmorante2012/CleanStream/internal/httputil"
	"github.com/bmorante2012/CleanStream/internal/validate"
)

type Handler struct {
	db database.DBTX
}

func NewHandler(db database.DBTX) *Handler {
	return &Handler{db: db}
}

type submitRequest struct {
	SyncPackID        string `json:"syncPackId"`
	ViewerFingerprint string `json:"viewerFingerprint"`
	ReactionRating    int    `json:"reactionRating"`
	TrackRating       int    `json:"trackRating"`
	Comment           string `json:"comment"`
}

type ratingResponse struct {
	ID                string    `json:"id"`
	SyncPackID        string    `json:"syncPackId"`
	ViewerFingerprint string    `json:"viewerFingerprint"`
	ReactionRating    int       `json:"reactionRating"`
	TrackRating       int       `json:"trackRating"`
	Comment           string    `json:"comment,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Submit inserts or replaces the caller's rating for a pack.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SyncPackID == "" || req.ViewerFingerprint == "" {
		httputil.WriteError(w, http.StatusBadRequest, "syncPackId and viewerFingerprint are required")
		return
	}
	for _, check := range []string{
		validate.Fingerprint(req.ViewerFingerprint),
		validate.Rating(req.ReactionRating, "reactionRating"),
		validate.Rating(req.TrackRating, "trackRating"),
		validate.CommentBody(req.Comment),
	} {
		if check != "" {
			httputil.WriteError(w, http.StatusBadRequest, check)
			return
		}
	}

	var exists bool
	err := h.db.QueryRow(r.Context(),
		`SELECT EXISTS (SELECT 1 FROM sync_packs WHERE id = $1)`, req.SyncPackID,
	).Scan(&exists)
	if err != nil || !exists {
		httputil.WriteError(w, http.StatusNotFound, "sync pack not found")
		return
	}

	var resp ratingResponse
	var comment *string
	err = h.db.QueryRow(r.Context(),
		`INSERT INTO ratings (sync_pack_id, viewer_fingerprint, reaction_rating, track_rating, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (sync_pack_id, viewer_fingerprint) DO UPDATE
		 SET reaction_rating = EXCLUDED.reaction_rating,
		     track_rating = EXCLUDED.track_rating,
		     comment = EXCLUDED.comment,
		     updated_at = now()
		 RETURNING id, sync_pack_id, viewer_fingerprint, reaction_rating, track_rating, comment, created_at, updated_at`,
		req.SyncPackID, req.ViewerFingerprint, req.ReactionRating, req.TrackRating, nullable(req.Comment),
	).Scan(&resp.ID, &resp.SyncPackID, &resp.ViewerFingerprint,
		&resp.ReactionRating, &resp.TrackRating, &comment, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save rating")
		return
	}
	if comment != nil {
		resp.Comment = *comment
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type listResponse struct {
	Ratings []ratingResponse `json:"ratings"`
	Stats   stats            `json:"stats"`
}

type stats struct {
	Count             int64   `json:"count"`
	AvgReactionRating float64 `json:"avgReactionRating"`
	AvgTrackRating    float64 `json:"avgTrackRating"`
}

// List returns all ratings for a pack, newest first, with aggregates.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	packID := r.URL.Query().Get("syncPackId")
	if packID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "syncPackId is required")
		return
	}

	rows, err := h.db.Query(r.Context(),
		`SELECT id, sync_pack_id, viewer_fingerprint, reaction_rating, track_rating, comment, created_at, updated_at
		 FROM ratings WHERE sync_pack_id = $1 ORDER BY updated_at DESC`,
		packID,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list ratings")
		return
	}
	defer rows.Close()

	resp := listResponse{Ratings: []ratingResponse{}}
	for rows.Next() {
		var item ratingResponse
		var comment *string
		if err := rows.Scan(&item.ID, &item.SyncPackID, &item.ViewerFingerprint,
			&item.ReactionRating, &item.TrackRating, &comment, &item.CreatedAt, &item.UpdatedAt); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to read ratings")
			return
		}
		if comment != nil {
			item.Comment = *comment
		}
		resp.Ratings = append(resp.Ratings, item)
	}
	if rows.Err() != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read ratings")
		return
	}

	err = h.db.QueryRow(r.Context(),
		`SELECT COUNT(*), COALESCE(AVG(reaction_rating), 0), COALESCE(AVG(track_rating), 0)
		 FROM ratings WHERE sync_pack_id = $1`, packID,
	).Scan(&resp.Stats.Count, &resp.Stats.AvgReactionRating, &resp.Stats.AvgTrackRating)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load rating stats")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
