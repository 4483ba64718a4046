package syncpack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/bmorante2012/CleanStream/internal/auth"
	"github.com/bmorante2012/CleanStream/internal/geoip"
)

const (
	testUserID      = "creator-uuid-1"
	testReactionURL = "https://www.youtube.com/watch?v=reaction1"
	testOfficialURL = "https://youtu.be/official1"
)

var packRowColumns = []string{
	"id", "slug", "reaction_url", "reaction_video_id", "reaction_title",
	"official_url", "official_video_id", "official_title",
	"base_offset_ms", "drift_correction_ms", "notes", "version", "is_published",
}

func newPackHandler(t *testing.T) (*Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	geo, _ := geoip.New("")
	return NewHandler(mock, geo), mock
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.ContextWithUserID(req.Context(), testUserID))
}

// withSlugParam routes the request through chi so URLParam resolves.
func withSlugParam(r *http.Request, slug string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", slug)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func ptr(s string) *string { return &s }

func samplePackRow() *pgxmock.Rows {
	return pgxmock.NewRows(packRowColumns).AddRow(
		"pack-uuid-1", "abc123xy",
		testReactionURL, "reaction1", ptr("My Reaction"),
		testOfficialURL, "official1", ptr("Official Track"),
		int64(500), int64(-20), nil, 1, true,
	)
}

// --- Create ---

func TestCreate_Success(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO sync_packs`).
		WithArgs(
			pgxmock.AnyArg(), testUserID,
			testReactionURL, "reaction1", pgxmock.AnyArg(),
			testOfficialURL, "official1", pgxmock.AnyArg(),
			int64(500), int64(-20), pgxmock.AnyArg(), true,
		).
		WillReturnRows(samplePackRow())

	body := `{"reactionUrl":"` + testReactionURL + `","officialUrl":"` + testOfficialURL + `",
		"reactionTitle":"My Reaction","officialTitle":"Official Track",
		"baseOffsetMs":500,"driftCorrectionMs":-20,"isPublished":true}`
	req := authedRequest(http.MethodPost, "/api/sync-packs", body)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var pack SyncPack
	if err := json.NewDecoder(rec.Body).Decode(&pack); err != nil {
		t.Fatal(err)
	}
	if pack.Slug == "" {
		t.Error("expected generated slug")
	}
	if pack.Reaction.ID != "reaction1" || pack.Official.ID != "official1" {
		t.Errorf("video ids not extracted: %+v", pack)
	}
	if pack.Version != 1 {
		t.Errorf("version = %d, want 1", pack.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing urls", `{"baseOffsetMs":100}`},
		{"missing official", `{"reactionUrl":"` + testReactionURL + `"}`},
		{"unrecognized reaction url", `{"reactionUrl":"https://example.com/video","officialUrl":"` + testOfficialURL + `"}`},
		{"unrecognized official url", `{"reactionUrl":"` + testReactionURL + `","officialUrl":"https://example.com/x"}`},
		{"offset out of range", `{"reactionUrl":"` + testReactionURL + `","officialUrl":"` + testOfficialURL + `","baseOffsetMs":999999999}`},
		{"garbage body", `{not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, mock := newPackHandler(t)
			defer mock.Close()

			req := authedRequest(http.MethodPost, "/api/sync-packs", tc.body)
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
			}
		})
	}
}

// --- List ---

func TestList_FiltersByVideoID(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM sync_packs`).
		WithArgs("reaction1", 50, 0).
		WillReturnRows(samplePackRow())

	req := httptest.NewRequest(http.MethodGet, "/api/sync-packs?videoId=reaction1", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var packs []SyncPack
	if err := json.NewDecoder(rec.Body).Decode(&packs); err != nil {
		t.Fatal(err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected 1 pack, got %d", len(packs))
	}
	if packs[0].Slug != "abc123xy" {
		t.Errorf("slug = %q", packs[0].Slug)
	}
}

func TestList_EmptyResultIsJSONArray(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM sync_packs`).
		WithArgs("", 50, 0).
		WillReturnRows(pgxmock.NewRows(packRowColumns))

	req := httptest.NewRequest(http.MethodGet, "/api/sync-packs", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM sync_packs`).
		WithArgs("", 50, 0).
		WillReturnRows(pgxmock.NewRows(packRowColumns))

	req := httptest.NewRequest(http.MethodGet, "/api/sync-packs?limit=9999", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("oversized limit must be clamped to the default: %v", err)
	}
}

// --- GetBySlug ---

func TestGetBySlug_Success(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM sync_packs WHERE slug`).
		WithArgs("abc123xy").
		WillReturnRows(samplePackRow())
	mock.ExpectQuery(`SELECT (.+) FROM ratings`).
		WithArgs("pack-uuid-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "avg_reaction", "avg_track"}).
			AddRow(int64(3), 4.5, 3.5))
	mock.ExpectQuery(`SELECT (.+) FROM view_events`).
		WithArgs("pack-uuid-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	req := withSlugParam(httptest.NewRequest(http.MethodGet, "/api/sync-packs/abc123xy", nil), "abc123xy")
	rec := httptest.NewRecorder()

	handler.GetBySlug(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var detail struct {
		SyncPack
		Stats packStats `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatal(err)
	}
	if detail.Slug != "abc123xy" {
		t.Errorf("slug = %q", detail.Slug)
	}
	if detail.Stats.RatingCount != 3 || detail.Stats.ViewCount != 42 {
		t.Errorf("stats = %+v", detail.Stats)
	}
	if detail.Stats.AvgReactionRating != 4.5 {
		t.Errorf("avgReactionRating = %v", detail.Stats.AvgReactionRating)
	}
}

func TestGetBySlug_NotFound(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM sync_packs WHERE slug`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(packRowColumns))

	req := withSlugParam(httptest.NewRequest(http.MethodGet, "/api/sync-packs/missing", nil), "missing")
	rec := httptest.NewRecorder()

	handler.GetBySlug(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

// --- Update ---

func TestUpdate_BumpsVersion(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	updated := pgxmock.NewRows(packRowColumns).AddRow(
		"pack-uuid-1", "abc123xy",
		testReactionURL, "reaction1", ptr("My Reaction"),
		testOfficialURL, "official1", ptr("Official Track"),
		int64(750), int64(-20), nil, 2, true,
	)
	mock.ExpectQuery(`UPDATE sync_packs SET base_offset_ms = \$1, version = version \+ 1`).
		WithArgs(int64(750), "abc123xy", testUserID).
		WillReturnRows(updated)

	req := withSlugParam(authedRequest(http.MethodPatch, "/api/sync-packs/abc123xy", `{"baseOffsetMs":750}`), "abc123xy")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var pack SyncPack
	if err := json.NewDecoder(rec.Body).Decode(&pack); err != nil {
		t.Fatal(err)
	}
	if pack.BaseOffsetMs != 750 {
		t.Errorf("baseOffsetMs = %d, want 750", pack.BaseOffsetMs)
	}
	if pack.Version != 2 {
		t.Errorf("version = %d, want 2", pack.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestUpdate_URLChangeReextractsVideoID(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	newURL := "https://www.youtube.com/watch?v=newreaction"
	updated := pgxmock.NewRows(packRowColumns).AddRow(
		"pack-uuid-1", "abc123xy",
		newURL, "newreaction", ptr("My Reaction"),
		testOfficialURL, "official1", ptr("Official Track"),
		int64(500), int64(-20), nil, 2, true,
	)
	mock.ExpectQuery(`UPDATE sync_packs SET reaction_url = \$1, reaction_video_id = \$2`).
		WithArgs(newURL, "newreaction", "abc123xy", testUserID).
		WillReturnRows(updated)

	req := withSlugParam(authedRequest(http.MethodPatch, "/api/sync-packs/abc123xy",
		`{"reactionUrl":"`+newURL+`"}`), "abc123xy")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestUpdate_NoFields(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	req := withSlugParam(authedRequest(http.MethodPatch, "/api/sync-packs/abc123xy", `{}`), "abc123xy")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestUpdate_NotOwner(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE sync_packs SET`).
		WithArgs(int64(750), "abc123xy", testUserID).
		WillReturnRows(pgxmock.NewRows(packRowColumns))

	req := withSlugParam(authedRequest(http.MethodPatch, "/api/sync-packs/abc123xy", `{"baseOffsetMs":750}`), "abc123xy")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

// --- Delete ---

func TestDelete_Success(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM sync_packs`).
		WithArgs("abc123xy", testUserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	req := withSlugParam(authedRequest(http.MethodDelete, "/api/sync-packs/abc123xy", ""), "abc123xy")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestDelete_NotFound(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM sync_packs`).
		WithArgs("missing", testUserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	req := withSlugParam(authedRequest(http.MethodDelete, "/api/sync-packs/missing", ""), "missing")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

// --- RecordEvent ---

func TestRecordEvent_Success(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id FROM sync_packs`).
		WithArgs("abc123xy").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("pack-uuid-1"))
	mock.ExpectExec(`INSERT INTO view_events`).
		WithArgs("pack-uuid-1", "view", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	req := withSlugParam(httptest.NewRequest(http.MethodPost, "/api/sync-packs/abc123xy/events", strings.NewReader(`{}`)), "abc123xy")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0")
	rec := httptest.NewRecorder()

	handler.RecordEvent(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestRecordEvent_UnknownType(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	req := withSlugParam(httptest.NewRequest(http.MethodPost, "/api/sync-packs/abc123xy/events",
		strings.NewReader(`{"eventType":"drive_by"}`)), "abc123xy")
	rec := httptest.NewRecorder()

	handler.RecordEvent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestRecordEvent_PackNotFound(t *testing.T) {
	handler, mock := newPackHandler(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id FROM sync_packs`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	req := withSlugParam(httptest.NewRequest(http.MethodPost, "/api/sync-packs/missing/events",
		strings.NewReader(`{"eventType":"view"}`)), "missing")
	rec := httptest.NewRecorder()

	handler.RecordEvent(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestClassifyClient(t *testing.T) {
	browser, device := classifyClient("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	if device != "mobile" {
		t.Errorf("device = %q, want mobile", device)
	}
	if browser == "" {
		t.Error("expected browser family to be detected")
	}

	_, device = classifyClient("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	if device != "desktop" {
		t.Errorf("device = %q, want desktop", device)
	}
}
