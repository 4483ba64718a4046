package server

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bmorante2012/CleanStream/internal/database"
	"github.com/bmorante2012/CleanStream/internal/httputil"
	"github.com/bmorante2012/CleanStream/internal/syncpack"
)

var indexPageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>CleanStream — Licensed Sync Packs</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #0a1628;
            color: #ffffff;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        }
        .container { max-width: 720px; margin: 0 auto; padding: 2rem 1rem; }
        h1 { font-size: 1.5rem; font-weight: 600; }
        .tagline { margin-top: 0.5rem; color: #94a3b8; font-size: 0.875rem; }
        ul { list-style: none; margin-top: 2rem; }
        li { padding: 1rem; border-radius: 8px; background: #11223c; margin-bottom: 0.75rem; }
        a { color: #00b67a; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .offset { color: #94a3b8; font-size: 0.8rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>CleanStream</h1>
        <p class="tagline">Watch reactions muted, hear the officially licensed track in sync.</p>
        <ul>
        {{range .Packs}}
            <li>
                <a href="/watch/{{.Slug}}">{{if .ReactionTitle}}{{.ReactionTitle}}{{else}}{{.Reaction.URL}}{{end}}</a>
                <div class="offset">offset {{.Offset}}</div>
            </li>
        {{else}}
            <li>No published sync packs yet.</li>
        {{end}}
        </ul>
    </div>
</body>
</html>`))

var packPageTemplate = template.Must(template.New("pack").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}} — CleanStream</title>
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:site_name" content="CleanStream">
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #0a1628;
            color: #ffffff;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        }
        .container { max-width: 960px; margin: 0 auto; padding: 2rem 1rem; }
        .players { display: grid; grid-template-columns: 1fr 1fr; gap: 1rem; }
        iframe { width: 100%; aspect-ratio: 16 / 9; border: 0; border-radius: 8px; }
        h1 { margin-top: 1rem; font-size: 1.5rem; font-weight: 600; }
        .meta { margin-top: 0.5rem; color: #94a3b8; font-size: 0.875rem; }
        .notes { margin-top: 1rem; color: #cbd5e1; font-size: 0.875rem; white-space: pre-wrap; }
        .hint { margin-top: 2rem; font-size: 0.8rem; color: #64748b; }
        .rate { margin-top: 2rem; padding: 1rem; border-radius: 8px; background: #11223c; }
        .rate label { display: block; margin-top: 0.5rem; font-size: 0.875rem; color: #94a3b8; }
        .rate select, .rate textarea { width: 100%; margin-top: 0.25rem; background: #0a1628; color: #fff; border: 1px solid #1e3a5f; border-radius: 4px; padding: 0.4rem; }
        .rate button { margin-top: 0.75rem; background: #00b67a; color: #fff; border: 0; border-radius: 4px; padding: 0.5rem 1rem; cursor: pointer; }
    </style>
</head>
<body>
    <div class="container">
        <div class="players">
            <iframe src="https://www.youtube-nocookie.com/embed/{{.ReactionID}}" title="Reaction" allowfullscreen></iframe>
            <iframe src="https://www.youtube-nocookie.com/embed/{{.OfficialID}}" title="Official track" allowfullscreen></iframe>
        </div>
        <h1>{{.Title}}</h1>
        <p class="meta">Start the official track {{.Offset}} relative to the reaction · v{{.Version}}</p>
        {{if .Notes}}<p class="notes">{{.Notes}}</p>{{end}}
        <div class="rate">
            <strong>Rate this sync</strong>
            <label>Reaction <select id="reaction-rating">{{range .Stars}}<option>{{.}}</option>{{end}}</select></label>
            <label>Track <select id="track-rating">{{range .Stars}}<option>{{.}}</option>{{end}}</select></label>
            <label>Comment <textarea id="rating-comment" rows="2"></textarea></label>
            <button id="rate-submit">Submit</button>
        </div>
        <p class="hint">Mute the reaction, play the licensed track, and adjust by ear. The browser companion automates this.
        Share: <a href="/watch/{{.Slug}}">/watch/{{.Slug}}</a></p>
        <script nonce="{{.Nonce}}">
            (function () {
                var key = "cleanstream_fingerprint";
                var fp = localStorage.getItem(key);
                if (!fp) {
                    fp = Math.random().toString(36).slice(2) + Date.now().toString(36);
                    localStorage.setItem(key, fp);
                }
                fetch("/api/sync-packs/{{.Slug}}/events", {
                    method: "POST",
                    headers: {"Content-Type": "application/json"},
                    body: JSON.stringify({eventType: "view"})
                });
                document.getElementById("rate-submit").addEventListener("click", function () {
                    fetch("/api/ratings", {
                        method: "POST",
                        headers: {"Content-Type": "application/json"},
                        body: JSON.stringify({
                            syncPackId: {{.PackID}},
                            viewerFingerprint: fp,
                            reactionRating: parseInt(document.getElementById("reaction-rating").value, 10),
                            trackRating: parseInt(document.getElementById("track-rating").value, 10),
                            comment: document.getElementById("rating-comment").value
                        })
                    }).then(function () { document.getElementById("rate-submit").textContent = "Thanks!"; });
                });
            })();
        </script>
    </div>
</body>
</html>`))

var createPageTemplate = template.Must(template.New("create").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>New Sync Pack — CleanStream</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #0a1628;
            color: #ffffff;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        }
        .container { max-width: 640px; margin: 0 auto; padding: 2rem 1rem; }
        h1 { font-size: 1.5rem; font-weight: 600; }
        label { display: block; margin-top: 1rem; font-size: 0.875rem; color: #94a3b8; }
        input, textarea { width: 100%; margin-top: 0.25rem; background: #11223c; color: #fff; border: 1px solid #1e3a5f; border-radius: 4px; padding: 0.5rem; }
        .check { display: flex; align-items: center; gap: 0.5rem; }
        .check input { width: auto; }
        button { margin-top: 1.5rem; background: #00b67a; color: #fff; border: 0; border-radius: 4px; padding: 0.6rem 1.2rem; cursor: pointer; }
        #result { margin-top: 1rem; font-size: 0.875rem; color: #00b67a; }
    </style>
</head>
<body>
    <div class="container">
        <h1>New Sync Pack</h1>
        <label>Access token <input id="token" type="password" placeholder="from /api/auth/login"></label>
        <label>Reaction URL <input id="reaction-url" placeholder="https://www.youtube.com/watch?v=..."></label>
        <label>Official track URL <input id="official-url" placeholder="https://www.youtube.com/watch?v=..."></label>
        <label>Reaction title <input id="reaction-title"></label>
        <label>Official title <input id="official-title"></label>
        <label>Base offset (ms) <input id="base-offset" type="number" value="0"></label>
        <label>Drift correction (ms) <input id="drift-correction" type="number" value="0"></label>
        <label>Notes <textarea id="notes" rows="3"></textarea></label>
        <label class="check"><input id="published" type="checkbox"> Publish immediately</label>
        <button id="create-submit">Create</button>
        <p id="result"></p>
    </div>
    <script nonce="{{.Nonce}}">
        document.getElementById("create-submit").addEventListener("click", function () {
            fetch("/api/sync-packs", {
                method: "POST",
                headers: {
                    "Content-Type": "application/json",
                    "Authorization": "Bearer " + document.getElementById("token").value
                },
                body: JSON.stringify({
                    reactionUrl: document.getElementById("reaction-url").value,
                    officialUrl: document.getElementById("official-url").value,
                    reactionTitle: document.getElementById("reaction-title").value,
                    officialTitle: document.getElementById("official-title").value,
                    baseOffsetMs: parseInt(document.getElementById("base-offset").value, 10) || 0,
                    driftCorrectionMs: parseInt(document.getElementById("drift-correction").value, 10) || 0,
                    notes: document.getElementById("notes").value,
                    isPublished: document.getElementById("published").checked
                })
            }).then(function (r) { return r.json(); }).then(function (pack) {
                var out = document.getElementById("result");
                if (pack.slug) {
                    out.innerHTML = 'Created: <a href="/watch/' + pack.slug + '">/watch/' + pack.slug + "</a>";
                } else {
                    out.textContent = pack.error || "failed";
                }
            });
        });
    </script>
</body>
</html>`))

func handleCreatePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = createPageTemplate.Execute(w, map[string]any{
		"Nonce": httputil.NonceFromContext(r.Context()),
	})
}

type indexPackItem struct {
	Slug          string
	ReactionTitle string
	Reaction      syncpack.VideoRef
	Offset        string
}

func (s *Server) handleIndexPage(db database.DBTX) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.Query(r.Context(),
			`SELECT slug, reaction_url, reaction_video_id, reaction_title, base_offset_ms, drift_correction_ms
			 FROM sync_packs WHERE is_published = true ORDER BY created_at DESC LIMIT 50`)
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		var packs []indexPackItem
		for rows.Next() {
			var item indexPackItem
			var title *string
			var base, drift int64
			if err := rows.Scan(&item.Slug, &item.Reaction.URL, &item.Reaction.ID, &title, &base, &drift); err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if title != nil {
				item.ReactionTitle = *title
			}
			item.Offset = syncpack.FormatMs(base + drift)
			packs = append(packs, item)
		}
		if rows.Err() != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexPageTemplate.Execute(w, map[string]any{
			"Packs": packs,
			"Nonce": httputil.NonceFromContext(r.Context()),
		})
	}
}

func (s *Server) handlePackPage(db database.DBTX) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		var packID, reactionID, officialID string
		var reactionTitle, notes *string
		var base, drift int64
		var version int
		err := db.QueryRow(r.Context(),
			`SELECT id, reaction_video_id, official_video_id, reaction_title, notes,
				base_offset_ms, drift_correction_ms, version
			 FROM sync_packs WHERE slug = $1`, slug,
		).Scan(&packID, &reactionID, &officialID, &reactionTitle, &notes, &base, &drift, &version)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		title := "Sync Pack"
		if reactionTitle != nil && *reactionTitle != "" {
			title = *reactionTitle
		}
		noteText := ""
		if notes != nil {
			noteText = *notes
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = packPageTemplate.Execute(w, map[string]any{
			"Title":      title,
			"Slug":       slug,
			"PackID":     packID,
			"ReactionID": reactionID,
			"OfficialID": officialID,
			"Offset":     syncpack.FormatMs(base + drift),
			"Version":    version,
			"Notes":      noteText,
			"Stars":      []int{1, 2, 3, 4, 5},
			"Nonce":      httputil.NonceFromContext(r.Context()),
		})
	}
}
