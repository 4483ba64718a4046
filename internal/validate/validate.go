package validate

import "fmt"

// Text field length limits — single source of truth for backend and frontend.
const (
	MaxTitleLength       = 500
	MaxSlugLength        = 100
	MaxNotesLength       = 2000
	MaxCommentBodyLength = 1000
	MaxVideoURLLength    = 500
	MaxFingerprintLength = 200
	MaxNameLength        = 200
)

// Offsets beyond an hour in either direction are almost certainly data
// entry mistakes, not real alignment values.
const MaxAbsOffsetMs = 60 * 60 * 1000

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string       { return checkLen(s, MaxTitleLength, "title") }
func Slug(s string) string        { return checkLen(s, MaxSlugLength, "slug") }
func Notes(s string) string       { return checkLen(s, MaxNotesLength, "notes") }
func CommentBody(s string) string { return checkLen(s, MaxCommentBodyLength, "comment") }
func VideoURL(s string) string    { return checkLen(s, MaxVideoURLLength, "video URL") }
func Fingerprint(s string) string {
	return checkLen(s, MaxFingerprintLength, "viewer fingerprint")
}
func Name(s string) string { return checkLen(s, MaxNameLength, "name") }

// OffsetMs rejects offsets outside the plausible alignment range.
func OffsetMs(ms int64, field string) string {
	if ms > MaxAbsOffsetMs || ms < -MaxAbsOffsetMs {
		return fmt.Sprintf("%s must be between %d and %d", field, -MaxAbsOffsetMs, MaxAbsOffsetMs)
	}
	return ""
}

// Rating rejects values outside the 1–5 star scale.
func Rating(value int, field string) string {
	if value < 1 || value > 5 {
		return fmt.Sprintf("%s must be between 1 and 5", field)
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"title":             MaxTitleLength,
		"slug":              MaxSlugLength,
		"notes":             MaxNotesLength,
		"commentBody":       MaxCommentBodyLength,
		"videoURL":          MaxVideoURLLength,
		"viewerFingerprint": MaxFingerprintLength,
		"name":              MaxNameLength,
	}
}
