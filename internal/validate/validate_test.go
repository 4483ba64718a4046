package validate

import "testing"

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "My Reaction", ""},
		{"empty", "", ""},
		{"at limit", string(make([]byte, MaxTitleLength)), ""},
		{"over limit", string(make([]byte, MaxTitleLength+1)), "title must be 500 characters or fewer"},
	}
	for _, tt := range tests {
		if got := Title(tt.input); got != tt.want {
			t.Errorf("Title(%q [len=%d]) = %q, want %q", tt.name, len(tt.input), got, tt.want)
		}
	}
}

func TestNotes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "Sync drifts after the bridge at 2:10", ""},
		{"empty", "", ""},
		{"at limit", string(make([]byte, MaxNotesLength)), ""},
		{"over limit", string(make([]byte, MaxNotesLength+1)), "notes must be 2000 characters or fewer"},
	}
	for _, tt := range tests {
		if got := Notes(tt.input); got != tt.want {
			t.Errorf("Notes(%q [len=%d]) = %q, want %q", tt.name, len(tt.input), got, tt.want)
		}
	}
}

func TestCommentBody(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "great sync", ""},
		{"at limit", string(make([]byte, MaxCommentBodyLength)), ""},
		{"over limit", string(make([]byte, MaxCommentBodyLength+1)), "comment must be 1000 characters or fewer"},
	}
	for _, tt := range tests {
		if got := CommentBody(tt.input); got != tt.want {
			t.Errorf("CommentBody(%q [len=%d]) = %q, want %q", tt.name, len(tt.input), got, tt.want)
		}
	}
}

func TestVideoURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", ""},
		{"at limit", string(make([]byte, MaxVideoURLLength)), ""},
		{"over limit", string(make([]byte, MaxVideoURLLength+1)), "video URL must be 500 characters or fewer"},
	}
	for _, tt := range tests {
		if got := VideoURL(tt.input); got != tt.want {
			t.Errorf("VideoURL(%q [len=%d]) = %q, want %q", tt.name, len(tt.input), got, tt.want)
		}
	}
}

func TestOffsetMs(t *testing.T) {
	tests := []struct {
		name   string
		ms     int64
		wantOK bool
	}{
		{"zero", 0, true},
		{"positive", 350, true},
		{"negative", -1200, true},
		{"at positive limit", MaxAbsOffsetMs, true},
		{"at negative limit", -MaxAbsOffsetMs, true},
		{"over limit", MaxAbsOffsetMs + 1, false},
		{"under limit", -MaxAbsOffsetMs - 1, false},
	}
	for _, tt := range tests {
		got := OffsetMs(tt.ms, "baseOffsetMs")
		if (got == "") != tt.wantOK {
			t.Errorf("OffsetMs(%d) = %q, wantOK=%v", tt.ms, got, tt.wantOK)
		}
	}
}

func TestRating(t *testing.T) {
	tests := []struct {
		value  int
		wantOK bool
	}{
		{1, true},
		{3, true},
		{5, true},
		{0, false},
		{6, false},
		{-1, false},
	}
	for _, tt := range tests {
		got := Rating(tt.value, "reactionRating")
		if (got == "") != tt.wantOK {
			t.Errorf("Rating(%d) = %q, wantOK=%v", tt.value, got, tt.wantOK)
		}
	}
}

func TestFieldLimits(t *testing.T) {
	limits := FieldLimits()
	if limits["title"] != MaxTitleLength {
		t.Errorf("title limit = %d, want %d", limits["title"], MaxTitleLength)
	}
	if limits["notes"] != MaxNotesLength {
		t.Errorf("notes limit = %d, want %d", limits["notes"], MaxNotesLength)
	}
	if len(limits) != 7 {
		t.Errorf("expected 7 field limits, got %d", len(limits))
	}
}
