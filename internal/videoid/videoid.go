// Package videoid derives canonical YouTube video identifiers from URLs.
//
// Every participant (coordinator, page agent, control surface, web service)
// imports this single package so that no two contexts can ever disagree on
// what video a URL refers to.
package videoid

import "regexp"

// Ordered matchers: watch query param, short link, embed path, shorts path.
// The capture stops at the first &, newline, ? or # so trailing query
// parameters and fragments never leak into the id.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&\n?#]+)`),
}

// Extract returns the canonical video id embedded in url, or "" when the URL
// matches none of the supported forms.
func Extract(url string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}
