// Package media covers the reels fetch collaborator: shortcode extraction
// from Instagram URLs and downloading the referenced video.
package media

import "regexp"

var shortcodePattern = regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/(?:[A-Za-z0-9._%-]+/)?(reel|reels|p)/([A-Za-z0-9_-]+)/?(?:\?.*)?$`)

// ExtractShortcode pulls the content shortcode out of an Instagram reel or
// post URL. It reports false for anything that is not such a URL.
func ExtractShortcode(url string) (string, bool) {
	match := shortcodePattern.FindStringSubmatch(url)
	if match == nil {
		return "", false
	}

	return match[2], true
}
