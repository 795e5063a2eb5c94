package application

import "strings"

// OriginMarker tags relayed comment bodies so their webhook echo can be
// recognized. It is embedded inside an HTML comment, which GitHub renders
// as nothing, and the formatter strips HTML before text reaches Slack.
const OriginMarker = "prbridge:relayed-from-slack"

// markBody appends the origin marker to a comment body bound for GitHub.
func markBody(body string) string {
	return body + "\n\n<!-- " + OriginMarker + " -->"
}

// hasOriginMarker reports whether a body carries the embedded origin marker.
func hasOriginMarker(body string) bool {
	return strings.Contains(body, OriginMarker)
}
