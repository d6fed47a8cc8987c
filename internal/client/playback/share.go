package playback

import (
	"net/url"
	"strings"
)

// ShareURL is the public playback link of a tour.
func ShareURL(base, tourID string) string {
	return strings.TrimRight(base, "/") + "/tour/" + url.PathEscape(tourID)
}
