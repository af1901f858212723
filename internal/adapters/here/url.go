package here

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/samirrijal/hereroute/internal/core/domain"
)

// defaultParams apply to every request unless overridden.
var defaultParams = map[string]string{
	"instructionFormat": "text",
	"representation":    "navigation",
	"mode":              "fastest;car",
	"alternatives":      "5",
}

// BuildRouteURL renders the calculateroute URL for waypoints.
//
// Waypoints become waypoint0..waypointN-1 in input order and always come
// first. The remaining parameters are merged with increasing precedence
// from the defaults, static, runtime and finally the credentials, then
// written in ascending key order so equal inputs give byte-identical URLs.
// Parameters named like a positional waypoint are dropped. Keys and values
// are query-escaped individually; serviceURL is used as is.
func BuildRouteURL(serviceURL string, waypoints []domain.Waypoint, runtime, static map[string]string, creds Credentials) (string, error) {
	if len(waypoints) == 0 {
		return "", domain.ErrNoWaypoints
	}

	var b strings.Builder
	b.WriteString(serviceURL)
	if strings.Contains(serviceURL, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}

	for i, wp := range waypoints {
		if !wp.Location.Valid() {
			return "", fmt.Errorf("waypoint %d (%v,%v): %w", i, wp.Location.Lat, wp.Location.Lon, domain.ErrInvalidWaypoint)
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString("waypoint")
		b.WriteString(strconv.Itoa(i))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape("geo!" + formatCoord(wp.Location.Lat) + "," + formatCoord(wp.Location.Lon)))
	}

	params := maps.Clone(defaultParams)
	maps.Copy(params, static)
	maps.Copy(params, runtime)
	params["app_id"] = creds.AppID
	params["app_code"] = creds.AppCode

	for _, k := range slices.Sorted(maps.Keys(params)) {
		if isWaypointKey(k) {
			continue
		}
		b.WriteByte('&')
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}

	return b.String(), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// isWaypointKey reports whether k would collide with a positional
// waypoint parameter.
func isWaypointKey(k string) bool {
	n, ok := strings.CutPrefix(k, "waypoint")
	if !ok || n == "" {
		return false
	}
	_, err := strconv.Atoi(n)
	return err == nil
}
