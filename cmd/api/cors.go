package main

import (
	"net/url"
	"strings"
)

// matchCORSOrigin reports whether origin is allowed by any pattern. Patterns
// are exact origins, "*", or scheme://*.domain for any subdomain depth.
func matchCORSOrigin(origin string, patterns []string) bool {
	o, err := url.Parse(origin)
	if err != nil || o.Scheme == "" || o.Host == "" {
		return false
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "*":
			return true
		case p == origin:
			return true
		case strings.Contains(p, "://*."):
			u, err := url.Parse(strings.Replace(p, "*.", "", 1))
			if err != nil || u.Scheme != o.Scheme {
				continue
			}
			if strings.HasSuffix(o.Host, "."+u.Host) {
				return true
			}
		}
	}
	return false
}
