package extractor

import "strings"

// rangeParams are byte-range markers appended to partial media requests
var rangeParams = map[string]bool{
	"bytestart": true,
	"byteend":   true,
}

// NormalizeURL removes byte-range parameters from the query and fragment so
// every partial request for one asset maps to the same key. Other parameters
// keep their original order and encoding. NormalizeURL(NormalizeURL(u)) ==
// NormalizeURL(u).
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)

	fragment := ""
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u, fragment = u[:i], u[i+1:]
	}
	query := ""
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u, query = u[:i], u[i+1:]
	}

	if q := stripRangeParams(query); q != "" {
		u += "?" + q
	}
	if f := stripRangeParams(fragment); f != "" {
		u += "#" + f
	}
	return u
}

func stripRangeParams(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "&")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		key := p
		if i := strings.IndexByte(p, '='); i >= 0 {
			key = p[:i]
		}
		if rangeParams[strings.ToLower(key)] {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "&")
}

// IsVideoURL reports whether the URL names a video asset
func IsVideoURL(u string) bool {
	return strings.Contains(u, ".mp4")
}

// Extension returns the file extension used when saving u
func Extension(u string) string {
	if IsVideoURL(u) {
		return "mp4"
	}
	return "jpg"
}
