package extractor

import (
	"strconv"
	"strings"
)

// SourceKind identifies the signal a candidate came from. Lower values rank
// first.
type SourceKind int

const (
	SourceNetwork SourceKind = iota
	SourceVideo
	SourceImage
)

func (k SourceKind) String() string {
	switch k {
	case SourceNetwork:
		return "network"
	case SourceVideo:
		return "dom_video"
	case SourceImage:
		return "dom_image"
	default:
		return "unknown"
	}
}

// Candidate is a URL that may hold the media for the displayed frame. URL is
// already normalized. Rank is the probe position, 0 first.
type Candidate struct {
	Source SourceKind
	URL    string
	Rank   int
}

// Signals is the raw page state read by IdentifyScript
type Signals struct {
	Network []string      `json:"network"`
	Video   string        `json:"video"`
	Images  []ImageSignal `json:"images"`
}

// ImageSignal describes one <img> element
type ImageSignal struct {
	Src    string `json:"src"`
	Srcset string `json:"srcset"`
	Width  int    `json:"width"`
}

// Policy tunes which DOM signals count as candidates
type Policy struct {
	// MinImageWidth is the natural width an image must exceed
	MinImageWidth int
	// AssetHosts are substrings one of which an image URL must contain
	AssetHosts []string
}

// DefaultPolicy matches full size story images on the site's CDN
func DefaultPolicy() Policy {
	return Policy{
		MinImageWidth: 300,
		AssetHosts:    []string{"instagram", "fbcdn"},
	}
}

const minURLLength = 10

// Rank orders signals into candidates:
//
//  1. network entries, newest first
//  2. the video element source, unless it is a blob: reference
//  3. each qualifying image, its largest srcset variant before its src
//
// Duplicates after normalization keep their first (best) position.
func Rank(sig Signals, p Policy) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)

	add := func(kind SourceKind, raw string) {
		if len(raw) < minURLLength || !fetchable(raw) {
			return
		}
		u := NormalizeURL(raw)
		if seen[u] {
			return
		}
		seen[u] = true
		out = append(out, Candidate{Source: kind, URL: u, Rank: len(out)})
	}

	for i := len(sig.Network) - 1; i >= 0; i-- {
		add(SourceNetwork, sig.Network[i])
	}

	add(SourceVideo, sig.Video)

	for _, img := range sig.Images {
		if img.Width <= p.MinImageWidth || !p.onAssetHost(img.Src) {
			continue
		}
		if best := LargestSrcsetVariant(img.Srcset); best != "" {
			add(SourceImage, best)
		}
		add(SourceImage, img.Src)
	}

	return out
}

func (p Policy) onAssetHost(u string) bool {
	if len(p.AssetHosts) == 0 {
		return true
	}
	for _, h := range p.AssetHosts {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}

// blob: and data: sources cannot be fetched by URL
func fetchable(u string) bool {
	return !strings.HasPrefix(u, "blob:") && !strings.HasPrefix(u, "data:")
}

// LargestSrcsetVariant returns the URL with the highest width or density
// descriptor. Without descriptors the last listed entry wins.
func LargestSrcsetVariant(srcset string) string {
	best := ""
	bestScore := -1.0

	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 {
			continue
		}
		score := 0.0
		if len(fields) > 1 {
			score = descriptorScore(fields[1])
		}
		if score >= bestScore {
			best, bestScore = fields[0], score
		}
	}
	return best
}

// descriptorScore converts "1080w" or "2x" to a comparable number
func descriptorScore(d string) float64 {
	if len(d) < 2 {
		return 0
	}
	n, err := strconv.ParseFloat(d[:len(d)-1], 64)
	if err != nil {
		return 0
	}
	switch d[len(d)-1] {
	case 'w':
		return n
	case 'x':
		// densities rank below any explicit width
		return n / 1000
	}
	return 0
}
