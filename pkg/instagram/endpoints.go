package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// LoginPath is the credential login surface
	LoginPath = "/accounts/login/"

	// StoriesPath prefixes every story viewer URL
	StoriesPath = "/stories/"

	// CookieDomain scopes the session cookie to every subdomain
	CookieDomain = ".instagram.com"

	// SessionCookieName is the cookie carrying the session token
	SessionCookieName = "sessionid"
)

// LoginURL returns the credential login page
func LoginURL() string {
	return BaseURL + LoginPath
}

// RootURL returns the site root with a trailing slash
func RootURL() string {
	return BaseURL + "/"
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// GetStoriesURL constructs the story viewer URL for a user
func GetStoriesURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s%s%s/", BaseURL, StoriesPath, username)
}

// IsLoginOrChallenge reports whether rawURL is the login form or a
// verification challenge.
func IsLoginOrChallenge(rawURL string) bool {
	return strings.Contains(rawURL, "accounts/login") || strings.Contains(rawURL, "challenge")
}

// IsStoriesURL reports whether rawURL is inside the story viewer
func IsStoriesURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.Contains(rawURL, StoriesPath)
	}
	return strings.HasPrefix(u.Path, StoriesPath)
}

// StoryOwner extracts the account name from a story viewer URL such as
// https://www.instagram.com/stories/natgeo/3312/. ok is false when rawURL is
// not a story viewer URL.
func StoryOwner(rawURL string) (owner string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.HasPrefix(u.Path, StoriesPath) {
		return "", false
	}
	rest := strings.TrimPrefix(u.Path, StoriesPath)
	owner, _, _ = strings.Cut(rest, "/")
	if owner == "" {
		return "", false
	}
	return owner, true
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @, surrounding spaces and trailing slashes
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}

// ParseTargets splits comma separated account lists, sanitizes each entry and
// drops duplicates while keeping first-seen order. Invalid names are reported
// together.
func ParseTargets(inputs []string) ([]string, error) {
	var (
		targets []string
		invalid []string
		seen    = make(map[string]bool)
	)

	for _, input := range inputs {
		for _, raw := range strings.Split(input, ",") {
			name := SanitizeUsername(raw)
			if name == "" {
				continue
			}
			if !IsValidUsername(name) {
				invalid = append(invalid, raw)
				continue
			}
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			targets = append(targets, name)
		}
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid account names: %s", strings.Join(invalid, ", "))
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no target accounts given")
	}
	return targets, nil
}
