package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// UsernamePattern defines the valid profile username format: lowercase letters,
// digits, periods, and underscores, at most 30 characters.
var UsernamePattern = regexp.MustCompile(`^[a-z0-9._]{1,30}$`)

// profileHosts are the hosts whose profile URLs are accepted in place of a username.
var profileHosts = map[string]bool{
	"instagram.com":     true,
	"www.instagram.com": true,
	"m.instagram.com":   true,
}

// NormalizeUsername trims, lowercases, strips a leading "@", and reduces a
// profile URL to its username so lookups are case-insensitive.
func NormalizeUsername(input string) string {
	s := strings.TrimSpace(input)
	if name, ok := usernameFromURL(s); ok {
		s = name
	}
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername checks if a normalized username matches the allowed pattern.
func ValidateUsername(username string) bool {
	if username == "" {
		return false
	}
	return UsernamePattern.MatchString(username)
}

func usernameFromURL(s string) (string, bool) {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") &&
		!strings.HasPrefix(lower, "instagram.com/") && !strings.HasPrefix(lower, "www.instagram.com/") {
		return "", false
	}
	if !strings.Contains(lower, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || !profileHosts[strings.ToLower(u.Host)] {
		return "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", false
	}
	return segments[0], true
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}
