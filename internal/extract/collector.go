package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Collector names, in the default fallback order.
const (
	CollectorRendered = "rendered"
	CollectorStatic   = "static"
	CollectorHeadless = "headless"
	CollectorScripted = "scripted"
	CollectorRawFetch = "rawfetch"
)

// DefaultOrder is the fallback chain used when none is configured.
var DefaultOrder = []string{
	CollectorRendered,
	CollectorStatic,
	CollectorHeadless,
	CollectorScripted,
	CollectorRawFetch,
}

// Partial is what a fallback collector can observe about a profile.
type Partial struct {
	BioLength int
}

// Collector is one fallback acquisition method. A zero Partial with a nil
// error means the page was reachable but carried no usable signal.
type Collector interface {
	Name() string
	Collect(ctx context.Context, username string) (Partial, error)
}

// CollectorDeps carries the shared resources collectors are built from.
type CollectorDeps struct {
	HTTPClient *http.Client
	BaseURL    string // profile host, e.g. https://www.instagram.com
	UserAgent  string
	CurlPath   string
	Browser    *Browser
}

// ProfileURL returns the public profile page URL for username.
func (d CollectorDeps) ProfileURL(username string) string {
	return strings.TrimRight(d.BaseURL, "/") + "/" + url.PathEscape(username) + "/"
}

// BuildChain constructs collectors in the given order. Unknown names are an
// error; browser collectors are skipped when no browser is configured.
func BuildChain(names []string, deps CollectorDeps) ([]Collector, error) {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	chain := make([]Collector, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case CollectorRendered:
			if deps.Browser != nil {
				chain = append(chain, NewRenderedCollector(deps.Browser, deps.ProfileURL))
			}
		case CollectorHeadless:
			if deps.Browser != nil {
				chain = append(chain, NewHeadlessCollector(deps.Browser, deps.ProfileURL))
			}
		case CollectorStatic:
			chain = append(chain, NewStaticCollector(deps.HTTPClient, deps.UserAgent, deps.ProfileURL))
		case CollectorScripted:
			chain = append(chain, NewScriptedCollector(deps.BaseURL, deps.UserAgent, deps.HTTPClient.Transport, deps.ProfileURL))
		case CollectorRawFetch:
			if deps.CurlPath != "" {
				chain = append(chain, NewRawFetchCollector(deps.CurlPath, deps.UserAgent, deps.ProfileURL))
			}
		default:
			return nil, fmt.Errorf("unknown collector %q", raw)
		}
	}
	return chain, nil
}
