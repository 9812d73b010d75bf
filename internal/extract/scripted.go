package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
)

// ScriptedCollector behaves like a browser session without a browser: it
// visits the landing page first to pick up cookies, then requests the profile
// with a referer and the cookies it was given.
type ScriptedCollector struct {
	baseURL    string
	userAgent  string
	transport  http.RoundTripper
	profileURL func(string) string
}

// NewScriptedCollector creates a cookie-carrying collector. transport may be nil.
func NewScriptedCollector(baseURL, userAgent string, transport http.RoundTripper, profileURL func(string) string) *ScriptedCollector {
	return &ScriptedCollector{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		transport:  transport,
		profileURL: profileURL,
	}
}

func (c *ScriptedCollector) Name() string { return CollectorScripted }

func (c *ScriptedCollector) Collect(ctx context.Context, username string) (Partial, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return Partial{}, err
	}
	client := &http.Client{Jar: jar, Transport: c.transport}

	// Warm-up visit; its outcome only matters for the cookies it sets.
	if resp, err := c.get(ctx, client, c.baseURL+"/", ""); err == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		resp.Body.Close()
	}

	resp, err := c.get(ctx, client, c.profileURL(username), c.baseURL+"/")
	if err != nil {
		return Partial{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Partial{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	n, err := bioLengthFromPage(resp.Body)
	if err != nil {
		return Partial{}, fmt.Errorf("parsing profile page: %w", err)
	}
	return Partial{BioLength: n}, nil
}

func (c *ScriptedCollector) get(ctx context.Context, client *http.Client, target, referer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return client.Do(req)
}
