package extract

import (
	"context"
	"fmt"
	"net/http"
)

// StaticCollector fetches the profile page over plain HTTP and reads its meta
// description.
type StaticCollector struct {
	client     *http.Client
	userAgent  string
	profileURL func(string) string
}

// NewStaticCollector creates a static page collector.
func NewStaticCollector(client *http.Client, userAgent string, profileURL func(string) string) *StaticCollector {
	return &StaticCollector{client: client, userAgent: userAgent, profileURL: profileURL}
}

func (c *StaticCollector) Name() string { return CollectorStatic }

func (c *StaticCollector) Collect(ctx context.Context, username string) (Partial, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL(username), nil)
	if err != nil {
		return Partial{}, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
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
