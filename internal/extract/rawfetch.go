package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// RawFetchCollector shells out to curl. It is the last resort when the HTTP
// stack itself is being fingerprinted.
type RawFetchCollector struct {
	curlPath   string
	userAgent  string
	profileURL func(string) string
}

// NewRawFetchCollector creates a curl-backed collector.
func NewRawFetchCollector(curlPath, userAgent string, profileURL func(string) string) *RawFetchCollector {
	return &RawFetchCollector{curlPath: curlPath, userAgent: userAgent, profileURL: profileURL}
}

func (c *RawFetchCollector) Name() string { return CollectorRawFetch }

func (c *RawFetchCollector) Collect(ctx context.Context, username string) (Partial, error) {
	args := []string{"--silent", "--show-error", "--location", "--fail", "--max-filesize", fmt.Sprint(maxPageBytes)}
	if c.userAgent != "" {
		args = append(args, "--user-agent", c.userAgent)
	}
	args = append(args, c.profileURL(username))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.curlPath, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Partial{}, fmt.Errorf("curl: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	n, err := bioLengthFromPage(bytes.NewReader(out))
	if err != nil {
		return Partial{}, fmt.Errorf("parsing profile page: %w", err)
	}
	return Partial{BioLength: n}, nil
}
