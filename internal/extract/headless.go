package extract

import (
	"context"
	"time"

	"github.com/go-rod/rod"
)

const settleWait = 5 * time.Second

// HeadlessCollector loads the profile in the browser and reads the meta
// description of the settled document.
type HeadlessCollector struct {
	browser    *Browser
	profileURL func(string) string
}

// NewHeadlessCollector creates a collector backed by the shared browser.
func NewHeadlessCollector(b *Browser, profileURL func(string) string) *HeadlessCollector {
	return &HeadlessCollector{browser: b, profileURL: profileURL}
}

func (c *HeadlessCollector) Name() string { return CollectorHeadless }

func (c *HeadlessCollector) Collect(ctx context.Context, username string) (Partial, error) {
	var desc string
	err := c.browser.WithPage(ctx, c.profileURL(username), func(p *rod.Page) error {
		if err := p.WaitLoad(); err != nil {
			return err
		}
		_ = p.WaitIdle(settleWait)

		short := p.Timeout(bioWait)
		defer short.CancelTimeout()
		el, err := short.Element(`meta[name="description"]`)
		if err != nil {
			return nil
		}
		content, err := el.Attribute("content")
		if err == nil && content != nil {
			desc = *content
		}
		return nil
	})
	if err != nil {
		return Partial{}, err
	}
	return Partial{BioLength: bioLengthFromDescription(desc)}, nil
}
