package extract

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/go-rod/rod"
)

const (
	// bioSelector is the rendered profile header's biography block.
	bioSelector = "section [role='presentation']"

	renderWait = 10 * time.Second
	bioWait    = 5 * time.Second
)

// RenderedCollector loads the profile in the browser and reads the rendered
// biography text.
type RenderedCollector struct {
	browser    *Browser
	profileURL func(string) string
}

// NewRenderedCollector creates a collector backed by the shared browser.
func NewRenderedCollector(b *Browser, profileURL func(string) string) *RenderedCollector {
	return &RenderedCollector{browser: b, profileURL: profileURL}
}

func (c *RenderedCollector) Name() string { return CollectorRendered }

func (c *RenderedCollector) Collect(ctx context.Context, username string) (Partial, error) {
	var bio string
	err := c.browser.WithPage(ctx, c.profileURL(username), func(p *rod.Page) error {
		if err := p.WaitLoad(); err != nil {
			return err
		}

		// The header image shows up once the profile has rendered.
		wait := p.Timeout(renderWait)
		_, err := wait.Element("img")
		wait.CancelTimeout()
		if err != nil {
			return err
		}

		short := p.Timeout(bioWait)
		defer short.CancelTimeout()
		el, err := short.Element(bioSelector)
		if err != nil {
			// Rendered but no biography block: an empty signal, not a failure.
			return nil
		}
		text, err := el.Text()
		if err == nil {
			bio = text
		}
		return nil
	})
	if err != nil {
		return Partial{}, err
	}
	return Partial{BioLength: utf8.RuneCountInString(bio)}, nil
}
