package pipeline

import (
	"context"
	"errors"

	"holiday_merch_forge/retry"
)

// ErrNoMockups is returned only when every scene render fails to yield
// an image.
var ErrNoMockups = errors.New("no mockups generated")

// GenerateMockups renders the fixed scene list for one design,
// sequentially and paced to stay under provider rate limits. A scene
// whose response carries no image is skipped silently; the result keeps
// template order and may hold fewer than 12 entries. onStep, if
// non-nil, is invoked once per attempted scene.
func (p *Pipeline) GenerateMockups(ctx context.Context, design *DesignAsset, product ProductType, theme string, onStep func()) ([]Mockup, error) {
	if design == nil {
		return nil, errors.New("design asset is required")
	}
	templates := sceneTemplates(product, theme, design.Concept)

	var mockups []Mockup
	for i, tpl := range templates {
		// Fixed wait between consecutive renders regardless of how long
		// the previous one took, separate from the executor's
		// error-triggered backoff. No wait before the first or after the
		// last.
		if i > 0 {
			if err := p.pause(ctx, p.mockupPace); err != nil {
				return nil, err
			}
		}

		prompt := tpl.Prompt
		img, err := retry.Do(ctx, p.exec, "mockup "+tpl.Label, func(ctx context.Context) ([]byte, error) {
			return p.image.GenerateImage(ctx, design.PNG, prompt)
		})
		if err != nil {
			if errors.Is(err, ErrNoImage) {
				p.logger.Warn("mockup scene skipped", "scene", tpl.Label, "concept", design.Concept.Title)
				if onStep != nil {
					onStep()
				}
				continue
			}
			return nil, err
		}

		mockups = append(mockups, Mockup{Scene: tpl.Label, PNG: img})
		if onStep != nil {
			onStep()
		}
	}

	if len(mockups) == 0 {
		return nil, ErrNoMockups
	}
	p.logger.Info("mockups generated", "concept", design.Concept.Title, "count", len(mockups))
	return mockups, nil
}
