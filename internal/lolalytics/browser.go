package lolalytics

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"bestpick/internal/relation"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the site root pages are acquired from
const DefaultBaseURL = "https://lolalytics.com"

const (
	panelSelector    = ".CountersPanel_counters__U8zc5"
	scrollerSelector = ".Panel_data__dtE8F"
	synergyButton    = ".CounterButtons_set__99iaF [data-id='4']"
)

// expectedPanels is how many panels a fully rendered page of each kind shows
var expectedPanels = map[relation.Kind]int{
	relation.Matchup: 5,
	relation.Synergy: 4,
}

// dragOffset is how far the scroller is dragged per step; panels scroll in
// opposite directions on the two page kinds
var dragOffset = map[relation.Kind]float64{
	relation.Matchup: -900,
	relation.Synergy: 900,
}

// PageURL returns the build page of character playing role
func PageURL(baseURL string, character string, role relation.Role) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return fmt.Sprintf("%s/lol/%s/build/?lane=%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(character), url.QueryEscape(string(role)))
}

// BrowserOptions configures a Browser
type BrowserOptions struct {
	BaseURL string
	// Headless is true unless a visible window is needed for debugging
	Headless bool
	// Install downloads the chromium build when it is missing
	Install bool
	// ScrollSteps is how many times each panel is dragged to reveal lazy rows
	ScrollSteps int
	// Settle is how long to wait after navigation and clicks
	Settle time.Duration
	// Timeout bounds navigation
	Timeout time.Duration
}

func (o *BrowserOptions) setDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.ScrollSteps <= 0 {
		o.ScrollSteps = 7
	}
	if o.Settle <= 0 {
		o.Settle = 2 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
}

// Browser drives a headless chromium to capture relation pages. One page is
// reused for every acquisition, so calls must not overlap.
type Browser struct {
	opts    BrowserOptions
	logger  zerolog.Logger
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// NewBrowser starts playwright and opens a page
func NewBrowser(opts BrowserOptions, logger zerolog.Logger) (*Browser, error) {
	opts.setDefaults()

	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &Browser{
		opts:    opts,
		logger:  logger.With().Str("component", "browser").Logger(),
		pw:      pw,
		browser: browser,
		page:    page,
	}, nil
}

// Acquire loads the page for id and returns the concatenated panel HTML
func (b *Browser) Acquire(ctx context.Context, id relation.TableID) (string, error) {
	want, ok := expectedPanels[id.Kind]
	if !ok {
		return "", fmt.Errorf("unknown relation kind %q", id.Kind)
	}

	target := PageURL(b.opts.BaseURL, id.Character, id.Role)
	b.logger.Info().Str("table", id.String()).Str("url", target).Msg("acquiring page")

	if _, err := b.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", target, err)
	}
	if err := b.settle(ctx); err != nil {
		return "", err
	}

	if id.Kind == relation.Synergy {
		if err := b.page.Locator(synergyButton).First().Click(); err != nil {
			return "", fmt.Errorf("failed to switch to synergies: %w", err)
		}
		if err := b.settle(ctx); err != nil {
			return "", err
		}
	}

	panels, err := b.page.Locator(panelSelector).All()
	if err != nil {
		return "", fmt.Errorf("failed to locate panels: %w", err)
	}
	if len(panels) != want {
		return "", fmt.Errorf("%w: found %d panels on %s, want %d", ErrLayoutChanged, len(panels), target, want)
	}

	var html strings.Builder
	for i, panel := range panels {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		chunk, err := b.scrollPanel(panel, dragOffset[id.Kind])
		if err != nil {
			return "", fmt.Errorf("panel %d: %w", i, err)
		}
		html.WriteString(chunk)
	}

	b.logger.Debug().Str("table", id.String()).Int("bytes", html.Len()).Msg("acquired page")
	return html.String(), nil
}

// scrollPanel drags the panel's scroller step by step, collecting the HTML
// after each step since rows are rendered lazily and recycled
func (b *Browser) scrollPanel(panel playwright.Locator, offset float64) (string, error) {
	var out strings.Builder

	scroller := panel.Locator(scrollerSelector).First()
	if err := scroller.ScrollIntoViewIfNeeded(); err != nil {
		return "", fmt.Errorf("failed to scroll panel into view: %w", err)
	}

	for step := 0; step < b.opts.ScrollSteps; step++ {
		html, err := panel.InnerHTML()
		if err != nil {
			return "", fmt.Errorf("failed to read panel: %w", err)
		}
		out.WriteString(html)

		box, err := scroller.BoundingBox()
		if err != nil {
			return "", fmt.Errorf("failed to measure scroller: %w", err)
		}
		if box == nil {
			break
		}
		x := box.X + box.Width/2
		y := box.Y + box.Height/2

		mouse := b.page.Mouse()
		if err := mouse.Move(x, y); err != nil {
			return "", err
		}
		if err := mouse.Down(); err != nil {
			return "", err
		}
		if err := mouse.Move(x+offset, y, playwright.MouseMoveOptions{Steps: playwright.Int(10)}); err != nil {
			return "", err
		}
		if err := mouse.Up(); err != nil {
			return "", err
		}
		b.page.WaitForTimeout(200)
	}

	html, err := panel.InnerHTML()
	if err != nil {
		return "", fmt.Errorf("failed to read panel: %w", err)
	}
	out.WriteString(html)
	return out.String(), nil
}

func (b *Browser) settle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.opts.Settle):
		return nil
	}
}

// Close shuts the browser and the playwright driver down
func (b *Browser) Close() error {
	if err := b.browser.Close(); err != nil {
		b.pw.Stop()
		return fmt.Errorf("failed to close browser: %w", err)
	}
	if err := b.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
