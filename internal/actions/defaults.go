package actions

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/normanking/jarvis/internal/router"
	"github.com/rs/zerolog"
)

// Replies spoken by the default executors.
const (
	ReplyUnknownSite   = "I can't open that website."
	ReplyUnknownNews   = "I don't have that news source."
	ReplyNotFound      = "Sorry, I couldn't find anything about that."
	ReplyUnavailable   = "Sorry, I can't do that on this device."
	ReplyTabClosed     = "Tab closed."
	ReplySpeakerOn     = "Speaker is now ON."
	ReplySpeakerOff    = "Speaker is now OFF."
	ReplyNeedsArgument = "Sorry, I didn't get what you wanted."
)

// Deps are the collaborators and settings of the default executors. Nil
// collaborators make the matching actions report ErrUnavailable.
type Deps struct {
	Browser      Browser
	Encyclopedia Encyclopedia
	Desktop      Desktop
	Hardware     Hardware

	// Now returns the current time (default time.Now).
	Now func() time.Time

	// Rand picks jokes (default seeded from the clock).
	Rand *rand.Rand

	// ScreenshotPath is where screenshots are written (default screenshot.png).
	ScreenshotPath string

	// BlinkTimes and BlinkDelay shape the LED blink (default 5 and 500ms).
	BlinkTimes int
	BlinkDelay time.Duration

	// SummarySentences bounds encyclopedia summaries (default 2).
	SummarySentences int
}

func (d *Deps) applyDefaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.ScreenshotPath == "" {
		d.ScreenshotPath = "screenshot.png"
	}
	if d.BlinkTimes <= 0 {
		d.BlinkTimes = 5
	}
	if d.BlinkDelay <= 0 {
		d.BlinkDelay = 500 * time.Millisecond
	}
	if d.SummarySentences <= 0 {
		d.SummarySentences = 2
	}
}

// NewDefaultRegistry registers an executor for every router action.
func NewDefaultRegistry(deps Deps) *Registry {
	deps.applyDefaults()
	e := &executors{deps: deps}

	r := NewRegistry()
	r.Register(router.ActionTellTime, ExecutorFunc(e.tellTime))
	r.Register(router.ActionCloseTab, ExecutorFunc(e.closeTab))
	r.Register(router.ActionPlayYouTube, ExecutorFunc(e.playYouTube))
	r.Register(router.ActionGoogleSearch, ExecutorFunc(e.googleSearch))
	r.Register(router.ActionOpenWebsite, ExecutorFunc(e.openWebsite))
	r.Register(router.ActionGetNews, ExecutorFunc(e.getNews))
	r.Register(router.ActionTellJoke, ExecutorFunc(e.tellJoke))
	r.Register(router.ActionWikipedia, ExecutorFunc(e.wikipedia))
	r.Register(router.ActionScreenshot, ExecutorFunc(e.screenshot))
	r.Register(router.ActionBlinkLED, ExecutorFunc(e.blinkLED))
	r.Register(router.ActionSpeaker, ExecutorFunc(e.speaker))
	return r
}

type executors struct {
	deps Deps
	mu   sync.Mutex // guards deps.Rand
}

func (e *executors) tellTime(ctx context.Context, _ string) (string, error) {
	return fmt.Sprintf("The time is %s", e.deps.Now().Format("15:04")), nil
}

func (e *executors) closeTab(ctx context.Context, _ string) (string, error) {
	if e.deps.Desktop == nil {
		return "", fail(ReplyUnavailable, ErrUnavailable)
	}
	if err := e.deps.Desktop.CloseTab(ctx); err != nil {
		return "", fmt.Errorf("close tab: %w", err)
	}
	return ReplyTabClosed, nil
}

func (e *executors) playYouTube(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", fail(ReplyNeedsArgument, ErrNoArgument)
	}
	if err := e.open(ctx, YouTubeSearchURL(query)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Now playing %s on YouTube.", query), nil
}

func (e *executors) googleSearch(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", fail(ReplyNeedsArgument, ErrNoArgument)
	}
	if err := e.open(ctx, GoogleSearchURL(query)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Searching for %s on Google.", query), nil
}

func (e *executors) openWebsite(ctx context.Context, site string) (string, error) {
	site = strings.TrimSpace(site)
	target, ok := Websites[site]
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("site", site).Strs("known", names(Websites)).Msg("unknown website")
		return ReplyUnknownSite, nil
	}
	if err := e.open(ctx, target); err != nil {
		return "", err
	}
	return fmt.Sprintf("Opening %s.", site), nil
}

func (e *executors) getNews(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	target, ok := NewsSources[source]
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("source", source).Strs("known", names(NewsSources)).Msg("unknown news source")
		return ReplyUnknownNews, nil
	}
	if err := e.open(ctx, target); err != nil {
		return "", err
	}
	return fmt.Sprintf("Opening news from %s.", source), nil
}

func (e *executors) tellJoke(ctx context.Context, _ string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Jokes[e.deps.Rand.Intn(len(Jokes))], nil
}

func (e *executors) wikipedia(ctx context.Context, topic string) (string, error) {
	if topic == "" {
		return "", fail(ReplyNeedsArgument, ErrNoArgument)
	}
	if e.deps.Encyclopedia == nil {
		return "", fail(ReplyUnavailable, ErrUnavailable)
	}
	summary, err := e.deps.Encyclopedia.Summary(ctx, topic, e.deps.SummarySentences)
	if err != nil {
		return "", fail(ReplyNotFound, fmt.Errorf("wikipedia search failed: %w", err))
	}
	return summary, nil
}

func (e *executors) screenshot(ctx context.Context, _ string) (string, error) {
	if e.deps.Desktop == nil {
		return "", fail(ReplyUnavailable, ErrUnavailable)
	}
	if err := e.deps.Desktop.Screenshot(ctx, e.deps.ScreenshotPath); err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	return fmt.Sprintf("Screenshot taken and saved as %s.", e.deps.ScreenshotPath), nil
}

// blinkLED has nothing to say; the light is the reply.
func (e *executors) blinkLED(ctx context.Context, _ string) (string, error) {
	if e.deps.Hardware == nil {
		return "", fail(ReplyUnavailable, ErrUnavailable)
	}
	if err := e.deps.Hardware.Blink(ctx, e.deps.BlinkTimes, e.deps.BlinkDelay); err != nil {
		return "", fmt.Errorf("blink led: %w", err)
	}
	return "", nil
}

func (e *executors) speaker(ctx context.Context, state string) (string, error) {
	var on bool
	switch state {
	case "on":
		on = true
	case "off":
	default:
		return "", fail(ReplyNeedsArgument, ErrNoArgument)
	}

	if e.deps.Hardware == nil {
		return "", fail(ReplyUnavailable, ErrUnavailable)
	}
	if err := e.deps.Hardware.SetSpeaker(ctx, on); err != nil {
		return "", fmt.Errorf("speaker %s: %w", state, err)
	}
	if on {
		return ReplySpeakerOn, nil
	}
	return ReplySpeakerOff, nil
}

func (e *executors) open(ctx context.Context, url string) error {
	if e.deps.Browser == nil {
		return fail(ReplyUnavailable, ErrUnavailable)
	}
	if err := e.deps.Browser.Open(ctx, url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
