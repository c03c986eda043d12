package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/normanking/jarvis/internal/actions"
	"github.com/normanking/jarvis/internal/assistant"
	"github.com/normanking/jarvis/internal/config"
	"github.com/normanking/jarvis/internal/embedding"
	"github.com/normanking/jarvis/internal/knowledge"
	"github.com/normanking/jarvis/internal/learning"
	"github.com/normanking/jarvis/internal/metrics"
	"github.com/normanking/jarvis/internal/router"
	"github.com/normanking/jarvis/internal/sentiment"
	"github.com/normanking/jarvis/internal/similarity"
	"github.com/normanking/jarvis/internal/voice"
	zlog "github.com/rs/zerolog/log"
)

// app holds the long-lived components built from configuration.
type app struct {
	cfg     *config.Config
	store   *knowledge.Store
	matcher *similarity.Matcher
	metrics *metrics.Recorder

	closers []io.Closer
}

// newApp opens the knowledge store and builds the matcher.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := knowledge.Open(knowledge.Options{
		Backend:    cfg.Knowledge.Backend,
		Path:       cfg.Knowledge.Path,
		MaxRetries: cfg.Knowledge.WriteRetries,
		RetryDelay: time.Duration(cfg.Knowledge.RetryDelayMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	if _, err := store.Load(ctx); err != nil {
		// Unreadable knowledge starts the session empty instead of failing it.
		zlog.Warn().Err(err).Str("path", cfg.Knowledge.Path).Msg("continuing with an empty knowledge base")
	}

	embedder, err := embedding.New(embedding.Config{
		Provider:   cfg.Embedding.Provider,
		Dimensions: cfg.Embedding.Dimensions,
		Endpoint:   cfg.Embedding.Endpoint,
		Model:      cfg.Embedding.Model,
		APIKey:     firstNonEmpty(cfg.Embedding.APIKey, os.Getenv("OPENAI_API_KEY")),
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	a := &app{
		cfg:     cfg,
		store:   store,
		matcher: similarity.NewMatcher(embedder, similarity.WithThreshold(cfg.Similarity.Threshold)),
		closers: []io.Closer{store},
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}
	return a, nil
}

// serveMetrics exposes /metrics in the background until ctx is done.
func (a *app) serveMetrics(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	go func() {
		zlog.Info().Str("addr", a.cfg.Metrics.Addr).Msg("serving metrics")
		if err := a.metrics.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
			zlog.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// openIO connects the configured utterance source and speech sink.
func (a *app) openIO(ctx context.Context) (voice.IO, error) {
	switch a.cfg.Voice.Mode {
	case "websocket":
		bridge, err := voice.DialBridge(ctx, voice.BridgeConfig{URL: a.cfg.Voice.WebSocketURL})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bridge)
		return bridge, nil
	default:
		console := voice.NewConsole(os.Stdin, os.Stdout, a.cfg.Assistant.Name)
		a.closers = append(a.closers, console)
		return console, nil
	}
}

// actionDeps builds the collaborators of the built-in actions. A serial
// device that cannot be opened disables the LED and speaker actions.
func (a *app) actionDeps() actions.Deps {
	deps := actions.Deps{
		Browser:        actions.NewSystemBrowser(),
		Encyclopedia:   actions.NewWikipediaClient("", 0),
		Desktop:        actions.NewCommandDesktop(),
		ScreenshotPath: a.cfg.Assistant.ScreenshotPath,
		BlinkTimes:     a.cfg.Hardware.BlinkTimes,
		BlinkDelay:     time.Duration(a.cfg.Hardware.BlinkDelayMs) * time.Millisecond,
	}

	if dev := a.cfg.Hardware.SerialDevice; dev != "" {
		hw, closer, err := actions.OpenSerial(dev, a.cfg.Hardware.BaudRate)
		if err != nil {
			zlog.Warn().Err(err).Str("device", dev).Msg("serial device unavailable, hardware actions disabled")
		} else {
			deps.Hardware = hw
			a.closers = append(a.closers, closer)
		}
	}
	return deps
}

// newAssistant wires the resolver over conv.
func (a *app) newAssistant(conv voice.IO, learnOnMiss bool) (*assistant.Assistant, error) {
	classifier := sentiment.NewLexiconClassifier(a.cfg.Sentiment.NegativeThreshold)
	commitTimeout := time.Duration(a.cfg.Knowledge.CommitTimeoutSec) * time.Second

	return assistant.New(assistant.Config{
		Store:       a.store,
		Matcher:     a.matcher,
		Speaker:     conv,
		Listener:    conv,
		Router:      newRouter(a.cfg),
		Gate:        sentiment.NewGate(classifier, sentiment.WithReassurances(a.cfg.Sentiment.Reassurances)),
		Actions:     actions.NewDefaultRegistry(a.actionDeps()),
		Learner:     learning.New(a.store, conv, conv, learning.WithCommitTimeout(commitTimeout)),
		Metrics:     a.metrics,
		LearnOnMiss: learnOnMiss,
		Greet:       a.cfg.Assistant.Greet,
	})
}

// Close releases everything opened by the app, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newRouter(cfg *config.Config) *router.Router {
	return router.New(router.WithExitWords(cfg.Assistant.ExitWords...))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
