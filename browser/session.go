package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/jrsteele09/go-broker-auth/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session owns one browser for the duration of a run.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeouts Timeouts
	shots    *Screenshotter
	logger   zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

type SessionOption func(*Session)

func WithScreenshotter(shots *Screenshotter) SessionOption {
	return func(s *Session) {
		s.shots = shots
	}
}

func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithTimeouts(timeouts Timeouts) SessionOption {
	return func(s *Session) {
		s.timeouts = timeouts
	}
}

// Launch starts a local Chromium, or connects to BROWSER_CONTROL_URL when it is set.
func Launch(ctx context.Context, cfg config.BrowserConfig, opts ...SessionOption) (*Session, error) {
	s := &Session{logger: log.Logger, timeouts: DefaultTimeouts}
	for _, opt := range opts {
		opt(s)
	}
	s.timeouts = s.timeouts.withDefaults()
	s.logger = s.logger.With().Str("component", "browser").Logger()

	controlURL := cfg.GetBrowserControlURL()
	if controlURL != "" {
		u, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("error resolving browser control URL (%s): %w", controlURL, err)
		}
		controlURL = u
		s.logger.Info().Str("control_url", controlURL).Msg("Connecting to remote browser")
	} else {
		l := launcher.New().
			Headless(cfg.GetHeadless()).
			Set("ignore-certificate-errors")
		if bin := cfg.GetBrowserBin(); bin != "" {
			l = l.Bin(bin)
		}
		if cfg.GetBrowserNoSandbox() {
			l = l.NoSandbox(true)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("error launching browser: %w", err)
		}
		s.launcher = l
		controlURL = u
		s.logger.Info().Bool("headless", cfg.GetHeadless()).Msg("Browser launched")
	}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("error connecting to browser: %w", err)
	}
	s.browser = b

	// The callback listener serves a self-signed certificate.
	if err := b.IgnoreCertErrors(true); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("error configuring browser: %w", err)
	}
	return s, nil
}

// NewPage opens a blank tab.
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser page: %w", err)
	}
	return &rodPage{
		page:     page,
		timeouts: s.timeouts,
		shots:    s.shots,
		logger:   s.logger,
	}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Context(context.Background()).Close()
		}
		s.cleanupLauncher()
		s.logger.Debug().Msg("Browser closed")
	})
	return s.closeErr
}

func (s *Session) cleanupLauncher() {
	if s.launcher == nil {
		return
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
}
