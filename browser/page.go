package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/rs/zerolog"
)

// Page is the set of browser primitives the consent flow is written against.
// Every wait is bounded by the page's per-wait timeout and by ctx.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector, description string) error
	WaitClick(ctx context.Context, selector, description string) error
	// ClickText clicks the first selector match whose text matches pattern, a JavaScript
	// regex in rod's /pattern/flags form.
	ClickText(ctx context.Context, selector, pattern, description string) error
	Type(ctx context.Context, selector, text string) error
	Has(ctx context.Context, selector string) (bool, error)
	Checked(ctx context.Context, selector string) (bool, error)
	ScrollIntoView(ctx context.Context, selector string) error
	// WaitNavigation runs action and blocks until the page it triggers has loaded.
	WaitNavigation(ctx context.Context, message string, action func() error) error
	URL() string
	Screenshot(stage string)
	Close() error
}

// Timeouts bound the individual page waits. Zero values fall back to DefaultTimeouts.
type Timeouts struct {
	Wait       time.Duration
	Navigation time.Duration
}

var DefaultTimeouts = Timeouts{Wait: 30 * time.Second, Navigation: 30 * time.Second}

func (t Timeouts) withDefaults() Timeouts {
	if t.Wait <= 0 {
		t.Wait = DefaultTimeouts.Wait
	}
	if t.Navigation <= 0 {
		t.Navigation = DefaultTimeouts.Navigation
	}
	return t
}

type rodPage struct {
	page     *rod.Page
	timeouts Timeouts
	shots    *Screenshotter
	logger   zerolog.Logger
}

var _ Page = (*rodPage)(nil)

func (r *rodPage) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Navigation)
	defer cancel()
	p := r.page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return waitError("navigate", err)
	}
	if err := p.WaitLoad(); err != nil {
		return waitError("page load", err)
	}
	return nil
}

func (r *rodPage) element(ctx context.Context, selector, description string) (*rod.Element, error) {
	el, err := r.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, waitError(description, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, waitError(description, err)
	}
	return el, nil
}

func (r *rodPage) WaitVisible(ctx context.Context, selector, description string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Wait)
	defer cancel()
	_, err := r.element(ctx, selector, description)
	return err
}

func (r *rodPage) WaitClick(ctx context.Context, selector, description string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Wait)
	defer cancel()

	el, err := r.element(ctx, selector, description)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", description, err)
	}
	r.logger.Debug().Str("selector", selector).Msgf("Clicked %s", description)
	return nil
}

func (r *rodPage) ClickText(ctx context.Context, selector, pattern, description string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Wait)
	defer cancel()

	el, err := r.page.Context(ctx).ElementR(selector, pattern)
	if err != nil {
		return waitError(description, err)
	}
	if err := el.WaitVisible(); err != nil {
		return waitError(description, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", description, err)
	}
	r.logger.Debug().Str("selector", selector).Str("pattern", pattern).Msgf("Clicked %s", description)
	return nil
}

func (r *rodPage) Type(ctx context.Context, selector, text string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Wait)
	defer cancel()

	el, err := r.element(ctx, selector, selector)
	if err != nil {
		return err
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// Has reports whether selector currently matches, without waiting.
func (r *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := r.page.Context(ctx).Has(selector)
	return has, err
}

func (r *rodPage) Checked(ctx context.Context, selector string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Wait)
	defer cancel()

	el, err := r.page.Context(ctx).Element(selector)
	if err != nil {
		return false, waitError(selector, err)
	}
	checked, err := el.Property("checked")
	if err != nil {
		return false, fmt.Errorf("read checked state of %s: %w", selector, err)
	}
	return checked.Bool(), nil
}

func (r *rodPage) ScrollIntoView(ctx context.Context, selector string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Wait)
	defer cancel()

	el, err := r.page.Context(ctx).Element(selector)
	if err != nil {
		return waitError(selector, err)
	}
	return el.ScrollIntoView()
}

func (r *rodPage) WaitNavigation(ctx context.Context, message string, action func() error) error {
	navCtx, cancel := context.WithTimeout(ctx, r.timeouts.Navigation)
	defer cancel()

	// Armed before the action so a fast load is not missed.
	wait := r.page.Context(navCtx).WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := action(); err != nil {
		return err
	}
	wait()
	if err := navCtx.Err(); err != nil {
		return waitError(message, err)
	}
	r.logger.Debug().Str("url", r.URL()).Msg(message)
	return nil
}

func (r *rodPage) URL() string {
	info, err := r.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (r *rodPage) Screenshot(stage string) {
	if r.shots == nil || !r.shots.Enabled() {
		return
	}
	// Detached from the run context so a failure screenshot survives cancellation.
	data, err := r.page.Context(context.Background()).Timeout(r.timeouts.Wait).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		r.logger.Err(err).Str("stage", stage).Msg("Failed to take screenshot")
		return
	}
	r.shots.Save(stage, data)
}

func (r *rodPage) Close() error {
	return r.page.Context(context.Background()).Close()
}

func waitError(description string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", apperrors.ErrPageWaitTimeout, description, err)
	}
	return fmt.Errorf("%s: %w", description, err)
}
