package consent

import (
	"context"
	"time"

	"github.com/jrsteele09/go-broker-auth/browser"
	"github.com/jrsteele09/go-broker-auth/internal/config"
	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const startStage = "Start"

// Browser is a running browser that can open tabs.
type Browser interface {
	NewPage(ctx context.Context) (browser.Page, error)
	Close() error
}

// BrowserFactory starts the browser for a single run.
type BrowserFactory func(ctx context.Context) (Browser, error)

type stateHandler func(ctx context.Context, page browser.Page) (next PageState, done bool, err error)

// Driver walks a browser through the provider's consent screens until the
// provider redirects to the callback listener.
type Driver struct {
	openBrowser BrowserFactory
	cfg         config.FlowConfig
	selectors   Selectors
	logger      zerolog.Logger
}

type DriverOption func(*Driver)

func WithSelectors(selectors Selectors) DriverOption {
	return func(d *Driver) {
		d.selectors = selectors
	}
}

func WithLogger(logger zerolog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

func NewDriver(openBrowser BrowserFactory, cfg config.FlowConfig, opts ...DriverOption) *Driver {
	d := &Driver{
		openBrowser: openBrowser,
		cfg:         cfg,
		selectors:   DefaultSelectors(),
		logger:      log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("component", "consent").Logger()
	return d
}

// Run drives the consent flow starting at authorizeURL. The browser is closed on
// every return path. Failures are returned as *errors.ConsentFlowError.
func (d *Driver) Run(ctx context.Context, authorizeURL string) error {
	if timeout := d.cfg.GetDriverTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	b, err := d.openBrowser(ctx)
	if err != nil {
		return d.fail(startStage, err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	page, err := b.NewPage(ctx)
	if err != nil {
		return d.fail(startStage, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			d.logger.Debug().Err(err).Msg("Failed to close page")
		}
	}()

	state, err := d.drive(ctx, page, authorizeURL)
	if err != nil {
		page.Screenshot("failed_" + state.String())
		return d.fail(state.String(), err)
	}
	d.logger.Info().Msg("Consent flow complete, browser redirected to callback")
	return nil
}

func (d *Driver) fail(stage string, err error) error {
	d.logger.Error().Err(err).Str("state", stage).Msg("Consent flow failed")
	return &apperrors.ConsentFlowError{State: stage, Err: err}
}

func (d *Driver) drive(ctx context.Context, page browser.Page, authorizeURL string) (PageState, error) {
	state := LoginPage
	d.logger.Info().Msg("Opening authorization page")
	if err := page.Navigate(ctx, authorizeURL); err != nil {
		return state, err
	}

	handlers := map[PageState]stateHandler{
		LoginPage:            d.login,
		MobileApprovalPage:   d.mobileApproval,
		TermsPage:            d.terms,
		UnknownPage:          d.unknown,
		AccountSelectionPage: d.accountSelection,
		ConfirmationPage:     d.confirmation,
	}
	for {
		page.Screenshot(state.String())
		d.logger.Info().Stringer("state", state).Msg("Handling consent page")

		next, done, err := handlers[state](ctx, page)
		if err != nil {
			return state, err
		}
		if done {
			return state, nil
		}
		state = next
	}
}

func (d *Driver) login(ctx context.Context, page browser.Page) (PageState, bool, error) {
	sel := d.selectors
	if err := page.WaitVisible(ctx, sel.Username, "username field"); err != nil {
		return 0, false, err
	}
	if err := page.Type(ctx, sel.Username, d.cfg.GetLoginID()); err != nil {
		return 0, false, err
	}
	// The password field may only render once the username is filled.
	if err := page.Type(ctx, sel.Password, d.cfg.GetPassword()); err != nil {
		return 0, false, err
	}
	err := page.WaitNavigation(ctx, "Login submitted", func() error {
		return page.WaitClick(ctx, sel.LoginSubmit, "login button")
	})
	if err != nil {
		return 0, false, err
	}

	next, err := Classify(ctx, page, sel, d.cfg.GetSettleTimeout(), d.cfg.GetSettlePollInterval())
	if err != nil {
		return 0, false, err
	}
	d.logger.Info().Stringer("page", next).Msg("Post-login page classified")
	return next, false, nil
}

func (d *Driver) mobileApproval(ctx context.Context, page browser.Page) (PageState, bool, error) {
	sel := d.selectors
	steps := []struct {
		selector    string
		description string
	}{
		{sel.MobileApprove, "mobile approval option"},
		{sel.RememberDevice, "remember this device"},
	}
	for _, step := range steps {
		if err := page.WaitClick(ctx, step.selector, step.description); err != nil {
			return 0, false, err
		}
	}
	if err := page.ClickText(ctx, sel.ContinueButton, sel.ContinueText, "continue button"); err != nil {
		return 0, false, err
	}
	if err := d.acceptTerms(ctx, page); err != nil {
		return 0, false, err
	}
	err := page.WaitNavigation(ctx, "Mobile approval complete", func() error {
		return page.WaitClick(ctx, sel.FinalContinue, "final continue button")
	})
	if err != nil {
		return 0, false, err
	}
	return AccountSelectionPage, false, nil
}

func (d *Driver) terms(ctx context.Context, page browser.Page) (PageState, bool, error) {
	sel := d.selectors
	for _, selector := range []string{sel.TermsCheckbox, sel.TermsSubmit} {
		if err := page.ScrollIntoView(ctx, selector); err != nil {
			return 0, false, err
		}
	}
	if err := sleep(ctx, d.cfg.GetScrollSettle()); err != nil {
		return 0, false, err
	}
	if err := page.WaitClick(ctx, sel.TermsCheckbox, "terms checkbox"); err != nil {
		return 0, false, err
	}
	if err := page.WaitClick(ctx, sel.TermsSubmit, "terms submit button"); err != nil {
		return 0, false, err
	}
	err := page.WaitNavigation(ctx, "Terms accepted", func() error {
		return page.WaitClick(ctx, sel.TermsModalAgree, "terms agree button")
	})
	if err != nil {
		return 0, false, err
	}
	return AccountSelectionPage, false, nil
}

// acceptTerms ticks the terms checkbox inside the mobile approval variant and confirms the modal.
func (d *Driver) acceptTerms(ctx context.Context, page browser.Page) error {
	sel := d.selectors
	if err := page.WaitClick(ctx, sel.TermsCheckbox, "terms checkbox"); err != nil {
		return err
	}
	if err := page.WaitClick(ctx, sel.TermsSubmit, "terms submit button"); err != nil {
		return err
	}
	return page.WaitClick(ctx, sel.TermsModalAgree, "terms agree button")
}

func (d *Driver) unknown(_ context.Context, page browser.Page) (PageState, bool, error) {
	d.logger.Warn().
		Str("url", page.URL()).
		Msg("Post-login page not recognised, continuing to account selection")
	return AccountSelectionPage, false, nil
}

func (d *Driver) accountSelection(ctx context.Context, page browser.Page) (PageState, bool, error) {
	sel := d.selectors
	if err := page.WaitClick(ctx, sel.AccountCheckbox, "account checkbox"); err != nil {
		return 0, false, err
	}
	checked, err := page.Checked(ctx, sel.AccountCheckbox)
	if err != nil {
		return 0, false, err
	}
	if !checked {
		d.logger.Debug().Msg("Account checkbox did not register, clicking again")
		if err := page.WaitClick(ctx, sel.AccountCheckbox, "account checkbox"); err != nil {
			return 0, false, err
		}
	}
	err = page.WaitNavigation(ctx, "Accounts selected", func() error {
		return page.WaitClick(ctx, sel.AccountSubmit, "account submit button")
	})
	if err != nil {
		return 0, false, err
	}
	return ConfirmationPage, false, nil
}

func (d *Driver) confirmation(ctx context.Context, page browser.Page) (PageState, bool, error) {
	err := page.WaitNavigation(ctx, "Redirected to callback", func() error {
		return page.WaitClick(ctx, d.selectors.ConfirmationDone, "done button")
	})
	if err != nil {
		return 0, false, err
	}
	return ConfirmationPage, true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
