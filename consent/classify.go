package consent

import (
	"context"
	"time"

	"github.com/jrsteele09/go-broker-auth/browser"
	"github.com/rs/zerolog/log"
)

const defaultPollInterval = 250 * time.Millisecond

type marker struct {
	state    PageState
	selector string
}

// Classify polls the post-login page for the mobile approval marker and then the terms
// marker until one appears or settle elapses. Mobile approval wins when both are present.
// UnknownPage is returned when neither shows up in time.
//
// A failed check counts as absent while the page is still settling. The last error
// is returned only when no check succeeded before the deadline.
func Classify(ctx context.Context, page browser.Page, sel Selectors, settle, poll time.Duration) (PageState, error) {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	markers := []marker{
		{state: MobileApprovalPage, selector: sel.MobileApprove},
		{state: TermsPage, selector: sel.TermsCheckbox},
	}

	var (
		lastErr error
		checked bool
	)
	deadline := time.Now().Add(settle)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		for _, m := range markers {
			has, err := page.Has(ctx, m.selector)
			if err != nil {
				if ctx.Err() != nil {
					return UnknownPage, ctx.Err()
				}
				log.Debug().Err(err).Str("selector", m.selector).Msg("Marker check failed, still settling")
				lastErr = err
				continue
			}
			checked = true
			if has {
				return m.state, nil
			}
		}
		if !time.Now().Before(deadline) {
			if !checked {
				return UnknownPage, lastErr
			}
			return UnknownPage, nil
		}
		select {
		case <-ctx.Done():
			return UnknownPage, ctx.Err()
		case <-ticker.C:
		}
	}
}
