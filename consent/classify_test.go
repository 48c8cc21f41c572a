package consent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-broker-auth/consent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	sel := consent.DefaultSelectors()

	tests := []struct {
		name         string
		appearsAfter map[string]int
		want         consent.PageState
	}{
		{
			name:         "mobile approval",
			appearsAfter: map[string]int{sel.MobileApprove: 0},
			want:         consent.MobileApprovalPage,
		},
		{
			name:         "terms",
			appearsAfter: map[string]int{sel.TermsCheckbox: 0},
			want:         consent.TermsPage,
		},
		{
			name:         "both markers prefer mobile approval",
			appearsAfter: map[string]int{sel.MobileApprove: 0, sel.TermsCheckbox: 0},
			want:         consent.MobileApprovalPage,
		},
		{
			name:         "terms renders late",
			appearsAfter: map[string]int{sel.TermsCheckbox: 5},
			want:         consent.TermsPage,
		},
		{
			name: "neither marker",
			want: consent.UnknownPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			for k, v := range tt.appearsAfter {
				page.appearsAfter[k] = v
			}

			got, err := consent.Classify(context.Background(), page, sel, time.Second, time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyGivesUpAfterSettle(t *testing.T) {
	page := newFakePage()
	start := time.Now()

	got, err := consent.Classify(context.Background(), page, consent.DefaultSelectors(), 30*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, consent.UnknownPage, got)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Greater(t, page.hasCalls[consent.DefaultSelectors().MobileApprove], 1)
}

func TestClassifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := consent.Classify(ctx, newFakePage(), consent.DefaultSelectors(), time.Minute, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, consent.UnknownPage, got)
}

func TestPageStateString(t *testing.T) {
	assert.Equal(t, "LoginPage", consent.LoginPage.String())
	assert.Equal(t, "ConfirmationPage", consent.ConfirmationPage.String())
	assert.Equal(t, "UnknownPage", consent.PageState(99).String())
}

func TestClassifyRidesOutTransientPageErrors(t *testing.T) {
	sel := consent.DefaultSelectors()
	page := newFakePage()
	page.appearsAfter[sel.TermsCheckbox] = 0
	page.hasErrs = []error{errors.New("Execution context was destroyed")}

	got, err := consent.Classify(context.Background(), page, sel, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, consent.TermsPage, got)
}

func TestClassifyReturnsPageErrorWhenNothingSucceeds(t *testing.T) {
	page := newFakePage()
	boom := errors.New("Execution context was destroyed")
	page.hasErrs = make([]error, 1000)
	for i := range page.hasErrs {
		page.hasErrs[i] = boom
	}

	got, err := consent.Classify(context.Background(), page, consent.DefaultSelectors(), 20*time.Millisecond, 5*time.Millisecond)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, consent.UnknownPage, got)
}

func TestDefaultContinueTextIsJavaScriptRegex(t *testing.T) {
	text := consent.DefaultSelectors().ContinueText
	assert.Regexp(t, `^/.+/[dgimsuy]*$`, text)
	assert.NotContains(t, text, "(?")
}
