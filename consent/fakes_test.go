package consent_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-broker-auth/browser"
	"github.com/jrsteele09/go-broker-auth/consent"
)

// fakePage records every primitive call as a short string.
type fakePage struct {
	mu sync.Mutex

	actions []string
	// appearsAfter is the number of Has polls a selector answers false before it is present.
	// Selectors without an entry never appear.
	appearsAfter map[string]int
	hasCalls     map[string]int
	// checkedAfter is the number of clicks a checkbox needs before it reports checked.
	checkedAfter map[string]int
	clicks       map[string]int
	failOn       map[string]error
	// hasErrs are returned by the next Has calls, one per call, before normal answers resume.
	hasErrs      []error
	closed       bool
	url          string
}

var _ browser.Page = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		appearsAfter: map[string]int{},
		hasCalls:     map[string]int{},
		checkedAfter: map[string]int{},
		clicks:       map[string]int{},
		failOn:       map[string]error{},
		url:          "https://sso.example.com/login",
	}
}

func (p *fakePage) record(format string, args ...any) {
	p.actions = append(p.actions, fmt.Sprintf(format, args...))
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate %s", url)
	return p.failOn["navigate"]
}

func (p *fakePage) WaitVisible(_ context.Context, selector, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait %s", selector)
	return p.failOn[selector]
}

func (p *fakePage) WaitClick(_ context.Context, selector, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failOn[selector]; err != nil {
		return err
	}
	p.clicks[selector]++
	p.record("click %s", selector)
	return nil
}

func (p *fakePage) ClickText(_ context.Context, selector, pattern, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("clicktext %s %s", selector, pattern)
	return p.failOn[selector]
}

func (p *fakePage) Type(_ context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("type %s %s", selector, text)
	return p.failOn[selector]
}

func (p *fakePage) Has(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.hasErrs) > 0 {
		err := p.hasErrs[0]
		p.hasErrs = p.hasErrs[1:]
		return false, err
	}
	after, ok := p.appearsAfter[selector]
	calls := p.hasCalls[selector]
	p.hasCalls[selector] = calls + 1
	return ok && calls >= after, nil
}

func (p *fakePage) Checked(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	need, ok := p.checkedAfter[selector]
	if !ok {
		need = 1
	}
	return p.clicks[selector] >= need, nil
}

func (p *fakePage) ScrollIntoView(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("scroll %s", selector)
	return p.failOn[selector]
}

func (p *fakePage) WaitNavigation(_ context.Context, message string, action func() error) error {
	if err := action(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigation %s", message)
	return nil
}

func (p *fakePage) URL() string {
	return p.url
}

func (p *fakePage) Screenshot(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("screenshot %s", stage)
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func (p *fakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeBrowser struct {
	page    *fakePage
	pageErr error
	closes  int
}

func (b *fakeBrowser) NewPage(context.Context) (browser.Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closes++
	return nil
}

func factory(b *fakeBrowser) consent.BrowserFactory {
	return func(context.Context) (consent.Browser, error) {
		return b, nil
	}
}
