package fedex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"InvoicePayer/internal/browser"
	"InvoicePayer/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// errTimeout is returned when a waited-for element never shows up.
var errTimeout = errors.New("timed out waiting for element")

// formPage is the handful of page actions the payment flow needs.
type formPage interface {
	Navigate(url string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	Fill(selector, value string) error
	Select(selector, value string) error
	Click(selector string) error
	Check(selector string) error
	// Race waits for the first of selectors to become visible.
	Race(timeout time.Duration, selectors ...string) (*raceResult, error)
	MarkStale(selectors ...string) error
	Snapshot(screenshot bool) (string, []byte, error)
}

// raceResult is the element that won a Race.
type raceResult struct {
	Selector string
	Text     string
	HTML     string
}

// pageOpener hands out a ready page and the func that gives it back.
type pageOpener interface {
	Open(ctx context.Context) (formPage, func(healthy bool), error)
}

type browserPool interface {
	Acquire(ctx context.Context) (*rod.Browser, func(healthy bool), error)
}

type rodOpener struct {
	pool           browserPool
	conf           config.BrowserConfig
	elementTimeout time.Duration
}

func (o *rodOpener) Open(ctx context.Context) (formPage, func(bool), error) {
	b, release, err := o.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	page, cleanup, err := browser.NewPage(ctx, b, o.conf)
	if err != nil {
		release(false)
		return nil, nil, err
	}
	done := func(healthy bool) {
		cleanup()
		release(healthy)
	}
	return &rodPage{page: page, elementTimeout: o.elementTimeout}, done, nil
}

// rodPage implements formPage on a live rod page.
type rodPage struct {
	page           *rod.Page
	elementTimeout time.Duration
}

func timeoutErr(selector string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", errTimeout, selector)
	}
	return fmt.Errorf("%s: %w", selector, err)
}

func (r *rodPage) element(selector string, timeout time.Duration) (*rod.Element, error) {
	p := r.page.Timeout(timeout)
	el, err := p.Element(selector)
	if err != nil {
		p.CancelTimeout()
		return nil, timeoutErr(selector, err)
	}
	return el.CancelTimeout(), nil
}

func (r *rodPage) Navigate(url string, timeout time.Duration) error {
	p := r.page.Timeout(timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

func (r *rodPage) WaitVisible(selector string, timeout time.Duration) error {
	p := r.page.Timeout(timeout)
	el, err := p.Element(selector)
	if err != nil {
		p.CancelTimeout()
		return timeoutErr(selector, err)
	}
	defer el.CancelTimeout()

	if err := el.WaitVisible(); err != nil {
		return timeoutErr(selector, err)
	}
	return nil
}

func (r *rodPage) Fill(selector, value string) error {
	el, err := r.element(selector, r.elementTimeout)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("%s: clear: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("%s: input: %w", selector, err)
	}
	return nil
}

func (r *rodPage) Select(selector, value string) error {
	el, err := r.element(selector, r.elementTimeout)
	if err != nil {
		return err
	}
	option := fmt.Sprintf(`option[value=%q]`, value)
	if err := el.Select([]string{option}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("%s: select %q: %w", selector, value, err)
	}
	return nil
}

func (r *rodPage) Click(selector string) error {
	el, err := r.element(selector, r.elementTimeout)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%s: click: %w", selector, err)
	}
	return nil
}

func (r *rodPage) Check(selector string) error {
	el, err := r.element(selector, r.elementTimeout)
	if err != nil {
		return err
	}
	checked, err := el.Property("checked")
	if err != nil {
		return fmt.Errorf("%s: read checked: %w", selector, err)
	}
	if checked.Bool() {
		return nil
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%s: check: %w", selector, err)
	}
	return nil
}

func (r *rodPage) Race(timeout time.Duration, selectors ...string) (*raceResult, error) {
	p := r.page.Timeout(timeout)
	res := &raceResult{}
	rc := p.Race()
	for _, sel := range selectors {
		sel := sel
		rc = rc.ElementFunc(func(p *rod.Page) (*rod.Element, error) {
			el, err := firstVisible(p, sel)
			if err == nil {
				res.Selector = sel
			}
			return el, err
		})
	}
	el, err := rc.Do()
	if err != nil {
		p.CancelTimeout()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errTimeout
		}
		return nil, err
	}
	el = el.CancelTimeout()

	res.Text, _ = el.Text()
	res.HTML, _ = el.HTML()
	return res, nil
}

// firstVisible returns the first rendered match of selector. Hidden matches
// count as not found so the race keeps polling.
func firstVisible(p *rod.Page, selector string) (*rod.Element, error) {
	els, err := p.Elements(selector)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		if visible, err := el.Visible(); err == nil && visible {
			return el, nil
		}
	}
	return nil, &rod.ErrElementNotFound{}
}

// MarkStale tags every current match of selectors so later races can skip them.
func (r *rodPage) MarkStale(selectors ...string) error {
	_, err := r.page.Eval(`(sel, attr) => document.querySelectorAll(sel).forEach(e => e.setAttribute(attr, ""))`,
		strings.Join(selectors, ", "), staleAttr)
	if err != nil {
		return fmt.Errorf("mark stale messages: %w", err)
	}
	return nil
}

func (r *rodPage) Snapshot(screenshot bool) (string, []byte, error) {
	html, err := r.page.HTML()
	if err != nil {
		return "", nil, err
	}
	if !screenshot {
		return html, nil, nil
	}
	png, err := r.page.Screenshot(true, nil)
	if err != nil {
		return html, nil, err
	}
	return html, png, nil
}
