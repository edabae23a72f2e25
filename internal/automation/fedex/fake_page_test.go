package fedex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// fakePage records every action and answers Race calls from a script.
// Answers with a class stay on screen, so a later race whose selectors still
// match them resolves on the old element, as a real page would.
type fakePage struct {
	actions   []string
	races     []raceAnswer
	failOn    map[string]error
	snapshots int
	screen    []*fakeMessage
}

type raceAnswer struct {
	result *raceResult
	err    error
	class  string
}

type fakeMessage struct {
	class  string
	stale  bool
	result raceResult
}

// matches understands the selector shapes used by the flow: ".class",
// ".class:not([attr])" and comma separated lists of those.
func (m *fakeMessage) matches(selector string) bool {
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		base, notStale, _ := strings.Cut(part, ":not(")
		if base != "."+m.class {
			continue
		}
		if notStale != "" && m.stale {
			continue
		}
		return true
	}
	return false
}

func newFakePage(races ...raceAnswer) *fakePage {
	return &fakePage{races: races, failOn: map[string]error{}}
}

func (f *fakePage) record(action string) error {
	f.actions = append(f.actions, action)
	if err, ok := f.failOn[action]; ok {
		return err
	}
	return nil
}

func (f *fakePage) Navigate(url string, _ time.Duration) error {
	return f.record("navigate " + url)
}

func (f *fakePage) WaitVisible(selector string, _ time.Duration) error {
	return f.record("wait " + selector)
}

func (f *fakePage) Fill(selector, value string) error {
	return f.record(fmt.Sprintf("fill %s=%s", selector, value))
}

func (f *fakePage) Select(selector, value string) error {
	return f.record(fmt.Sprintf("select %s=%s", selector, value))
}

func (f *fakePage) Click(selector string) error {
	return f.record("click " + selector)
}

func (f *fakePage) Check(selector string) error {
	return f.record("check " + selector)
}

func (f *fakePage) Race(_ time.Duration, selectors ...string) (*raceResult, error) {
	f.actions = append(f.actions, fmt.Sprintf("race %v", selectors))
	for _, m := range f.screen {
		for _, sel := range selectors {
			if m.matches(sel) {
				res := m.result
				res.Selector = sel
				return &res, nil
			}
		}
	}
	if len(f.races) == 0 {
		return nil, errTimeout
	}
	next := f.races[0]
	f.races = f.races[1:]
	if next.class != "" && next.result != nil {
		f.screen = append(f.screen, &fakeMessage{class: next.class, result: *next.result})
	}
	return next.result, next.err
}

func (f *fakePage) MarkStale(selectors ...string) error {
	if err := f.record(fmt.Sprintf("mark stale %v", selectors)); err != nil {
		return err
	}
	for _, m := range f.screen {
		for _, sel := range selectors {
			if m.matches(sel) {
				m.stale = true
			}
		}
	}
	return nil
}

func (f *fakePage) Snapshot(bool) (string, []byte, error) {
	f.snapshots++
	return "<html><body>snapshot</body></html>", nil, nil
}

type fakeOpener struct {
	page     *fakePage
	err      error
	released []bool
}

func (o *fakeOpener) Open(context.Context) (formPage, func(bool), error) {
	if o.err != nil {
		return nil, nil, o.err
	}
	return o.page, func(healthy bool) { o.released = append(o.released, healthy) }, nil
}

var errBrowserCrashed = errors.New("websocket closed")
