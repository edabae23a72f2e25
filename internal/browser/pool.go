package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"InvoicePayer/internal/models"
	"InvoicePayer/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// session is one launched browser and the func that tears it down.
type session struct {
	browser *rod.Browser
	close   func()
}

// LaunchFunc starts a browser process and connects to it.
type LaunchFunc func() (*rod.Browser, func(), error)

// Pool hands out at most Size browsers at a time. Browsers are launched on
// first use and reused until a caller reports them broken.
type Pool struct {
	conf    config.BrowserConfig
	launch  LaunchFunc
	slots   chan *session
	mu      sync.Mutex
	live    []*session
	closed  bool
	size    int
	timeout time.Duration
}

// NewPool creates a pool of size browsers launched with conf.
func NewPool(conf config.BrowserConfig, size int) *Pool {
	p := newPool(size, conf.AcquireTimeout, nil)
	p.conf = conf
	p.launch = p.launchBrowser
	return p
}

func newPool(size int, timeout time.Duration, launch LaunchFunc) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		launch:  launch,
		slots:   make(chan *session, size),
		size:    size,
		timeout: timeout,
	}
	for i := 0; i < size; i++ {
		p.slots <- nil
	}
	return p
}

// Size returns the number of browsers the pool allows at once.
func (p *Pool) Size() int { return p.size }

// Acquire waits for a free slot and returns its browser, launching one if the
// slot is empty. release must be called exactly once; pass healthy=false when
// the browser misbehaved so it is closed and relaunched next time.
func (p *Pool) Acquire(ctx context.Context) (*rod.Browser, func(healthy bool), error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var s *session
	select {
	case s = <-p.slots:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("%w: %v", models.ErrBrowserUnavailable, ctx.Err())
	}

	if s == nil {
		b, closeFn, err := p.launch()
		if err != nil {
			p.slots <- nil
			return nil, nil, fmt.Errorf("%w: launch failed: %v", models.ErrBrowserUnavailable, err)
		}
		s = &session{browser: b, close: closeFn}
		p.track(s)
	}

	var once sync.Once
	release := func(healthy bool) {
		once.Do(func() {
			if healthy {
				p.slots <- s
				return
			}
			log.Println("Discarding unhealthy browser session.")
			p.untrack(s)
			s.close()
			p.slots <- nil
		})
	}
	return s.browser, release, nil
}

func (p *Pool) track(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = append(p.live, s)
}

func (p *Pool) untrack(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.live {
		if l == s {
			p.live = append(p.live[:i], p.live[i+1:]...)
			return
		}
	}
}

// Close shuts down every browser the pool launched.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, s := range p.live {
		s.close()
	}
	p.live = nil
}

func (p *Pool) launchBrowser() (*rod.Browser, func(), error) {
	l := launcher.New().
		Headless(p.conf.Headless).
		NoSandbox(p.conf.NoSandbox)
	if p.conf.Bin != "" {
		l = l.Bin(p.conf.Bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, nil, err
	}

	b := rod.New().ControlURL(u)
	if p.conf.SlowMotion > 0 {
		b = b.SlowMotion(p.conf.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, err
	}
	log.Printf("Launched browser (headless=%t).", p.conf.Headless)

	closeFn := func() {
		if err := b.Close(); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Browser cleanup error: %v", err)
		}
		l.Kill()
	}
	return b, closeFn, nil
}
