package browser

import (
	"context"
	"fmt"
	"log"
	"strings"

	"InvoicePayer/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// NewPage opens a stealth page in a fresh incognito context of b, dressed up
// as a US desktop Chrome. The returned cleanup closes page and context.
func NewPage(ctx context.Context, b *rod.Browser, conf config.BrowserConfig) (*rod.Page, func(), error) {
	incognito, err := b.Incognito()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := stealth.Page(incognito)
	if err != nil {
		_ = incognito.Close()
		return nil, nil, fmt.Errorf("failed to open page: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	page = page.Context(ctx)

	cleanup := func() {
		cancel()
		if err := page.Context(context.Background()).Close(); err != nil {
			log.Printf("Page close error: %v", err)
		}
		if err := incognito.Close(); err != nil {
			log.Printf("Browser context close error: %v", err)
		}
	}

	if err := emulate(page, conf); err != nil {
		cleanup()
		return nil, nil, err
	}
	go watchConsole(page)

	return page, cleanup, nil
}

func emulate(page *rod.Page, conf config.BrowserConfig) error {
	if conf.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      conf.UserAgent,
			AcceptLanguage: conf.Locale,
		}); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if conf.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: conf.Locale}).Call(page); err != nil {
			return fmt.Errorf("failed to set locale: %w", err)
		}
	}
	if conf.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: conf.Timezone}).Call(page); err != nil {
			return fmt.Errorf("failed to set timezone: %w", err)
		}
	}
	if conf.Viewport.Width > 0 && conf.Viewport.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             conf.Viewport.Width,
			Height:            conf.Viewport.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return nil
}

// watchConsole logs browser console errors and warnings plus uncaught page
// exceptions until the page context ends.
func watchConsole(page *rod.Page) {
	page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		if e.Type != proto.RuntimeConsoleAPICalledTypeError && e.Type != proto.RuntimeConsoleAPICalledTypeWarning {
			return
		}
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			if arg.Description != "" {
				parts = append(parts, arg.Description)
				continue
			}
			parts = append(parts, arg.Value.String())
		}
		log.Printf("Browser %s: %s", e.Type, strings.Join(parts, " "))
	}, func(e *proto.RuntimeExceptionThrown) {
		log.Printf("Page error: %s", e.ExceptionDetails.Text)
	})()
}
