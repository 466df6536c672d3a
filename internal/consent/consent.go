// Package consent dismisses cookie banners. It is advisory by construction:
// Dismiss returns an Outcome, never an error, so a banner can not fail a scrape.
package consent

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Status string

const (
	StatusNotPresent Status = "not_present"
	StatusDismissed  Status = "dismissed"
	StatusFailed     Status = "failed"
)

// Page is the part of a browser session the handler needs.
type Page interface {
	Visible(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
}

// Config is the "consent" section of the config file.
type Config struct {
	Dialogs      []string      `yaml:"dialogs"`
	Buttons      []string      `yaml:"buttons"`
	ClickTimeout time.Duration `yaml:"click_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Dialogs: []string{
			`#onetrust-banner-sdk`,
			`#CybotCookiebotDialog`,
			`.cookie-consent`,
			`[id*="cookie"][role="dialog"]`,
			`[class*="cookie"][class*="modal"]`,
		},
		Buttons: []string{
			`#onetrust-accept-btn-handler`,
			`#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll`,
			`button[id*="accept"]`,
			`button[class*="accept"]`,
			`.cookie-consent button`,
		},
		ClickTimeout: 2 * time.Second,
	}
}

// Outcome records what happened. Err is diagnostic only.
type Outcome struct {
	Status   Status
	Selector string
	Err      error
}

type Handler struct {
	cfg    Config
	logger *slog.Logger
}

func NewHandler(cfg Config, logger *slog.Logger) *Handler {
	return &Handler{cfg: cfg, logger: logger}
}

// Dismiss looks for a visible dialog, then clicks the first visible button
// candidate. Without a dialog a button is still tried, some banners have no
// recognisable container.
func (h *Handler) Dismiss(ctx context.Context, page Page) Outcome {
	out := h.dismiss(ctx, page)
	h.logger.Info("consent handled", "status", out.Status, "selector", out.Selector, "error", out.Err)
	return out
}

func (h *Handler) dismiss(ctx context.Context, page Page) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: StatusFailed, Err: errors.New("consent handler panicked")}
		}
	}()

	var errs []error

	dialog := ""
	for _, sel := range h.cfg.Dialogs {
		visible, err := page.Visible(ctx, sel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if visible {
			dialog = sel
			break
		}
	}

	for _, sel := range h.cfg.Buttons {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		visible, err := page.Visible(ctx, sel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !visible {
			continue
		}
		if err := page.Click(ctx, sel, h.cfg.ClickTimeout); err != nil {
			errs = append(errs, err)
			continue
		}
		return Outcome{Status: StatusDismissed, Selector: sel, Err: errors.Join(errs...)}
	}

	if dialog != "" {
		return Outcome{Status: StatusFailed, Selector: dialog, Err: errors.Join(errs...)}
	}
	return Outcome{Status: StatusNotPresent, Err: errors.Join(errs...)}
}
