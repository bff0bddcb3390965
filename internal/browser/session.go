// Package browser drives the headless Chrome session used to log in and
// read the runs listing.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"velib_runs/internal/config"
	"velib_runs/internal/metrics"
	"velib_runs/internal/runs"
)

var (
	ErrLoginFormMissing = errors.New("login form not found")
	ErrLoginRejected    = errors.New("login rejected")
)

// Session is an authenticated browsing context. It is not safe for
// concurrent use.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ runs.Page = (*Session)(nil)

// New starts Chrome. The browser lives until Close or until ctx is done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	// An empty Run launches the browser so startup failures surface here
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		cfg:         cfg,
		logger:      logger,
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Close shuts the tab and the browser process.
func (s *Session) Close() {
	s.cancelTab()
	s.cancelAlloc()
}

// bind derives a context for chromedp actions from the tab context, limited
// by timeout (when positive) and by the caller's deadline and cancellation.
func (s *Session) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.tab)
	cancels := []context.CancelFunc{cancel}
	if dl, ok := ctx.Deadline(); ok {
		var c context.CancelFunc
		runCtx, c = context.WithDeadline(runCtx, dl)
		cancels = append(cancels, c)
	}
	if timeout > 0 {
		var c context.CancelFunc
		runCtx, c = context.WithTimeout(runCtx, timeout)
		cancels = append(cancels, c)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		for _, c := range cancels {
			c()
		}
	}
}

// Login opens the login page, fills the two named fields and submits the
// form. It returns once the form is gone; a form that stays on screen past
// the render timeout means the credentials were refused.
func (s *Session) Login(ctx context.Context, username, password string) error {
	start := time.Now()
	sel := s.cfg.Selectors

	navCtx, cancel := s.bind(ctx, s.cfg.PageLoadTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(s.cfg.LoginURL))
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	formCtx, cancel := s.bind(ctx, s.cfg.RenderTimeout)
	err = chromedp.Run(formCtx,
		chromedp.WaitVisible(sel.UsernameField, chromedp.ByQuery),
		chromedp.WaitVisible(sel.PasswordField, chromedp.ByQuery),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFormMissing, err)
	}

	submitCtx, cancel := s.bind(ctx, s.cfg.RenderTimeout)
	err = chromedp.Run(submitCtx,
		chromedp.SendKeys(sel.UsernameField, username, chromedp.ByQuery),
		chromedp.SendKeys(sel.PasswordField, password, chromedp.ByQuery),
		chromedp.Submit(sel.PasswordField, chromedp.ByQuery),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to submit credentials: %w", err)
	}

	goneCtx, cancel := s.bind(ctx, s.cfg.RenderTimeout)
	err = chromedp.Run(goneCtx, chromedp.WaitNotPresent(sel.PasswordField, chromedp.ByQuery))
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: login form still shown after %s", ErrLoginRejected, s.cfg.RenderTimeout)
	}

	metrics.RecordLogin(time.Since(start))
	s.logger.Info("logged in", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// OpenListing navigates to the runs listing using the configured post-login
// strategy and checks that the site did not bounce back to the login page.
func (s *Session) OpenListing(ctx context.Context) error {
	loads := []chromedp.Action{chromedp.Navigate(s.cfg.ListingURL)}
	if s.cfg.PostLogin == config.PostLoginReload {
		// The listing is rendered client side after the fragment route
		// resolves; a full reload forces it on the first visit.
		loads = append(loads, chromedp.Reload())
	}
	for _, load := range loads {
		loadCtx, cancel := s.bind(ctx, s.cfg.PageLoadTimeout)
		err := chromedp.Run(loadCtx, load)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to open listing: %w", err)
		}
	}
	if s.cfg.PostLogin == config.PostLoginReload && s.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.SettleDelay):
		}
	}

	navCtx, cancel := s.bind(ctx, s.cfg.PageLoadTimeout)
	defer cancel()

	var location string
	var cookies int
	err := chromedp.Run(navCtx,
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookieParams, err := network.GetCookies().Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to get cookies: %w", err)
			}
			cookies = len(cookieParams)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to inspect listing: %w", err)
	}

	if isLoginPage(location, s.cfg.LoginURL) {
		return fmt.Errorf("%w: redirected to %s", ErrLoginRejected, location)
	}
	if cookies == 0 {
		s.logger.Warn("no cookies after login, session may not persist", "location", location)
	}
	s.logger.Debug("listing opened", "location", location, "cookies", cookies, "strategy", s.cfg.PostLogin)
	return nil
}

// Snapshot reads pagination labels and run entries in one evaluation.
func (s *Session) Snapshot(ctx context.Context) (runs.Snapshot, error) {
	runCtx, cancel := s.bind(ctx, 0)
	defer cancel()

	var snap runs.Snapshot
	if err := chromedp.Run(runCtx, chromedp.Evaluate(snapshotScript(s.cfg.Selectors), &snap)); err != nil {
		return runs.Snapshot{}, fmt.Errorf("failed to read listing: %w", err)
	}
	return snap, nil
}

// Activate clicks the pagination control at index control.
func (s *Session) Activate(ctx context.Context, control int) error {
	runCtx, cancel := s.bind(ctx, s.cfg.RenderTimeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(s.cfg.Selectors.Pagination, &nodes, chromedp.ByQueryAll)); err != nil {
		return fmt.Errorf("failed to find pagination controls: %w", err)
	}
	if control < 0 || control >= len(nodes) {
		return fmt.Errorf("pagination control %d out of range (%d controls)", control, len(nodes))
	}

	if err := chromedp.Run(runCtx, chromedp.MouseClickNode(nodes[control])); err != nil {
		return fmt.Errorf("failed to click pagination control %d: %w", control, err)
	}
	s.logger.Debug("clicked pagination control", "index", control, "of", len(nodes))
	return nil
}

// isLoginPage reports whether location is the login URL, ignoring query
// and fragment.
func isLoginPage(location, loginURL string) bool {
	trim := func(u string) string {
		if i := strings.IndexAny(u, "?#"); i >= 0 {
			u = u[:i]
		}
		return strings.TrimSuffix(u, "/")
	}
	return location != "" && trim(location) == trim(loginURL)
}
