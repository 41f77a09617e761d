// Package chrome implements portal.Driver on a Chrome DevTools Protocol
// connection. Locators compile to XPath; a handle is the XPath of one
// concrete match.
package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/pithecene-io/agharvest/log"
	"github.com/pithecene-io/agharvest/portal"
	"github.com/pithecene-io/agharvest/types"
)

// DefaultPopupTimeout bounds the wait for a window opened by a click.
const DefaultPopupTimeout = 20 * time.Second

// Options configures the browser.
type Options struct {
	// RemoteURL attaches to a running browser instead of launching one.
	RemoteURL string
	// ExecPath overrides the Chrome binary.
	ExecPath  string
	Headless  bool
	UserAgent string
	// Proxy routes browser traffic. Credentials are answered through the
	// fetch domain since Chrome ignores them in --proxy-server.
	Proxy *types.ProxyEndpoint
	// ManualOverlayScroll makes the workflow scroll overlay options into
	// view itself before clicking them.
	ManualOverlayScroll bool
	PopupTimeout        time.Duration
	Logger              *log.Logger
}

// Driver drives one browser tab.
type Driver struct {
	tab    context.Context
	cancel context.CancelFunc
	// release tears down the allocator; nil for popup tabs.
	release context.CancelFunc
	opts    Options

	mu      sync.Mutex
	dialog  *string
	opening chan struct{}
}

var _ portal.Driver = (*Driver)(nil)

// Launch starts or attaches to a browser and opens a tab.
func Launch(ctx context.Context, opts Options) (*Driver, error) {
	if opts.PopupTimeout <= 0 {
		opts.PopupTimeout = DefaultPopupTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), opts.RemoteURL)
	} else {
		flags := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", opts.Headless),
		)
		if opts.ExecPath != "" {
			flags = append(flags, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.UserAgent != "" {
			flags = append(flags, chromedp.UserAgent(opts.UserAgent))
		}
		if opts.Proxy != nil {
			flags = append(flags, chromedp.ProxyServer(opts.Proxy.ServerAddr()))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), flags...)
	}

	sugar := opts.Logger.Named("chrome").Sugar()
	tab, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(sugar.Debugf), chromedp.WithErrorf(sugar.Warnf))
	d := newDriver(tab, cancel, opts)
	d.release = allocCancel

	var start []chromedp.Action
	if p := opts.Proxy; p != nil && p.Username != "" {
		d.answerProxyAuth(p.Username, p.Password)
		start = append(start, fetch.Enable().WithHandleAuthRequests(true))
	}
	if err := d.run(ctx, start...); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return d, nil
}

func newDriver(tab context.Context, cancel context.CancelFunc, opts Options) *Driver {
	d := &Driver{
		tab:     tab,
		cancel:  cancel,
		opts:    opts,
		opening: make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tab, func(ev any) {
		switch ev := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			msg := ev.Message
			d.mu.Lock()
			d.dialog = &msg
			d.mu.Unlock()
			select {
			case d.opening <- struct{}{}:
			default:
			}
		case *page.EventJavascriptDialogClosed:
			d.mu.Lock()
			d.dialog = nil
			d.mu.Unlock()
		}
	})
	return d
}

func (d *Driver) answerProxyAuth(user, pass string) {
	chromedp.ListenTarget(d.tab, func(ev any) {
		switch ev := ev.(type) {
		case *fetch.EventAuthRequired:
			go func() {
				_ = chromedp.Run(d.tab, fetch.ContinueWithAuth(ev.RequestID, &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: user,
					Password: pass,
				}))
			}()
		case *fetch.EventRequestPaused:
			go func() {
				_ = chromedp.Run(d.tab, fetch.ContinueRequest(ev.RequestID))
			}()
		}
	})
}

// run executes actions on the tab, bounded by the caller's context.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// interact runs a pointer action that may open a native dialog. A dialog
// blocks the page until handled, so the action counts as done as soon as
// one opens.
func (d *Driver) interact(ctx context.Context, action chromedp.Action) error {
	select {
	case <-d.opening:
	default:
	}
	done := make(chan error, 1)
	go func() { done <- d.run(context.WithoutCancel(ctx), action) }()
	select {
	case err := <-done:
		return err
	case <-d.opening:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) eval(ctx context.Context, expr string, res any) error {
	return d.run(ctx, chromedp.Evaluate(expr, res))
}

// onElement wraps body in a function receiving the element at xpath.
// The expression evaluates to null when the element is gone.
func onElement(xpath, body string) string {
	quoted, _ := json.Marshal(xpath)
	return fmt.Sprintf(`(() => {
  const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
  if (!el) return null;
  %s
})()`, quoted, body)
}

func (d *Driver) elementBool(ctx context.Context, h portal.Handle, body string) (bool, error) {
	var res *bool
	if err := d.eval(ctx, onElement(string(h), body), &res); err != nil {
		return false, err
	}
	if res == nil {
		return false, fmt.Errorf("%w: %s", errStale, h)
	}
	return *res, nil
}

var errStale = errors.New("element no longer attached")

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *Driver) FindAll(ctx context.Context, loc portal.Locator) ([]portal.Handle, error) {
	xp := loc.XPath()
	quoted, _ := json.Marshal(xp)
	var n int
	expr := fmt.Sprintf(`document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength`, quoted)
	if err := d.eval(ctx, expr, &n); err != nil {
		return nil, err
	}
	hs := make([]portal.Handle, 0, n)
	for i := 1; i <= n; i++ {
		hs = append(hs, portal.Handle("("+xp+")["+strconv.Itoa(i)+"]"))
	}
	return hs, nil
}

func (d *Driver) Displayed(ctx context.Context, h portal.Handle) (bool, error) {
	shown, err := d.elementBool(ctx, h, `
  const style = window.getComputedStyle(el);
  if (style.visibility === 'hidden' || style.display === 'none') return false;
  return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);`)
	if errors.Is(err, errStale) {
		return false, nil
	}
	return shown, err
}

func (d *Driver) Enabled(ctx context.Context, h portal.Handle) (bool, error) {
	return d.elementBool(ctx, h, `return !el.disabled;`)
}

func (d *Driver) Selected(ctx context.Context, h portal.Handle) (bool, error) {
	return d.elementBool(ctx, h, `return !!(el.checked || el.selected);`)
}

func (d *Driver) Attribute(ctx context.Context, h portal.Handle, name string) (string, bool, error) {
	quoted, _ := json.Marshal(name)
	body := fmt.Sprintf(`
  const name = %s;
  let v = el[name];
  if (v === undefined || v === null || typeof v === 'object' || typeof v === 'function') v = el.getAttribute(name);
  return v === null || v === undefined ? {found: false, value: ""} : {found: true, value: String(v)};`, quoted)
	var res *struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	if err := d.eval(ctx, onElement(string(h), body), &res); err != nil {
		return "", false, err
	}
	if res == nil {
		return "", false, fmt.Errorf("%w: %s", errStale, h)
	}
	return res.Value, res.Found, nil
}

// Click dispatches a DOM click asynchronously so a dialog opened by the
// handler cannot block the evaluation.
func (d *Driver) Click(ctx context.Context, h portal.Handle) error {
	_, err := d.elementBool(ctx, h, `setTimeout(() => el.click(), 0); return true;`)
	return err
}

func (d *Driver) HoverClick(ctx context.Context, h portal.Handle) error {
	return d.interact(ctx, chromedp.Click(string(h), chromedp.BySearch, chromedp.NodeVisible))
}

func (d *Driver) Clear(ctx context.Context, h portal.Handle) error {
	_, err := d.elementBool(ctx, h, `
  el.value = '';
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;`)
	return err
}

func (d *Driver) SendKeys(ctx context.Context, h portal.Handle, text string) error {
	return d.run(ctx, chromedp.SendKeys(string(h), text, chromedp.BySearch))
}

func (d *Driver) selectOption(ctx context.Context, h portal.Handle, field, want string) (bool, error) {
	quoted, _ := json.Marshal(want)
	return d.elementBool(ctx, h, fmt.Sprintf(`
  const want = %s;
  for (let i = 0; i < el.options.length; i++) {
    if (el.options[i].%s.trim() === want) {
      el.selectedIndex = i;
      el.dispatchEvent(new Event('change', {bubbles: true}));
      return true;
    }
  }
  return false;`, quoted, field))
}

func (d *Driver) SelectByText(ctx context.Context, h portal.Handle, text string) (bool, error) {
	return d.selectOption(ctx, h, "text", strings.TrimSpace(text))
}

func (d *Driver) SelectByValue(ctx context.Context, h portal.Handle, value string) (bool, error) {
	return d.selectOption(ctx, h, "value", value)
}

// ScrollIntoView centres the element and backs off for the fixed header.
func (d *Driver) ScrollIntoView(ctx context.Context, h portal.Handle) error {
	_, err := d.elementBool(ctx, h, `
  el.scrollIntoView({block: 'center'});
  window.scrollBy(0, -120);
  return true;`)
	return err
}

func (d *Driver) AutoScrollsOverlays() bool { return !d.opts.ManualOverlayScroll }

func (d *Driver) Alert(context.Context) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialog == nil {
		return "", false, nil
	}
	return *d.dialog, true, nil
}

func (d *Driver) handleDialog(ctx context.Context, accept bool) error {
	if err := d.run(ctx, page.HandleJavaScriptDialog(accept)); err != nil {
		return fmt.Errorf("handle dialog: %w", err)
	}
	d.mu.Lock()
	d.dialog = nil
	d.mu.Unlock()
	return nil
}

func (d *Driver) AcceptAlert(ctx context.Context) error { return d.handleDialog(ctx, true) }

func (d *Driver) DismissAlert(ctx context.Context) error { return d.handleDialog(ctx, false) }

// OpenPopup clicks trigger and attaches to the page target it opens.
func (d *Driver) OpenPopup(ctx context.Context, trigger portal.Handle) (portal.Driver, error) {
	waitCtx, cancel := context.WithTimeout(d.tab, d.opts.PopupTimeout)
	defer cancel()
	created := chromedp.WaitNewTarget(waitCtx, func(info *target.Info) bool {
		return info.Type == "page"
	})
	if err := d.interact(ctx, chromedp.Click(string(trigger), chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return nil, err
	}
	select {
	case id, ok := <-created:
		if !ok {
			return nil, fmt.Errorf("no window opened within %s", d.opts.PopupTimeout)
		}
		tab, tabCancel := chromedp.NewContext(d.tab, chromedp.WithTargetID(id))
		popup := newDriver(tab, tabCancel, d.opts)
		if err := popup.run(ctx); err != nil {
			tabCancel()
			return nil, fmt.Errorf("attach popup: %w", err)
		}
		return popup, nil
	case <-waitCtx.Done():
		return nil, fmt.Errorf("no window opened within %s", d.opts.PopupTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close detaches from the tab. On the launching driver it also shuts the
// browser down.
func (d *Driver) Close() error {
	d.cancel()
	if d.release != nil {
		d.release()
	}
	return nil
}
