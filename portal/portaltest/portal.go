// Package portaltest provides a scripted, in-memory portal implementing
// portal.Driver. It models the login form, plot wizard, shape popup and
// results tree closely enough to run the whole workflow without a
// browser, and records every interaction in order.
package portaltest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pithecene-io/agharvest/portal"
)

// ErrStale is returned when an action targets an element that is no
// longer present.
var ErrStale = errors.New("stale element")

// Config scripts the simulated portal.
type Config struct {
	// URL is the portal home link. Defaults to portal.DefaultPortalURL.
	URL string
	// Username and Password, when set, are the only accepted credentials.
	Username string
	Password string
	// LoggedIn starts the portal with an active session.
	LoggedIn bool
	// StaySignedIn is the initial state of the stay-signed-in box.
	StaySignedIn bool
	// HideSubmit renders the submit control hidden.
	HideSubmit bool
	// LoginAlert is shown after the post-login click. Empty means none.
	LoginAlert string
	// OverlayChecks keeps the progress overlay visible for that many
	// visibility checks after login and after the plot is triggered.
	OverlayChecks int
	// MinYear and MaxYear bound the years the calendars offer.
	MinYear, MaxYear int
	// Extent is the initial value of the extent field.
	Extent string
	// Shapes lists the names offered per group.
	Shapes map[portal.ShapeGroup][]string
	// AutoScroll reports whether overlay options are clickable without
	// being scrolled into view first.
	AutoScroll bool
	// Variables are the searchable variable names.
	Variables []string
	// LateRows hides the variable rows from that many lookups after each
	// search, as when the results table renders slowly.
	LateRows int
	// SortTitle is the tooltip of the variable name column.
	SortTitle string
	// PlotAlert is shown when the plot is triggered. Empty means none.
	PlotAlert string
	// ProgressChecks keeps the progress bar visible for that many checks.
	ProgressChecks int
	// NoResult leaves the results tree empty.
	NoResult bool
	// ArtifactURL is the CSV link target.
	ArtifactURL string
	// DeleteAlert is the delete confirmation text.
	DeleteAlert string
	// CloseErr is returned by Close.
	CloseErr error
}

// DefaultConfig returns a portal that accepts any login and produces one
// plot.
func DefaultConfig() Config {
	return Config{
		URL:          portal.DefaultPortalURL,
		StaySignedIn: true,
		MinYear:      1980,
		MaxYear:      2024,
		Shapes: map[portal.ShapeGroup][]string{
			portal.ShapeUSStates:  {"Alabama", "Iowa", "Nebraska"},
			portal.ShapeCountries: {"Brazil", "Kenya"},
		},
		AutoScroll:  true,
		Variables:   []string{"Precipitation Rate (TRMM_3B42)", "Precipitation (GPM_3IMERGDF)"},
		SortTitle:   "Click to sort ascending",
		ArtifactURL: "https://giovanni.gsfc.nasa.gov/session/plot/g4.areaAvgTimeSeries.csv",
		DeleteAlert: "Are you sure you want to permanently delete this plot?",
	}
}

type calendar struct {
	open  bool
	year  int
	month time.Month
}

type state struct {
	loggedIn    bool
	loginForm   bool
	homeLink    bool
	username    string
	password    string
	stay        bool
	overlay     int
	pickerOpen  bool
	calendars   map[string]*calendar
	extent      string
	popupOpen   bool
	group       portal.ShapeGroup
	scrolled    string
	keyword     string
	searched    bool
	results     []string
	lateRows    int
	sortTitle   string
	progress    int
	computed    bool
	expanded    bool
	downloads   bool
	deleted     bool
	alert       *pendingAlert
	closeCalls  int
	navigations []string
}

type pendingAlert struct {
	text     string
	onAccept func()
}

// Portal is a simulated portal. It is safe for use by one workflow at a
// time; a mutex guards the recorded state for inspection from tests.
type Portal struct {
	*view

	mu     sync.Mutex
	cfg    Config
	st     state
	calls  []string
	events []string
}

// New creates a portal from cfg.
func New(cfg Config) *Portal {
	if cfg.URL == "" {
		cfg.URL = portal.DefaultPortalURL
	}
	p := &Portal{cfg: cfg}
	p.st = state{
		loggedIn:  cfg.LoggedIn,
		stay:      cfg.StaySignedIn,
		extent:    cfg.Extent,
		sortTitle: cfg.SortTitle,
		calendars: map[string]*calendar{"start": {}, "end": {}},
	}
	p.view = &view{p: p}
	return p
}

// Calls returns every driver action in order, formatted "<action> <locator>".
func (p *Portal) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// Events returns the portal-level effects in order, e.g. "login alice",
// "plot_type ArAvTs", "trigger", "artifact_url", "delete".
func (p *Portal) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// CloseCalls reports how often Close ran.
func (p *Portal) CloseCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.closeCalls
}

// Extent returns the current extent field value.
func (p *Portal) Extent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.extent
}

// StaySignedIn reports the stay-signed-in box state.
func (p *Portal) StaySignedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.stay
}

// LoggedIn reports whether the portal holds an active session.
func (p *Portal) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.loggedIn
}

func (p *Portal) event(format string, args ...any) {
	p.events = append(p.events, fmt.Sprintf(format, args...))
}

func (p *Portal) openAlert(text string, onAccept func()) {
	p.st.alert = &pendingAlert{text: text, onAccept: onAccept}
}

func consume(n *int) bool {
	if *n > 0 {
		*n--
		return true
	}
	return false
}

// element is the simulated state of one located element. Callbacks run
// with the portal lock held.
type element struct {
	visible  func() bool
	disabled bool
	selected bool
	attrs    map[string]string

	click     func() error
	hover     func() error
	keys      func(string)
	clear     func()
	selText   func(string) bool
	selValue  func(string) bool
	scrollTo  func()
	opensView bool
}

func (e *element) shown() bool {
	if e.visible == nil {
		return true
	}
	return e.visible()
}

const (
	keyCalendarTrigger = "xpath:calendar-trigger("
	keyResultNode      = "xpath:result-node@1"
	keyShapeOption     = "xpath:shape-option("
	keyGroupPrefix     = "label:span^="
	keyCheckbox        = "attr:input[type=checkbox][title^=Select ]"
)

// lookup resolves a locator key to an element, or nil when absent.
func (p *Portal) lookup(key string, popup bool) *element {
	if popup {
		return p.lookupPopup(key)
	}
	st := &p.st
	switch key {
	case "id=progressModal":
		return &element{visible: func() bool { return consume(&st.overlay) }}
	case "id=progressBar":
		return &element{visible: func() bool { return consume(&st.progress) }}
	case "id=logoutLink":
		if !st.loggedIn {
			return nil
		}
		return &element{click: func() error {
			st.loggedIn = false
			st.loginForm = true
			st.homeLink = true
			p.event("logout")
			return nil
		}}
	case "attr:a[href=" + p.cfg.URL + "]":
		if !st.homeLink {
			return nil
		}
		return &element{click: func() error {
			st.homeLink = false
			st.loginForm = false
			return nil
		}}
	case "id=loginButton":
		return &element{
			visible: func() bool { return !st.loginForm || st.loggedIn },
			click: func() error {
				if !st.loggedIn {
					st.loginForm = true
					st.username, st.password = "", ""
					return nil
				}
				if p.cfg.LoginAlert != "" {
					p.openAlert(p.cfg.LoginAlert, nil)
				}
				return nil
			},
		}
	case "id=username", "id=password":
		if !st.loginForm {
			return nil
		}
		field := &st.username
		if key == "id=password" {
			field = &st.password
		}
		return &element{
			keys:  func(s string) { *field += s },
			clear: func() { *field = "" },
		}
	case "id=stay_in":
		if !st.loginForm {
			return nil
		}
		return &element{
			selected: st.stay,
			click:    func() error { st.stay = !st.stay; return nil },
		}
	case "attr:input[name=commit]":
		if !st.loginForm {
			return nil
		}
		return &element{
			visible: func() bool { return !p.cfg.HideSubmit },
			click: func() error {
				if p.cfg.HideSubmit {
					return errors.New("element not interactable")
				}
				if p.cfg.Username != "" && (st.username != p.cfg.Username || st.password != p.cfg.Password) {
					p.event("login_rejected")
					return nil
				}
				st.loggedIn = true
				st.loginForm = false
				st.overlay = p.cfg.OverlayChecks
				p.event("login %s", st.username)
				return nil
			},
		}
	case "id=serviceSelect-button":
		if !st.loggedIn {
			return nil
		}
		return &element{click: func() error { st.pickerOpen = true; return nil }}
	case "id=sessionDataSelBbPkbbox":
		if !st.loggedIn {
			return nil
		}
		return &element{
			attrs: map[string]string{"value": st.extent},
			clear: func() { st.extent = "" },
			keys: func(s string) {
				st.extent += s
				p.event("extent %s", st.extent)
			},
		}
	case "id=sessionDataSelBbPkshapeLink":
		if !st.loggedIn {
			return nil
		}
		return &element{opensView: true}
	case "id=facetedSearchBarInput":
		if !st.loggedIn {
			return nil
		}
		return &element{
			keys:  func(s string) { st.keyword += s },
			clear: func() { st.keyword = "" },
		}
	case "id=facetedSearchButton":
		if !st.loggedIn {
			return nil
		}
		return &element{click: func() error {
			st.searched = true
			st.results = nil
			st.lateRows = p.cfg.LateRows
			for _, v := range p.cfg.Variables {
				if strings.Contains(strings.ToLower(v), strings.ToLower(st.keyword)) {
					st.results = append(st.results, v)
				}
			}
			return nil
		}}
	case "attr:a[href=yui-dt0-href-varName]":
		if !st.searched {
			return nil
		}
		return &element{
			attrs: map[string]string{"title": st.sortTitle},
			click: func() error {
				st.sortTitle = "Click to sort descending"
				p.event("sort")
				return nil
			},
		}
	case "id=sessionDataSelToolbarplotBTN-button":
		if !st.loggedIn {
			return nil
		}
		return &element{hover: func() error {
			p.event("trigger")
			if p.cfg.PlotAlert != "" {
				p.openAlert(p.cfg.PlotAlert, nil)
				return nil
			}
			st.overlay = p.cfg.OverlayChecks
			st.progress = p.cfg.ProgressChecks
			st.computed = !p.cfg.NoResult
			return nil
		}}
	case "id=sessionWorkspaceExpand":
		return &element{hover: func() error { st.expanded = true; return nil }}
	case keyResultNode:
		if !p.resultShown() {
			return nil
		}
		return &element{attrs: map[string]string{"id": "ygtv2"}}
	case keyResultNode + " >> xpath:text(Downloads)":
		if !p.resultShown() {
			return nil
		}
		return &element{hover: func() error { st.downloads = true; return nil }}
	case "link=CSV":
		if !st.downloads || !p.resultShown() {
			return nil
		}
		return &element{attrs: map[string]string{"href": p.cfg.ArtifactURL}}
	case keyResultNode + " >> attr:i[title=Delete plot]":
		if !p.resultShown() {
			return nil
		}
		return &element{hover: func() error {
			p.openAlert(p.cfg.DeleteAlert, func() {
				st.deleted = true
				p.event("delete")
			})
			return nil
		}}
	}

	if code, ok := strings.CutPrefix(key, "id="); ok && portal.PlotType(code).Valid() {
		if !st.pickerOpen {
			return nil
		}
		return &element{click: func() error {
			st.pickerOpen = false
			p.event("plot_type %s", code)
			return nil
		}}
	}
	if e := p.lookupCalendar(key); e != nil {
		return e
	}
	return nil
}

func (p *Portal) resultShown() bool {
	return p.st.expanded && p.st.computed && !p.st.deleted && p.st.progress == 0
}

func (p *Portal) lookupCalendar(key string) *element {
	st := &p.st
	if rest, ok := strings.CutPrefix(key, keyCalendarTrigger); ok {
		prefix, found := strings.CutSuffix(rest, "DateCalendarLink)")
		cal := st.calendars[prefix]
		if !found || cal == nil {
			return nil
		}
		return &element{hover: func() error { cal.open = true; return nil }}
	}
	for prefix, cal := range st.calendars {
		container := "id=" + prefix + "DateCalendar_t"
		if !cal.open {
			continue
		}
		switch {
		case key == container:
			return &element{}
		case key == container+" >> select[id^=yearCalendar]":
			return &element{selText: func(s string) bool {
				y, err := strconv.Atoi(s)
				if err != nil || y < p.cfg.MinYear || y > p.cfg.MaxYear {
					return false
				}
				cal.year = y
				return true
			}}
		case key == container+" >> select[id^=monthCalendar]":
			return &element{selValue: func(s string) bool {
				for m := time.January; m <= time.December; m++ {
					if m.String()[:3] == s {
						cal.month = m
						return true
					}
				}
				return false
			}}
		}
		if cal.year == 0 || cal.month == 0 {
			continue
		}
		days := time.Date(cal.year, cal.month+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if n, ok := strings.CutPrefix(key, container+"_cell"); ok {
			if d, err := strconv.Atoi(n); err == nil && d >= 1 && d <= days {
				return &element{}
			}
			return nil
		}
		if n, ok := strings.CutPrefix(key, container+" >> link="); ok {
			d, err := strconv.Atoi(n)
			if err != nil || d < 1 || d > days {
				return nil
			}
			return &element{hover: func() error {
				cal.open = false
				p.event("%s_date %04d-%02d-%02d", prefix, cal.year, int(cal.month), d)
				return nil
			}}
		}
	}
	return nil
}

func (p *Portal) lookupPopup(key string) *element {
	st := &p.st
	if !st.popupOpen {
		return nil
	}
	if label, ok := strings.CutPrefix(key, keyGroupPrefix); ok {
		g := portal.ShapeGroup(label)
		if _, known := p.cfg.Shapes[g]; !known {
			return nil
		}
		return &element{hover: func() error { st.group = g; return nil }}
	}
	if rest, ok := strings.CutPrefix(key, keyShapeOption); ok {
		name := strings.TrimSuffix(rest, ")")
		if st.group == "" || !slices.Contains(p.cfg.Shapes[st.group], name) {
			return nil
		}
		return &element{
			scrollTo: func() { st.scrolled = name },
			hover: func() error {
				if !p.cfg.AutoScroll && st.scrolled != name {
					return errors.New("element click intercepted")
				}
				st.extent = string(st.group) + ": " + name
				p.event("shape %s/%s", st.group, name)
				return nil
			},
		}
	}
	if key == "link=Close" {
		return &element{click: func() error { st.popupOpen = false; return nil }}
	}
	return nil
}

// view is the Driver for the main window or the shape popup.
type view struct {
	p     *Portal
	popup bool
}

var _ portal.Driver = (*Portal)(nil)

func (v *view) record(action string, h portal.Handle) {
	v.p.calls = append(v.p.calls, action+" "+string(h))
}

func (v *view) resolve(h portal.Handle) (*element, int, error) {
	key, idx := string(h), 0
	if k, n, ok := strings.Cut(key, "#"); ok {
		i, err := strconv.Atoi(n)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrStale, h)
		}
		key, idx = k, i
	}
	if key == keyCheckbox {
		if !v.p.st.searched || idx >= len(v.p.st.results) {
			return nil, 0, fmt.Errorf("%w: %s", ErrStale, h)
		}
		name := v.p.st.results[idx]
		return &element{click: func() error {
			v.p.event("variable %s", name)
			return nil
		}}, idx, nil
	}
	e := v.p.lookup(key, v.popup)
	if e == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrStale, h)
	}
	return e, idx, nil
}

func (v *view) Navigate(_ context.Context, url string) error {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	v.p.st.navigations = append(v.p.st.navigations, url)
	v.record("navigate", portal.Handle(url))
	return nil
}

func (v *view) FindAll(ctx context.Context, loc portal.Locator) ([]portal.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	key := loc.String()
	if loc.Nth(0).String() == keyCheckbox && !v.popup {
		st := &v.p.st
		if !st.searched || consume(&st.lateRows) {
			return []portal.Handle{}, nil
		}
		hs := make([]portal.Handle, 0, len(st.results))
		for i := range st.results {
			hs = append(hs, portal.Handle(keyCheckbox+"#"+strconv.Itoa(i)))
		}
		if loc.Index > 0 {
			if loc.Index > len(hs) {
				return []portal.Handle{}, nil
			}
			return hs[loc.Index-1 : loc.Index], nil
		}
		return hs, nil
	}
	if v.p.lookup(key, v.popup) == nil {
		return []portal.Handle{}, nil
	}
	return []portal.Handle{portal.Handle(key)}, nil
}

func (v *view) Displayed(_ context.Context, h portal.Handle) (bool, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	e, _, err := v.resolve(h)
	if err != nil {
		return false, nil
	}
	return e.shown(), nil
}

func (v *view) Enabled(_ context.Context, h portal.Handle) (bool, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	e, _, err := v.resolve(h)
	if err != nil {
		return false, err
	}
	return !e.disabled, nil
}

func (v *view) Selected(_ context.Context, h portal.Handle) (bool, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	e, _, err := v.resolve(h)
	if err != nil {
		return false, err
	}
	return e.selected, nil
}

func (v *view) Attribute(_ context.Context, h portal.Handle, name string) (string, bool, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	e, _, err := v.resolve(h)
	if err != nil {
		return "", false, err
	}
	val, ok := e.attrs[name]
	if ok && name == "href" {
		v.p.event("artifact_url")
	}
	return val, ok, nil
}

func (v *view) act(action string, h portal.Handle, fn func(*element) error) error {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if v.p.st.alert != nil {
		return fmt.Errorf("%s %s: unexpected alert open", action, h)
	}
	e, _, err := v.resolve(h)
	if err != nil {
		return err
	}
	v.record(action, h)
	return fn(e)
}

func (v *view) Click(_ context.Context, h portal.Handle) error {
	return v.act("click", h, func(e *element) error {
		if !e.shown() {
			return fmt.Errorf("click %s: element not visible", h)
		}
		if e.click == nil {
			return nil
		}
		return e.click()
	})
}

func (v *view) HoverClick(_ context.Context, h portal.Handle) error {
	return v.act("hover_click", h, func(e *element) error {
		switch {
		case e.hover != nil:
			return e.hover()
		case e.click != nil:
			return e.click()
		}
		return nil
	})
}

func (v *view) Clear(_ context.Context, h portal.Handle) error {
	return v.act("clear", h, func(e *element) error {
		if e.clear == nil {
			return fmt.Errorf("clear %s: not editable", h)
		}
		e.clear()
		return nil
	})
}

func (v *view) SendKeys(_ context.Context, h portal.Handle, text string) error {
	return v.act("send_keys", h, func(e *element) error {
		if e.keys == nil {
			return fmt.Errorf("send keys %s: not editable", h)
		}
		e.keys(text)
		return nil
	})
}

func (v *view) SelectByText(_ context.Context, h portal.Handle, text string) (bool, error) {
	var ok bool
	err := v.act("select_text", h, func(e *element) error {
		if e.selText == nil {
			return fmt.Errorf("select %s: not a select element", h)
		}
		ok = e.selText(text)
		return nil
	})
	return ok, err
}

func (v *view) SelectByValue(_ context.Context, h portal.Handle, value string) (bool, error) {
	var ok bool
	err := v.act("select_value", h, func(e *element) error {
		if e.selValue == nil {
			return fmt.Errorf("select %s: not a select element", h)
		}
		ok = e.selValue(value)
		return nil
	})
	return ok, err
}

func (v *view) ScrollIntoView(_ context.Context, h portal.Handle) error {
	return v.act("scroll", h, func(e *element) error {
		if e.scrollTo != nil {
			e.scrollTo()
		}
		return nil
	})
}

func (v *view) AutoScrollsOverlays() bool { return v.p.cfg.AutoScroll }

func (v *view) Alert(context.Context) (string, bool, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if v.p.st.alert == nil {
		return "", false, nil
	}
	return v.p.st.alert.text, true, nil
}

func (v *view) AcceptAlert(context.Context) error {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	a := v.p.st.alert
	if a == nil {
		return errors.New("no alert open")
	}
	v.p.st.alert = nil
	v.record("accept_alert", portal.Handle(a.text))
	if a.onAccept != nil {
		a.onAccept()
	}
	return nil
}

func (v *view) DismissAlert(context.Context) error {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	a := v.p.st.alert
	if a == nil {
		return errors.New("no alert open")
	}
	v.p.st.alert = nil
	v.record("dismiss_alert", portal.Handle(a.text))
	return nil
}

func (v *view) OpenPopup(_ context.Context, trigger portal.Handle) (portal.Driver, error) {
	err := v.act("open_popup", trigger, func(e *element) error {
		if !e.opensView {
			return fmt.Errorf("%s does not open a window", trigger)
		}
		v.p.st.popupOpen = true
		v.p.st.group = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &popupView{view: view{p: v.p, popup: true}}, nil
}

// Close on the main view shuts the simulated browser down.
func (v *view) Close() error {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	v.p.st.closeCalls++
	return v.p.cfg.CloseErr
}

// popupView switches back to the main window on Close.
type popupView struct {
	view
}

func (pv *popupView) Close() error {
	pv.p.mu.Lock()
	defer pv.p.mu.Unlock()
	pv.p.st.popupOpen = false
	pv.record("leave_popup", "")
	return nil
}
