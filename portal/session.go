package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/agharvest/await"
	"github.com/pithecene-io/agharvest/iox"
)

// AuthState is the authentication state of a Session.
type AuthState int

const (
	AuthLoggedOut AuthState = iota
	AuthLoginInProgress
	AuthLoggedIn
)

func (s AuthState) String() string {
	switch s {
	case AuthLoggedOut:
		return "logged_out"
	case AuthLoginInProgress:
		return "login_in_progress"
	case AuthLoggedIn:
		return "logged_in"
	default:
		return fmt.Sprintf("auth_state(%d)", int(s))
	}
}

// Credentials are portal login credentials.
type Credentials struct {
	Username string
	Password string
}

// Validate rejects empty fields.
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// Session owns one browser driver for the lifetime of a run. It is not
// safe for concurrent use.
type Session struct {
	driver Driver
	res    *Resolver
	opts   options
	state  AuthState
	closer *iox.OnceCloser
}

// NewSession takes ownership of d. Close releases it exactly once.
func NewSession(d Driver, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{
		driver: d,
		opts:   o,
		state:  AuthLoggedOut,
	}
	s.res = NewResolver(d, o.resolvedPoller())
	s.closer = iox.NewOnceCloser(d.Close)
	return s
}

// State reports the authentication state.
func (s *Session) State() AuthState { return s.state }

// Resolver exposes element lookups on the session's driver.
func (s *Session) Resolver() *Resolver { return s.res }

// Open navigates to the portal landing page.
func (s *Session) Open(ctx context.Context) error {
	return s.opts.run(ctx, StepOpen, func(ctx context.Context) error {
		return s.driver.Navigate(ctx, s.opts.portalURL)
	})
}

// Login authenticates, logging out first when a session is already
// active. Credentials are checked before any UI interaction.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	return s.opts.run(ctx, StepLogin, func(ctx context.Context) error {
		if err := creds.Validate(); err != nil {
			return err
		}
		if err := s.logoutIfActive(ctx); err != nil {
			return fmt.Errorf("logout before login: %w", err)
		}
		s.state = AuthLoginInProgress
		if err := s.login(ctx, creds); err != nil {
			s.state = AuthLoggedOut
			return err
		}
		s.state = AuthLoggedIn
		return nil
	})
}

// Logout ends an active portal session. It is a no-op when no logout
// control is shown.
func (s *Session) Logout(ctx context.Context) error {
	return s.opts.run(ctx, StepLogout, s.logoutIfActive)
}

// Close releases the driver. Repeated calls return the first result.
func (s *Session) Close() error {
	return s.closer.Close()
}

func (s *Session) logoutIfActive(ctx context.Context) error {
	h, ok, err := s.res.Find(ctx, logoutLink)
	if err != nil {
		return err
	}
	if !ok {
		s.state = AuthLoggedOut
		return nil
	}
	t := s.opts.timeouts

	if err := s.driver.Click(ctx, h); err != nil {
		return fmt.Errorf("click logout: %w", err)
	}
	if _, err := s.res.WaitAllPresent(ctx, t.Logout, usernameField, passwordField); err != nil {
		return err
	}
	home, err := s.res.FindAfterWait(ctx, portalHomeLink(s.opts.portalURL), t.Logout)
	if err != nil {
		return err
	}
	if err := s.driver.Click(ctx, home); err != nil {
		return fmt.Errorf("click portal home: %w", err)
	}
	s.state = AuthLoggedOut
	s.opts.logger.Info("logged out", nil)
	return nil
}

func (s *Session) login(ctx context.Context, creds Credentials) error {
	t := s.opts.timeouts
	d := s.driver

	if err := s.res.WaitInvisible(ctx, progressOverlay, t.Overlay); err != nil {
		return err
	}
	trigger, err := s.res.WaitClickable(ctx, loginTrigger, t.LoginForm)
	if err != nil {
		return err
	}
	if err := d.Click(ctx, trigger); err != nil {
		return fmt.Errorf("click login trigger: %w", err)
	}

	fields, err := s.res.WaitAllPresent(ctx, t.LoginForm, usernameField, passwordField, staySignedIn)
	if err != nil {
		return err
	}
	user, pass, stay := fields[0], fields[1], fields[2]
	if err := d.SendKeys(ctx, user, creds.Username); err != nil {
		return fmt.Errorf("type username: %w", err)
	}
	if err := d.SendKeys(ctx, pass, creds.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	selected, err := d.Selected(ctx, stay)
	if err != nil {
		return err
	}
	if selected {
		if err := d.Click(ctx, stay); err != nil {
			return fmt.Errorf("clear stay signed in: %w", err)
		}
	}

	submit, ok, err := s.res.Find(ctx, loginSubmit)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, loginSubmit)
	}
	shown, err := d.Displayed(ctx, submit)
	if err != nil {
		return err
	}
	if !shown {
		return ErrSubmitUnavailable
	}
	if err := d.Click(ctx, submit); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	if err := s.res.WaitInvisible(ctx, progressOverlay, t.LoginSubmit); err != nil {
		return err
	}
	trigger, err = s.res.WaitVisible(ctx, loginTrigger, t.Widget)
	if err != nil {
		return err
	}
	if err := d.Click(ctx, trigger); err != nil {
		return fmt.Errorf("click login trigger: %w", err)
	}
	return s.acknowledgeLoginAlert(ctx)
}

// acknowledgeLoginAlert accepts the post-login dialog if one appears.
// Unexpected text is logged but does not fail the login.
func (s *Session) acknowledgeLoginAlert(ctx context.Context) error {
	text, err := s.res.WaitAlert(ctx, s.opts.timeouts.Alert)
	if errors.Is(err, await.ErrTimeout) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.driver.AcceptAlert(ctx); err != nil {
		return fmt.Errorf("accept login alert: %w", err)
	}
	expected := strings.Contains(strings.ToLower(text), loginAlertFragment)
	s.opts.metrics.IncAlert(expected)
	if !expected {
		s.opts.logger.Warn("unexpected login alert", map[string]any{"text": text})
	}
	return nil
}
