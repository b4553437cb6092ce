// Package session authenticates the browser, either by typing credentials
// into the login form or by restoring a saved session cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"igstories/pkg/browser"
	"igstories/pkg/config"
	"igstories/pkg/diag"
	igerrors "igstories/pkg/errors"
	"igstories/pkg/instagram"
	"igstories/pkg/locator"
	"igstories/pkg/logger"
	"igstories/pkg/retry"
)

// Session selects how to authenticate. Exactly one of Password and Token is
// set.
type Session struct {
	Username string
	Password string
	Token    string
}

// WithCredentials returns a session that logs in through the form
func WithCredentials(username, password string) Session {
	return Session{Username: username, Password: password}
}

// WithToken returns a session restored from a saved token
func WithToken(username, token string) Session {
	return Session{Username: username, Token: token}
}

// Restoring reports whether s is a cookie restore
func (s Session) Restoring() bool { return s.Token != "" }

// Validate rejects sessions naming neither or both modes
func (s Session) Validate() error {
	hasCreds := s.Username != "" && s.Password != ""
	switch {
	case hasCreds && s.Token != "":
		return igerrors.New(igerrors.ErrorTypeConfig, "both password and session token given")
	case !hasCreds && s.Token == "":
		return igerrors.New(igerrors.ErrorTypeConfig, "either username and password or a session token is required")
	}
	return nil
}

// ProfileSaver persists the session token after a credential login
type ProfileSaver interface {
	SaveProfile(account, token string) error
}

// Pauses used between form interactions
const (
	consentPause = time.Second
	typingPause  = 500 * time.Millisecond
	submitPause  = 2 * time.Second
	problemPause = 3 * time.Second
)

// Manager establishes the authenticated session for a browser surface
type Manager struct {
	surface  browser.Surface
	cfg      config.SessionConfig
	sink     diag.Sink
	profiles ProfileSaver
	log      logger.Logger

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a session manager. profiles may be nil to skip saving
// tokens.
func NewManager(s browser.Surface, cfg config.SessionConfig, sink diag.Sink, profiles ProfileSaver, log logger.Logger) *Manager {
	if sink == nil {
		sink = diag.Nop{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		surface:  s,
		cfg:      cfg,
		sink:     sink,
		profiles: profiles,
		log:      log.WithField("component", "session"),
		sleep:    retry.Wait,
	}
}

// Establish authenticates the page. Failures are *AuthError values and carry
// the diagnostic captured for them.
func (m *Manager) Establish(ctx context.Context, sess Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.Restoring() {
		return m.restore(ctx, sess)
	}
	return m.login(ctx, sess)
}

// loginState is what one verification poll observed
type loginState int

const (
	statePending loginState = iota
	stateSuccess
	stateInvalid
	stateProblem
	stateLoginForm
)

func (m *Manager) login(ctx context.Context, sess Session) error {
	log := m.log.WithField("username", sess.Username)
	log.Info("Navigating to login page")

	if err := m.surface.Navigate(ctx, instagram.LoginURL()); err != nil {
		return m.fail(ctx, Timeout, "login_navigation", "could not open login page", err)
	}
	if err := m.sleep(ctx, m.cfg.PageSettle); err != nil {
		return err
	}

	m.dismissConsent(ctx)

	log.Info("Entering credentials")
	if err := m.fill(ctx, instagram.UsernameInput, sess.Username); err != nil {
		return m.fail(ctx, ElementMissing, "missing_username", "username field not found", err)
	}
	if err := m.fill(ctx, instagram.PasswordInput, sess.Password); err != nil {
		return m.fail(ctx, ElementMissing, "missing_password", "password field not found", err)
	}
	if err := m.sleep(ctx, submitPause); err != nil {
		return err
	}

	attempts := m.cfg.SubmitAttempts
	if attempts < 1 {
		attempts = 1
	}
	deadline := time.Now().Add(m.cfg.LoginTimeout)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			log.WithField("attempt", attempt).Info("Retrying login submit")
		}
		m.submit(ctx)

		state, err := retry.PollUntil(ctx, m.cfg.PollInterval, time.Until(deadline), m.verifyLogin)
		if err != nil {
			if errors.Is(err, retry.ErrTimeout) {
				return m.fail(ctx, Timeout, "login_timeout", "login was not confirmed", err)
			}
			return err
		}

		switch state {
		case stateSuccess:
			log.Info("Login verified")
			m.afterLogin(ctx, sess.Username)
			return nil
		case stateInvalid:
			return m.fail(ctx, InvalidCredentials, "login_rejected", "incorrect username or password", nil)
		case stateProblem:
			log.Warn("Login reported a problem, waiting before resubmitting")
			if err := m.sleep(ctx, problemPause); err != nil {
				return err
			}
		}
	}

	return m.fail(ctx, Timeout, "login_retries_exhausted",
		fmt.Sprintf("login still failing after %d attempts", attempts), nil)
}

// verifyLogin is the per-iteration check after submitting the form
func (m *Manager) verifyLogin(ctx context.Context) (loginState, bool, error) {
	if m.landmarkPresent(ctx) || m.dismissNotNow(ctx) {
		return stateSuccess, true, nil
	}
	if u, err := m.surface.CurrentURL(ctx); err == nil && u != "" && !instagram.IsLoginOrChallenge(u) {
		return stateSuccess, true, nil
	}

	if match, err := instagram.LoginAlert.Resolve(ctx, m.surface); err == nil {
		text := strings.ToLower(m.text(ctx, match.Element))
		switch {
		case strings.Contains(text, "incorrect"):
			return stateInvalid, true, nil
		case strings.Contains(text, "problem"):
			return stateProblem, true, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return statePending, false, err
	}
	return statePending, false, nil
}

func (m *Manager) restore(ctx context.Context, sess Session) error {
	log := m.log.WithField("username", sess.Username)
	log.Info("Restoring saved session")

	if err := m.surface.Navigate(ctx, instagram.RootURL()); err != nil {
		return m.fail(ctx, SessionExpired, "restore_navigation", "could not open site root", err)
	}

	cookie := browser.Cookie{
		Name:     instagram.SessionCookieName,
		Value:    sess.Token,
		Domain:   instagram.CookieDomain,
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
	}
	if err := m.surface.SetCookie(ctx, cookie); err != nil {
		return m.fail(ctx, SessionExpired, "restore_cookie", "could not inject session cookie", err)
	}
	if err := m.surface.Reload(ctx); err != nil {
		return m.fail(ctx, SessionExpired, "restore_reload", "reload after cookie injection failed", err)
	}

	state, err := retry.PollUntil(ctx, m.cfg.PollInterval, m.cfg.RestoreWait, m.verifyRestore)
	if err != nil && !errors.Is(err, retry.ErrTimeout) {
		return err
	}
	if state != stateSuccess {
		return m.fail(ctx, SessionExpired, "session_expired", "saved session was not accepted", err)
	}

	log.Info("Session restored")
	return nil
}

// verifyRestore accepts only positive landmarks. The root URL does not
// change for a rejected cookie, so a URL check alone cannot prove success.
func (m *Manager) verifyRestore(ctx context.Context) (loginState, bool, error) {
	if m.landmarkPresent(ctx) || m.dismissNotNow(ctx) {
		return stateSuccess, true, nil
	}
	if u, err := m.surface.CurrentURL(ctx); err == nil && instagram.IsLoginOrChallenge(u) {
		return stateLoginForm, true, nil
	}
	if ok, _ := instagram.PasswordInput.Present(ctx, m.surface); ok {
		return stateLoginForm, true, nil
	}
	return statePending, false, ctx.Err()
}

func (m *Manager) landmarkPresent(ctx context.Context) bool {
	ok, _ := instagram.LoggedInLandmark.Present(ctx, m.surface)
	return ok
}

// dismissNotNow clicks a "Not Now" prompt if shown. The prompt only appears
// to logged-in users.
func (m *Manager) dismissNotNow(ctx context.Context) bool {
	match, err := instagram.NotNowPrompt.Resolve(ctx, m.surface)
	if err != nil {
		return false
	}
	if err := m.surface.Click(ctx, match.Element); err != nil {
		m.log.WithError(err).Debug("Not Now prompt click failed")
	}
	return true
}

// dismissConsent clicks the first cookie consent option found, at most once
func (m *Manager) dismissConsent(ctx context.Context) {
	match, err := instagram.CookieConsent.Resolve(ctx, m.surface)
	if err != nil {
		return
	}
	m.log.WithField("option", match.Probe.Name).Info("Dismissing cookie consent")
	if err := m.surface.Click(ctx, match.Element); err != nil {
		m.log.WithError(err).Warn("Cookie consent click failed")
		return
	}
	_ = m.sleep(ctx, consentPause)
}

// fill clicks the field, types value and pauses so the page's input handlers
// see a human cadence
func (m *Manager) fill(ctx context.Context, chain locator.Chain, value string) error {
	match, err := chain.Resolve(ctx, m.surface)
	if err != nil {
		return err
	}
	if err := m.surface.Click(ctx, match.Element); err != nil {
		m.log.WithError(err).WithField("field", chain.Name).Warn("Field click failed")
	}
	if err := m.surface.Type(ctx, match.Element, value); err != nil {
		m.log.WithError(err).WithField("field", chain.Name).Warn("Typing failed")
	}
	return m.sleep(ctx, typingPause)
}

// submit clicks a button labelled "log in", skipping password visibility
// toggles, then the form's submit button, then falls back to Enter.
func (m *Manager) submit(ctx context.Context) {
	if buttons, err := m.surface.Find(ctx, instagram.Buttons.Live); err == nil {
		for _, btn := range buttons {
			text := strings.ToLower(m.text(ctx, btn))
			if strings.Contains(text, "show") {
				continue
			}
			if strings.Contains(text, "log in") {
				if err := m.surface.Click(ctx, btn); err == nil {
					return
				}
			}
		}
	}

	if match, err := instagram.SubmitButton.Resolve(ctx, m.surface); err == nil {
		if !strings.Contains(strings.ToLower(m.text(ctx, match.Element)), "show") {
			if err := m.surface.Click(ctx, match.Element); err == nil {
				return
			}
		}
	}

	if err := m.surface.PressKey(ctx, browser.KeyEnter); err != nil {
		m.log.WithError(err).Warn("Submit key press failed")
	}
}

// afterLogin stores proof of the login and saves the session token
func (m *Manager) afterLogin(ctx context.Context, username string) {
	if m.cfg.ProofScreenshot {
		if png, err := m.surface.Screenshot(ctx); err == nil {
			if _, err := m.sink.SaveScreenshot(png, diag.CategoryLoginProofs, "login_success"); err != nil {
				m.log.WithError(err).Warn("Login proof not saved")
			}
		}
	}

	if m.profiles == nil {
		return
	}

	// the session cookie can land a moment after the feed renders
	var token string
	err := retry.PollCondition(ctx, m.cfg.PollInterval, m.cfg.RestoreWait, func(ctx context.Context) (bool, error) {
		cookies, err := m.surface.Cookies(ctx)
		if err != nil {
			return false, err
		}
		token = sessionToken(cookies)
		return token != "", nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			m.log.Warn("Session cookie missing after login")
		} else {
			m.log.WithError(err).Warn("Could not read cookies after login")
		}
		return
	}

	if err := m.profiles.SaveProfile(username, token); err != nil {
		m.log.WithError(err).Warn("Session token not saved")
		return
	}
	m.log.WithField("username", username).Info("Profile saved")
}

func sessionToken(cookies []browser.Cookie) string {
	for _, c := range cookies {
		if c.Name == instagram.SessionCookieName && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func (m *Manager) text(ctx context.Context, el browser.Element) string {
	if el.Text != "" {
		return el.Text
	}
	t, err := m.surface.Text(ctx, el)
	if err != nil {
		return ""
	}
	return t
}

// fail captures a diagnostic and builds the AuthError. A done ctx is
// returned as is: cancellation is not an authentication failure.
func (m *Manager) fail(ctx context.Context, kind ErrorKind, artifact, msg string, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	authErr := &AuthError{Kind: kind, Message: msg, Err: cause}
	authErr.Artifact = diag.CaptureFailure(ctx, m.sink, m.surface, artifact, authErr)
	return authErr
}
