package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igstories/pkg/auth"
	"igstories/pkg/browser"
	"igstories/pkg/config"
	"igstories/pkg/diag"
	"igstories/pkg/instagram"
	"igstories/pkg/logger"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		LoginTimeout:    150 * time.Millisecond,
		PollInterval:    time.Millisecond,
		SubmitAttempts:  3,
		RestoreWait:     50 * time.Millisecond,
		ProofScreenshot: true,
	}
}

type harness struct {
	fake     *browser.Fake
	rec      *diag.Recorder
	profiles *auth.Manager
	store    *auth.MockStore
	mgr      *Manager
	pauses   []time.Duration
}

func newHarness(t *testing.T, startURL string) *harness {
	t.Helper()
	h := &harness{fake: browser.NewFake(startURL), rec: &diag.Recorder{}}
	h.fake.PNG = []byte("png")
	h.fake.HTML = "<html></html>"
	h.profiles, h.store = auth.NewMockManager()
	h.mgr = NewManager(h.fake, testConfig(), h.rec, h.profiles, logger.NewTestLogger())
	h.mgr.sleep = func(ctx context.Context, d time.Duration) error {
		h.pauses = append(h.pauses, d)
		return ctx.Err()
	}
	return h
}

// loginForm puts the username and password fields on the page
func (h *harness) loginForm() {
	h.fake.Put(instagram.UsernameInput.Probes[0].Live, "")
	h.fake.Put(instagram.PasswordInput.Probes[0].Live, "")
}

func (h *harness) loginButton(onClick func(f *browser.Fake)) {
	h.fake.Put(instagram.Buttons.Live, "Log in")
	h.fake.OnClick = func(f *browser.Fake, el browser.Element) {
		if el.Query == instagram.Buttons.Live && onClick != nil {
			onClick(f)
		}
	}
}

func landmark(f *browser.Fake) {
	f.Put(instagram.LoggedInLandmark.Probes[0].Live, "")
}

func TestSessionValidate(t *testing.T) {
	assert.NoError(t, WithCredentials("alice", "pw").Validate())
	assert.NoError(t, WithToken("alice", "tok").Validate())
	assert.NoError(t, WithToken("", "tok").Validate())
	assert.Error(t, Session{Username: "alice"}.Validate())
	assert.Error(t, Session{}.Validate())
	assert.Error(t, Session{Username: "a", Password: "b", Token: "c"}.Validate())
}

func TestEstablishRejectsMissingMode(t *testing.T) {
	h := newHarness(t, "about:blank")
	err := h.mgr.Establish(context.Background(), Session{Username: "alice"})
	require.Error(t, err)
	assert.Equal(t, ErrorKind(0), KindOf(err))
	assert.Empty(t, h.fake.Navigations)
}

func TestLoginSuccessSavesToken(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.loginButton(landmark)
	h.fake.Jar = []browser.Cookie{{Name: "csrftoken", Value: "x"}, {Name: "sessionid", Value: "token-123"}}

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "hunter2")))

	assert.Equal(t, []string{instagram.LoginURL()}, h.fake.Navigations)
	assert.Equal(t, "alice", h.fake.Typed[instagram.UsernameInput.Probes[0].Live.Expr])
	assert.Equal(t, "hunter2", h.fake.Typed[instagram.PasswordInput.Probes[0].Live.Expr])
	assert.Contains(t, h.pauses, typingPause)

	token, err := h.profiles.LoadProfileToken("alice")
	require.NoError(t, err)
	assert.Equal(t, "token-123", token)

	proof, ok := h.rec.Find("login_success")
	require.True(t, ok)
	assert.Equal(t, diag.CategoryLoginProofs, proof.Category)
}

func TestLoginSkipsPasswordToggle(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.fake.Put(instagram.Buttons.Live, "Show")
	h.loginButton(landmark)

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))

	var clicked []string
	for _, el := range h.fake.Clicks {
		if el.Query == instagram.Buttons.Live {
			clicked = append(clicked, el.Text)
		}
	}
	assert.Equal(t, []string{"Log in"}, clicked)
}

func TestLoginFallsBackToEnter(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.fake.OnKey = func(f *browser.Fake, key string) {
		if key == browser.KeyEnter {
			f.SetURL(instagram.RootURL())
		}
	}

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))
	assert.Equal(t, []string{browser.KeyEnter}, h.fake.KeysPressed())
}

func TestLoginSucceedsWhenURLLeavesLoginPage(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.loginButton(func(f *browser.Fake) { f.SetURL(instagram.RootURL()) })

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))
}

func TestLoginDismissesNotNow(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.loginButton(func(f *browser.Fake) {
		f.Put(instagram.NotNowPrompt.Probes[0].Live, "Not Now")
	})

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))

	last := h.fake.Clicks[len(h.fake.Clicks)-1]
	assert.Equal(t, instagram.NotNowPrompt.Probes[0].Live, last.Query)
}

func TestLoginDismissesConsentOnce(t *testing.T) {
	h := newHarness(t, "about:blank")
	allowAll := instagram.CookieConsent.Probes[0].Live
	decline := instagram.CookieConsent.Probes[2].Live
	h.fake.Put(allowAll, "Allow all cookies")
	h.fake.Put(decline, "Decline optional cookies")
	h.loginForm()
	h.loginButton(landmark)

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))

	var consentClicks int
	for _, el := range h.fake.Clicks {
		if el.Query == allowAll || el.Query == decline {
			consentClicks++
			assert.Equal(t, allowAll, el.Query)
		}
	}
	assert.Equal(t, 1, consentClicks)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.loginButton(func(f *browser.Fake) {
		f.Put(instagram.LoginAlert.Probes[0].Live, "Sorry, your password was incorrect.")
	})

	err := h.mgr.Establish(context.Background(), WithCredentials("alice", "wrong"))
	require.Error(t, err)
	assert.Equal(t, InvalidCredentials, KindOf(err))
	assert.ErrorIs(t, err, &AuthError{Kind: InvalidCredentials})

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.NotEmpty(t, ae.Artifact)
	_, ok := h.rec.Find("login_rejected")
	assert.True(t, ok)
	assert.Equal(t, 0, h.store.Count())
}

func TestLoginTimeout(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.loginButton(nil)

	start := time.Now()
	err := h.mgr.Establish(context.Background(), WithCredentials("alice", "pw"))
	require.Error(t, err)
	assert.Equal(t, Timeout, KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)

	a, ok := h.rec.Find("login_timeout")
	require.True(t, ok)
	assert.Equal(t, "screenshot", a.Kind)
}

func TestLoginElementMissing(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.fake.ScreenshotErr = errors.New("capture failed")

	err := h.mgr.Establish(context.Background(), WithCredentials("alice", "pw"))
	require.Error(t, err)
	assert.Equal(t, ElementMissing, KindOf(err))

	a, ok := h.rec.Find("missing_username")
	require.True(t, ok)
	assert.Equal(t, "markup", a.Kind, "markup dump replaces a failed screenshot")
}

func TestLoginPasswordFieldMissing(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.fake.Put(instagram.UsernameInput.Probes[2].Live, "")

	err := h.mgr.Establish(context.Background(), WithCredentials("alice", "pw"))
	assert.Equal(t, ElementMissing, KindOf(err))
	_, ok := h.rec.Find("missing_password")
	assert.True(t, ok)
	assert.Equal(t, "alice", h.fake.Typed[instagram.UsernameInput.Probes[2].Live.Expr], "positional fallback is used")
}

func TestLoginResubmitsAfterProblem(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	alert := instagram.LoginAlert.Probes[0].Live
	submits := 0
	h.loginButton(func(f *browser.Fake) {
		submits++
		if submits == 1 {
			f.Put(alert, "There was a problem logging you into Instagram.")
			return
		}
		f.Remove(alert)
		landmark(f)
	})

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))
	assert.Equal(t, 2, submits)
	assert.Contains(t, h.pauses, problemPause)
}

func TestLoginProblemPersists(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	submits := 0
	h.loginButton(func(f *browser.Fake) {
		submits++
		f.Put(instagram.LoginAlert.Probes[0].Live, "There was a problem")
	})

	err := h.mgr.Establish(context.Background(), WithCredentials("alice", "pw"))
	assert.Equal(t, Timeout, KindOf(err))
	assert.Equal(t, 3, submits)
}

func TestRestoreSuccess(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.fake.OnReload = landmark

	require.NoError(t, h.mgr.Establish(context.Background(), WithToken("alice", "tok")))

	assert.Equal(t, []string{instagram.RootURL()}, h.fake.Navigations)
	assert.Equal(t, 1, h.fake.Reloads)
	require.Len(t, h.fake.Jar, 1)
	c := h.fake.Jar[0]
	assert.Equal(t, "sessionid", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, ".instagram.com", c.Domain)
	assert.True(t, c.Secure)
	assert.True(t, c.HTTPOnly)
	assert.Empty(t, h.fake.Typed)
}

func TestRestoreExpiredToken(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.fake.OnReload = func(f *browser.Fake) {
		f.Put(instagram.PasswordInput.Probes[0].Live, "")
	}

	err := h.mgr.Establish(context.Background(), WithToken("alice", "stale"))
	require.Error(t, err)
	assert.Equal(t, SessionExpired, KindOf(err))
	_, ok := h.rec.Find("session_expired")
	assert.True(t, ok)
}

func TestRestoreNoLandmarkExpires(t *testing.T) {
	h := newHarness(t, "about:blank")

	err := h.mgr.Establish(context.Background(), WithToken("alice", "stale"))
	assert.Equal(t, SessionExpired, KindOf(err))
}

func TestRestoreRedirectToChallenge(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.fake.OnReload = func(f *browser.Fake) { f.SetURL("https://www.instagram.com/challenge/abc/") }

	err := h.mgr.Establish(context.Background(), WithToken("alice", "stale"))
	assert.Equal(t, SessionExpired, KindOf(err))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "invalid_credentials", InvalidCredentials.String())
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "element_missing", ElementMissing.String())
	assert.Equal(t, "session_expired", SessionExpired.String())
	assert.Equal(t, "unknown", ErrorKind(0).String())
}

func TestLoginNavigationFailureIsTimeout(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.fake.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	err := h.mgr.Establish(context.Background(), WithCredentials("alice", "pw"))
	assert.Equal(t, Timeout, KindOf(err))
	_, ok := h.rec.Find("login_navigation")
	assert.True(t, ok)
}

func TestCancelledLoginIsNotAnAuthError(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.mgr.Establish(ctx, WithCredentials("alice", "pw"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ErrorKind(0), KindOf(err))
	assert.Empty(t, h.rec.Captured(), "no diagnostic for a cancelled run")
}

func TestCancelledRestoreIsNotAnAuthError(t *testing.T) {
	h := newHarness(t, "about:blank")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.mgr.Establish(ctx, WithToken("alice", "tok"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ErrorKind(0), KindOf(err))
	assert.Empty(t, h.rec.Captured())
}

func TestLoginWaitsForLateSessionCookie(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.loginButton(func(f *browser.Fake) {
		landmark(f)
		go func() {
			time.Sleep(5 * time.Millisecond)
			_ = f.SetCookie(context.Background(), browser.Cookie{Name: instagram.SessionCookieName, Value: "late", Domain: instagram.CookieDomain})
		}()
	})

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))

	token, err := h.profiles.LoadProfileToken("alice")
	require.NoError(t, err)
	assert.Equal(t, "late", token)
}

func TestLoginWithoutSessionCookieSavesNothing(t *testing.T) {
	h := newHarness(t, "about:blank")
	h.loginForm()
	h.loginButton(landmark)

	require.NoError(t, h.mgr.Establish(context.Background(), WithCredentials("alice", "pw")))
	assert.Equal(t, 0, h.store.Count())
}
