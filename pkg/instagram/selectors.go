package instagram

import "igstories/pkg/locator"

// Login form
var (
	UsernameInput = locator.NewChain("username input",
		locator.CSS("username by name", "input[name='username']"),
		locator.XPath("username by aria-label",
			"//input[contains(@aria-label, 'username') or contains(@aria-label, 'Mobile')]",
			"input[aria-label*='username'], input[aria-label*='Mobile']"),
		locator.XPath("first text input", "//input[@type='text']", "input[type='text']"),
	)

	PasswordInput = locator.NewChain("password input",
		locator.CSS("password by name", "input[name='password']"),
		locator.XPath("password by type", "//input[@type='password']", "input[type='password']"),
	)

	SubmitButton = locator.NewChain("submit button",
		locator.CSS("submit button", "button[type='submit']"),
	)

	// Buttons is scanned for a "log in" label when the submit button is
	// missing or ambiguous.
	Buttons = locator.CSS("buttons", "button")
)

// Interstitials
var (
	// CookieConsent options are tried in order; the first present is clicked.
	CookieConsent = locator.NewChain("cookie consent",
		locator.TextMatch("allow all cookies", "button", "Allow all cookies"),
		locator.TextMatch("allow", "button", "Allow"),
		locator.TextMatch("decline", "button", "Decline"),
	)

	NotNowPrompt = locator.NewChain("not now prompt",
		locator.TextMatch("not now button", "button", "Not Now"),
	)

	LoginAlert = locator.NewChain("login alert",
		locator.CSS("alert paragraph", "p[role='alert']"),
		locator.CSS("alert div", "div[role='alert']"),
	)
)

// LoggedIn landmarks
var LoggedInLandmark = locator.NewChain("logged-in landmark",
	locator.CSS("home icon", "svg[aria-label='Home']"),
	locator.CSS("profile avatar", "img[alt*='profile picture']"),
)

// Profile page
var StoryRing = locator.NewChain("story ring",
	locator.CSS("story ring canvas", "header canvas"),
	locator.CSS("any canvas", "canvas"),
)

// Chains lists every chain by name for offline diagnosis.
func Chains() []locator.Chain {
	return []locator.Chain{
		CookieConsent,
		UsernameInput,
		PasswordInput,
		SubmitButton,
		NotNowPrompt,
		LoginAlert,
		LoggedInLandmark,
		StoryRing,
	}
}
