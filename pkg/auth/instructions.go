package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteSessionTokenGuide prints how to copy the session cookie out of a
// logged-in browser so it can be imported with `igstories auth import`.
func WriteSessionTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SAVING A SESSION FROM YOUR BROWSER")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Log in at https://www.instagram.com and wait for your feed.")
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS).")
	fmt.Fprintln(w, "3. Application (Chrome) or Storage (Firefox) > Cookies > https://www.instagram.com")
	fmt.Fprintln(w, "4. Copy the value of the 'sessionid' cookie, without quotes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The token grants full access to the account. It is stored encrypted")
	fmt.Fprintln(w, "and is never printed in full.")
	fmt.Fprintln(w, rule)
}

// NormalizeToken trims whitespace and a pasted "sessionid=" prefix or
// trailing semicolon.
func NormalizeToken(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.TrimPrefix(t, "sessionid=")
	t = strings.TrimSuffix(t, ";")
	return strings.Trim(t, `"`)
}
