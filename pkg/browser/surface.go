package browser

import (
	"context"
	"errors"
)

// QueryKind selects how a Query expression is interpreted.
type QueryKind int

const (
	CSS QueryKind = iota
	XPath
)

func (k QueryKind) String() string {
	if k == XPath {
		return "xpath"
	}
	return "css"
}

// Query identifies elements in the live page.
type Query struct {
	Kind QueryKind
	Expr string
}

// ByCSS returns a CSS selector query.
func ByCSS(expr string) Query { return Query{Kind: CSS, Expr: expr} }

// ByXPath returns an XPath query.
func ByXPath(expr string) Query { return Query{Kind: XPath, Expr: expr} }

func (q Query) String() string {
	return q.Kind.String() + ":" + q.Expr
}

// Element is a handle to a node found by Find. Handles are only valid until
// the next navigation.
type Element struct {
	ID    int64
	Query Query
	// Text is pre-filled by fakes; Chrome leaves it empty, use Surface.Text.
	Text string
}

// Cookie carries the cookie fields the session layer reads and writes.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Key names accepted by PressKey.
const (
	KeyArrowRight = "ArrowRight"
	KeyEscape     = "Escape"
	KeyEnter      = "Enter"
)

// ErrClosed is returned by every Surface method after Close.
var ErrClosed = errors.New("browser surface closed")

// Surface is the browser control surface. Implementations drive a single
// page; callers never share a Surface between goroutines.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)

	// Evaluate runs script in the page and decodes its result into out.
	// Promises are awaited. out may be nil.
	Evaluate(ctx context.Context, script string, out interface{}) error

	// Find returns every element matching q without waiting.
	Find(ctx context.Context, q Query) ([]Element, error)
	Text(ctx context.Context, el Element) (string, error)
	Click(ctx context.Context, el Element) error
	Type(ctx context.Context, el Element, text string) error
	PressKey(ctx context.Context, key string) error

	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookie(ctx context.Context, c Cookie) error

	Screenshot(ctx context.Context) ([]byte, error)
	Markup(ctx context.Context) (string, error)
}
