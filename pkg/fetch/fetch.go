// Package fetch downloads media through the authenticated page so requests
// carry the page's cookies and headers.
package fetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"igstories/pkg/browser"
	"igstories/pkg/errors"
)

// errorSentinel is returned by the in-page script when fetch or the reader
// fails.
const errorSentinel = "ERROR"

const fetchTemplate = `(async function() {
	try {
		const response = await fetch(%s, { cache: 'force-cache' });
		if (!response.ok) { return "ERROR"; }
		const blob = await response.blob();
		return await new Promise((resolve) => {
			const reader = new FileReader();
			reader.onloadend = () => resolve(reader.result);
			reader.onerror = () => resolve("ERROR");
			reader.readAsDataURL(blob);
		});
	} catch (err) {
		return "ERROR";
	}
})()`

// Script returns the in-page fetch program for mediaURL
func Script(mediaURL string) string {
	// a JSON string is a valid JS string literal
	lit, _ := json.Marshal(mediaURL)
	return fmt.Sprintf(fetchTemplate, lit)
}

// Payload is a decoded response body
type Payload struct {
	URL      string
	MIMEType string
	Data     []byte
}

// Adapter runs fetches inside the page
type Adapter struct {
	surface browser.Surface
}

func NewAdapter(s browser.Surface) *Adapter {
	return &Adapter{surface: s}
}

// Fetch downloads mediaURL and decodes the data URL returned by the page
func (a *Adapter) Fetch(ctx context.Context, mediaURL string) (*Payload, error) {
	var result string
	if err := a.surface.Evaluate(ctx, Script(mediaURL), &result); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeFetch, "in-page fetch failed", err)
	}
	if result == errorSentinel || result == "" {
		return nil, errors.New(errors.ErrorTypeFetch, "page could not fetch "+mediaURL)
	}

	mime, data, err := DecodeDataURL(result)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeFetch, "undecodable payload", err)
	}
	return &Payload{URL: mediaURL, MIMEType: mime, Data: data}, nil
}

// DecodeDataURL parses an RFC 2397 data URL
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}
	header, body, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload separator")
	}

	params := strings.Split(header, ";")
	mime = params[0]
	if mime == "" {
		mime = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		return mime, data, nil
	}

	unescaped, err := url.PathUnescape(body)
	if err != nil {
		return "", nil, fmt.Errorf("invalid percent-encoded payload: %w", err)
	}
	return mime, []byte(unescaped), nil
}
