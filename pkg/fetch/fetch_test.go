package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igstories/pkg/browser"
	igerrors "igstories/pkg/errors"
)

func TestScriptQuotesURL(t *testing.T) {
	s := Script(`https://cdn.example.com/a.jpg?x="1"`)
	assert.Contains(t, s, `fetch("https://cdn.example.com/a.jpg?x=\"1\""`)
	assert.Contains(t, s, "force-cache")
	assert.Contains(t, s, "readAsDataURL")
}

func TestDecodeDataURL(t *testing.T) {
	payload := []byte("\x00\x01binary\xff")
	mime, data, err := DecodeDataURL("data:video/mp4;base64," + base64.StdEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", mime)
	assert.Equal(t, payload, data)

	mime, data, err = DecodeDataURL("data:,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mime)
	assert.Equal(t, "hello world", string(data))

	_, _, err = DecodeDataURL("ERROR")
	assert.Error(t, err)
	_, _, err = DecodeDataURL("data:image/jpeg;base64")
	assert.Error(t, err)
	_, _, err = DecodeDataURL("data:image/jpeg;base64,!!!")
	assert.Error(t, err)
}

func TestAdapterFetch(t *testing.T) {
	body := strings.Repeat("x", 2048)
	fake := browser.NewFake("")
	fake.EvalFunc = func(script string) (interface{}, error) {
		return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(body)), nil
	}

	p, err := NewAdapter(fake).Fetch(context.Background(), "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", p.MIMEType)
	assert.Len(t, p.Data, 2048)
	assert.Equal(t, "https://cdn.example.com/a.jpg", p.URL)
	require.Len(t, fake.Evaluations, 1)
	assert.Contains(t, fake.Evaluations[0], "https://cdn.example.com/a.jpg")
}

func TestAdapterFetchFailures(t *testing.T) {
	tests := []struct {
		name string
		eval func(string) (interface{}, error)
	}{
		{"page sentinel", func(string) (interface{}, error) { return "ERROR", nil }},
		{"empty result", func(string) (interface{}, error) { return "", nil }},
		{"evaluation error", func(string) (interface{}, error) { return nil, errors.New("context lost") }},
		{"not a data url", func(string) (interface{}, error) { return "<html>", nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := browser.NewFake("")
			fake.EvalFunc = tt.eval
			_, err := NewAdapter(fake).Fetch(context.Background(), "https://cdn.example.com/a.jpg")
			require.Error(t, err)
			assert.Equal(t, igerrors.ErrorTypeFetch, igerrors.TypeOf(err))
		})
	}
}
