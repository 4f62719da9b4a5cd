package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler replies with the body and query it received.
var echoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]string{
		"body":  string(body),
		"query": r.URL.RawQuery,
	})
})

func echo(t *testing.T, h http.Handler, req *http.Request) (body, query string) {
	t.Helper()
	w := do(h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out["body"], out["query"]
}

func TestSanitize_JSONBody(t *testing.T) {
	h := sanitizeMiddleware(false)(echoHandler)
	in := `{
		"name": "<b>Ada</b>",
		"$where": "sleep(1000)",
		"profile.role": "admin",
		"nested": {"$gt": "", "bio": "<script>alert(1)</script>hi"},
		"tags": ["<i>x</i>", {"$ne": 1, "ok": 2}],
		"age": 36
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(in))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	body, _ := echo(t, h, req)
	assert.JSONEq(t, `{"name":"Ada","nested":{"bio":"hi"},"tags":["x",{"ok":2}],"age":36}`, body)
}

func TestSanitize_Query(t *testing.T) {
	h := sanitizeMiddleware(false)(echoHandler)
	q := url.Values{
		"name":      {"<b>Ada</b>"},
		"$ne":       {"1"},
		"user[$gt]": {"2"},
		"a.b":       {"3"},
		"page":      {"2"},
	}
	req := httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)

	_, query := echo(t, h, req)
	got, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, url.Values{"name": {"Ada"}, "page": {"2"}}, got)
}

func TestSanitize_NonJSONUntouched(t *testing.T) {
	h := sanitizeMiddleware(false)(echoHandler)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("<b>raw</b>"))
	req.Header.Set("Content-Type", "text/plain")

	body, _ := echo(t, h, req)
	assert.Equal(t, "<b>raw</b>", body)
}

func TestSanitize_InvalidJSON(t *testing.T) {
	h := sanitizeMiddleware(true)(echoHandler)
	for _, in := range []string{`{"a":`, `{"a":1} {"b":2}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(in))
		req.Header.Set("Content-Type", "application/json")
		w := do(h, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, in)
		body := decodeError(t, w)
		assert.Equal(t, "Invalid JSON body", body.Message)
		assert.NotEmpty(t, body.Error)
	}
}

func TestSanitize_StreamedBodyTooLarge(t *testing.T) {
	h := bodyLimitMiddleware(16, false)(sanitizeMiddleware(false)(echoHandler))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1

	w := do(h, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
