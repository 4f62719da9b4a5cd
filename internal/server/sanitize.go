// sanitize.go - Strips markup and query-operator keys from request input.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = sync.OnceValue(bluemonday.StrictPolicy)

// operatorKey reports keys that a document database would read as an
// operator or a nested path.
func operatorKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, ".")
}

// operatorQueryKey also checks bracket segments such as user[$ne].
func operatorQueryKey(key string) bool {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '[' || r == ']' })
	for _, part := range parts {
		if operatorKey(part) {
			return true
		}
	}
	return false
}

func sanitizeString(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return strictPolicy().Sanitize(s)
}

// sanitizeValue walks decoded JSON, dropping operator keys and stripping
// markup from strings.
func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if operatorKey(k) {
				delete(t, k)
				continue
			}
			t[k] = sanitizeValue(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = sanitizeValue(val)
		}
		return t
	case string:
		return sanitizeString(t)
	default:
		return v
	}
}

func sanitizeQuery(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, vs := range values {
		if operatorQueryKey(k) {
			continue
		}
		clean := make([]string, len(vs))
		for i, v := range vs {
			clean[i] = sanitizeString(v)
		}
		out[k] = clean
	}
	return out
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

// sanitizeMiddleware rewrites the query string and JSON bodies in place.
func sanitizeMiddleware(dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				r.URL.RawQuery = sanitizeQuery(r.URL.Query()).Encode()
			}

			if r.Body != nil && r.Body != http.NoBody && isJSON(r) {
				raw, err := io.ReadAll(r.Body)
				_ = r.Body.Close()
				if err != nil {
					if isBodyTooLarge(err) {
						writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err, dev)
						return
					}
					writeError(w, http.StatusBadRequest, "Could not read request body", err, dev)
					return
				}

				if len(bytes.TrimSpace(raw)) > 0 {
					dec := json.NewDecoder(bytes.NewReader(raw))
					dec.UseNumber()
					var doc any
					if err := dec.Decode(&doc); err != nil {
						writeError(w, http.StatusBadRequest, "Invalid JSON body", err, dev)
						return
					}
					if dec.More() {
						writeError(w, http.StatusBadRequest, "Invalid JSON body", errors.New("trailing data after JSON value"), dev)
						return
					}
					if raw, err = json.Marshal(sanitizeValue(doc)); err != nil {
						writeError(w, http.StatusInternalServerError, "Something went wrong", err, dev)
						return
					}
				}

				r.Body = io.NopCloser(bytes.NewReader(raw))
				r.ContentLength = int64(len(raw))
			}

			next.ServeHTTP(w, r)
		})
	}
}
