package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/microcosm-cc/bluemonday"
)

// free-text fields that end up in admin views and notifications
var sanitizedFields = map[string]bool{
	"description":  true,
	"notes":        true,
	"journal_name": true,
}

// SanitizeInput strips markup from the free-text fields of JSON request
// bodies. Other fields are left untouched: bluemonday escapes '&', which
// would corrupt return URLs, and numbers must stay exact.
func SanitizeInput() Middleware {
	policy := bluemonday.StrictPolicy()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}
			if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "application/json" {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				badRequest(w, "unreadable body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var body map[string]any
			if err := dec.Decode(&body); err != nil {
				// not an object; let the handler report it
				next.ServeHTTP(w, r)
				return
			}
			changed := false
			for k, v := range body {
				s, ok := v.(string)
				if !ok || !sanitizedFields[k] {
					continue
				}
				if clean := policy.Sanitize(s); clean != s {
					body[k] = clean
					changed = true
				}
			}
			if changed {
				out, err := json.Marshal(body)
				if err != nil {
					badRequest(w, "invalid body")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(out))
				r.ContentLength = int64(len(out))
			}
			next.ServeHTTP(w, r)
		})
	}
}
