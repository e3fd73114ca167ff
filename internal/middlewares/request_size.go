package middlewares

import (
	"mime"
	"net/http"
)

// bodyTooLarge matches the message handlers give for an oversized JSON body
const bodyTooLarge = "request body is too large"

// BodyLimits holds the request body caps in bytes.
// Multipart requests carry cover uploads; every other body is a small JSON document.
type BodyLimits struct {
	JSON      int64
	Multipart int64
}

// limitFor picks the cap for a request by its content type
func (l BodyLimits) limitFor(r *http.Request) int64 {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return l.Multipart
	}
	return l.JSON
}

// RequestSizeLimitMiddleware rejects requests whose declared length exceeds the limit with 413
// and caps the body reader for the rest.
func RequestSizeLimitMiddleware(limits BodyLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := limits.limitFor(r)
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, bodyTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
