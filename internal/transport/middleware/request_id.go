package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/pkg/ctxutil"
)

const maxRequestIDLen = 128

// RequestID propagates X-Request-Id, generating one when the client did not
// send a usable value.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctxutil.WithRequestID(r.Context(), id)))
	})
}
