package api

import (
	"log"
	"net/http"
	"time"

	"github.com/Formula-SAE/bugreport/internal/access"
	"github.com/Formula-SAE/bugreport/internal/db"
)

// authenticate resolves a bearer token into the request user. Requests
// without an Authorization header continue anonymously.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := getAuthorization(r)
		if err != nil {
			writeError(w, detailError(http.StatusUnauthorized, "Authorization header must contain two space-delimited values"))
			return
		}

		claims, err := a.tokens.ParseAccessToken(token)
		if err != nil {
			log.Printf("[auth] Rejected token: %v", err)
			writeError(w, detailError(http.StatusUnauthorized, "Given token not valid for any token type"))
			return
		}

		user, err := a.db.GetUserByID(r.Context(), claims.UserID)
		if db.IsNotFound(err) {
			writeError(w, detailError(http.StatusUnauthorized, "User not found"))
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(access.WithUser(r.Context(), user)))
	})
}

func (a *API) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !access.IsAuthenticated(access.UserFrom(r.Context())) {
			writeError(w, errNotAuthenticated)
			return
		}
		h(w, r)
	}
}

func (a *API) requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !access.IsAdmin(access.UserFrom(r.Context())) {
			writeError(w, errPermissionDenied)
			return
		}
		h(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
