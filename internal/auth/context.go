package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// HeaderUserID carries the id of the user a mutation acts for.
const HeaderUserID = "X-User-ID"

type contextKey struct{}

// Actor is the user a request acts for.
type Actor struct {
	UserID int64
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}

// UserID returns the acting user's id, or 0 when the request named none.
func UserID(ctx context.Context) int64 {
	a, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return a.UserID
}

// Middleware stores the HeaderUserID value as the request's Actor. Requests
// without the header pass through unchanged; a header that is not a positive
// integer is rejected with 400.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.Header.Get(HeaderUserID)
		if v == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": HeaderUserID + " must be a positive integer"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), Actor{UserID: id})))
	})
}
