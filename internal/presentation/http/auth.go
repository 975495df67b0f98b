package httppresentation

import (
	"context"
	"crypto/subtle"
	"net/http"
)

const headerAdminToken = "X-Admin-Token"

type adminTokenKey struct{}

// WithAdminToken copies the presented admin token from the request header into
// the context, where the Authorizer can see it. It performs no checking itself.
func WithAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(headerAdminToken)
		if token != "" {
			r = r.WithContext(context.WithValue(r.Context(), adminTokenKey{}, token))
		}
		next.ServeHTTP(w, r)
	})
}

// TokenAuthorizer grants admin access when the context carries the configured
// shared token. An empty configured token disables admin access entirely.
type TokenAuthorizer struct {
	token string
}

func NewTokenAuthorizer(token string) TokenAuthorizer {
	return TokenAuthorizer{token: token}
}

func (a TokenAuthorizer) IsAdmin(ctx context.Context) bool {
	if a.token == "" {
		return false
	}
	presented, _ := ctx.Value(adminTokenKey{}).(string)
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.token)) == 1
}
