package middleware

import (
	"context"
	"net/http"
	"strings"

	"coderr-service/internal/access"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

// Authenticator resolves a raw token into the actor it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (access.Actor, error)
}

type Auth struct {
	authn  Authenticator
	logger zerolog.Logger
}

func NewAuth(authn Authenticator, logger zerolog.Logger) *Auth {
	return &Auth{authn: authn, logger: logger}
}

// Handler attaches the caller to the request context. Requests without an
// Authorization header continue anonymously; a header carrying a bad token
// is rejected.
func (m *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := parseAuthorization(header)
		if !ok {
			reject(w, http.StatusUnauthorized, "unauthenticated", "Invalid token header.")
			return
		}

		actor, err := m.authn.Authenticate(r.Context(), raw)
		if err != nil {
			if service.IsKind(err, service.KindUnauthenticated) {
				m.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
				reject(w, http.StatusUnauthorized, "unauthenticated", "Invalid token.")
				return
			}
			m.logger.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("authenticate request")
			reject(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireActor rejects anonymous requests.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).Authenticated() {
			reject(w, http.StatusUnauthorized, "unauthenticated", "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// parseAuthorization accepts "Token <key>" and "Bearer <key>".
func parseAuthorization(header string) (string, bool) {
	scheme, key, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
	default:
		return "", false
	}
	key = strings.TrimSpace(key)
	return key, key != "" && !strings.ContainsAny(key, " \t")
}
