package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

type ctxKey int

const identityKey ctxKey = iota

// requireSession resolves the Authorization bearer token into an identity and
// stores it on the request context. Requests without a valid session get 401.
func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, &domain.AuthError{Msg: "missing bearer token"})
			return
		}
		id, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		next(w, r.WithContext(ctx))
	}
}

// identity returns the authenticated caller placed by requireSession.
func identity(r *http.Request) domain.Identity {
	id, _ := r.Context().Value(identityKey).(domain.Identity)
	return id
}

func bearerToken(r *http.Request) string {
	// Websocket clients in browsers cannot set headers, so the feed endpoint
	// also accepts the token as a query parameter.
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
