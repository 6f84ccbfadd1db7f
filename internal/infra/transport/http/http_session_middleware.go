package http

import (
	"net/http"

	"github.com/mkrupp/postboard/internal/domain"
	context_ "github.com/mkrupp/postboard/internal/infra/context"
	"github.com/mkrupp/postboard/internal/infra/logging"
)

// SessionResolver turns a request into verified session claims.
type SessionResolver interface {
	Resolve(r *http.Request) (domain.Claims, error)
}

// SessionMiddleware rejects requests without a valid session with 401 and otherwise
// stores the claims in the request context for the handlers behind it.
func SessionMiddleware(next http.Handler, resolver SessionResolver, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := resolver.Resolve(r)
		if err != nil {
			log.WarnContext(r.Context(), "session rejected", "error", err)
			WriteError(w, err)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithSession(r.Context(), claims)))
	})
}
