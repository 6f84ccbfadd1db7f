package authsvc

import (
	"errors"
	"net/http"

	"github.com/mkrupp/postboard/internal/domain"
	http_ "github.com/mkrupp/postboard/internal/infra/transport/http"
)

// DefaultCookieName is the cookie the session token travels in.
const DefaultCookieName = "access_token"

// SessionExtractor resolves the session cookie of a request into verified claims.
// It is the only place requests are authenticated.
type SessionExtractor struct {
	Tokens     *TokenService
	CookieName string
}

var _ http_.SessionResolver = (*SessionExtractor)(nil)

// NewSessionExtractor reads tokens from the cookie named cookieName.
func NewSessionExtractor(tokens *TokenService, cookieName string) *SessionExtractor {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	return &SessionExtractor{Tokens: tokens, CookieName: cookieName}
}

// Resolve implements http_.SessionResolver. Every failure is ErrUnauthenticated,
// joined with the specific cause.
func (e *SessionExtractor) Resolve(r *http.Request) (domain.Claims, error) {
	cookie, err := r.Cookie(e.CookieName)
	if err != nil || cookie.Value == "" {
		return domain.Claims{}, errors.Join(domain.ErrUnauthenticated, domain.ErrNoAuthToken)
	}

	claims, err := e.Tokens.Verify(cookie.Value)
	if err != nil {
		return domain.Claims{}, errors.Join(domain.ErrUnauthenticated, err)
	}

	return claims, nil
}
