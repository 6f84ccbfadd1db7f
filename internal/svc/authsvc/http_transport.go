package authsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/postboard/internal/domain"
	context_ "github.com/mkrupp/postboard/internal/infra/context"
	"github.com/mkrupp/postboard/internal/infra/logging"
	http_ "github.com/mkrupp/postboard/internal/infra/transport/http"
)

// BasePath is where the auth routes are mounted.
const BasePath = "/api/v1/auth"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

// HTTPTransport serves the account endpoints under BasePath.
type HTTPTransport struct {
	authSvc  *AuthService
	sessions *SessionExtractor
	log      logging.Logger
	mux      *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport. Routes:
//   - POST /register, POST /login, POST /logout, GET /users
//   - GET, PUT and DELETE /me, PUT /me/password (session required)
func NewHTTPTransport(authSvc *AuthService, sessions *SessionExtractor) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc:  authSvc,
		sessions: sessions,
		log:      logging.GetLogger("svc.authsvc.http_transport"),
		mux:      http.NewServeMux(),
	}

	authed := func(h http.HandlerFunc) http.Handler {
		return http_.SessionMiddleware(h, sessions, ht.log)
	}

	ht.mux.HandleFunc("POST "+BasePath+"/register", ht.HandleRegister)
	ht.mux.HandleFunc("POST "+BasePath+"/login", ht.HandleLogin)
	ht.mux.HandleFunc("POST "+BasePath+"/logout", ht.HandleLogout)
	ht.mux.HandleFunc("GET "+BasePath+"/users", ht.HandleListUsers)
	ht.mux.Handle("GET "+BasePath+"/me", authed(ht.HandleGetProfile))
	ht.mux.Handle("PUT "+BasePath+"/me", authed(ht.HandleUpdateProfile))
	ht.mux.Handle("DELETE "+BasePath+"/me", authed(ht.HandleDeleteUser))
	ht.mux.Handle("PUT "+BasePath+"/me/password", authed(ht.HandleChangePassword))

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

func (ht *HTTPTransport) setSessionCookie(w http.ResponseWriter, token string) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     ht.sessions.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   ht.authSvc.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (ht *HTTPTransport) clearSessionCookie(w http.ResponseWriter) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     ht.sessions.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ht.authSvc.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// reply writes err as an error response. A response that already started can only
// be logged.
func (ht *HTTPTransport) reply(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, http_.ErrResponseStarted) {
		ht.log.ErrorContext(r.Context(), "write response failed", "error", err)
	} else if err != nil {
		http_.WriteError(w, err)
	}
}

func sessionUser(r *http.Request) (domain.UserID, error) {
	id, ok := context_.UserIDFromContext(r.Context())
	if !ok {
		return "", domain.ErrUnauthenticated
	}

	return id, nil
}

// HandleRegister creates an account from a JSON name, email and password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleRegister(w, r))
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	var req registerRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		return err
	}

	if err := ht.authSvc.RegisterUser(r.Context(), req.Name, req.Email, req.Password); err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "User registered successfully"})
}

// HandleLogin checks the credentials and sets the session cookie.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleLogin(w, r))
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	var req loginRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		return err
	}

	token, err := ht.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return fmt.Errorf("login user: %w", err)
	}

	ht.setSessionCookie(w, token)

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "Login successful"})
}

// HandleLogout expires the session cookie. Issued tokens stay valid until they expire.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	ht.clearSessionCookie(w)
	_ = http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "Logged out successfully"})
}

// HandleListUsers returns all users without their password hashes.
func (ht *HTTPTransport) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := ht.authSvc.ListUsers(r.Context())
	if err != nil {
		http_.WriteError(w, err)

		return
	}

	if users == nil {
		users = []domain.User{}
	}

	_ = http_.WriteJSON(w, http.StatusOK, users)
}

// HandleGetProfile returns the signed-in user.
func (ht *HTTPTransport) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleGetProfile(w, r))
}

func (ht *HTTPTransport) handleGetProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := sessionUser(r)
	if err != nil {
		return err
	}

	user, err := ht.authSvc.GetProfile(r.Context(), id)
	if err != nil {
		return err
	}

	return http_.WriteJSON(w, http.StatusOK, user)
}

// HandleUpdateProfile applies a partial JSON profile change to the signed-in user.
func (ht *HTTPTransport) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleUpdateProfile(w, r))
}

func (ht *HTTPTransport) handleUpdateProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := sessionUser(r)
	if err != nil {
		return err
	}

	var update domain.ProfileUpdate
	if err := http_.DecodeJSON(r, &update); err != nil {
		return err
	}

	if err := ht.authSvc.UpdateProfile(r.Context(), id, update); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "User profile updated successfully"})
}

// HandleDeleteUser deletes the signed-in user and expires the session cookie.
func (ht *HTTPTransport) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleDeleteUser(w, r))
}

func (ht *HTTPTransport) handleDeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := sessionUser(r)
	if err != nil {
		return err
	}

	if err := ht.authSvc.DeleteUser(r.Context(), id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	ht.clearSessionCookie(w)

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "User deleted successfully"})
}

// HandleChangePassword replaces the password of the signed-in user.
func (ht *HTTPTransport) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ht.reply(w, r, ht.handleChangePassword(w, r))
}

func (ht *HTTPTransport) handleChangePassword(w http.ResponseWriter, r *http.Request) error {
	id, err := sessionUser(r)
	if err != nil {
		return err
	}

	var req passwordRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		return err
	}

	if err := ht.authSvc.ChangePassword(r.Context(), id, req.Password); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "Password changed successfully"})
}
