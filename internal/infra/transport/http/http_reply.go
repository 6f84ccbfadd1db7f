package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/postboard/internal/domain"
)

// ErrResponseStarted marks a write that failed after the status line was sent.
// Nothing more can be written to such a response.
var ErrResponseStarted = errors.New("response already started")

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// errorStatus maps domain errors to the status and message clients see. Order
// matters: the first match wins, so the more specific causes come first.
//
//nolint:gochecknoglobals
var errorStatus = []struct {
	err    error
	status int
	detail string
}{
	{domain.ErrTokenExpired, http.StatusUnauthorized, "Token has expired"},
	{domain.ErrTokenInvalid, http.StatusUnauthorized, "Invalid token"},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "Not authenticated"},
	{domain.ErrNoAuthToken, http.StatusUnauthorized, "Not authenticated"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{domain.ErrEmailExists, http.StatusBadRequest, "Email already exists"},
	{domain.ErrAlreadyLikedOrNotFound, http.StatusBadRequest, "Already liked or post not found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{domain.ErrPostNotFound, http.StatusNotFound, "Post not found"},
	{domain.ErrBlobNotFound, http.StatusNotFound, "Not found"},
	{domain.ErrUploadFailed, http.StatusInternalServerError, "Image upload failed"},
	{domain.ErrImageTooLarge, http.StatusUnprocessableEntity, "Image too large"},
	{domain.ErrImageTypeNotSupported, http.StatusUnprocessableEntity, "Image type not supported"},
	{domain.ErrImageEmpty, http.StatusUnprocessableEntity, "Image is empty"},
	{domain.ErrImageInvalid, http.StatusUnprocessableEntity, "Invalid image"},
	{domain.ErrInvalidID, http.StatusUnprocessableEntity, "Invalid id"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, ""},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "Service unavailable"},
}

// StatusFor returns the HTTP status and client-facing detail for err.
// Validation errors carry their own message; unknown errors become a bare 500.
func StatusFor(err error) (int, string) {
	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		return http.StatusUnprocessableEntity, invalid.Message
	}

	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}

		if e.detail == "" {
			return e.status, err.Error()
		}

		return e.status, e.detail
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// WriteError replies with the status and detail StatusFor picks for err. It writes
// nothing if err is ErrResponseStarted.
func WriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrResponseStarted) {
		return
	}

	status, detail := StatusFor(err)
	WriteDetail(w, status, detail)
}

// WriteDetail replies with {"detail": detail}.
func WriteDetail(w http.ResponseWriter, status int, detail any) {
	_ = WriteJSON(w, status, ErrorResponse{Detail: detail})
}

// WriteJSON encodes v as the response body. An encoding error leaves w untouched;
// a failed write after the header is returned as ErrResponseStarted.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := body.WriteTo(w); err != nil {
		return errors.Join(ErrResponseStarted, fmt.Errorf("write response: %w", err))
	}

	return nil
}

// DecodeJSON reads a JSON request body into v. Malformed bodies are validation errors.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalidf("malformed request body: %v", err)
	}

	return nil
}
