package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrConnection         = errors.New("connection failure")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrServer             = errors.New("server error")
)

// ServerError is a non-2xx response. Message is the server's own message when
// the body carried one.
type ServerError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *ServerError) Unwrap() error { return e.Err }

// Message returns what a user should see for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

func connectionError(err error) error {
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

// responseError maps a failed response onto its category.
func responseError(resp *resty.Response, fallback string) error {
	se := &ServerError{
		StatusCode: resp.StatusCode(),
		Message:    extractMessage(resp.Body(), fallback),
		Err:        ErrServer,
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		se.Err = ErrUnauthorized
	}
	return se
}

func extractMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return msg
	}
	return fallback
}
