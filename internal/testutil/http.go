package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/studycircle/studycircle/internal/app/system/auth"
	"github.com/studycircle/studycircle/internal/domain/models"
)

// WithUser injects a signed-in user into the request context,
// bypassing the session middleware.
func WithUser(r *http.Request, u models.User) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
	})
}

// NewRequest creates an HTTP request for testing. A non-empty body is
// sent as JSON.
func NewRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rd)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

// NewAuthenticatedRequest creates an HTTP request with a user in
// context.
func NewAuthenticatedRequest(method, target, body string, u models.User) *http.Request {
	return WithUser(NewRequest(method, target, body), u)
}

// ResponseRecorder wraps httptest.ResponseRecorder with assertions.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks that the body contains a substring.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if body := r.Body.String(); !strings.Contains(body, expected) {
		t.Errorf("body does not contain %q: %s", expected, body)
	}
}
