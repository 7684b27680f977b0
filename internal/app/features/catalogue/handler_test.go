package catalogue

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/studycircle/studycircle/internal/testutil"
	"go.uber.org/zap"
)

// The loader guard runs before any body or store access, so the
// credential matrix is testable without a database.
func loaderHandler() *Handler {
	return NewHandler(nil, "topsecret", []byte("jwt-secret"), "studycircle", zap.NewNop())
}

func signToken(t *testing.T, secret []byte, issuer string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestLoad_RejectsWithoutCredentials(t *testing.T) {
	h := loaderHandler()
	r := testutil.NewRequest(http.MethodPost, "/catalogue/load", "")
	w := testutil.NewRecorder()

	h.Load(w, r)

	w.AssertStatus(t, http.StatusUnauthorized)
}

func TestLoad_RejectsWrongAdminKey(t *testing.T) {
	h := loaderHandler()
	r := testutil.NewRequest(http.MethodPost, "/catalogue/load", "")
	r.Header.Set("X-Admin-Key", "guessed")
	w := testutil.NewRecorder()

	h.Load(w, r)

	w.AssertStatus(t, http.StatusUnauthorized)
}

func TestLoad_AdminKeyPassesGuard(t *testing.T) {
	h := loaderHandler()
	// Empty payload: passes auth, then fails validation with 422.
	r := testutil.NewRequest(http.MethodPost, "/catalogue/load", `{"source":"test","modules":[],"majors":[]}`)
	r.Header.Set("X-Admin-Key", "topsecret")
	w := testutil.NewRecorder()

	h.Load(w, r)

	w.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestLoad_BearerTokenPassesGuard(t *testing.T) {
	h := loaderHandler()
	r := testutil.NewRequest(http.MethodPost, "/catalogue/load", `{"source":"test","modules":[],"majors":[]}`)
	r.Header.Set("Authorization", "Bearer "+signToken(t, []byte("jwt-secret"), "studycircle", jwt.SigningMethodHS256))
	w := testutil.NewRecorder()

	h.Load(w, r)

	w.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestLoad_RejectsTokenWithWrongIssuer(t *testing.T) {
	h := loaderHandler()
	r := testutil.NewRequest(http.MethodPost, "/catalogue/load", "")
	r.Header.Set("Authorization", "Bearer "+signToken(t, []byte("jwt-secret"), "someoneelse", jwt.SigningMethodHS256))
	w := testutil.NewRecorder()

	h.Load(w, r)

	w.AssertStatus(t, http.StatusUnauthorized)
}

func TestLoad_RejectsTokenWithWrongSecret(t *testing.T) {
	h := loaderHandler()
	r := testutil.NewRequest(http.MethodPost, "/catalogue/load", "")
	r.Header.Set("Authorization", "Bearer "+signToken(t, []byte("other-secret"), "studycircle", jwt.SigningMethodHS256))
	w := testutil.NewRecorder()

	h.Load(w, r)

	w.AssertStatus(t, http.StatusUnauthorized)
}

func TestLoad_RejectsWhenNoCredentialsConfigured(t *testing.T) {
	h := NewHandler(nil, "", nil, "studycircle", zap.NewNop())

	// Even a blank admin key header must not match a blank configured
	// key; the endpoint fails closed.
	r := testutil.NewRequest(http.MethodPost, "/catalogue/load", "")
	w := testutil.NewRecorder()
	h.Load(w, r)
	w.AssertStatus(t, http.StatusUnauthorized)
}
