package auth

import (
	"encoding/json"
	"net/http"
	"testing"

	userstore "github.com/studycircle/studycircle/internal/app/store/users"
	sysauth "github.com/studycircle/studycircle/internal/app/system/auth"
	"github.com/studycircle/studycircle/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, db *mongo.Database) *Handler {
	t.Helper()
	sm, err := sysauth.NewSessionManager("test-session-key-0123456789ABCDEF", "test-session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return NewHandler(userstore.New(db), sm, zap.NewNop())
}

func TestRegister_CreatesAndSignsIn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	r := testutil.NewRequest(http.MethodPost, "/auth/register",
		`{"name":"<b>Alice</b>","email":"Alice@Example.EDU","password":"hunter2hunter2","major_code":"cs"}`)
	w := testutil.NewRecorder()

	h.Register(w, r)

	w.AssertStatus(t, http.StatusCreated)

	var got struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		MajorCode string `json:"major_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("expected markup stripped from name, got %q", got.Name)
	}
	if got.Email != "alice@example.edu" {
		t.Errorf("expected lowercased email, got %q", got.Email)
	}
	if got.MajorCode != "CS" {
		t.Errorf("expected uppercased major code, got %q", got.MajorCode)
	}

	// A session cookie must be set on successful registration.
	if len(w.Result().Cookies()) == 0 {
		t.Error("expected a session cookie after registration")
	}
}

func TestRegister_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@b.edu","password":"longenough"}`},
		{"markup-only name", `{"name":"<script></script>","email":"a@b.edu","password":"longenough"}`},
		{"bad email", `{"name":"A","email":"not-an-email","password":"longenough"}`},
		{"short password", `{"name":"A","email":"a@b.edu","password":"short"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.NewRecorder()
			h.Register(w, testutil.NewRequest(http.MethodPost, "/auth/register", tc.body))
			w.AssertStatus(t, http.StatusUnprocessableEntity)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	body := `{"name":"Alice","email":"alice@example.edu","password":"hunter2hunter2"}`
	w := testutil.NewRecorder()
	h.Register(w, testutil.NewRequest(http.MethodPost, "/auth/register", body))
	w.AssertStatus(t, http.StatusCreated)

	w = testutil.NewRecorder()
	h.Register(w, testutil.NewRequest(http.MethodPost, "/auth/register", body))
	w.AssertStatus(t, http.StatusConflict)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	w := testutil.NewRecorder()
	h.Register(w, testutil.NewRequest(http.MethodPost, "/auth/register",
		`{"name":"Alice","email":"alice@example.edu","password":"hunter2hunter2"}`))
	w.AssertStatus(t, http.StatusCreated)

	wrongPass := testutil.NewRecorder()
	h.Login(wrongPass, testutil.NewRequest(http.MethodPost, "/auth/login",
		`{"email":"alice@example.edu","password":"wrong-password"}`))
	wrongPass.AssertStatus(t, http.StatusUnauthorized)

	unknown := testutil.NewRecorder()
	h.Login(unknown, testutil.NewRequest(http.MethodPost, "/auth/login",
		`{"email":"nobody@example.edu","password":"wrong-password"}`))
	unknown.AssertStatus(t, http.StatusUnauthorized)

	if wrongPass.Body.String() != unknown.Body.String() {
		t.Error("wrong-password and unknown-email responses must be indistinguishable")
	}
}

func TestLogin_Succeeds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	w := testutil.NewRecorder()
	h.Register(w, testutil.NewRequest(http.MethodPost, "/auth/register",
		`{"name":"Alice","email":"alice@example.edu","password":"hunter2hunter2"}`))
	w.AssertStatus(t, http.StatusCreated)

	w = testutil.NewRecorder()
	h.Login(w, testutil.NewRequest(http.MethodPost, "/auth/login",
		`{"email":"ALICE@example.edu","password":"hunter2hunter2"}`))
	w.AssertStatus(t, http.StatusOK)
	w.AssertContains(t, "alice@example.edu")
}

func TestMe_ReflectsProfileUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	u := fx.CreateUser(ctx, "Bob", "bob@example.edu")

	w := testutil.NewRecorder()
	h.UpdateProfile(w, testutil.NewAuthenticatedRequest(http.MethodPut, "/auth/me",
		`{"faculty":"Engineering","department":"CS","major_code":"cs"}`, u))
	w.AssertStatus(t, http.StatusNoContent)

	w = testutil.NewRecorder()
	h.Me(w, testutil.NewAuthenticatedRequest(http.MethodGet, "/auth/me", "", u))
	w.AssertStatus(t, http.StatusOK)
	w.AssertContains(t, `"faculty":"Engineering"`)
	w.AssertContains(t, `"major_code":"CS"`)
}

func TestLogin_ThrottlesRepeatedFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	// Default email window: 5 attempts per 5 minutes.
	for i := 0; i < 5; i++ {
		w := testutil.NewRecorder()
		h.Login(w, testutil.NewRequest(http.MethodPost, "/auth/login",
			`{"email":"victim@example.edu","password":"wrong"}`))
		w.AssertStatus(t, http.StatusUnauthorized)
	}

	w := testutil.NewRecorder()
	h.Login(w, testutil.NewRequest(http.MethodPost, "/auth/login",
		`{"email":"victim@example.edu","password":"wrong"}`))
	w.AssertStatus(t, http.StatusTooManyRequests)
}

func TestMe_Unauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)

	w := testutil.NewRecorder()
	h.Me(w, testutil.NewRequest(http.MethodGet, "/auth/me", ""))
	w.AssertStatus(t, http.StatusUnauthorized)
}
