package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/studycircle/studycircle/internal/app/system/auth"
	"github.com/studycircle/studycircle/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)

	name, id, ok := authz.UserCtx(r)
	if ok {
		t.Fatal("expected ok=false with no user in context")
	}
	if name != "" || id != primitive.NilObjectID {
		t.Errorf("expected zero values, got name=%q id=%v", name, id)
	}
}

func TestUserCtx_ValidUser(t *testing.T) {
	uid := primitive.NewObjectID()
	r := httptest.NewRequest("GET", "/", nil)
	r = auth.WithTestUser(r, &auth.SessionUser{ID: uid.Hex(), Name: "Ada", Email: "ada@u.edu"})

	name, id, ok := authz.UserCtx(r)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if name != "Ada" {
		t.Errorf("name: got %q, want %q", name, "Ada")
	}
	if id != uid {
		t.Errorf("id: got %v, want %v", id, uid)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r = auth.WithTestUser(r, &auth.SessionUser{ID: "not-an-object-id", Name: "Mallory"})

	if _, _, ok := authz.UserCtx(r); ok {
		t.Fatal("expected ok=false for malformed user ID")
	}
}
