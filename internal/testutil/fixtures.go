package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test documents directly, bypassing the workflow, so
// tests can stage arbitrary starting states.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with a throwaway password hash.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		Email:        email,
		PasswordHash: "$2a$12$fixture.not.a.real.hash.000000000000000000000000000000",
		Faculty:      "Science",
		Department:   "Computer Science",
		MajorCode:    "CS",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("fixture user: %v", err)
	}
	return u
}

// CreateGroup inserts a group. memberCount is the caller's claim; pair
// it with matching CreateMember calls when the test cares about the
// invariant.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, createdBy primitive.ObjectID, maxMembers, memberCount int, private bool) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		ModuleCode:   "CS1101",
		Description:  "fixture group",
		CreatedBy:    createdBy,
		MaxMembers:   maxMembers,
		MemberCount:  memberCount,
		IsPrivate:    private,
		Version:      1,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("fixture group: %v", err)
	}
	return g
}

// CreateMember inserts a membership document.
func (f *Fixtures) CreateMember(ctx context.Context, groupID primitive.ObjectID, u models.User, role string) models.GroupMember {
	f.t.Helper()

	m := models.GroupMember{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   u.ID,
		Role:     role,
		UserName: u.Name,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("fixture member: %v", err)
	}
	return m
}

// CreateJoinRequest inserts a join request in the given status.
func (f *Fixtures) CreateJoinRequest(ctx context.Context, groupID primitive.ObjectID, u models.User, status string) models.JoinRequest {
	f.t.Helper()

	req := models.JoinRequest{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    u.ID,
		UserName:  u.Name,
		Message:   "let me in",
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("join_requests").InsertOne(ctx, req); err != nil {
		f.t.Fatalf("fixture join request: %v", err)
	}
	return req
}

// CreateModule inserts a catalogue module.
func (f *Fixtures) CreateModule(ctx context.Context, code, name string, programs ...string) models.Module {
	f.t.Helper()

	m := models.Module{
		Code:     code,
		Name:     name,
		Programs: programs,
	}
	if _, err := f.db.Collection("modules").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("fixture module: %v", err)
	}
	return m
}

// CreateMajor inserts a catalogue major.
func (f *Fixtures) CreateMajor(ctx context.Context, code, name string, moduleCodes ...string) models.Major {
	f.t.Helper()

	m := models.Major{
		Code:    code,
		Name:    name,
		Modules: moduleCodes,
	}
	if _, err := f.db.Collection("majors").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("fixture major: %v", err)
	}
	return m
}
