package groups

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/studycircle/studycircle/internal/app/feed"
	"github.com/studycircle/studycircle/internal/app/workflow"
	"github.com/studycircle/studycircle/internal/domain/models"
	"github.com/studycircle/studycircle/internal/testutil"
	"go.uber.org/zap"
)

type groupsEnv struct {
	handler *Handler
	fx      *testutil.Fixtures
}

func newGroupsEnv(t *testing.T) *groupsEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	hub := feed.NewHub(zap.NewNop())
	t.Cleanup(hub.Close)
	svc := workflow.New(db.Client(), db, hub, zap.NewNop())

	fx := testutil.NewFixtures(t, db)
	fx.CreateModule(testutil.TestContext(t), "CS1101", "Programming Methodology", "CS")

	return &groupsEnv{
		handler: NewHandler(svc, db, zap.NewNop()),
		fx:      fx,
	}
}

func TestCreateThenDetail(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)

	alice := env.fx.CreateUser(ctx, "Alice", "alice@example.edu")

	w := testutil.NewRecorder()
	env.handler.Create(w, testutil.NewAuthenticatedRequest(http.MethodPost, "/groups",
		`{"name":"Algo Grinders","module_code":"cs1101","description":"daily leetcode","max_members":5}`, alice))
	w.AssertStatus(t, http.StatusCreated)

	var g models.Group
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode group: %v", err)
	}
	if g.ModuleCode != "CS1101" {
		t.Errorf("expected module code uppercased, got %q", g.ModuleCode)
	}
	if g.MemberCount != 1 {
		t.Errorf("expected creator counted, got member_count=%d", g.MemberCount)
	}

	w = testutil.NewRecorder()
	r := testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/"+g.ID.Hex(), "", alice)
	env.handler.Detail(w, testutil.WithChiURLParam(r, "id", g.ID.Hex()))
	w.AssertStatus(t, http.StatusOK)

	var detail struct {
		IsMember bool                 `json:"is_member"`
		IsAdmin  bool                 `json:"is_admin"`
		Members  []models.GroupMember `json:"members"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if !detail.IsMember || !detail.IsAdmin {
		t.Errorf("creator should be admin member, got %+v", detail)
	}
	if len(detail.Members) != 1 {
		t.Errorf("expected roster of 1, got %d", len(detail.Members))
	}
}

func TestDetail_PrivateGroupHidesRosterFromOutsiders(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)

	owner := env.fx.CreateUser(ctx, "Owner", "owner@example.edu")
	outsider := env.fx.CreateUser(ctx, "Outsider", "outsider@example.edu")
	g := env.fx.CreateGroup(ctx, "Secret Circle", owner.ID, 5, 1, true)
	env.fx.CreateMember(ctx, g.ID, owner, models.RoleAdmin)

	w := testutil.NewRecorder()
	r := testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/"+g.ID.Hex(), "", outsider)
	env.handler.Detail(w, testutil.WithChiURLParam(r, "id", g.ID.Hex()))
	w.AssertStatus(t, http.StatusOK)

	var detail struct {
		IsMember bool                 `json:"is_member"`
		Members  []models.GroupMember `json:"members"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.IsMember {
		t.Error("outsider reported as member")
	}
	if detail.Members != nil {
		t.Errorf("roster leaked to outsider: %v", detail.Members)
	}
}

func TestDetail_MalformedIDIs404(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)
	u := env.fx.CreateUser(ctx, "Alice", "alice@example.edu")

	w := testutil.NewRecorder()
	r := testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/nothex", "", u)
	env.handler.Detail(w, testutil.WithChiURLParam(r, "id", "nothex"))
	w.AssertStatus(t, http.StatusNotFound)
}

func TestJoin_FullGroupConflicts(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)

	owner := env.fx.CreateUser(ctx, "Owner", "owner@example.edu")
	g := env.fx.CreateGroup(ctx, "Full House", owner.ID, 2, 2, false)
	env.fx.CreateMember(ctx, g.ID, owner, models.RoleAdmin)
	other := env.fx.CreateUser(ctx, "Other", "other@example.edu")
	env.fx.CreateMember(ctx, g.ID, other, models.RoleMember)

	late := env.fx.CreateUser(ctx, "Late", "late@example.edu")
	w := testutil.NewRecorder()
	r := testutil.NewAuthenticatedRequest(http.MethodPost, "/groups/"+g.ID.Hex()+"/join", "", late)
	env.handler.Join(w, testutil.WithChiURLParam(r, "id", g.ID.Hex()))
	w.AssertStatus(t, http.StatusConflict)
	w.AssertContains(t, "full")
}

func TestListRequests_NonAdminForbidden(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)

	owner := env.fx.CreateUser(ctx, "Owner", "owner@example.edu")
	member := env.fx.CreateUser(ctx, "Member", "member@example.edu")
	g := env.fx.CreateGroup(ctx, "Private Study", owner.ID, 5, 2, true)
	env.fx.CreateMember(ctx, g.ID, owner, models.RoleAdmin)
	env.fx.CreateMember(ctx, g.ID, member, models.RoleMember)

	w := testutil.NewRecorder()
	r := testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/"+g.ID.Hex()+"/requests", "", member)
	env.handler.ListRequests(w, testutil.WithChiURLParam(r, "id", g.ID.Hex()))
	w.AssertStatus(t, http.StatusForbidden)

	w = testutil.NewRecorder()
	r = testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/"+g.ID.Hex()+"/requests", "", owner)
	env.handler.ListRequests(w, testutil.WithChiURLParam(r, "id", g.ID.Hex()))
	w.AssertStatus(t, http.StatusOK)
}

func TestList_MineFiltersToMemberships(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)

	alice := env.fx.CreateUser(ctx, "Alice", "alice@example.edu")
	bob := env.fx.CreateUser(ctx, "Bob", "bob@example.edu")

	mine := env.fx.CreateGroup(ctx, "Mine", alice.ID, 5, 1, false)
	env.fx.CreateMember(ctx, mine.ID, alice, models.RoleAdmin)
	theirs := env.fx.CreateGroup(ctx, "Theirs", bob.ID, 5, 1, false)
	env.fx.CreateMember(ctx, theirs.ID, bob, models.RoleAdmin)

	w := testutil.NewRecorder()
	env.handler.List(w, testutil.NewAuthenticatedRequest(http.MethodGet, "/groups?mine=true", "", alice))
	w.AssertStatus(t, http.StatusOK)

	var resp struct {
		Groups []models.Group `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].Name != "Mine" {
		t.Errorf("expected only Alice's group, got %+v", resp.Groups)
	}
}

func TestList_ModuleFilter(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)

	owner := env.fx.CreateUser(ctx, "Owner", "owner@example.edu")
	for i := 0; i < 3; i++ {
		g := env.fx.CreateGroup(ctx, fmt.Sprintf("G%d", i), owner.ID, 5, 1, false)
		env.fx.CreateMember(ctx, g.ID, owner, models.RoleAdmin)
	}

	w := testutil.NewRecorder()
	env.handler.List(w, testutil.NewAuthenticatedRequest(http.MethodGet, "/groups?module=CS1101", "", owner))
	w.AssertStatus(t, http.StatusOK)

	var resp struct {
		Groups []models.Group `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Groups) != 3 {
		t.Errorf("expected 3 CS1101 groups, got %d", len(resp.Groups))
	}

	w = testutil.NewRecorder()
	env.handler.List(w, testutil.NewAuthenticatedRequest(http.MethodGet, "/groups?module=MA1521", "", owner))
	w.AssertStatus(t, http.StatusOK)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Groups) != 0 {
		t.Errorf("expected no MA1521 groups, got %d", len(resp.Groups))
	}
}

func TestMeetings_CreatedWithRecurringGroup(t *testing.T) {
	env := newGroupsEnv(t)
	ctx := testutil.TestContext(t)

	alice := env.fx.CreateUser(ctx, "Alice", "alice@example.edu")

	w := testutil.NewRecorder()
	env.handler.Create(w, testutil.NewAuthenticatedRequest(http.MethodPost, "/groups",
		`{"name":"Weekly Review","module_code":"CS1101","description":"x","max_members":4,"meeting_date":"2030-01-07","meeting_time":"18:00","recurrence":"weekly","recurrence_end":"2030-02-04"}`, alice))
	w.AssertStatus(t, http.StatusCreated)

	var g models.Group
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode group: %v", err)
	}

	w = testutil.NewRecorder()
	r := testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/"+g.ID.Hex()+"/meetings", "", alice)
	env.handler.Meetings(w, testutil.WithChiURLParam(r, "id", g.ID.Hex()))
	w.AssertStatus(t, http.StatusOK)

	var resp struct {
		Meetings []models.Meeting `json:"meetings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode meetings: %v", err)
	}
	// Jan 7 .. Feb 4 exclusive, weekly: 7, 14, 21, 28.
	if len(resp.Meetings) != 4 {
		t.Errorf("expected 4 occurrences, got %d", len(resp.Meetings))
	}
}
