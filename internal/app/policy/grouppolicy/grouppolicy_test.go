package grouppolicy_test

import (
	"testing"

	"github.com/studycircle/studycircle/internal/app/policy/grouppolicy"
	"github.com/studycircle/studycircle/internal/domain/models"
	"github.com/studycircle/studycircle/internal/testutil"
)

func TestMembershipRoles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	admin := fx.CreateUser(ctx, "Admin", "admin@example.edu")
	member := fx.CreateUser(ctx, "Member", "member@example.edu")
	outsider := fx.CreateUser(ctx, "Outsider", "outsider@example.edu")

	g := fx.CreateGroup(ctx, "Policy Group", admin.ID, 5, 2, true)
	fx.CreateMember(ctx, g.ID, admin, models.RoleAdmin)
	fx.CreateMember(ctx, g.ID, member, models.RoleMember)

	cases := []struct {
		name              string
		user              models.User
		isMember, isAdmin bool
	}{
		{"admin", admin, true, true},
		{"member", member, true, false},
		{"outsider", outsider, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotMember, err := grouppolicy.IsMember(ctx, db, g.ID, tc.user.ID)
			if err != nil {
				t.Fatalf("IsMember: %v", err)
			}
			if gotMember != tc.isMember {
				t.Errorf("IsMember = %v, want %v", gotMember, tc.isMember)
			}

			gotAdmin, err := grouppolicy.IsAdmin(ctx, db, g.ID, tc.user.ID)
			if err != nil {
				t.Fatalf("IsAdmin: %v", err)
			}
			if gotAdmin != tc.isAdmin {
				t.Errorf("IsAdmin = %v, want %v", gotAdmin, tc.isAdmin)
			}
		})
	}
}

func TestCanViewMembers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	owner := fx.CreateUser(ctx, "Owner", "owner@example.edu")
	outsider := fx.CreateUser(ctx, "Outsider", "outsider@example.edu")

	public := fx.CreateGroup(ctx, "Open", owner.ID, 5, 1, false)
	private := fx.CreateGroup(ctx, "Closed", owner.ID, 5, 1, true)
	fx.CreateMember(ctx, private.ID, owner, models.RoleAdmin)

	ok, err := grouppolicy.CanViewMembers(ctx, db, public, outsider.ID)
	if err != nil || !ok {
		t.Errorf("public roster should be visible to anyone, got ok=%v err=%v", ok, err)
	}

	ok, err = grouppolicy.CanViewMembers(ctx, db, private, outsider.ID)
	if err != nil || ok {
		t.Errorf("private roster leaked to outsider, got ok=%v err=%v", ok, err)
	}

	ok, err = grouppolicy.CanViewMembers(ctx, db, private, owner.ID)
	if err != nil || !ok {
		t.Errorf("private roster should be visible to member, got ok=%v err=%v", ok, err)
	}
}
