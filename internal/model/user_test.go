package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		role, minimum string
		want          bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleReviewer, true},
		{RoleAdmin, RoleSubmitter, true},
		{RoleReviewer, RoleAdmin, false},
		{RoleReviewer, RoleReviewer, true},
		{RoleSubmitter, RoleReviewer, false},
		{RoleSubmitter, RoleSubmitter, true},
		{"unknown", RoleSubmitter, false},
	}

	for _, tc := range cases {
		if got := RoleAtLeast(tc.role, tc.minimum); got != tc.want {
			t.Errorf("RoleAtLeast(%q, %q) = %t, want %t", tc.role, tc.minimum, got, tc.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleReviewer, RoleSubmitter} {
		if !ValidRole(role) {
			t.Errorf("expected %q to be valid", role)
		}
	}
	if ValidRole("manager") {
		t.Error("unknown role accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := ValidatePassword("longenough"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReasonCodeAppliesTo(t *testing.T) {
	rejection := &ReasonCode{Code: "REJ-001", DecisionType: DecisionRejected}
	if rejection.AppliesTo(DecisionAccepted) {
		t.Error("rejection reason must not apply to acceptance")
	}
	if !rejection.AppliesTo(DecisionRejected) {
		t.Error("rejection reason must apply to rejection")
	}

	any := &ReasonCode{Code: "GEN-001", DecisionType: ReasonAny}
	for _, d := range []string{DecisionAccepted, DecisionReview, DecisionRejected} {
		if !any.AppliesTo(d) {
			t.Errorf("ANY reason must apply to %s", d)
		}
	}
}
