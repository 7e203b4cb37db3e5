package model

import "testing"

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("expected role %q to be valid", r)
		}
	}
	for _, r := range []Role{"", "ADMIN", "maint"} {
		if r.Valid() {
			t.Errorf("expected role %q to be invalid", r)
		}
	}
}

func TestStatutValid(t *testing.T) {
	if !StatutUnset.Valid() {
		t.Error("expected unset statut to be valid")
	}
	for _, s := range Statuts {
		if !s.Valid() {
			t.Errorf("expected statut %q to be valid", s)
		}
	}
	if Statut("detruit").Valid() {
		t.Error("expected unknown statut to be invalid")
	}
}
