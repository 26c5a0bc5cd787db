package roles

import (
	"context"
	"reflect"
	"testing"
)

func TestStaticDirectoryDefaults(t *testing.T) {
	d := NewStaticDirectory("")
	ctx := context.Background()

	id, err := d.DefaultRoleID(ctx)
	if err != nil {
		t.Fatalf("DefaultRoleID: %v", err)
	}
	if id != "user" {
		t.Fatalf("default role = %q, want user", id)
	}

	names, err := d.RolesOf(ctx, "u1")
	if err != nil {
		t.Fatalf("RolesOf: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"user"}) {
		t.Fatalf("RolesOf = %v", names)
	}
}

func TestStaticDirectoryGrants(t *testing.T) {
	d := NewStaticDirectory("member")
	ctx := context.Background()

	d.Grant("u1", "admin")
	d.Grant("u1", "admin")
	d.Grant("u1", "billing")
	d.Grant("u1", "member")

	names, err := d.RolesOf(ctx, "u1")
	if err != nil {
		t.Fatalf("RolesOf: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"admin", "billing", "member"}) {
		t.Fatalf("RolesOf = %v", names)
	}

	other, err := d.RolesOf(ctx, "u2")
	if err != nil {
		t.Fatalf("RolesOf: %v", err)
	}
	if !reflect.DeepEqual(other, []string{"member"}) {
		t.Fatalf("ungranted user roles = %v", other)
	}
}
