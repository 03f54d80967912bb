package presence

import "testing"

func TestJoinCreatesRoom(t *testing.T) {
	r := NewRegistry()

	members := r.Join("r1", "c1")
	if len(members) != 1 || members[0] != "c1" {
		t.Errorf("Expected roster [c1], got %v", members)
	}
	if r.RoomCount() != 1 {
		t.Errorf("Expected 1 room, got %d", r.RoomCount())
	}
}

func TestJoinPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.Join("r1", "c1")
	r.Join("r1", "c2")
	members := r.Join("r1", "c3")

	expected := []string{"c1", "c2", "c3"}
	for i, id := range expected {
		if members[i] != id {
			t.Errorf("Roster position %d: expected %s, got %s", i, id, members[i])
		}
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Join("r1", "c1")
	members := r.Join("r1", "c1")

	if len(members) != 1 {
		t.Errorf("Expected 1 member after duplicate join, got %d", len(members))
	}
}

func TestLeaveReturnsRemaining(t *testing.T) {
	r := NewRegistry()
	r.Join("r1", "c1")
	r.Join("r1", "c2")

	remaining := r.Leave("r1", "c1")
	if len(remaining) != 1 || remaining[0] != "c2" {
		t.Errorf("Expected roster [c2], got %v", remaining)
	}
}

func TestLeaveLastMemberDeletesRoom(t *testing.T) {
	r := NewRegistry()
	r.Join("r1", "c1")

	remaining := r.Leave("r1", "c1")
	if len(remaining) != 0 {
		t.Errorf("Expected empty roster, got %v", remaining)
	}
	if r.RoomCount() != 0 {
		t.Errorf("Expected 0 rooms, got %d", r.RoomCount())
	}
	if len(r.MembersOf("r1")) != 0 {
		t.Error("Deleted room should have no members")
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Join("r1", "c1")

	r.Leave("r1", "c2")
	r.Leave("missing", "c1")
	if len(r.MembersOf("r1")) != 1 {
		t.Error("Leaving an absent member should be a no-op")
	}

	r.Leave("r1", "c1")
	r.Leave("r1", "c1")
	if r.RoomCount() != 0 {
		t.Errorf("Expected 0 rooms after repeated leave, got %d", r.RoomCount())
	}
}

func TestRoomSizes(t *testing.T) {
	r := NewRegistry()
	r.Join("r1", "c1")
	r.Join("r1", "c2")
	r.Join("r2", "c3")

	sizes := r.RoomSizes()
	if sizes["r1"] != 2 || sizes["r2"] != 1 {
		t.Errorf("Unexpected room sizes: %v", sizes)
	}
}

func TestMembersOfReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Join("r1", "c1")
	r.Join("r1", "c2")

	roster := r.MembersOf("r1")
	roster[0] = "mutated"

	if r.MembersOf("r1")[0] != "c1" {
		t.Error("Mutating a returned roster must not affect the registry")
	}
}
