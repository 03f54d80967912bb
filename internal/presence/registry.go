package presence

// Registry tracks which connection ids are in which room. It is a plain
// in-memory structure with no locking of its own: the hub's event loop is
// the only writer and reader, so callers provide whatever synchronization
// they need.
type Registry struct {
	rooms map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string][]string),
	}
}

// Join adds a connection to a room, creating the room on first join, and
// returns the updated roster. Joining a room the connection is already in
// leaves the roster unchanged.
func (r *Registry) Join(roomID, connID string) []string {
	members := r.rooms[roomID]
	for _, id := range members {
		if id == connID {
			return copyRoster(members)
		}
	}
	members = append(members, connID)
	r.rooms[roomID] = members
	return copyRoster(members)
}

// Leave removes a connection from a room and returns the remaining roster.
// The room is deleted once its last member leaves. Leaving a room or member
// that does not exist is a no-op.
func (r *Registry) Leave(roomID, connID string) []string {
	members, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	for i, id := range members {
		if id == connID {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(r.rooms, roomID)
		return nil
	}
	r.rooms[roomID] = members
	return copyRoster(members)
}

// MembersOf returns the roster of a room in insertion order, empty if the
// room does not exist.
func (r *Registry) MembersOf(roomID string) []string {
	return copyRoster(r.rooms[roomID])
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}

// RoomSizes returns the member count per room.
func (r *Registry) RoomSizes() map[string]int {
	sizes := make(map[string]int, len(r.rooms))
	for id, members := range r.rooms {
		sizes[id] = len(members)
	}
	return sizes
}

func copyRoster(members []string) []string {
	roster := make([]string, len(members))
	copy(roster, members)
	return roster
}
