// Package server tracks rooms and their membership via the Registry type,
// which owns room creation, joins, content updates, disconnect cleanup, and
// deferred deletion of empty rooms.
package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Sentinel errors for room operations that surface feedback to the caller.
var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
)

// Room is a named shared document plus its current member connections.
// All fields are guarded by the owning Registry's mutex.
type Room struct {
	name        string
	members     map[*Client]struct{}
	content     string
	createdAt   time.Time
	lastUpdated time.Time
	deleteTimer *time.Timer // non-nil iff the room is empty and inside the grace period
}

// RoomSnapshot captures the state a joining client needs: the current
// document and the post-join membership.
type RoomSnapshot struct {
	Content string
	Count   int
	Members []*Client
}

// RoomChange reports the post-removal membership of a room a disconnecting
// client belonged to, so the caller can notify the remaining members.
type RoomChange struct {
	Name    string
	Count   int
	Members []*Client
}

// RoomInfo is the JSON shape served by the room info endpoint.
type RoomInfo struct {
	RoomName    string     `json:"roomName"`
	UserCount   int        `json:"userCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// RoomSummary is a single room entry in the stats endpoint response.
type RoomSummary struct {
	Name      string    `json:"name"`
	UserCount int       `json:"userCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatsSnapshot is the JSON shape served by the stats endpoint.
type StatsSnapshot struct {
	TotalRooms int           `json:"totalRooms"`
	TotalUsers int           `json:"totalUsers"`
	Rooms      []RoomSummary `json:"rooms"`
}

// Registry maps room names to rooms and keeps a reverse index from client to
// joined room names so disconnect cleanup touches only the affected rooms.
// A single mutex serializes every mutation; broadcasts happen after the
// mutation using the snapshots these methods return.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	memberships map[*Client]map[string]struct{}
	grace       time.Duration
}

// NewRegistry creates an empty registry. A zero grace duration means the
// configured room grace period is looked up each time a deletion is armed.
func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		memberships: make(map[*Client]map[string]struct{}),
		grace:       grace,
	}
}

// CreateRoom inserts a new empty room under the given name. Names are
// compared byte-for-byte; ErrRoomExists is returned if the name is taken.
// The new room starts its deletion grace period immediately so an abandoned
// create cannot leak a room forever.
func (reg *Registry) CreateRoom(name string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.rooms[name]; exists {
		return ErrRoomExists
	}

	room := &Room{
		name:      name,
		members:   make(map[*Client]struct{}),
		createdAt: time.Now(),
	}
	reg.rooms[name] = room
	reg.scheduleDelete(room)
	return nil
}

// JoinRoom adds the client to the room's member set, cancelling any pending
// deletion. Joining a room the client is already in has no duplicate effect.
// Returns ErrRoomNotFound if no room has that name.
func (reg *Registry) JoinRoom(name string, client *Client) (RoomSnapshot, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[name]
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}

	room.members[client] = struct{}{}
	reg.cancelDelete(room)

	joined := reg.memberships[client]
	if joined == nil {
		joined = make(map[string]struct{})
		reg.memberships[client] = joined
	}
	joined[name] = struct{}{}

	return RoomSnapshot{
		Content: room.content,
		Count:   len(room.members),
		Members: room.memberSnapshot(nil),
	}, nil
}

// UpdateContent replaces the room's document and returns the members the
// update should be relayed to, excluding the sender. An update addressed to
// a room that no longer exists is dropped without error: the sender is
// mid-edit and a protocol error would not help it.
func (reg *Registry) UpdateContent(name, content string, sender *Client) ([]*Client, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[name]
	if !ok {
		return nil, false
	}

	room.content = content
	room.lastUpdated = time.Now()
	return room.memberSnapshot(sender), true
}

// RemoveClient removes the client from every room it joined and reports the
// resulting membership changes. Rooms left empty have their deletion grace
// period armed. Removing a client that joined no rooms is a no-op.
func (reg *Registry) RemoveClient(client *Client) []RoomChange {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	joined := reg.memberships[client]
	if len(joined) == 0 {
		delete(reg.memberships, client)
		return nil
	}
	delete(reg.memberships, client)

	changes := make([]RoomChange, 0, len(joined))
	for name := range joined {
		room, ok := reg.rooms[name]
		if !ok {
			continue
		}
		if _, member := room.members[client]; !member {
			continue
		}

		delete(room.members, client)
		changes = append(changes, RoomChange{
			Name:    name,
			Count:   len(room.members),
			Members: room.memberSnapshot(nil),
		})
		if len(room.members) == 0 {
			reg.scheduleDelete(room)
		}
	}
	return changes
}

// RoomInfo returns the info endpoint view of a single room.
func (reg *Registry) RoomInfo(name string) (RoomInfo, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[name]
	if !ok {
		return RoomInfo{}, false
	}

	info := RoomInfo{
		RoomName:  room.name,
		UserCount: len(room.members),
		CreatedAt: room.createdAt,
	}
	if !room.lastUpdated.IsZero() {
		updated := room.lastUpdated
		info.LastUpdated = &updated
	}
	return info, true
}

// Stats returns a read-only snapshot of every room for the stats endpoint.
func (reg *Registry) Stats() StatsSnapshot {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms := lo.MapToSlice(reg.rooms, func(name string, room *Room) RoomSummary {
		return RoomSummary{
			Name:      name,
			UserCount: len(room.members),
			CreatedAt: room.createdAt,
		}
	})
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })

	return StatsSnapshot{
		TotalRooms: len(rooms),
		TotalUsers: lo.SumBy(rooms, func(summary RoomSummary) int { return summary.UserCount }),
		Rooms:      rooms,
	}
}

// StopTimers cancels every pending room deletion. Used during shutdown so no
// reaper callback fires against a registry that is being discarded.
func (reg *Registry) StopTimers() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, room := range reg.rooms {
		reg.cancelDelete(room)
	}
}

// memberSnapshot copies the member set, optionally excluding one client.
// Callers broadcast against the copy after the registry lock is released.
func (r *Room) memberSnapshot(exclude *Client) []*Client {
	members := make([]*Client, 0, len(r.members))
	for member := range r.members {
		if member == exclude {
			continue
		}
		members = append(members, member)
	}
	return members
}

// scheduleDelete arms the deletion timer for an empty room. Caller must hold
// the registry mutex and must have verified the room has no members.
func (reg *Registry) scheduleDelete(room *Room) {
	if room.deleteTimer != nil {
		return
	}

	grace := reg.grace
	if grace <= 0 {
		grace = currentConfig().RoomGracePeriod
	}

	name := room.name
	room.deleteTimer = time.AfterFunc(grace, func() {
		reg.reap(name)
	})
}

// cancelDelete stops a pending deletion timer. Caller must hold the mutex.
func (reg *Registry) cancelDelete(room *Room) {
	if room.deleteTimer != nil {
		room.deleteTimer.Stop()
		room.deleteTimer = nil
	}
}

// reap deletes the named room if it is still present and still empty. The
// check runs against current state, never a captured count, so a stale timer
// from an earlier empty period can never delete a room that was rejoined.
func (reg *Registry) reap(name string) {
	reg.mu.Lock()
	room, ok := reg.rooms[name]
	if !ok || len(room.members) != 0 {
		reg.mu.Unlock()
		return
	}
	room.deleteTimer = nil
	delete(reg.rooms, name)
	reg.mu.Unlock()

	logrus.WithField("room", name).Info("Deleted empty room after grace period")
}
