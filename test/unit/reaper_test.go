package unit

import (
	"testing"
	"time"

	"github.com/collabpad/collabpad/internal/server"
)

// waitForRoomGone polls until the room disappears from the registry or the
// timeout elapses.
func waitForRoomGone(t *testing.T, reg *server.Registry, name string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, ok := reg.RoomInfo(name); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Room %q still present after %v", name, timeout)
}

// TestReaperDeletesEmptyRoomAfterGrace verifies a room whose membership stays
// at zero for the grace period is removed from the registry.
func TestReaperDeletesEmptyRoomAfterGrace(t *testing.T) {
	reg := server.NewRegistry(50 * time.Millisecond)
	client := server.NewClient(nil, server.NewHub(), "127.0.0.1:12345")

	if err := reg.CreateRoom("alpha"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := reg.JoinRoom("alpha", client); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	changes := reg.RemoveClient(client)
	if len(changes) != 1 || changes[0].Count != 0 {
		t.Fatalf("Expected room to empty, got %+v", changes)
	}

	waitForRoomGone(t, reg, "alpha", time.Second)
}

// TestReaperDeletesAbandonedRoom verifies a room that was created but never
// joined is reclaimed once the grace period elapses.
func TestReaperDeletesAbandonedRoom(t *testing.T) {
	reg := server.NewRegistry(50 * time.Millisecond)

	if err := reg.CreateRoom("orphan"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	waitForRoomGone(t, reg, "orphan", time.Second)
}

// TestReaperCancelledOnRejoin verifies that a room regaining a member within
// the grace period is never deleted.
func TestReaperCancelledOnRejoin(t *testing.T) {
	reg := server.NewRegistry(100 * time.Millisecond)
	a := server.NewClient(nil, server.NewHub(), "127.0.0.1:12345")
	b := server.NewClient(nil, server.NewHub(), "127.0.0.1:12346")

	if err := reg.CreateRoom("alpha"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := reg.JoinRoom("alpha", a); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	reg.RemoveClient(a)

	// Rejoin before the grace period elapses.
	if _, err := reg.JoinRoom("alpha", b); err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	info, ok := reg.RoomInfo("alpha")
	if !ok {
		t.Fatal("Room was deleted despite an occupant")
	}
	if info.UserCount != 1 {
		t.Errorf("Expected 1 member, got %d", info.UserCount)
	}
}

// TestReaperRapidLeaveRejoinCycles verifies repeated empty/rejoin/empty
// cycles each arm an independent grace period and never delete an occupied
// room.
func TestReaperRapidLeaveRejoinCycles(t *testing.T) {
	reg := server.NewRegistry(80 * time.Millisecond)
	client := server.NewClient(nil, server.NewHub(), "127.0.0.1:12345")

	if err := reg.CreateRoom("alpha"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	for cycle := 0; cycle < 5; cycle++ {
		if _, err := reg.JoinRoom("alpha", client); err != nil {
			t.Fatalf("Cycle %d join failed: %v", cycle, err)
		}
		reg.RemoveClient(client)
	}

	// Occupied again before the last grace period elapses: must survive.
	if _, err := reg.JoinRoom("alpha", client); err != nil {
		t.Fatalf("Final rejoin failed: %v", err)
	}
	time.Sleep(250 * time.Millisecond)
	if _, ok := reg.RoomInfo("alpha"); !ok {
		t.Fatal("Room deleted while occupied after rapid cycles")
	}

	// Left empty for good: must be reclaimed.
	reg.RemoveClient(client)
	waitForRoomGone(t, reg, "alpha", time.Second)
}

// TestStopTimers verifies shutdown cancels pending deletions so no timer
// fires afterwards.
func TestStopTimers(t *testing.T) {
	reg := server.NewRegistry(50 * time.Millisecond)

	if err := reg.CreateRoom("alpha"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	reg.StopTimers()
	time.Sleep(150 * time.Millisecond)

	if _, ok := reg.RoomInfo("alpha"); !ok {
		t.Error("Room was deleted after timers were stopped")
	}
}
