package realtime

import (
	"errors"
	"sync"
	"testing"
)

// fakeConn records every frame sent to it and can simulate a dead peer.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	dead   bool
}

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead {
		return errors.New("peer gone")
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestConnectDisconnectReplay(t *testing.T) {
	r := NewRegistry()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}

	r.Connect(a, ProjectScope(1))
	r.Connect(b, ProjectScope(1))
	r.Connect(c, GlobalScope)
	r.Disconnect(a, ProjectScope(1))
	// Removing an already-absent connection is a no-op.
	r.Disconnect(a, ProjectScope(1))

	if got := r.Count(ProjectScope(1)); got != 1 {
		t.Errorf("Expected 1 subscriber on project 1, got %d", got)
	}
	if got := r.Count(GlobalScope); got != 1 {
		t.Errorf("Expected 1 global subscriber, got %d", got)
	}
	if got := r.Count(ProjectScope(2)); got != 0 {
		t.Errorf("Expected 0 subscribers on project 2, got %d", got)
	}
}

func TestBroadcastToProjectPartitioning(t *testing.T) {
	r := NewRegistry()
	inScope, otherProject, global := &fakeConn{}, &fakeConn{}, &fakeConn{}

	r.Connect(inScope, ProjectScope(7))
	r.Connect(otherProject, ProjectScope(8))
	r.Connect(global, GlobalScope)

	r.BroadcastToProject(NewTaskLogNotification(42, "assigned", "action", 7, testTime(t)), 7)

	if inScope.received() != 1 {
		t.Errorf("Expected project 7 subscriber to receive 1 frame, got %d", inScope.received())
	}
	if otherProject.received() != 0 {
		t.Errorf("Project 8 subscriber must not receive project 7 events, got %d", otherProject.received())
	}
	if global.received() != 0 {
		t.Errorf("Global subscriber must not receive project-scoped events, got %d", global.received())
	}
}

func TestBroadcastGlobal(t *testing.T) {
	r := NewRegistry()
	global1, global2, project := &fakeConn{}, &fakeConn{}, &fakeConn{}

	r.Connect(global1, GlobalScope)
	r.Connect(global2, GlobalScope)
	r.Connect(project, ProjectScope(1))

	r.BroadcastGlobal(NewNotification(TypeTaskUpdate, map[string]any{"task_id": 1}, 0))

	if global1.received() != 1 || global2.received() != 1 {
		t.Errorf("Expected both global subscribers to receive the event, got %d and %d",
			global1.received(), global2.received())
	}
	if project.received() != 0 {
		t.Errorf("Project subscriber must not receive global events, got %d", project.received())
	}
}

func TestBroadcastSkipsDeadPeers(t *testing.T) {
	r := NewRegistry()
	dead := &fakeConn{dead: true}
	alive := &fakeConn{}

	r.Connect(dead, ProjectScope(1))
	r.Connect(alive, ProjectScope(1))

	r.BroadcastToProject(NewTaskLogNotification(1, "msg", "action", 1, testTime(t)), 1)

	if alive.received() != 1 {
		t.Errorf("Expected live peer to receive the event despite dead peer, got %d", alive.received())
	}
	// The dead peer stays registered; its own receive loop owns the Disconnect.
	if got := r.Count(ProjectScope(1)); got != 2 {
		t.Errorf("Expected broadcast not to mutate registry state, got %d subscribers", got)
	}
}

func TestSendTo(t *testing.T) {
	r := NewRegistry()
	c := &fakeConn{}

	if err := r.SendTo(c, NewGreeting(ProjectScope(3))); err != nil {
		t.Fatalf("SendTo failed: %v", err)
	}
	if c.received() != 1 {
		t.Fatalf("Expected 1 frame, got %d", c.received())
	}

	dead := &fakeConn{dead: true}
	if err := r.SendTo(dead, NewGreeting(GlobalScope)); err == nil {
		t.Error("Expected SendTo to surface the transport error")
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(projectID int64) {
			defer wg.Done()
			c := &fakeConn{}
			for j := 0; j < 100; j++ {
				r.Connect(c, ProjectScope(projectID))
				r.BroadcastToProject(NewNotification(TypeTaskUpdate, nil, projectID), projectID)
				r.Disconnect(c, ProjectScope(projectID))
			}
		}(int64(i%4 + 1))
	}
	wg.Wait()

	for p := int64(1); p <= 4; p++ {
		if got := r.Count(ProjectScope(p)); got != 0 {
			t.Errorf("Expected project %d set to drain, got %d", p, got)
		}
	}
}
