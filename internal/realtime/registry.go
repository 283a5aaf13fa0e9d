package realtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/agentboard/agentboard/internal/logging"
)

// Scope is the broadcast partition a connection belongs to: one specific
// project, or global. The zero value is global (project IDs start at 1).
type Scope struct {
	ProjectID int64
}

// GlobalScope subscribes a connection to board-wide events only.
var GlobalScope = Scope{}

// ProjectScope subscribes a connection to one project's events only.
func ProjectScope(projectID int64) Scope {
	return Scope{ProjectID: projectID}
}

// IsGlobal reports whether the scope is the global partition.
func (s Scope) IsGlobal() bool {
	return s.ProjectID == 0
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return fmt.Sprintf("project:%d", s.ProjectID)
}

// Registry owns the set of live connections, keyed by scope. Project
// events go only to that project's set; global events go only to the
// global set (project connections are not mirrored into it).
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	global   map[Conn]struct{}
	projects map[int64]map[Conn]struct{}
	log      *slog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		global:   make(map[Conn]struct{}),
		projects: make(map[int64]map[Conn]struct{}),
		log:      logging.WithComponent("realtime"),
	}
}

// Connect registers a connection under the given scope. Registration
// itself cannot fail; the transport handshake is assumed complete.
func (r *Registry) Connect(c Conn, scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scope.IsGlobal() {
		r.global[c] = struct{}{}
		return
	}
	set, ok := r.projects[scope.ProjectID]
	if !ok {
		set = make(map[Conn]struct{})
		r.projects[scope.ProjectID] = set
	}
	set[c] = struct{}{}
}

// Disconnect removes a connection from its scope. Removing an absent
// connection is a no-op; Disconnect never errors.
func (r *Registry) Disconnect(c Conn, scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scope.IsGlobal() {
		delete(r.global, c)
		return
	}
	if set, ok := r.projects[scope.ProjectID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.projects, scope.ProjectID)
		}
	}
}

// SendTo delivers one notification to one connection. A send failure means
// the peer is gone; the caller's receive loop is responsible for the
// Disconnect, so a broadcast in flight never mutates registry state.
func (r *Registry) SendTo(c Conn, n *Notification) error {
	data, err := n.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return c.Send(data)
}

// BroadcastToProject delivers a notification to every connection currently
// subscribed to the project's scope. Failed sends are skipped; a single
// dead peer never prevents delivery to the remaining peers.
func (r *Registry) BroadcastToProject(n *Notification, projectID int64) {
	r.broadcast(n, ProjectScope(projectID))
}

// BroadcastGlobal delivers a notification to every globally-scoped
// connection.
func (r *Registry) BroadcastGlobal(n *Notification) {
	r.broadcast(n, GlobalScope)
}

func (r *Registry) broadcast(n *Notification, scope Scope) {
	data, err := n.Marshal()
	if err != nil {
		r.log.Error("failed to marshal notification", slog.Any("error", err))
		return
	}

	// Snapshot the target set under the lock, then send outside it so a
	// slow peer cannot stall admission or disconnection of others.
	targets := r.snapshot(scope)
	for _, c := range targets {
		if err := c.Send(data); err != nil {
			r.log.Debug("broadcast send failed",
				slog.String("scope", scope.String()),
				slog.Any("error", err))
		}
	}
}

// snapshot copies the connection set for a scope at the moment of the call.
func (r *Registry) snapshot(scope Scope) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var set map[Conn]struct{}
	if scope.IsGlobal() {
		set = r.global
	} else {
		set = r.projects[scope.ProjectID]
	}

	targets := make([]Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	return targets
}

// Count returns the number of connections subscribed to a scope.
func (r *Registry) Count(scope Scope) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if scope.IsGlobal() {
		return len(r.global)
	}
	return len(r.projects[scope.ProjectID])
}
