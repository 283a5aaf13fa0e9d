// Package realtime tracks live WebSocket subscribers and fans out
// board-change notifications to them, partitioned by project scope.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType tags the kind of fan-out message.
type NotificationType string

const (
	TypeConnection NotificationType = "connection"
	TypeEcho       NotificationType = "echo"
	TypeTaskUpdate NotificationType = "task_update"
)

// Notification is an immutable fan-out message describing a state change.
// It is constructed fresh per event and never mutated after creation.
// Browser clients parse this shape directly, so field names are contract.
type Notification struct {
	Type      NotificationType `json:"type"`
	Message   string           `json:"message,omitempty"`
	Data      map[string]any   `json:"data,omitempty"`
	ProjectID int64            `json:"project_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
}

// NewNotification builds a data-carrying notification stamped with the
// current UTC time, optionally targeted at one project.
func NewNotification(typ NotificationType, data map[string]any, projectID int64) *Notification {
	return &Notification{
		Type:      typ,
		Data:      data,
		ProjectID: projectID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewTaskLogNotification builds the task_update/log notification emitted
// after an audit log entry is committed for a task.
func NewTaskLogNotification(taskID int64, message, logType string, projectID int64, at time.Time) *Notification {
	return NewNotification(TypeTaskUpdate, map[string]any{
		"task_id":   taskID,
		"type":      "log",
		"message":   message,
		"log_type":  logType,
		"timestamp": at.UTC().Format(time.RFC3339),
	}, projectID)
}

// NewGreeting builds the connection confirmation sent right after a client
// is admitted. It carries a human-readable message only.
func NewGreeting(scope Scope) *Notification {
	msg := "Connected to global updates"
	if !scope.IsGlobal() {
		msg = fmt.Sprintf("Connected to project %d", scope.ProjectID)
	}
	return &Notification{Type: TypeConnection, Message: msg}
}

// NewEcho wraps an inbound client frame for the diagnostic echo path.
func NewEcho(text string) *Notification {
	return &Notification{Type: TypeEcho, Message: text}
}

// Marshal renders the notification to its wire form.
func (n *Notification) Marshal() ([]byte, error) {
	return json.Marshal(n)
}
