package store

import "time"

// EntityType distinguishes human users from AI agents.
type EntityType string

const (
	EntityHuman EntityType = "human"
	EntityAgent EntityType = "agent"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// ApprovalStatus is the review state of a project.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Log types recorded against tasks.
const (
	LogTypeInfo   = "info"
	LogTypeAction = "action"
)

// Entity is a board member: a human user or an AI agent.
type Entity struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	EntityType EntityType `json:"entity_type"`
	Email      string     `json:"email,omitempty"`
	APIKey     string     `json:"api_key,omitempty"`
	Skills     string     `json:"skills,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Project groups stages and tasks. New projects start pending approval.
type Project struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	CreatorID      int64          `json:"creator_id,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Populated by GetProject.
	Stages []*Stage `json:"stages,omitempty"`
	Tasks  []*Task  `json:"tasks,omitempty"`
}

// Stage is a kanban column within a project.
type Stage struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is a unit of work on a project board.
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	ProjectID      int64      `json:"project_id"`
	StageID        *int64     `json:"stage_id,omitempty"`
	ParentTaskID   *int64     `json:"parent_task_id,omitempty"`
	RequiredSkills string     `json:"required_skills,omitempty"`
	Priority       int        `json:"priority"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	Assignees []*Entity `json:"assignees"`

	// Populated by GetTask.
	Subtasks []*Task    `json:"subtasks,omitempty"`
	Comments []*Comment `json:"comments,omitempty"`
	Logs     []*TaskLog `json:"logs,omitempty"`
}

// Comment is a discussion entry on a task.
type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	AuthorID  int64     `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskLog is an append-only human-readable record of an action taken on a
// task, such as the autopilot self-assigning it.
type TaskLog struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Message   string    `json:"message"`
	LogType   string    `json:"log_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment is one staged autopilot action: link an entity to a task and
// record why. ApplyAssignments commits a batch of these in one transaction.
type Assignment struct {
	TaskID     int64
	EntityID   int64
	LogMessage string
	LogType    string
}
