package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// TaskCreate holds the fields accepted when creating a task.
type TaskCreate struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ProjectID      int64      `json:"project_id"`
	StageID        *int64     `json:"stage_id,omitempty"`
	ParentTaskID   *int64     `json:"parent_task_id,omitempty"`
	RequiredSkills string     `json:"required_skills"`
	Priority       int        `json:"priority"`
	Status         TaskStatus `json:"status,omitempty"`
}

// TaskFilter narrows ListTasks. Zero values mean "no filter".
type TaskFilter struct {
	ProjectID int64
	StageID   int64
	Status    TaskStatus
}

// TaskUpdate holds optional task field changes. Nil fields are left untouched.
type TaskUpdate struct {
	Title          *string     `json:"title,omitempty"`
	Description    *string     `json:"description,omitempty"`
	Status         *TaskStatus `json:"status,omitempty"`
	StageID        *int64      `json:"stage_id,omitempty"`
	RequiredSkills *string     `json:"required_skills,omitempty"`
	Priority       *int        `json:"priority,omitempty"`
}

// CreateTask adds a task (or subtask) to an existing project.
func (s *Store) CreateTask(ctx context.Context, tc TaskCreate) (*Task, error) {
	if tc.Title == "" {
		return nil, fmt.Errorf("task title required")
	}
	if _, err := s.getProjectRow(ctx, tc.ProjectID); err != nil {
		return nil, err
	}

	status := tc.Status
	if status == "" {
		status = StatusPending
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, project_id, stage_id, parent_task_id, required_skills, priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.Title, tc.Description, status, tc.ProjectID, tc.StageID, tc.ParentTaskID, tc.RequiredSkills, tc.Priority,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.getTaskRow(ctx, id)
}

// ListTasks returns tasks matching the filter, assignees included, ordered
// by priority then recency.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var where []string
	var args []any
	if filter.ProjectID != 0 {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.StageID != 0 {
		where = append(where, "stage_id = ?")
		args = append(args, filter.StageID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY priority DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadAssignees(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListTasksByStatus returns all tasks in the given status with their
// assignee sets loaded. This is the autopilot loop's scan query.
func (s *Store) ListTasksByStatus(ctx context.Context, status TaskStatus) ([]*Task, error) {
	return s.ListTasks(ctx, TaskFilter{Status: status})
}

// GetTask returns a task with assignees, subtasks, comments, and logs, or
// ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	task, err := s.getTaskRow(ctx, id)
	if err != nil {
		return nil, err
	}

	subRows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE parent_task_id = ? ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer func() { _ = subRows.Close() }()
	for subRows.Next() {
		sub, err := scanTask(subRows)
		if err != nil {
			return nil, err
		}
		task.Subtasks = append(task.Subtasks, sub)
	}
	if err := subRows.Err(); err != nil {
		return nil, err
	}

	task.Comments, err = s.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Logs, err = s.ListTaskLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies the non-nil fields of the update. Moving a task to
// completed stamps completed_at once; it is never cleared.
func (s *Store) UpdateTask(ctx context.Context, id int64, update TaskUpdate) (*Task, error) {
	task, err := s.getTaskRow(ctx, id)
	if err != nil {
		return nil, err
	}

	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if update.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Status != nil {
		set = append(set, "status = ?")
		args = append(args, *update.Status)
		if *update.Status == StatusCompleted && task.CompletedAt == nil {
			set = append(set, "completed_at = ?")
			args = append(args, time.Now().UTC())
		}
	}
	if update.StageID != nil {
		set = append(set, "stage_id = ?")
		args = append(args, *update.StageID)
	}
	if update.RequiredSkills != nil {
		set = append(set, "required_skills = ?")
		args = append(args, *update.RequiredSkills)
	}
	if update.Priority != nil {
		set = append(set, "priority = ?")
		args = append(args, *update.Priority)
	}
	args = append(args, id)

	query := "UPDATE tasks SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return s.getTaskRow(ctx, id)
}

// DeleteTask removes a task; subtasks, comments, and logs cascade.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAssignee links an entity to a task with set semantics. It reports
// whether the link was newly created; adding an existing assignee is a
// no-op returning false.
func (s *Store) AddAssignee(ctx context.Context, taskID, entityID int64) (bool, error) {
	if _, err := s.getTaskRow(ctx, taskID); err != nil {
		return false, err
	}
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO task_assignees (task_id, entity_id) VALUES (?, ?)`, taskID, entityID)
	if err != nil {
		return false, fmt.Errorf("failed to add assignee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveAssignee unlinks an entity from a task. Removing an absent
// assignee is a no-op.
func (s *Store) RemoveAssignee(ctx context.Context, taskID, entityID int64) error {
	if _, err := s.getTaskRow(ctx, taskID); err != nil {
		return err
	}
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM task_assignees WHERE task_id = ? AND entity_id = ?`, taskID, entityID)
	if err != nil {
		return fmt.Errorf("failed to remove assignee: %w", err)
	}
	return nil
}

// ApplyAssignments commits a batch of assignments in one transaction.
// Each assignee link uses set semantics; the audit log entry is written
// only when the link actually changed, so re-applying a batch produces no
// duplicate log entries.
func (s *Store) ApplyAssignments(ctx context.Context, assignments []Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range assignments {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_assignees (task_id, entity_id) VALUES (?, ?)`, a.TaskID, a.EntityID)
		if err != nil {
			return fmt.Errorf("failed to add assignee: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		logType := a.LogType
		if logType == "" {
			logType = LogTypeAction
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO task_logs (task_id, message, log_type) VALUES (?, ?, ?)`,
			a.TaskID, a.LogMessage, logType)
		if err != nil {
			return fmt.Errorf("failed to append task log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignments: %w", err)
	}
	return nil
}

// CreateComment adds a comment to an existing task.
func (s *Store) CreateComment(ctx context.Context, taskID, authorID int64, content string) (*Comment, error) {
	if _, err := s.getTaskRow(ctx, taskID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (task_id, author_id, content) VALUES (?, ?, ?)`,
		taskID, nullableID(authorID), content)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var c Comment
	err = s.db.QueryRowContext(ctx,
		`SELECT id, task_id, COALESCE(author_id, 0), content, created_at FROM comments WHERE id = ?`, id).
		Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	return &c, nil
}

// ListComments returns a task's comments oldest first.
func (s *Store) ListComments(ctx context.Context, taskID int64) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, COALESCE(author_id, 0), content, created_at
		 FROM comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// AppendTaskLog records a single audit log entry outside any batch.
func (s *Store) AppendTaskLog(ctx context.Context, taskID int64, message, logType string) error {
	if _, err := s.getTaskRow(ctx, taskID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_logs (task_id, message, log_type) VALUES (?, ?, ?)`, taskID, message, logType)
	if err != nil {
		return fmt.Errorf("failed to append task log: %w", err)
	}
	return nil
}

// ListTaskLogs returns a task's audit log entries newest first.
func (s *Store) ListTaskLogs(ctx context.Context, taskID int64) ([]*TaskLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, message, log_type, created_at
		 FROM task_logs WHERE task_id = ? ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*TaskLog
	for rows.Next() {
		var l TaskLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Message, &l.LogType, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

const taskColumns = `id, title, COALESCE(description, ''), status, project_id, stage_id, parent_task_id,
	COALESCE(required_skills, ''), priority, created_at, updated_at, completed_at`

// getTaskRow loads one task with its assignee set.
func (s *Store) getTaskRow(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadAssignees(ctx, []*Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	var stageID, parentID sql.NullInt64
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.ProjectID, &stageID, &parentID,
		&t.RequiredSkills, &t.Priority, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	if stageID.Valid {
		t.StageID = &stageID.Int64
	}
	if parentID.Valid {
		t.ParentTaskID = &parentID.Int64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.Assignees = []*Entity{}
	return &t, nil
}

// loadAssignees fills the assignee sets of the given tasks in one query.
func (s *Store) loadAssignees(ctx context.Context, tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[int64]*Task, len(tasks))
	placeholders := make([]string, 0, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		placeholders = append(placeholders, "?")
		args = append(args, t.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ta.task_id, e.id, e.name, e.entity_type, COALESCE(e.email, ''), COALESCE(e.skills, ''), e.is_active, e.created_at
		 FROM task_assignees ta JOIN entities e ON e.id = ta.entity_id
		 WHERE ta.task_id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to load assignees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var taskID int64
		var e Entity
		if err := rows.Scan(&taskID, &e.ID, &e.Name, &e.EntityType, &e.Email, &e.Skills, &e.IsActive, &e.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan assignee: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Assignees = append(t.Assignees, &e)
		}
	}
	return rows.Err()
}
