package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// defaultStages are created for every new project, in board order.
var defaultStages = []struct {
	Name        string
	Description string
}{
	{"Backlog", "Tasks to be done"},
	{"To Do", "Ready to start"},
	{"In Progress", "Currently being worked on"},
	{"Review", "Awaiting review"},
	{"Done", "Completed tasks"},
}

// CreateProject creates a project in pending approval state together with
// its default stages, in one transaction.
func (s *Store) CreateProject(ctx context.Context, name, description string, creatorID int64) (*Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO projects (name, description, creator_id, approval_status) VALUES (?, ?, ?, ?)`,
		name, description, nullableID(creatorID), ApprovalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	projectID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	for i, stage := range defaultStages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stages (project_id, name, description, position) VALUES (?, ?, ?, ?)`,
			projectID, stage.Name, stage.Description, i+1,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create default stage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project: %w", err)
	}

	return s.GetProject(ctx, projectID)
}

// ListProjects returns projects newest first, optionally filtered by
// approval status.
func (s *Store) ListProjects(ctx context.Context, status ApprovalStatus) ([]*Project, error) {
	query := `SELECT id, name, COALESCE(description, ''), COALESCE(creator_id, 0), approval_status, created_at, updated_at
	          FROM projects`
	args := []any{}
	if status != "" {
		query += ` WHERE approval_status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject returns a project with its stages and tasks (assignees
// included), or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), COALESCE(creator_id, 0), approval_status, created_at, updated_at
		 FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if err != nil {
		return nil, err
	}

	stages, err := s.ListStages(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Stages = stages

	tasks, err := s.ListTasks(ctx, TaskFilter{ProjectID: id})
	if err != nil {
		return nil, err
	}
	project.Tasks = tasks

	return project, nil
}

// ProjectUpdate holds optional field changes. Nil fields are left untouched.
type ProjectUpdate struct {
	Name           *string         `json:"name,omitempty"`
	Description    *string         `json:"description,omitempty"`
	ApprovalStatus *ApprovalStatus `json:"approval_status,omitempty"`
}

// UpdateProject applies the non-nil fields of the update.
func (s *Store) UpdateProject(ctx context.Context, id int64, update ProjectUpdate) (*Project, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}

	set := "updated_at = ?"
	args := []any{time.Now().UTC()}
	if update.Name != nil {
		set += ", name = ?"
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		set += ", description = ?"
		args = append(args, *update.Description)
	}
	if update.ApprovalStatus != nil {
		set += ", approval_status = ?"
		args = append(args, *update.ApprovalStatus)
	}
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, `UPDATE projects SET `+set+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project; stages and tasks cascade.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
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

// CreateStage adds a stage to an existing project.
func (s *Store) CreateStage(ctx context.Context, projectID int64, name, description string, position int) (*Stage, error) {
	if _, err := s.getProjectRow(ctx, projectID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stages (project_id, name, description, position) VALUES (?, ?, ?, ?)`,
		projectID, name, description, position,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetStage(ctx, id)
}

// GetStage returns the stage with the given ID, or ErrNotFound.
func (s *Store) GetStage(ctx context.Context, id int64) (*Stage, error) {
	var st Stage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, COALESCE(description, ''), position, created_at FROM stages WHERE id = ?`, id).
		Scan(&st.ID, &st.ProjectID, &st.Name, &st.Description, &st.Position, &st.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stage: %w", err)
	}
	return &st, nil
}

// ListStages returns a project's stages in board order.
func (s *Store) ListStages(ctx context.Context, projectID int64) ([]*Stage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, COALESCE(description, ''), position, created_at
		 FROM stages WHERE project_id = ? ORDER BY position ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stages []*Stage
	for rows.Next() {
		var st Stage
		if err := rows.Scan(&st.ID, &st.ProjectID, &st.Name, &st.Description, &st.Position, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, &st)
	}
	return stages, rows.Err()
}

// StageUpdate holds optional stage field changes.
type StageUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// UpdateStage applies the non-nil fields of the update.
func (s *Store) UpdateStage(ctx context.Context, id int64, update StageUpdate) (*Stage, error) {
	if _, err := s.GetStage(ctx, id); err != nil {
		return nil, err
	}

	set := []string{}
	args := []any{}
	if update.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Position != nil {
		set = append(set, "position = ?")
		args = append(args, *update.Position)
	}
	if len(set) == 0 {
		return s.GetStage(ctx, id)
	}
	args = append(args, id)

	query := "UPDATE stages SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}
	return s.GetStage(ctx, id)
}

// DeleteStage removes a stage; tasks keep their project but lose the stage.
func (s *Store) DeleteStage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
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

// getProjectRow checks project existence without loading stages/tasks.
func (s *Store) getProjectRow(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), COALESCE(creator_id, 0), approval_status, created_at, updated_at
		 FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatorID, &p.ApprovalStatus, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
