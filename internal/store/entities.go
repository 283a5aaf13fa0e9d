package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// RegisterHuman creates a human entity with a bcrypt-hashed password.
// The email must not already be registered.
func (s *Store) RegisterHuman(ctx context.Context, name, email, password, skills string) (*Entity, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password required for humans")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (name, entity_type, email, hashed_password, skills) VALUES (?, ?, ?, ?, ?)`,
		name, EntityHuman, email, string(hash), skills,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetEntity(ctx, id)
}

// RegisterAgent creates an agent entity and issues a fresh API key.
// The key is only returned here; callers must surface it to the agent once.
func (s *Store) RegisterAgent(ctx context.Context, name, email, skills string) (*Entity, error) {
	key, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	var emailVal any
	if email != "" {
		emailVal = email
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (name, entity_type, email, api_key, skills) VALUES (?, ?, ?, ?, ?)`,
		name, EntityAgent, emailVal, key, skills,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	entity, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	entity.APIKey = key
	return entity, nil
}

// GetEntity returns the entity with the given ID, or ErrNotFound.
func (s *Store) GetEntity(ctx context.Context, id int64) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, entity_type, COALESCE(email, ''), COALESCE(skills, ''), is_active, created_at
		 FROM entities WHERE id = ?`, id)
	return scanEntity(row)
}

// ListEntities returns active entities, optionally filtered by type.
func (s *Store) ListEntities(ctx context.Context, entityType EntityType) ([]*Entity, error) {
	query := `SELECT id, name, entity_type, COALESCE(email, ''), COALESCE(skills, ''), is_active, created_at
	          FROM entities WHERE is_active = TRUE`
	args := []any{}
	if entityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, entityType)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// scanner is the common interface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (*Entity, error) {
	var e Entity
	err := row.Scan(&e.ID, &e.Name, &e.EntityType, &e.Email, &e.Skills, &e.IsActive, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}
	return &e, nil
}

// generateAPIKey returns a 32-byte random hex key with a recognizable prefix.
func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return "agb_" + hex.EncodeToString(buf), nil
}
