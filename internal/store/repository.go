// Package store persists the project aggregate and agent configuration in
// SQLite. The project document is saved whole: it is the unit of save/load,
// with all millisecond fields already sanitized to integers by the caller.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/walterlow/snapit/internal/project"
)

// ProjectInfo is the listing row for a stored project, without the document.
type ProjectInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Repository is the persistence contract for projects and config.
type Repository interface {
	SaveProject(ctx context.Context, p *project.Project) error
	GetProject(ctx context.Context, id string) (*project.Project, error)
	ListProjects(ctx context.Context) ([]*ProjectInfo, error)
	DeleteProject(ctx context.Context, id string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// SQLiteRepository is the SQLite-backed Repository.
type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveProject upserts the project document keyed by its id.
func (r *SQLiteRepository) SaveProject(ctx context.Context, p *project.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, duration_ms, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			duration_ms = excluded.duration_ms,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Timeline.DurationMs.Int64(), string(data),
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

// GetProject loads a project document by id. Returns (nil, nil) when the
// project does not exist.
func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*project.Project, error) {
	var data string
	err := r.db.QueryRowContext(ctx, "SELECT data FROM projects WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p project.Project
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal project %s: %w", id, err)
	}
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*ProjectInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, duration_ms, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []*ProjectInfo
	for rows.Next() {
		var info ProjectInfo
		var createdAt, updatedAt string
		if err := rows.Scan(&info.ID, &info.Name, &info.DurationMs, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		info.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
