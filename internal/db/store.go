package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/kairo/internal/model"
)

const tokenKey = "token"

var ErrViewNameRequired = errors.New("view name is required")

// Store persists the local client state: the bearer token and saved board views.
// Tasks and meetings are never stored here.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) LoadToken(ctx context.Context) (string, error) {
	var token string
	err := s.DB.QueryRowContext(ctx, "SELECT value FROM session WHERE key = ?", tokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (s *Store) SaveToken(ctx context.Context, token string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, tokenKey, token)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *Store) ClearToken(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM session WHERE key = ?", tokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// SaveView creates a view, or replaces the filter of the view with the same name.
func (s *Store) SaveView(ctx context.Context, view model.SavedView) (model.SavedView, error) {
	name := strings.TrimSpace(view.Name)
	if name == "" {
		return model.SavedView{}, ErrViewNameRequired
	}

	payload, err := json.Marshal(view.Filter)
	if err != nil {
		return model.SavedView{}, err
	}

	var row *sql.Row
	if view.ID == 0 {
		row = s.DB.QueryRowContext(ctx, `
INSERT INTO views (name, filter_json) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET filter_json = excluded.filter_json, updated_at = CURRENT_TIMESTAMP
RETURNING id, name, filter_json, created_at, updated_at`, name, string(payload))
	} else {
		row = s.DB.QueryRowContext(ctx, `
UPDATE views SET name = ?, filter_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
RETURNING id, name, filter_json, created_at, updated_at`, name, string(payload), view.ID)
	}
	return scanView(row)
}

func (s *Store) ListViews(ctx context.Context) ([]model.SavedView, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, name, filter_json, created_at, updated_at FROM views ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []model.SavedView{}
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

func (s *Store) GetViewByName(ctx context.Context, name string) (model.SavedView, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT id, name, filter_json, created_at, updated_at FROM views WHERE name = ?", strings.TrimSpace(name))
	return scanView(row)
}

func (s *Store) DeleteView(ctx context.Context, viewID int64) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM views WHERE id = ?", viewID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (model.SavedView, error) {
	var view model.SavedView
	var filterJSON string
	var createdAt, updatedAt any
	if err := row.Scan(&view.ID, &view.Name, &filterJSON, &createdAt, &updatedAt); err != nil {
		return model.SavedView{}, err
	}
	view.CreatedAt = sqlTime(createdAt)
	view.UpdatedAt = sqlTime(updatedAt)
	if err := json.Unmarshal([]byte(filterJSON), &view.Filter); err != nil {
		return model.SavedView{}, fmt.Errorf("decode view %q: %w", view.Name, err)
	}
	return view, nil
}

// sqlTime accepts both driver-decoded times and the raw CURRENT_TIMESTAMP text
// that RETURNING clauses hand back without a declared column type.
func sqlTime(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed
		}
	case []byte:
		return sqlTime(string(v))
	}
	return time.Time{}
}
