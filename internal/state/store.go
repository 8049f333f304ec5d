package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flitsinc/go-assistant/internal/idgen"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type Memory struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Todo struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenUsage is the store's own copy of a turn's token counters, kept free of
// any dependency on the completion-service boundary.
type TokenUsage struct {
	InputTokens     int64 `json:"input_tokens"`
	CachedTokens    int64 `json:"cached_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens"`
	TotalTokens     int64 `json:"total_tokens"`
}

type TurnRecord struct {
	ID        string     `json:"id"`
	RunID     string     `json:"run_id"`
	Ordinal   int        `json:"ordinal"`
	Outcome   string     `json:"outcome"`
	Usage     TokenUsage `json:"usage"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *Store) CreateMemory(ctx context.Context, text string) (Memory, error) {
	id := idgen.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO memories (id, text, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, text, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Memory{}, fmt.Errorf("insert memory: %w", err)
	}
	return Memory{ID: id, Text: text, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) ListMemories(ctx context.Context) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, created_at, updated_at FROM memories ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(&m.ID, &m.Text, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memories: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateMemory(ctx context.Context, id, text string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET text = ?, updated_at = ? WHERE id = ?`,
		text, now.Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	return requireRow(res, "memory", id)
}

func (s *Store) DeleteMemories(ctx context.Context, ids []string) (int, error) {
	return s.deleteByIDs(ctx, "memories", ids)
}

func (s *Store) CreateTodo(ctx context.Context, text string) (Todo, error) {
	id := idgen.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO todos (id, text, done, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`,
		id, text, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return Todo{ID: id, Text: text, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) ListTodos(ctx context.Context) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, done, created_at, updated_at FROM todos ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		var t Todo
		var done int
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(&t.ID, &t.Text, &done, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		t.Done = done != 0
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateTodo(ctx context.Context, id, text string, done bool) error {
	now := time.Now().UTC()
	doneInt := 0
	if done {
		doneInt = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE todos SET text = ?, done = ?, updated_at = ? WHERE id = ?`,
		text, doneInt, now.Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return requireRow(res, "todo", id)
}

func (s *Store) DeleteTodos(ctx context.Context, ids []string) (int, error) {
	return s.deleteByIDs(ctx, "todos", ids)
}

func (s *Store) ClearTodos(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM todos`); err != nil {
		return fmt.Errorf("clear todos: %w", err)
	}
	return nil
}

// RecordTurn persists one turn's usage snapshot.
func (s *Store) RecordTurn(ctx context.Context, runID string, ordinal int, outcome string, usage TokenUsage) error {
	id := idgen.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, run_id, ordinal, outcome, input_tokens, cached_tokens, output_tokens, reasoning_tokens, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, runID, ordinal, outcome, usage.InputTokens, usage.CachedTokens, usage.OutputTokens, usage.ReasoningTokens, usage.TotalTokens, now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *Store) ListTurns(ctx context.Context, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, ordinal, outcome, input_tokens, cached_tokens, output_tokens, reasoning_tokens, total_tokens, created_at
		FROM turns ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var createdAtStr string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Ordinal, &rec.Outcome,
			&rec.Usage.InputTokens, &rec.Usage.CachedTokens, &rec.Usage.OutputTokens,
			&rec.Usage.ReasoningTokens, &rec.Usage.TotalTokens, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

func (s *Store) deleteByIDs(ctx context.Context, table string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
		if err != nil {
			return deleted, fmt.Errorf("delete from %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += int(n)
		}
	}
	return deleted, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q not found", kind, id)
	}
	return nil
}
