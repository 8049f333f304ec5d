package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Manager owns the durable conversation transcript and the generated-images
// side list. Every mutation is flushed to disk before it returns.
type Manager struct {
	path       string
	imagesPath string

	mu      sync.Mutex
	entries []Envelope
	images  []GeneratedImage
}

func NewManager(path, imagesPath string) (*Manager, error) {
	m := &Manager{path: path, imagesPath: imagesPath}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// load reads the backing files. A history file in the legacy unwrapped shape
// (a bare array of entries) is wrapped in place and rewritten once.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.entries = nil
	case err != nil:
		return fmt.Errorf("read history: %w", err)
	default:
		entries, migrated, err := decodeHistory(data)
		if err != nil {
			return fmt.Errorf("decode history %s: %w", m.path, err)
		}
		m.entries = entries
		if migrated {
			if err := m.flushHistory(); err != nil {
				return err
			}
		}
	}

	if m.imagesPath == "" {
		return nil
	}
	imgData, err := os.ReadFile(m.imagesPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.images = nil
	case err != nil:
		return fmt.Errorf("read images: %w", err)
	default:
		if err := json.Unmarshal(imgData, &m.images); err != nil {
			return fmt.Errorf("decode images %s: %w", m.imagesPath, err)
		}
	}
	return nil
}

func decodeHistory(data []byte) ([]Envelope, bool, error) {
	var wrapped []Envelope
	if err := json.Unmarshal(data, &wrapped); err == nil && allWrapped(wrapped) {
		return wrapped, false, nil
	}
	var legacy []Entry
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, false, err
	}
	out := make([]Envelope, 0, len(legacy))
	for _, entry := range legacy {
		out = append(out, wrap(entry))
	}
	return out, true, nil
}

func allWrapped(envelopes []Envelope) bool {
	for _, env := range envelopes {
		if env.ID == "" {
			return false
		}
	}
	return true
}

func wrap(entry Entry) Envelope {
	return Envelope{
		ID:        ulid.Make().String(),
		Timestamp: time.Now().UTC(),
		Type:      entryType(entry),
		Size:      entrySize(entry),
		Content:   entry,
	}
}

// Append wraps and stores one entry and returns its identifier.
func (m *Manager) Append(entry Entry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env := wrap(entry)
	m.entries = append(m.entries, env)
	if err := m.flushHistory(); err != nil {
		m.entries = m.entries[:len(m.entries)-1]
		return "", err
	}
	return env.ID, nil
}

// AppendAll stores entries in order with a single flush.
func (m *Manager) AppendAll(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := len(m.entries)
	for _, entry := range entries {
		m.entries = append(m.entries, wrap(entry))
	}
	if err := m.flushHistory(); err != nil {
		m.entries = m.entries[:prev]
		return err
	}
	return nil
}

// Entries returns the unwrapped transcript in append order, suitable for
// replay to the model.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, env := range m.entries {
		out = append(out, env.Content)
	}
	return out
}

// Wrapped returns the enveloped transcript.
func (m *Manager) Wrapped() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Manager) EntryByID(id string) (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, env := range m.entries {
		if env.ID == id {
			return env, true
		}
	}
	return Envelope{}, false
}

// Delete removes the envelopes with the given identifiers and reports how many
// were removed. Surviving identifiers are untouched.
func (m *Manager) Delete(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0:0]
	for _, env := range m.entries {
		if _, ok := drop[env.ID]; ok {
			continue
		}
		kept = append(kept, env)
	}
	removed := len(m.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	prev := m.entries
	m.entries = kept
	if err := m.flushHistory(); err != nil {
		m.entries = prev
		return 0, err
	}
	return removed, nil
}

func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return m.flushHistory()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) Images() []GeneratedImage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GeneratedImage, len(m.images))
	copy(out, m.images)
	return out
}

func (m *Manager) AddImages(images []GeneratedImage) error {
	if len(images) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := len(m.images)
	m.images = append(m.images, images...)
	if err := m.flushImages(); err != nil {
		m.images = m.images[:prev]
		return err
	}
	return nil
}

func (m *Manager) ClearImages() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = nil
	return m.flushImages()
}

func (m *Manager) flushHistory() error {
	entries := m.entries
	if entries == nil {
		entries = []Envelope{}
	}
	return writeJSONFile(m.path, entries)
}

func (m *Manager) flushImages() error {
	if m.imagesPath == "" {
		return nil
	}
	images := m.images
	if images == nil {
		images = []GeneratedImage{}
	}
	return writeJSONFile(m.imagesPath, images)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
