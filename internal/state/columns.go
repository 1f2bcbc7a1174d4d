package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/polkiloo/labtracker/internal/domain/model"
)

// ColumnStorageKey prefixes the storage key of persisted column layouts.
const ColumnStorageKey = "lab-orders-columns"

// ColumnStore persists serialized column layouts.
type ColumnStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Clear(key string) error
}

var defaultColumns = []model.Column{
	{ID: "order_date", Label: "Date", Visible: true},
	{ID: "ordered_by", Label: "Requester", Visible: true},
	{ID: "provider", Label: "Provider", Visible: true},
	{ID: "sku", Label: "SKU", Visible: true},
	{ID: "description", Label: "Description", Visible: true},
	{ID: "quantity", Label: "Qty", Visible: true},
	{ID: "unit_price", Label: "Unit Price", Visible: true},
	{ID: "total", Label: "Total", Visible: true},
	{ID: "project_code", Label: "Project", Visible: true},
	{ID: "po_number", Label: "PO Number", Visible: false},
	{ID: "status", Label: "Status", Visible: true},
	{ID: "received_date", Label: "Received", Visible: false},
	{ID: "storage_location", Label: "Location", Visible: false},
}

// DefaultColumns returns the built-in column layout.
func DefaultColumns() []model.Column {
	out := make([]model.Column, len(defaultColumns))
	copy(out, defaultColumns)
	return out
}

// MergeColumns keeps known stored columns in their stored order and appends
// defaults that are missing from stored.
func MergeColumns(stored []model.Column) []model.Column {
	known := make(map[string]model.Column, len(defaultColumns))
	for _, c := range defaultColumns {
		known[c.ID] = c
	}

	out := make([]model.Column, 0, len(defaultColumns))
	seen := make(map[string]bool, len(defaultColumns))
	for _, c := range stored {
		def, ok := known[c.ID]
		if !ok || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, model.Column{ID: c.ID, Label: def.Label, Visible: c.Visible})
	}
	for _, c := range defaultColumns {
		if !seen[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func loadColumns(store ColumnStore, key string, logger *slog.Logger) []model.Column {
	raw, ok, err := store.Get(key)
	if err != nil {
		logger.Warn("load columns", slog.String("key", key), slog.String("error", err.Error()))
		return DefaultColumns()
	}
	if !ok {
		return DefaultColumns()
	}
	var stored []model.Column
	if err := json.Unmarshal(raw, &stored); err != nil {
		logger.Warn("decode columns", slog.String("key", key), slog.String("error", err.Error()))
		return DefaultColumns()
	}
	return MergeColumns(stored)
}

func saveColumns(store ColumnStore, key string, cols []model.Column, logger *slog.Logger) {
	raw, err := json.Marshal(cols)
	if err != nil {
		logger.Warn("encode columns", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := store.Set(key, raw); err != nil {
		logger.Warn("save columns", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// NopStore discards every write and never finds a value.
type NopStore struct{}

func (NopStore) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (NopStore) Set(string, []byte) error { return nil }
func (NopStore) Clear(string) error { return nil }

// MemoryStore keeps layouts in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return append([]byte(nil), v...), ok, nil
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FileStore keeps one JSON file per key inside Dir.
type FileStore struct {
	Dir string
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func (s FileStore) path(key string) string {
	return filepath.Join(s.Dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (s FileStore) Get(key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s FileStore) Set(key string, value []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

func (s FileStore) Clear(key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
