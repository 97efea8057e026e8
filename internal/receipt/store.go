package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// schemaVersion is written with every persisted collection
const schemaVersion = 1

// storedCollection is the persisted layout of the slot
type storedCollection struct {
	Version  int               `json:"version"`
	Receipts []json.RawMessage `json:"receipts"`
}

// Store is the durable, head-first ordered collection of receipts. Every
// mutation is followed by a full rewrite of the slot. Storage failures
// never reach callers: reads degrade to an empty collection and failed
// writes leave the in-memory collection authoritative.
type Store struct {
	mu      sync.Mutex
	slot    Slot
	records []Receipt
}

// NewStore creates a Store and loads whatever the slot holds
func NewStore(slot Slot) *Store {
	s := &Store{slot: slot}
	s.Load()
	return s
}

// Load re-reads the slot and returns the persisted receipts in stored order
func (s *Store) Load() []Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = s.read()
	return slices.Clone(s.records)
}

// SaveAll replaces the whole collection with records, in the given order
func (s *Store) SaveAll(records []Receipt) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.Clone(records)
	s.persist()
	return nil
}

// Append inserts r at the head of the collection and persists it
func (s *Store) Append(r Receipt) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(r.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	}
	s.records = slices.Insert(s.records, 0, r)
	s.persist()
	return nil
}

// Remove deletes the receipt with the given id; unknown ids are ignored
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.records = slices.Delete(s.records, i, i+1)
	s.persist()
}

// Get returns the receipt with the given id
func (s *Store) Get(id string) (Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Receipt{}, false
	}
	return s.records[i], true
}

// List returns the receipts newest-committed first
func (s *Store) List() []Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Summary returns the aggregate total, count and receipts
func (s *Store) Summary() Summary {
	return Summarize(s.List())
}

// Close closes the underlying slot
func (s *Store) Close() error {
	return s.slot.Close()
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.records, func(r Receipt) bool { return r.ID == id })
}

// persist writes the full collection; caller holds s.mu
func (s *Store) persist() {
	entries := make([]json.RawMessage, 0, len(s.records))
	for _, r := range s.records {
		data, err := marshalJSON(r)
		if err != nil {
			slog.Error("Failed to encode receipt", "id", r.ID, "error", err)
			return
		}
		entries = append(entries, data)
	}

	data, err := marshalJSON(storedCollection{Version: schemaVersion, Receipts: entries})
	if err != nil {
		slog.Error("Failed to encode receipts", "error", fmt.Errorf("%w: %v", ErrPersistenceDegraded, err))
		return
	}
	if err := s.slot.Put(data); err != nil {
		slog.Error("Failed to persist receipts, keeping them in memory",
			"count", len(s.records),
			"error", fmt.Errorf("%w: %v", ErrPersistenceDegraded, err),
		)
	}
}

// marshalJSON encodes v without escaping HTML characters such as the "&"
// in "Food & Dining"
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// read loads the slot, degrading to an empty collection on any failure
func (s *Store) read() []Receipt {
	data, err := s.slot.Get()
	if err != nil {
		slog.Warn("Failed to read receipts, starting empty", "error", fmt.Errorf("%w: %v", ErrPersistenceDegraded, err))
		return []Receipt{}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Receipt{}
	}

	var entries []json.RawMessage
	if data[0] == '[' {
		// Collections written before the schema version was introduced
		err = json.Unmarshal(data, &entries)
	} else {
		var stored storedCollection
		err = json.Unmarshal(data, &stored)
		if err == nil && stored.Version > schemaVersion {
			slog.Warn("Receipts were written by a newer version", "version", stored.Version)
		}
		entries = stored.Receipts
	}
	if err != nil {
		slog.Warn("Stored receipts are corrupt, starting empty", "error", fmt.Errorf("%w: %v", ErrPersistenceDegraded, err))
		return []Receipt{}
	}

	records := make([]Receipt, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		var r Receipt
		if err := json.Unmarshal(entry, &r); err != nil {
			slog.Warn("Skipping unreadable receipt", "index", i, "error", err)
			continue
		}
		if err := r.Validate(); err != nil {
			slog.Warn("Skipping incomplete receipt", "index", i, "error", err)
			continue
		}
		if seen[r.ID] {
			slog.Warn("Skipping duplicate receipt", "id", r.ID)
			continue
		}
		seen[r.ID] = true
		records = append(records, r)
	}
	return records
}
