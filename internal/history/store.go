// Package history keeps the saved QR records, newest first, and persists the
// whole list on every change.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/kv"
	"github.com/harrylevesque/txt2qr/internal/models"
)

// StorageKey is the key holding the JSON array of records.
const StorageKey = "@txt2qr_history"

// Store is the process-wide history. Build it once and share the pointer.
//
// Persistence is best effort: write failures are logged and the in-memory
// list keeps the change. The mutex is held across each persist so
// overlapping mutations reach the backend in the order they were applied.
type Store struct {
	kv  kv.Store
	log *zap.Logger

	mu      sync.Mutex
	records []models.QRRecord
	current *models.QRRecord
}

// New returns an empty store backed by s. Call Load to read persisted records.
func New(s kv.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: s, log: log.Named("history")}
}

// Load replaces the in-memory list with the persisted one. Missing or corrupt
// data leaves the list empty; it never fails.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	data, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.Error("error loading QR codes", zap.Error(err))
		return
	}
	var records []models.QRRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Error("error loading QR codes", zap.Error(err))
		return
	}
	s.records = records
	s.log.Debug("history loaded", zap.Int("records", len(records)))
}

// Add prepends rec, persists the list and makes rec the current preview.
func (s *Store) Add(ctx context.Context, rec models.QRRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.QRRecord, 0, len(s.records)+1)
	next = append(next, rec)
	next = append(next, s.records...)
	s.records = next
	s.persist(ctx)

	cur := rec
	s.current = &cur
}

// Remove drops the record with id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]models.QRRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.ID != id {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == len(s.records) {
		return
	}
	s.records = filtered
	s.persist(ctx)
}

// Clear empties the list and erases the persisted key.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		s.log.Error("error clearing history", zap.Error(err))
	}
}

// List returns a copy of the records, newest first. It is never nil.
func (s *Store) List() []models.QRRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.QRRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get looks a record up by id.
func (s *Store) Get(id string) (models.QRRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.QRRecord{}, false
}

// Len reports the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SetCurrent sets the record being previewed; nil clears it. Never persisted.
func (s *Store) SetCurrent(rec *models.QRRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil {
		s.current = nil
		return
	}
	cur := *rec
	s.current = &cur
}

// Current returns the record being previewed, or nil.
func (s *Store) Current() *models.QRRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cur := *s.current
	return &cur
}

// persist writes the full list. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	records := s.records
	if records == nil {
		records = []models.QRRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		s.log.Error("error saving QR codes", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		s.log.Error("error saving QR codes", zap.Error(err))
	}
}
