// Package app holds the client-side session: the loaded record set, the
// current view state and the notifications produced by user actions.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/internal/pipeline"
)

// ErrTransport matches every failure to reach the record store or an
// unexpected response from it.
var ErrTransport = errors.New("record store unavailable")

// Store is the remote record store.
type Store interface {
	List(ctx context.Context) ([]patient.Record, error)
	Create(ctx context.Context, n patient.NewRecord) (*patient.Record, error)
	Update(ctx context.Context, r patient.Record) (*patient.Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Session serializes user actions. Each action, including its store call
// and the reload that follows a mutation, finishes before the next starts.
// The record set is only replaced by a successful load.
type Session struct {
	mu      sync.Mutex
	store   Store
	logger  zerolog.Logger
	now     func() time.Time
	records []patient.Record
	state   pipeline.State
	notes   []Notification
}

func NewSession(store Store, logger zerolog.Logger) *Session {
	return &Session{
		store:   store,
		logger:  logger,
		now:     time.Now,
		records: []patient.Record{},
		state:   pipeline.NewState(),
	}
}

func (s *Session) notify(kind Kind, msg string) {
	s.notes = append(s.notes, Notification{
		Message:   msg,
		Kind:      kind,
		ExpiresAt: s.now().Add(NotificationTTL),
	})
}

// Load fetches the full record set from the store.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load records")
		s.notify(KindError, msgLoadFailed)
		return fmt.Errorf("load records: %w", err)
	}
	s.records = records
	return nil
}

// Add validates n locally, creates it and reloads. A *patient.ValidationError
// is returned without contacting the store.
func (s *Session) Add(ctx context.Context, n patient.NewRecord) (*patient.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ApplyDefaults()
	if err := patient.Validate(n); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, n)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create record")
		s.notify(KindError, msgSaveFailed)
		return nil, fmt.Errorf("create record: %w", err)
	}
	s.notify(KindSuccess, msgAdded)
	s.logger.Debug().Str("id", created.ID.String()).Msg("record created")

	// The record exists now; a failed reload is reported but not returned.
	_ = s.load(ctx)
	return created, nil
}

// Edit validates r locally, updates it and reloads.
func (s *Session) Edit(ctx context.Context, r patient.Record) (*patient.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ApplyDefaults()
	if err := patient.Validate(r.NewRecord); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, r)
	if err != nil {
		s.logger.Error().Err(err).Str("id", r.ID.String()).Msg("failed to update record")
		s.notify(KindError, msgSaveFailed)
		return nil, fmt.Errorf("update record: %w", err)
	}
	s.notify(KindSuccess, msgUpdated)

	_ = s.load(ctx)
	return updated, nil
}

// Remove deletes the record with id and reloads.
func (s *Session) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("id", id.String()).Msg("failed to delete record")
		s.notify(KindError, msgDeleteFailed)
		return fmt.Errorf("delete record: %w", err)
	}
	s.notify(KindSuccess, msgDeleted)

	_ = s.load(ctx)
	return nil
}

// Export writes the current view, filtered, searched and sorted, to a dated
// CSV file in dir and returns its path. An empty view produces no file.
func (s *Session) Export(dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := pipeline.Compute(s.records, s.state)
	if len(v.Sorted) == 0 {
		s.notify(KindError, msgNothingExport)
		return "", pipeline.ErrEmptyExport
	}

	path := filepath.Join(dir, pipeline.ExportFilename(s.now()))
	if err := writeExport(path, v.Sorted); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to export records")
		s.notify(KindError, msgExportFailed)
		return "", err
	}
	s.notify(KindSuccess, fmt.Sprintf(msgExported, path))
	return path, nil
}

func writeExport(path string, records []patient.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := pipeline.ExportCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}

// View runs the pipeline over the loaded records for the current state.
func (s *Session) View() pipeline.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pipeline.Compute(s.records, s.state)
}

// Records returns a copy of the loaded record set.
func (s *Session) Records() []patient.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Find returns the loaded record with id.
func (s *Session) Find(id uuid.UUID) (patient.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return patient.Record{}, false
}

func (s *Session) State() pipeline.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetRange applies a date filter and returns to the first page.
func (s *Session) SetRange(r pipeline.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithRange(r)
}

// SetSearch applies a search term and returns to the first page.
func (s *Session) SetSearch(term, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithSearch(term, field)
}

// SetSort replaces the sort order.
func (s *Session) SetSort(cfg pipeline.SortConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithSort(cfg)
}

// ToggleSort applies a column pick.
func (s *Session) ToggleSort(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.ToggleSort(field)
}

// GoToPage moves to page n of the current view. It reports false and keeps
// the current page when n is out of range.
func (s *Session) GoToPage(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := pipeline.Compute(s.records, s.state)
	next, ok := s.state.WithPage(n, v.TotalPages)
	s.state = next
	return ok
}

// Notifications returns the notifications still visible at now and drops
// expired ones.
func (s *Session) Notifications(now time.Time) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.notes[:0]
	for _, n := range s.notes {
		if !n.Expired(now) {
			live = append(live, n)
		}
	}
	s.notes = live
	return append([]Notification(nil), live...)
}
