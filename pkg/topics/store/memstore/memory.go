package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	dialogs  map[int64]store.Dialog
	messages map[int64]map[int64]store.Message // dialog → message ID → message
	runs     map[int64][]store.Run

	// ReadErr, when set, is returned by every message read. Useful for
	// exercising collaborator failures.
	ReadErr error
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		dialogs:  make(map[int64]store.Dialog),
		messages: make(map[int64]map[int64]store.Message),
		runs:     make(map[int64][]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertDialog inserts or updates a dialog, keyed by ID.
func (s *Store) UpsertDialog(ctx context.Context, d store.Dialog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogs[d.ID] = d
	return nil
}

// GetDialog returns a dialog by ID.
func (s *Store) GetDialog(ctx context.Context, id int64) (store.Dialog, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dialogs[id]
	return d, ok, nil
}

// GetDialogs returns all dialogs ordered by ID.
func (s *Store) GetDialogs(ctx context.Context) ([]store.Dialog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Dialog, 0, len(s.dialogs))
	for _, d := range s.dialogs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WriteMessages stores messages, replacing those with the same ID.
func (s *Store) WriteMessages(ctx context.Context, dialogID int64, msgs []store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.messages[dialogID] == nil {
		s.messages[dialogID] = make(map[int64]store.Message)
	}
	for _, m := range msgs {
		m.DialogID = dialogID
		s.messages[dialogID][m.ID] = m
	}
	return nil
}

// ReadMessages returns all messages of a dialog ordered by date.
func (s *Store) ReadMessages(ctx context.Context, dialog store.Dialog) ([]store.Message, error) {
	return s.read(dialog.ID, func(store.Message) bool { return true })
}

// ReadMessagesRange returns messages with from <= date < to, or all messages
// when the range is not valid.
func (s *Store) ReadMessagesRange(ctx context.Context, dialog store.Dialog, from, to int64) ([]store.Message, error) {
	if !store.ValidRange(from, to) {
		return s.ReadMessages(ctx, dialog)
	}
	return s.read(dialog.ID, func(m store.Message) bool {
		return m.Date >= from && m.Date < to
	})
}

// SaveRun stores a run, replacing a run with the same ID.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := s.runs[r.DialogID]
	for i := range runs {
		if runs[i].ID == r.ID {
			runs[i] = copyRun(r)
			return nil
		}
	}
	s.runs[r.DialogID] = append(runs, copyRun(r))
	return nil
}

// GetRuns returns the runs of a dialog in insertion order.
func (s *Store) GetRuns(ctx context.Context, dialogID int64) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Run, len(s.runs[dialogID]))
	for i, r := range s.runs[dialogID] {
		out[i] = copyRun(r)
	}
	return out, nil
}

func (s *Store) read(dialogID int64, keep func(store.Message) bool) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	out := []store.Message{}
	for _, m := range s.messages[dialogID] {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyRun(r store.Run) store.Run {
	topics := make([][]store.TopicWord, len(r.Topics))
	for i, t := range r.Topics {
		topics[i] = append([]store.TopicWord(nil), t...)
	}
	r.Topics = topics
	return r
}
