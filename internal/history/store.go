// Package history keeps a bounded, newest-first list of used jokes.
//
// A Store is not safe for concurrent use; callers serialize access.
package history

import (
	"time"

	"github.com/google/uuid"

	"joke-plugin/internal/models"
)

const DefaultCapacity = 10

type Store struct {
	jokes    []models.JokeRecord
	capacity int
	visible  bool
	now      func() time.Time
	newID    func() string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// New returns an empty store. A non-positive capacity means DefaultCapacity.
func New(capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &Store{
		jokes:    make([]models.JokeRecord, 0, capacity),
		capacity: capacity,
		now:      time.Now,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add records content at the front, evicting the oldest entries past capacity.
func (s *Store) Add(content string) models.JokeRecord {
	rec := models.JokeRecord{
		ID:        s.newID(),
		Content:   content,
		CreatedAt: s.now(),
	}

	keep := len(s.jokes)
	if keep > s.capacity-1 {
		keep = s.capacity - 1
	}

	jokes := make([]models.JokeRecord, 0, s.capacity)
	jokes = append(jokes, rec)
	jokes = append(jokes, s.jokes[:keep]...)
	s.jokes = jokes

	return rec
}

func (s *Store) Clear() {
	s.jokes = s.jokes[:0]
	s.visible = false
}

func (s *Store) GetByID(id string) (models.JokeRecord, bool) {
	for _, j := range s.jokes {
		if j.ID == id {
			return j, true
		}
	}
	return models.JokeRecord{}, false
}

// At returns the i-th newest record.
func (s *Store) At(i int) (models.JokeRecord, bool) {
	if i < 0 || i >= len(s.jokes) {
		return models.JokeRecord{}, false
	}
	return s.jokes[i], true
}

func (s *Store) Latest() (models.JokeRecord, bool) {
	return s.At(0)
}

// Jokes returns a copy of the history, newest first.
func (s *Store) Jokes() []models.JokeRecord {
	out := make([]models.JokeRecord, len(s.jokes))
	copy(out, s.jokes)
	return out
}

func (s *Store) Len() int {
	return len(s.jokes)
}

func (s *Store) Capacity() int {
	return s.capacity
}

// ToggleVisibility flips the display flag and returns the new value.
func (s *Store) ToggleVisibility() bool {
	s.visible = !s.visible
	return s.visible
}

func (s *Store) Visible() bool {
	return s.visible
}
