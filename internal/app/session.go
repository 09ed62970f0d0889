package app

import (
	"errors"
	"fmt"
	"sync"

	"joke-plugin/internal/history"
	"joke-plugin/internal/models"
)

var (
	ErrBusy         = errors.New("another joke action is in progress")
	ErrJokeNotFound = errors.New("joke not found in history")
)

// Session is the per-design UI state: current mode, busy flag, joke history
// and the last applied joke. All mutation goes through its methods.
type Session struct {
	mu       sync.Mutex
	designID int64
	mode     models.SelectionMode
	busy     bool
	history  *history.Store
	lastJoke string
}

func NewSession(designID int64, historyCapacity int, opts ...history.Option) *Session {
	return &Session{
		designID: designID,
		mode:     models.ModeAdd,
		history:  history.New(historyCapacity, opts...),
	}
}

func (s *Session) DesignID() int64 {
	return s.designID
}

func (s *Session) Mode() models.SelectionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) SetMode(mode models.SelectionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown selection mode %q", mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

func (s *Session) ToggleMode() models.SelectionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = s.mode.Toggle()
	return s.mode
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) LastJoke() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastJoke
}

func (s *Session) Jokes() []models.JokeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Jokes()
}

func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

func (s *Session) HistoryVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Visible()
}

func (s *Session) ToggleHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.ToggleVisibility()
}

func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
}

func (s *Session) JokeByID(id string) (models.JokeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.GetByID(id)
}

// JokeAt returns the i-th newest joke.
func (s *Session) JokeAt(i int) (models.JokeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.At(i)
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *Session) record(joke string) models.JokeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastJoke = joke
	return s.history.Add(joke)
}

func (s *Session) setLast(joke string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastJoke = joke
}

// Sessions hands out one Session per design.
type Sessions struct {
	mu       sync.Mutex
	capacity int
	byDesign map[int64]*Session
}

func NewSessions(historyCapacity int) *Sessions {
	return &Sessions{
		capacity: historyCapacity,
		byDesign: make(map[int64]*Session),
	}
}

func (s *Sessions) Get(designID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byDesign[designID]
	if !ok {
		sess = NewSession(designID, s.capacity)
		s.byDesign[designID] = sess
	}
	return sess
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byDesign)
}
