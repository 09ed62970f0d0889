package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestNewDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
	assert.Equal(t, DefaultCapacity, New(-3).Capacity())
	assert.Equal(t, 4, New(4).Capacity())
}

func TestAddRecordsNewestFirst(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(10, WithClock(func() time.Time { return fixed }), WithIDGenerator(sequentialIDs()))

	first := s.Add("first")
	second := s.Add("second")

	require.Equal(t, 2, s.Len())
	jokes := s.Jokes()
	assert.Equal(t, "second", jokes[0].Content)
	assert.Equal(t, "first", jokes[1].Content)
	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, "id-2", second.ID)
	assert.Equal(t, fixed, first.CreatedAt)
}

func TestAddEvictsOldest(t *testing.T) {
	s := New(3)

	for i := 1; i <= 7; i++ {
		s.Add(fmt.Sprintf("joke %d", i))
		assert.LessOrEqual(t, s.Len(), s.Capacity())
	}

	jokes := s.Jokes()
	require.Len(t, jokes, 3)
	assert.Equal(t, "joke 7", jokes[0].Content)
	assert.Equal(t, "joke 6", jokes[1].Content)
	assert.Equal(t, "joke 5", jokes[2].Content)
}

func TestAddCapacityOne(t *testing.T) {
	s := New(1)
	s.Add("a")
	s.Add("b")

	require.Equal(t, 1, s.Len())
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "b", latest.Content)
}

func TestOrderIsInsertionNotTimestamp(t *testing.T) {
	times := []time.Time{
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	i := 0
	s := New(5, WithClock(func() time.Time { ts := times[i]; i++; return ts }))

	s.Add("future")
	s.Add("past")

	latest, _ := s.Latest()
	assert.Equal(t, "past", latest.Content)
}

func TestIDsAreUnique(t *testing.T) {
	s := New(50)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := s.Add("same content")
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestGetByID(t *testing.T) {
	s := New(2, WithIDGenerator(sequentialIDs()))
	s.Add("one")
	s.Add("two")

	rec, ok := s.GetByID("id-1")
	require.True(t, ok)
	assert.Equal(t, "one", rec.Content)

	_, ok = s.GetByID("missing")
	assert.False(t, ok)

	s.Add("three")
	_, ok = s.GetByID("id-1")
	assert.False(t, ok, "evicted record should not be found")
}

func TestAt(t *testing.T) {
	s := New(3)
	s.Add("old")
	s.Add("new")

	rec, ok := s.At(1)
	require.True(t, ok)
	assert.Equal(t, "old", rec.Content)

	_, ok = s.At(2)
	assert.False(t, ok)
	_, ok = s.At(-1)
	assert.False(t, ok)
}

func TestClearResetsVisibility(t *testing.T) {
	tests := []struct {
		name    string
		visible bool
	}{
		{"was visible", true},
		{"was hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(5)
			s.Add("a")
			s.Add("b")
			if tt.visible {
				s.ToggleVisibility()
			}

			s.Clear()

			assert.Equal(t, 0, s.Len())
			assert.Empty(t, s.Jokes())
			assert.False(t, s.Visible())
			_, ok := s.Latest()
			assert.False(t, ok)
		})
	}
}

func TestToggleVisibility(t *testing.T) {
	s := New(5)
	assert.False(t, s.Visible())
	assert.True(t, s.ToggleVisibility())
	assert.True(t, s.Visible())
	assert.False(t, s.ToggleVisibility())
	assert.Equal(t, 0, s.Len(), "toggling must not touch data")
}

func TestJokesReturnsCopy(t *testing.T) {
	s := New(5)
	s.Add("original")

	jokes := s.Jokes()
	jokes[0].Content = "mutated"

	latest, _ := s.Latest()
	assert.Equal(t, "original", latest.Content)
}
