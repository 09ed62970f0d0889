// Package design is an in-memory design host: an ordered list of text
// elements with a selection. It backs the CLI and tests.
package design

import (
	"context"
	"errors"
	"sync"
	"time"

	"joke-plugin/internal/dispatch"
	"joke-plugin/internal/models"
)

var ErrElementNotFound = errors.New("element not found")

type Document struct {
	mu       sync.Mutex
	id       int64
	nextID   int64
	elements []models.DesignElement
}

func NewDocument(id int64) *Document {
	return &Document{id: id, nextID: 1}
}

func (d *Document) ID() int64 {
	return d.id
}

func (d *Document) InsertText(_ context.Context, el models.TextElement) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.elements = append(d.elements, models.DesignElement{
		ID:        d.nextID,
		DesignID:  d.id,
		Text:      el.Text,
		CreatedAt: time.Now(),
	})
	d.nextID++
	return nil
}

// Select marks the given element ids as selected, leaving others unchanged.
func (d *Document) Select(ids ...int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		i := d.indexOf(id)
		if i < 0 {
			return ErrElementNotFound
		}
		d.elements[i].Selected = true
	}
	return nil
}

func (d *Document) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.elements {
		d.elements[i].Selected = false
	}
}

func (d *Document) Elements() []models.DesignElement {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.DesignElement, len(d.elements))
	copy(out, d.elements)
	return out
}

func (d *Document) Count(context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, el := range d.elements {
		if el.Selected {
			n++
		}
	}
	return n, nil
}

func (d *Document) Read(context.Context) (dispatch.Selection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := &selection{doc: d}
	for _, el := range d.elements {
		if !el.Selected {
			continue
		}
		text := el.Text
		sel.ids = append(sel.ids, el.ID)
		sel.items = append(sel.items, &dispatch.SelectedText{Text: &text})
	}
	return sel, nil
}

func (d *Document) indexOf(id int64) int {
	for i, el := range d.elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

type selection struct {
	doc   *Document
	ids   []int64
	items []*dispatch.SelectedText
}

func (s *selection) Contents() []*dispatch.SelectedText {
	return s.items
}

// Save writes the edited texts back. Elements deleted since Read are skipped.
func (s *selection) Save(context.Context) error {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	for i, id := range s.ids {
		item := s.items[i]
		if item == nil || item.Text == nil {
			continue
		}
		if idx := s.doc.indexOf(id); idx >= 0 {
			s.doc.elements[idx].Text = *item.Text
		}
	}
	return nil
}
