package dispatch

import (
	"context"
	"errors"
	"fmt"

	"joke-plugin/internal/models"
	"joke-plugin/pkg/logger"
)

var ErrUnknownMode = errors.New("unknown selection mode")

// ElementInserter adds a new text element to the open design.
type ElementInserter interface {
	InsertText(ctx context.Context, el models.TextElement) error
}

// TextSelection is the host's view of the currently selected text items.
type TextSelection interface {
	Count(ctx context.Context) (int, error)
	Read(ctx context.Context) (Selection, error)
}

// Selection holds mutable copies of the selected items. Changes reach the
// design only after Save.
type Selection interface {
	Contents() []*SelectedText
	Save(ctx context.Context) error
}

// SelectedText is one selected item. A nil Text means the item has no text
// field and is left alone.
type SelectedText struct {
	Text *string
}

type Dispatcher struct{}

func New() *Dispatcher {
	return &Dispatcher{}
}

// Execute applies joke to the design according to mode. Replace with an
// empty selection is a no-op.
func (d *Dispatcher) Execute(ctx context.Context, mode models.SelectionMode, joke string, ins ElementInserter, sel TextSelection) error {
	switch mode {
	case models.ModeAdd:
		if err := ins.InsertText(ctx, models.TextElement{Text: joke}); err != nil {
			return fmt.Errorf("failed to insert joke: %w", err)
		}
		return nil
	case models.ModeReplace:
		return d.replace(ctx, joke, sel)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func (d *Dispatcher) replace(ctx context.Context, joke string, sel TextSelection) error {
	count, err := sel.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count selection: %w", err)
	}
	if count == 0 {
		logger.Debug("Nothing selected, skipping replace")
		return nil
	}

	contents, err := sel.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read selection: %w", err)
	}

	replaced := 0
	for _, item := range contents.Contents() {
		if item == nil || item.Text == nil {
			continue
		}
		*item.Text = joke
		replaced++
	}

	if err := contents.Save(ctx); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	logger.Debug("Replaced selected text", logger.Int("replaced", replaced))
	return nil
}
