package app

import (
	"context"
	"errors"
	"fmt"

	"joke-plugin/internal/dispatch"
	"joke-plugin/internal/models"
	"joke-plugin/pkg/logger"
)

const ApologyText = "Sorry, something went wrong while adding your joke. Please try again!"

var ErrApplyFailed = errors.New("failed to apply joke")

type JokeSource interface {
	FetchJoke(ctx context.Context) string
	IsFallback(joke string) bool
}

// Host is everything the controller needs from the design it edits.
type Host interface {
	dispatch.ElementInserter
	dispatch.TextSelection
}

type UsagePublisher interface {
	PublishUsage(ctx context.Context, usage *models.JokeUsage) error
}

type Outcome struct {
	Mode       models.SelectionMode
	Joke       string
	Record     *models.JokeRecord
	Fallback   bool
	Skipped    bool
	Apologized bool
}

type Controller struct {
	source     JokeSource
	dispatcher *dispatch.Dispatcher
	usage      UsagePublisher
}

type Option func(*Controller)

func WithUsagePublisher(p UsagePublisher) Option {
	return func(c *Controller) {
		c.usage = p
	}
}

func NewController(source JokeSource, opts ...Option) *Controller {
	c := &Controller{
		source:     source,
		dispatcher: dispatch.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run fetches a fresh joke and applies it in the session's current mode.
// In replace mode with nothing selected it returns a skipped Outcome without
// touching the network.
func (c *Controller) Run(ctx context.Context, sess *Session, host Host) (Outcome, error) {
	if err := sess.begin(); err != nil {
		return Outcome{}, err
	}
	defer sess.end()

	mode := sess.Mode()
	out := Outcome{Mode: mode}

	if skip, err := nothingSelected(ctx, mode, host); err != nil {
		return out, err
	} else if skip {
		out.Skipped = true
		return out, nil
	}

	joke := c.source.FetchJoke(ctx)
	out.Joke = joke
	out.Fallback = c.source.IsFallback(joke)

	apologized, err := c.apply(ctx, sess, host, mode, joke)
	out.Apologized = apologized

	rec := sess.record(joke)
	out.Record = &rec

	if err != nil {
		return out, err
	}

	c.publish(ctx, sess.DesignID(), mode, joke, out.Fallback)
	return out, nil
}

// Reuse applies a joke from the session history without fetching a new one.
func (c *Controller) Reuse(ctx context.Context, sess *Session, host Host, id string) (Outcome, error) {
	rec, ok := sess.JokeByID(id)
	if !ok {
		return Outcome{}, ErrJokeNotFound
	}

	if err := sess.begin(); err != nil {
		return Outcome{}, err
	}
	defer sess.end()

	mode := sess.Mode()
	out := Outcome{Mode: mode, Joke: rec.Content, Record: &rec}

	if skip, err := nothingSelected(ctx, mode, host); err != nil {
		return out, err
	} else if skip {
		out.Skipped = true
		return out, nil
	}

	apologized, err := c.apply(ctx, sess, host, mode, rec.Content)
	out.Apologized = apologized
	sess.setLast(rec.Content)
	if err != nil {
		return out, err
	}

	out.Fallback = c.source.IsFallback(rec.Content)
	c.publish(ctx, sess.DesignID(), mode, rec.Content, out.Fallback)
	return out, nil
}

// ReuseAt is Reuse addressed by history position, newest first.
func (c *Controller) ReuseAt(ctx context.Context, sess *Session, host Host, index int) (Outcome, error) {
	rec, ok := sess.JokeAt(index)
	if !ok {
		return Outcome{}, ErrJokeNotFound
	}
	return c.Reuse(ctx, sess, host, rec.ID)
}

func nothingSelected(ctx context.Context, mode models.SelectionMode, host Host) (bool, error) {
	if mode != models.ModeReplace {
		return false, nil
	}
	n, err := host.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count selection: %w", err)
	}
	return n == 0, nil
}

// apply dispatches the joke and falls back to inserting ApologyText when the
// host rejects it. The bool reports whether the apology was inserted.
func (c *Controller) apply(ctx context.Context, sess *Session, host Host, mode models.SelectionMode, joke string) (bool, error) {
	err := c.dispatcher.Execute(ctx, mode, joke, host, host)
	if err == nil {
		return false, nil
	}

	logger.Error("Failed to apply joke",
		logger.Err(err),
		logger.Mode(string(mode)),
		logger.Design(sess.DesignID()),
	)

	if insErr := host.InsertText(ctx, models.TextElement{Text: ApologyText}); insErr != nil {
		logger.Error("Failed to insert apology",
			logger.Err(insErr),
			logger.Design(sess.DesignID()),
		)
		return false, fmt.Errorf("%w: %w", ErrApplyFailed, errors.Join(err, insErr))
	}

	return true, nil
}

func (c *Controller) publish(ctx context.Context, designID int64, mode models.SelectionMode, joke string, fallback bool) {
	if c.usage == nil {
		return
	}

	usage := &models.JokeUsage{
		DesignID: designID,
		Content:  joke,
		Mode:     mode,
		Fallback: fallback,
	}
	if err := c.usage.PublishUsage(ctx, usage); err != nil {
		logger.Warn("Failed to publish joke usage",
			logger.Err(err),
			logger.Design(designID),
		)
	}
}
