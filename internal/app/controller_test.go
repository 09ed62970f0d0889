package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joke-plugin/internal/design"
	"joke-plugin/internal/dispatch"
	"joke-plugin/internal/models"
)

const fallback = "Why don't scientists trust atoms? Because they make up everything!"

type stubSource struct {
	jokes []string
	calls int
	block chan struct{}
}

func (s *stubSource) FetchJoke(context.Context) string {
	if s.block != nil {
		<-s.block
	}
	s.calls++
	if len(s.jokes) == 0 {
		return fallback
	}
	j := s.jokes[0]
	s.jokes = s.jokes[1:]
	return j
}

func (s *stubSource) IsFallback(j string) bool { return j == fallback }

type recordingPublisher struct {
	mu     sync.Mutex
	usages []models.JokeUsage
	err    error
}

func (p *recordingPublisher) PublishUsage(_ context.Context, u *models.JokeUsage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usages = append(p.usages, *u)
	return p.err
}

// brokenHost fails selected operations and otherwise delegates to a Document.
type brokenHost struct {
	*design.Document
	insertErr  error
	failAfter  int
	insertions int
	saveErr    error
}

func (h *brokenHost) InsertText(ctx context.Context, el models.TextElement) error {
	h.insertions++
	if h.insertErr != nil && h.insertions > h.failAfter {
		return h.insertErr
	}
	return h.Document.InsertText(ctx, el)
}

func (h *brokenHost) Read(ctx context.Context) (dispatch.Selection, error) {
	sel, err := h.Document.Read(ctx)
	if err != nil {
		return nil, err
	}
	return failingSave{Selection: sel, err: h.saveErr}, nil
}

type failingSave struct {
	dispatch.Selection
	err error
}

func (f failingSave) Save(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	return f.Selection.Save(ctx)
}

func TestRunAddInsertsAndRecords(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{jokes: []string{"Why did the chicken cross the road?"}}
	pub := &recordingPublisher{}
	c := NewController(src, WithUsagePublisher(pub))
	sess := NewSession(7, 10)
	doc := design.NewDocument(7)

	out, err := c.Run(ctx, sess, doc)

	require.NoError(t, err)
	assert.Equal(t, models.ModeAdd, out.Mode)
	assert.Equal(t, "Why did the chicken cross the road?", out.Joke)
	assert.False(t, out.Fallback)

	els := doc.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, "Why did the chicken cross the road?", els[0].Text)

	jokes := sess.Jokes()
	require.Len(t, jokes, 1)
	assert.Equal(t, "Why did the chicken cross the road?", jokes[0].Content)
	assert.Equal(t, jokes[0].ID, out.Record.ID)
	assert.Equal(t, "Why did the chicken cross the road?", sess.LastJoke())

	require.Len(t, pub.usages, 1)
	assert.Equal(t, int64(7), pub.usages[0].DesignID)
	assert.Equal(t, models.ModeAdd, pub.usages[0].Mode)
	assert.False(t, sess.Busy())
}

func TestRunFallbackIsRecorded(t *testing.T) {
	c := NewController(&stubSource{})
	sess := NewSession(1, 10)
	doc := design.NewDocument(1)

	out, err := c.Run(context.Background(), sess, doc)

	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, fallback, doc.Elements()[0].Text)
	assert.Equal(t, 1, sess.HistoryLen())
}

func TestRunReplaceWithoutSelectionSkips(t *testing.T) {
	src := &stubSource{jokes: []string{"unused"}}
	c := NewController(src)
	sess := NewSession(1, 10)
	require.NoError(t, sess.SetMode(models.ModeReplace))
	doc := design.NewDocument(1)

	out, err := c.Run(context.Background(), sess, doc)

	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Zero(t, src.calls, "no fetch when nothing is selected")
	assert.Empty(t, doc.Elements())
	assert.Zero(t, sess.HistoryLen())
}

func TestRunReplaceSelected(t *testing.T) {
	ctx := context.Background()
	c := NewController(&stubSource{jokes: []string{"X"}})
	sess := NewSession(1, 10)
	sess.ToggleMode()
	doc := design.NewDocument(1)
	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, doc.InsertText(ctx, models.TextElement{Text: s}))
	}
	require.NoError(t, doc.Select(1, 2, 4))

	out, err := c.Run(ctx, sess, doc)

	require.NoError(t, err)
	assert.Equal(t, models.ModeReplace, out.Mode)
	texts := []string{}
	for _, el := range doc.Elements() {
		texts = append(texts, el.Text)
	}
	assert.Equal(t, []string{"X", "X", "c", "X"}, texts)
	assert.Equal(t, 1, sess.HistoryLen())
}

func TestRunInsertsApologyOnHostFailure(t *testing.T) {
	ctx := context.Background()
	host := &brokenHost{Document: design.NewDocument(1), saveErr: errors.New("save rejected")}
	require.NoError(t, host.Document.InsertText(ctx, models.TextElement{Text: "a"}))
	require.NoError(t, host.Select(1))

	sess := NewSession(1, 10)
	sess.SetMode(models.ModeReplace)
	pub := &recordingPublisher{}
	c := NewController(&stubSource{jokes: []string{"X"}}, WithUsagePublisher(pub))

	out, err := c.Run(ctx, sess, host)

	require.NoError(t, err)
	assert.True(t, out.Apologized)
	els := host.Elements()
	require.Len(t, els, 2)
	assert.Equal(t, "a", els[0].Text)
	assert.Equal(t, ApologyText, els[1].Text)
	assert.Equal(t, 1, sess.HistoryLen())
}

func TestRunReturnsErrorWhenApologyFails(t *testing.T) {
	boom := errors.New("host offline")
	host := &brokenHost{Document: design.NewDocument(1), insertErr: boom}
	pub := &recordingPublisher{}
	c := NewController(&stubSource{jokes: []string{"X"}}, WithUsagePublisher(pub))
	sess := NewSession(1, 10)

	out, err := c.Run(context.Background(), sess, host)

	assert.ErrorIs(t, err, ErrApplyFailed)
	assert.ErrorIs(t, err, boom)
	assert.False(t, out.Apologized)
	assert.Empty(t, pub.usages)
	assert.False(t, sess.Busy(), "busy flag must be released")
}

func TestRunBusy(t *testing.T) {
	src := &stubSource{jokes: []string{"slow"}, block: make(chan struct{})}
	c := NewController(src)
	sess := NewSession(1, 10)
	doc := design.NewDocument(1)

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), sess, doc)
		done <- err
	}()

	require.Eventually(t, sess.Busy, time.Second, time.Millisecond)

	_, err := c.Run(context.Background(), sess, doc)
	assert.ErrorIs(t, err, ErrBusy)

	close(src.block)
	require.NoError(t, <-done)
	assert.Len(t, doc.Elements(), 1)
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	c := NewController(&stubSource{jokes: []string{"X"}}, WithUsagePublisher(pub))

	_, err := c.Run(context.Background(), NewSession(1, 10), design.NewDocument(1))

	assert.NoError(t, err)
}

func TestReuse(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{jokes: []string{"first", "second"}}
	c := NewController(src)
	sess := NewSession(1, 10)
	doc := design.NewDocument(1)

	_, err := c.Run(ctx, sess, doc)
	require.NoError(t, err)
	_, err = c.Run(ctx, sess, doc)
	require.NoError(t, err)

	out, err := c.ReuseAt(ctx, sess, doc, 1)
	require.NoError(t, err)
	assert.Equal(t, "first", out.Joke)
	assert.Equal(t, 2, src.calls, "reuse must not fetch")
	assert.Equal(t, 2, sess.HistoryLen(), "reuse must not add history")
	assert.Equal(t, "first", sess.LastJoke())

	els := doc.Elements()
	require.Len(t, els, 3)
	assert.Equal(t, "first", els[2].Text)

	_, err = c.Reuse(ctx, sess, doc, "missing")
	assert.ErrorIs(t, err, ErrJokeNotFound)
	_, err = c.ReuseAt(ctx, sess, doc, 5)
	assert.ErrorIs(t, err, ErrJokeNotFound)
}

func TestSessionMode(t *testing.T) {
	sess := NewSession(1, 10)
	assert.Equal(t, models.ModeAdd, sess.Mode())
	assert.Equal(t, models.ModeReplace, sess.ToggleMode())
	assert.Error(t, sess.SetMode("bogus"))
	assert.Equal(t, models.ModeReplace, sess.Mode())
}

func TestSessionHistoryVisibility(t *testing.T) {
	sess := NewSession(1, 2)
	sess.record("a")
	assert.True(t, sess.ToggleHistory())
	sess.ClearHistory()
	assert.False(t, sess.HistoryVisible())
	assert.Zero(t, sess.HistoryLen())
}

func TestSessionsGet(t *testing.T) {
	s := NewSessions(3)
	a := s.Get(1)
	assert.Same(t, a, s.Get(1))
	assert.NotSame(t, a, s.Get(2))
	assert.Equal(t, 2, s.Len())
}
