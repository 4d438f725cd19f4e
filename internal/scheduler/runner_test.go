package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/scriptbot/internal/clock"
	"github.com/abdulachik/scriptbot/internal/composer"
	"github.com/abdulachik/scriptbot/internal/notify"
	"github.com/abdulachik/scriptbot/internal/position"
	"github.com/abdulachik/scriptbot/internal/publisher"
	"github.com/abdulachik/scriptbot/internal/transcript"
)

// recorder collects the ordered side effects of a run.
type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type memStore struct {
	rec   *recorder
	saved []position.Position
	err   error
}

func (m *memStore) Load() (position.Position, error) {
	if len(m.saved) == 0 {
		return position.Position{}, position.ErrNoPosition
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *memStore) Save(p position.Position) error {
	m.rec.add("save %s", p)
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, p)
	return nil
}

type fakePublisher struct {
	rec      *recorder
	outcomes []publisher.Report
	errs     []error
	contents []string
}

func (f *fakePublisher) Publish(ctx context.Context, d composer.Directive, imagePath string) (publisher.Report, error) {
	f.rec.add("publish %s %q %s", d.Kind, d.Content, imagePath)
	f.contents = append(f.contents, d.Content)

	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	if len(f.outcomes) == 0 {
		return publisher.Report{Outcome: publisher.OutcomePublished, PostID: "p"}, err
	}
	r := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return r, err
}

type harness struct {
	rec      *recorder
	store    *memStore
	pub      *fakePublisher
	clock    *clock.Fake
	notifier *notify.LogNotifier
	health   *Health
	loader   *transcript.Loader
}

func newHarness(t *testing.T, root string) *harness {
	t.Helper()
	rec := &recorder{}
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	clk.OnSleep = func(d time.Duration) { rec.add("sleep %s", d) }
	return &harness{
		rec:      rec,
		store:    &memStore{rec: rec},
		pub:      &fakePublisher{rec: rec},
		clock:    clk,
		notifier: notify.NewLogNotifier(),
		health:   NewHealth(),
		loader:   transcript.NewLoader(root),
	}
}

func (h *harness) runner(maxAttempts int) *Runner {
	return NewRunner(RunnerConfig{
		Publisher:        h.pub,
		Store:            h.store,
		Loader:           h.loader,
		Clock:            h.clock,
		Notifier:         h.notifier,
		Health:           h.health,
		PostInterval:     90 * time.Minute,
		RecoveryInterval: 30 * time.Minute,
		MaxAttempts:      maxAttempts,
	})
}

func episode(season, ep int, lines ...string) transcript.Transcript {
	return transcript.Transcript{Season: season, Episode: ep, Lines: lines}
}

func TestRunEpisode_ImageThenText(t *testing.T) {
	h := newHarness(t, "/scripts")

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(2, 3, "img 1 caption here", "plain line"), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"save 2 3 0",
		fmt.Sprintf("publish image %q %s", "caption here", filepath.Join("/scripts", "2", "3", "img", "1.jpg")),
		"sleep 1h30m0s",
		"save 2 3 1",
		fmt.Sprintf("publish text %q ", "plain line"),
		"sleep 1h30m0s",
	}, h.rec.events)
	assert.Equal(t, Summary{Visited: 2, Published: 2}, sum)
	assert.True(t, h.health.GetStatus(ComponentPublish).Healthy)
	assert.True(t, h.health.GetStatus(ComponentPosition).Healthy)
}

func TestRunEpisode_StartSkipsEarlierLines(t *testing.T) {
	h := newHarness(t, "/scripts")

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "a", "b", "c"), 2)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"save 1 1 0",
		"save 1 1 1",
		"save 1 1 2",
		`publish text "c" `,
		"sleep 1h30m0s",
	}, h.rec.events)
	assert.Equal(t, 3, sum.Visited)
	assert.Equal(t, 1, sum.Published)
}

func TestRunEpisode_StartPastEnd(t *testing.T) {
	h := newHarness(t, "/scripts")

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "a", "b"), 2)
	require.NoError(t, err)

	assert.Empty(t, h.pub.contents)
	assert.Empty(t, h.clock.Sleeps())
	assert.Equal(t, position.Position{Season: 1, Episode: 1, Line: 1}, h.store.saved[len(h.store.saved)-1])
	assert.Equal(t, 2, sum.Visited)
}

func TestRunEpisode_EmptyTranscript(t *testing.T) {
	h := newHarness(t, "/scripts")

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
	assert.Empty(t, h.rec.events)
}

func TestRunEpisode_DuplicateAdvancesLikeSuccess(t *testing.T) {
	h := newHarness(t, "/scripts")
	h.pub.outcomes = []publisher.Report{
		{Outcome: publisher.OutcomeDuplicate, Err: errors.New("duplicate content")},
	}

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "same", "next"), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"same", "next"}, h.pub.contents, "no retry of the duplicate line")
	assert.Equal(t, []time.Duration{90 * time.Minute, 90 * time.Minute}, h.clock.Sleeps())
	assert.Equal(t, 1, sum.Duplicates)
	assert.Equal(t, 1, sum.Published)
}

func TestRunEpisode_DegradedImageContinues(t *testing.T) {
	h := newHarness(t, "/scripts")
	h.pub.outcomes = []publisher.Report{
		{Outcome: publisher.OutcomeDegraded, Err: errors.New("image missing")},
	}

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "img 4 where is it", "after"), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"where is it", "after"}, h.pub.contents)
	assert.Equal(t, 1, sum.Degraded)
	assert.Equal(t, 1, sum.Published)
}

func TestRunEpisode_RateLimitedRetriesSameLine(t *testing.T) {
	h := newHarness(t, "/scripts")
	h.pub.outcomes = []publisher.Report{
		{Outcome: publisher.OutcomeRateLimited, Backoff: 125 * time.Second},
		{Outcome: publisher.OutcomeRateLimited, Backoff: 15 * time.Minute},
	}

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "line"), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"line", "line", "line"}, h.pub.contents)
	assert.Equal(t, 2, sum.RateLimited)
	assert.Equal(t, 1, sum.Published)
	assert.Zero(t, sum.Abandoned)
	// Backoff sleeps belong to the publisher; the runner only paces posts.
	assert.Equal(t, []time.Duration{90 * time.Minute}, h.clock.Sleeps())
}

func TestRunEpisode_FailedLineIsAbandoned(t *testing.T) {
	h := newHarness(t, "/scripts")
	h.pub.outcomes = []publisher.Report{
		{Outcome: publisher.OutcomeFailed, Err: errors.New("status 500")},
	}

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "bad", "good"), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"save 1 1 0",
		`publish text "bad" `,
		"sleep 30m0s",
		"save 1 1 1",
		`publish text "good" `,
		"sleep 1h30m0s",
	}, h.rec.events)
	assert.Equal(t, 1, sum.Abandoned)
	assert.Equal(t, 1, sum.Published)
	assert.Equal(t, 1, h.notifier.Sent())
	assert.True(t, h.health.GetStatus(ComponentPublish).Healthy, "later success restores health")
}

func TestRunEpisode_MaxAttempts(t *testing.T) {
	t.Run("succeeds before limit", func(t *testing.T) {
		h := newHarness(t, "/scripts")
		h.pub.outcomes = []publisher.Report{
			{Outcome: publisher.OutcomeFailed, Err: errors.New("boom")},
			{Outcome: publisher.OutcomeFailed, Err: errors.New("boom")},
		}

		sum, err := h.runner(3).RunEpisode(context.Background(), episode(1, 1, "flaky"), 0)
		require.NoError(t, err)

		assert.Equal(t, []string{"flaky", "flaky", "flaky"}, h.pub.contents)
		assert.Equal(t, []time.Duration{30 * time.Minute, 30 * time.Minute, 90 * time.Minute}, h.clock.Sleeps())
		assert.Equal(t, 1, sum.Published)
		assert.Zero(t, sum.Abandoned)
		assert.Zero(t, h.notifier.Sent())
	})

	t.Run("exhausted", func(t *testing.T) {
		h := newHarness(t, "/scripts")
		h.pub.outcomes = []publisher.Report{
			{Outcome: publisher.OutcomeFailed, Err: errors.New("boom")},
			{Outcome: publisher.OutcomeFailed, Err: errors.New("boom")},
		}

		sum, err := h.runner(2).RunEpisode(context.Background(), episode(1, 1, "bad"), 0)
		require.NoError(t, err)

		assert.Len(t, h.pub.contents, 2)
		assert.Equal(t, 1, sum.Abandoned)
		status := h.health.GetStatus(ComponentPublish)
		assert.False(t, status.Healthy)
		assert.Equal(t, 2, status.Failures)
	})
}

func TestRunEpisode_PositionWriteFailureDoesNotBlock(t *testing.T) {
	h := newHarness(t, "/scripts")
	h.store.err = errors.New("disk full")

	sum, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "a", "b"), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, h.pub.contents)
	assert.Equal(t, 2, sum.Published)
	status := h.health.GetStatus(ComponentPosition)
	require.NotNil(t, status)
	assert.False(t, status.Healthy)
	assert.Equal(t, "disk full", status.Message)
}

func TestRunEpisode_Cancellation(t *testing.T) {
	t.Run("during post interval", func(t *testing.T) {
		h := newHarness(t, "/scripts")
		ctx, cancel := context.WithCancel(context.Background())
		h.clock.OnSleep = func(time.Duration) { cancel() }

		sum, err := h.runner(1).RunEpisode(ctx, episode(1, 1, "a", "b", "c"), 0)
		assert.ErrorIs(t, err, context.Canceled)

		assert.Equal(t, []string{"a"}, h.pub.contents, "no publish after interrupt")
		assert.Equal(t, []position.Position{{Season: 1, Episode: 1, Line: 0}}, h.store.saved)
		assert.Equal(t, 1, sum.Published)
	})

	t.Run("during recovery", func(t *testing.T) {
		h := newHarness(t, "/scripts")
		ctx, cancel := context.WithCancel(context.Background())
		h.clock.OnSleep = func(time.Duration) { cancel() }
		h.pub.outcomes = []publisher.Report{{Outcome: publisher.OutcomeFailed, Err: errors.New("boom")}}

		_, err := h.runner(1).RunEpisode(ctx, episode(1, 1, "a", "b"), 0)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"a"}, h.pub.contents)
		assert.Zero(t, h.notifier.Sent())
	})

	t.Run("during rate-limit backoff", func(t *testing.T) {
		h := newHarness(t, "/scripts")
		h.pub.outcomes = []publisher.Report{{Outcome: publisher.OutcomeRateLimited}}
		h.pub.errs = []error{context.Canceled}

		_, err := h.runner(1).RunEpisode(context.Background(), episode(1, 1, "a", "b"), 0)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"a"}, h.pub.contents)
	})

	t.Run("already cancelled", func(t *testing.T) {
		h := newHarness(t, "/scripts")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.runner(1).RunEpisode(ctx, episode(1, 1, "a"), 0)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, h.rec.events)
	})
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(RunnerConfig{})
	assert.Equal(t, DefaultPostInterval, r.postInterval)
	assert.Equal(t, DefaultRecoveryInterval, r.recoveryInterval)
	assert.Equal(t, 1, r.maxAttempts)
	assert.NotNil(t, r.notifier)
	assert.NotNil(t, r.health)
}

func TestSummary_Add(t *testing.T) {
	s := Summary{Visited: 1, Published: 1}
	s.Add(Summary{Visited: 2, Duplicates: 1, Abandoned: 1})
	assert.Equal(t, Summary{Visited: 3, Published: 1, Duplicates: 1, Abandoned: 1}, s)
}
