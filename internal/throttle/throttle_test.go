package throttle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock returns a fixed instant that tests can advance manually.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestIntervalGrowsWithFailures(t *testing.T) {
	t.Parallel()

	th := New(2*time.Second, 10*time.Second, newFakeClock())
	url := "https://slow.example.de/events"

	require.Equal(t, 2*time.Second, th.Interval(url))

	th.RecordFailure(url)
	require.Equal(t, 3*time.Second, th.Interval(url))

	th.RecordFailure(url)
	require.Equal(t, 4*time.Second, th.Interval(url))
}

func TestIntervalIsCapped(t *testing.T) {
	t.Parallel()

	th := New(2*time.Second, 10*time.Second, newFakeClock())
	url := "https://down.example.de/"

	for i := 0; i < 50; i++ {
		th.RecordFailure(url)
	}
	require.Equal(t, 10*time.Second, th.Interval(url))
}

func TestSuccessDecrementsGradually(t *testing.T) {
	t.Parallel()

	th := New(2*time.Second, 10*time.Second, newFakeClock())
	url := "https://flaky.example.de/"

	th.RecordFailure(url)
	th.RecordFailure(url)
	require.Equal(t, 4*time.Second, th.Interval(url))

	th.RecordSuccess(url)
	require.Equal(t, 3*time.Second, th.Interval(url))

	// The counter floors at zero.
	th.RecordSuccess(url)
	th.RecordSuccess(url)
	th.RecordSuccess(url)
	require.Equal(t, 2*time.Second, th.Interval(url))
}

func TestDomainsAreIsolated(t *testing.T) {
	t.Parallel()

	th := New(2*time.Second, 10*time.Second, newFakeClock())
	th.RecordFailure("https://a.example.de/x")
	th.RecordFailure("https://a.example.de/y")

	require.Equal(t, 4*time.Second, th.Interval("https://a.example.de/z"))
	require.Equal(t, 2*time.Second, th.Interval("https://b.example.de/z"))
}

func TestFirstRequestPassesImmediately(t *testing.T) {
	t.Parallel()

	th := New(2*time.Second, 10*time.Second, newFakeClock())

	start := time.Now()
	require.NoError(t, th.Wait(context.Background(), "https://fresh.example.de/"))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitAfterIntervalElapsedPassesImmediately(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	th := New(2*time.Second, 10*time.Second, clk)
	url := "https://calm.example.de/"

	require.NoError(t, th.Wait(context.Background(), url))
	clk.advance(3 * time.Second)

	start := time.Now()
	require.NoError(t, th.Wait(context.Background(), url))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	th := New(5*time.Second, 10*time.Second, newFakeClock())
	url := "https://busy.example.de/"
	require.NoError(t, th.Wait(context.Background(), url))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := th.Wait(ctx, url)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
