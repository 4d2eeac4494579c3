package toolkit

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sloria/paradigm/internal/ctxlog"
	"github.com/sloria/paradigm/internal/stimulus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type awaitResult struct {
	resp Response
	err  error
}

func newPipeConsole(t *testing.T, out io.Writer, clock clockwork.Clock) (*Console, *io.PipeWriter) {
	t.Helper()
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	return NewConsole(out, r, WithClock(clock)), w
}

func await(ctx context.Context, c *Console, w stimulus.ResponseWindow) <-chan awaitResult {
	ch := make(chan awaitResult, 1)
	go func() {
		resp, err := c.AwaitResponse(ctx, w)
		ch <- awaitResult{resp, err}
	}()
	return ch
}

func TestConsole_PrepareImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cross.png"), []byte("png"), 0o644))
	c := NewConsole(io.Discard, nil, WithAssetDir(dir))

	h, err := c.Prepare(context.Background(), &stimulus.Image{Path: "cross.png"})
	require.NoError(t, err)
	defer h.Release()

	_, err = c.Prepare(context.Background(), &stimulus.Image{Path: "missing.png"})
	assert.ErrorIs(t, err, ErrMissingAsset)
}

func TestConsole_PresentHoldsForDuration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	var out bytes.Buffer
	c := NewConsole(&out, nil, WithClock(clock))
	start := clock.Now()

	h, err := c.Prepare(ctx, &stimulus.Text{Content: "Hello"})
	require.NoError(t, err)

	done := make(chan error, 1)
	var onset time.Time
	go func() {
		var err error
		onset, err = c.Present(ctx, h, 2*time.Second)
		done <- err
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	select {
	case <-done:
		t.Fatal("Present returned before its duration elapsed")
	default:
	}
	clock.Advance(2 * time.Second)

	require.NoError(t, <-done)
	assert.Equal(t, start, onset)
	assert.Equal(t, "Hello\n", out.String())
}

func TestConsole_PresentZeroDurationReturnsImmediately(t *testing.T) {
	t.Parallel()

	c := NewConsole(io.Discard, nil, WithClock(clockwork.NewFakeClock()))
	h, err := c.Prepare(context.Background(), &stimulus.Blank{})
	require.NoError(t, err)

	_, err = c.Present(context.Background(), h, 0)
	assert.NoError(t, err)
}

func TestConsole_PresentReleasedHandle(t *testing.T) {
	t.Parallel()

	c := NewConsole(io.Discard, nil)
	h, err := c.Prepare(context.Background(), &stimulus.Text{Content: "x"})
	require.NoError(t, err)
	h.Release()

	_, err = c.Present(context.Background(), h, 0)
	assert.Error(t, err)
}

func TestConsole_PresentEscape(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	c, w := newPipeConsole(t, io.Discard, clock)
	h, err := c.Prepare(context.Background(), &stimulus.Text{Content: "x"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Present(context.Background(), h, time.Hour)
		done <- err
	}()
	_, err = io.WriteString(w, "escape\n")
	require.NoError(t, err)

	assert.ErrorIs(t, <-done, ErrEscape)
}

func TestConsole_AwaitAcceptedKey(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	c, w := newPipeConsole(t, io.Discard, clock)

	res := await(ctx, c, stimulus.ResponseWindow{Timeout: 2 * time.Second, Keys: []string{"f", "j"}})
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(300 * time.Millisecond)
	_, err := io.WriteString(w, "x\nj\n")
	require.NoError(t, err)

	got := <-res
	require.NoError(t, got.err)
	assert.Equal(t, "j", got.resp.Key)
	assert.False(t, got.resp.TimedOut)
	assert.Equal(t, clock.Now(), got.resp.At)
}

func TestConsole_AwaitTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	c, _ := newPipeConsole(t, io.Discard, clock)

	res := await(ctx, c, stimulus.ResponseWindow{Timeout: time.Second})
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	got := <-res
	require.NoError(t, got.err)
	assert.True(t, got.resp.TimedOut)
	assert.Empty(t, got.resp.Key)
}

func TestConsole_AwaitCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	c, _ := newPipeConsole(t, io.Discard, clockwork.NewFakeClock())

	res := await(ctx, c, stimulus.ResponseWindow{})
	cancel()

	assert.ErrorIs(t, (<-res).err, context.Canceled)
}

func TestConsole_AwaitEscapeAndClosedInput(t *testing.T) {
	t.Parallel()

	c := NewConsole(io.Discard, strings.NewReader("escape\n"))
	_, err := c.AwaitResponse(context.Background(), stimulus.ResponseWindow{})
	assert.ErrorIs(t, err, ErrEscape)

	c = NewConsole(io.Discard, strings.NewReader(""))
	_, err = c.AwaitResponse(context.Background(), stimulus.ResponseWindow{})
	assert.ErrorIs(t, err, io.EOF)
}

func TestConsole_CloseStopsReader(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, w := newPipeConsole(t, io.Discard, clockwork.NewFakeClock())
	res := await(ctx, c, stimulus.ResponseWindow{})

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, (<-res).err, ErrClosed)

	// The reader is parked in Read until the next line, then exits.
	_, err := io.WriteString(w, "f\n")
	require.NoError(t, err)
	select {
	case <-c.readerEnd:
	case <-ctx.Done():
		t.Fatal("input reader still running after Close")
	}

	h, err := c.Prepare(ctx, &stimulus.Text{Content: "x"})
	require.NoError(t, err)
	_, err = c.Present(ctx, h, time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConsole_LogsDisplayOnce(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))
	c := NewConsole(io.Discard, nil, WithDisplay(Display{Fullscreen: true, Width: 1920, Height: 1080, Monitor: "scanner"}))

	for range 2 {
		h, err := c.Prepare(ctx, &stimulus.Blank{})
		require.NoError(t, err)
		_, err = c.Present(ctx, h, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, strings.Count(logs.String(), "Display configured."))
	assert.Contains(t, logs.String(), "fullscreen=true width=1920 height=1080 monitor=scanner")
}
