package toolkit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sloria/paradigm/internal/ctxlog"
	"github.com/sloria/paradigm/internal/stimulus"
)

// DefaultEscapeKey aborts a run when typed on its own line.
const DefaultEscapeKey = "escape"

// Console presents stimuli on a text stream. Each input line is one key press.
type Console struct {
	out       io.Writer
	clock     clockwork.Clock
	assetDir  string
	escapeKey string

	display   *Display
	announce  sync.Once

	mu        sync.Mutex
	lines     chan string
	done      chan struct{}
	closeOnce sync.Once
	readerEnd chan struct{}
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) ConsoleOption {
	return func(con *Console) { con.clock = c }
}

// WithAssetDir sets the directory relative image paths are resolved against.
func WithAssetDir(dir string) ConsoleOption {
	return func(con *Console) { con.assetDir = dir }
}

// WithEscapeKey changes the line that aborts a run.
func WithEscapeKey(key string) ConsoleOption {
	return func(con *Console) { con.escapeKey = key }
}

// WithDisplay records the window the run asks for. The console draws text
// only, so the display is logged when the first frame is drawn.
func WithDisplay(d Display) ConsoleOption {
	return func(con *Console) { con.display = &d }
}

// NewConsole creates a console toolkit writing to out and reading key presses
// from in. A nil in never produces a response. Call Close when the run ends.
func NewConsole(out io.Writer, in io.Reader, opts ...ConsoleOption) *Console {
	c := &Console{
		out:       out,
		clock:     clockwork.NewRealClock(),
		escapeKey: DefaultEscapeKey,
		done:      make(chan struct{}),
		readerEnd: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if in != nil {
		c.lines = make(chan string, 64)
		go c.readLines(in)
	} else {
		close(c.readerEnd)
	}
	return c
}

// Close stops delivering key presses. A read already blocked on the input
// stays blocked until the input yields a line or EOF; the reader then exits
// without forwarding it. Close does not close the input.
func (c *Console) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Console) readLines(in io.Reader) {
	defer close(c.readerEnd)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-c.done:
			return
		default:
		}
		select {
		case c.lines <- strings.TrimSpace(scanner.Text()):
		case <-c.done:
			return
		}
	}
	close(c.lines)
}

type frame struct {
	text     string
	released bool
}

func (f *frame) Release() { f.released = true }

// Prepare renders the presentable into a frame. Images must exist on disk.
func (c *Console) Prepare(ctx context.Context, p stimulus.Presentable) (Handle, error) {
	switch s := p.(type) {
	case *stimulus.Image:
		path := s.Path
		if !filepath.IsAbs(path) && c.assetDir != "" {
			path = filepath.Join(c.assetDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMissingAsset, path, err)
		}
		return &frame{text: fmt.Sprintf("[image %s]", path)}, nil
	case *stimulus.Blank:
		return &frame{}, nil
	case nil:
		return nil, fmt.Errorf("nothing to prepare")
	default:
		return &frame{text: p.Describe()}, nil
	}
}

// Present writes the frame and holds it for d. Keys typed during the hold are
// discarded, except the escape key.
func (c *Console) Present(ctx context.Context, h Handle, d time.Duration) (time.Time, error) {
	f, ok := h.(*frame)
	if !ok {
		return time.Time{}, fmt.Errorf("handle %T was not prepared by the console", h)
	}
	if f.released {
		return time.Time{}, fmt.Errorf("handle already released")
	}

	c.mu.Lock()
	_, err := fmt.Fprintln(c.out, f.text)
	c.mu.Unlock()
	if err != nil {
		return time.Time{}, fmt.Errorf("draw: %w", err)
	}
	onset := c.clock.Now()
	logger := ctxlog.FromContext(ctx)
	if c.display != nil {
		c.announce.Do(func() { logger.Info("Display configured.", c.display.attrs()...) })
	}
	logger.Debug("Frame drawn.", "duration", d)

	if d <= 0 {
		return onset, nil
	}
	done := c.clock.After(d)
	lines := c.lines
	for {
		select {
		case <-ctx.Done():
			return onset, ctx.Err()
		case <-c.done:
			return onset, ErrClosed
		case <-done:
			return onset, nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if line == c.escapeKey {
				return onset, ErrEscape
			}
		}
	}
}

// AwaitResponse discards keys typed before the window opened, then waits for
// an accepted key. A zero timeout waits until input is closed.
func (c *Console) AwaitResponse(ctx context.Context, w stimulus.ResponseWindow) (Response, error) {
	if err := c.drain(); err != nil {
		return Response{}, err
	}

	var timeout <-chan time.Time
	if w.Timeout > 0 {
		timeout = c.clock.After(w.Timeout)
	}
	lines := c.lines
	for {
		if lines == nil && timeout == nil {
			return Response{}, fmt.Errorf("no response possible: %w", io.EOF)
		}
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-c.done:
			return Response{}, ErrClosed
		case <-timeout:
			return Response{At: c.clock.Now(), TimedOut: true}, nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if line == c.escapeKey {
				return Response{}, ErrEscape
			}
			if w.Accepts(line) {
				return Response{Key: line, At: c.clock.Now()}, nil
			}
			ctxlog.FromContext(ctx).Debug("Ignoring key outside the response set.", "key", line)
		}
	}
}

func (c *Console) drain() error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return nil
			}
			if line == c.escapeKey {
				return ErrEscape
			}
		default:
			return nil
		}
	}
}
