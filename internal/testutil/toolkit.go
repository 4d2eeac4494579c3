package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sloria/paradigm/internal/stimulus"
	"github.com/sloria/paradigm/internal/toolkit"
)

// Reply scripts one AwaitResponse call. An empty Key with no Err times out.
type Reply struct {
	Key   string
	After time.Duration
	Err   error
}

// FakeToolkit is a toolkit.Toolkit that never blocks. Present advances the
// fake clock by the requested duration; AwaitResponse plays back Replies in
// order and times out once they run out.
type FakeToolkit struct {
	Clock   *clockwork.FakeClock
	Replies []Reply

	// PrepareErr and PresentErr fail the call with the given 0-based index.
	PrepareErr map[int]error
	PresentErr map[int]error
	// OnPresent, if set, runs before each Present with its 0-based index.
	OnPresent func(i int)

	mu           sync.Mutex
	presented    []string
	prepareCalls int
	prepared     int
	released     int
	awaited      int
}

// NewFakeToolkit creates a fake toolkit on a fresh fake clock.
func NewFakeToolkit(replies ...Reply) *FakeToolkit {
	return &FakeToolkit{Clock: clockwork.NewFakeClock(), Replies: replies}
}

type fakeHandle struct {
	tk   *FakeToolkit
	desc string
	once sync.Once
}

func (h *fakeHandle) Release() {
	h.once.Do(func() {
		h.tk.mu.Lock()
		h.tk.released++
		h.tk.mu.Unlock()
	})
}

// Prepare implements toolkit.Toolkit.
func (f *FakeToolkit) Prepare(ctx context.Context, p stimulus.Presentable) (toolkit.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.prepareCalls
	f.prepareCalls++
	if err := f.PrepareErr[i]; err != nil {
		return nil, err
	}
	f.prepared++
	return &fakeHandle{tk: f, desc: p.Describe()}, nil
}

// Present implements toolkit.Toolkit.
func (f *FakeToolkit) Present(ctx context.Context, h toolkit.Handle, d time.Duration) (time.Time, error) {
	f.mu.Lock()
	i := len(f.presented)
	f.mu.Unlock()

	if f.OnPresent != nil {
		f.OnPresent(i)
	}
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if err := f.PresentErr[i]; err != nil {
		return time.Time{}, err
	}

	onset := f.Clock.Now()
	f.mu.Lock()
	f.presented = append(f.presented, h.(*fakeHandle).desc)
	f.mu.Unlock()
	f.Clock.Advance(d)
	return onset, nil
}

// AwaitResponse implements toolkit.Toolkit.
func (f *FakeToolkit) AwaitResponse(ctx context.Context, w stimulus.ResponseWindow) (toolkit.Response, error) {
	if err := ctx.Err(); err != nil {
		return toolkit.Response{}, err
	}

	f.mu.Lock()
	var reply Reply
	if f.awaited < len(f.Replies) {
		reply = f.Replies[f.awaited]
	}
	f.awaited++
	f.mu.Unlock()

	if reply.Err != nil {
		return toolkit.Response{}, reply.Err
	}
	if reply.Key == "" || !w.Accepts(reply.Key) || (w.Timeout > 0 && reply.After >= w.Timeout) {
		f.Clock.Advance(w.Timeout)
		return toolkit.Response{At: f.Clock.Now(), TimedOut: true}, nil
	}
	f.Clock.Advance(reply.After)
	return toolkit.Response{Key: reply.Key, At: f.Clock.Now()}, nil
}

// Presented returns the descriptions of every presented handle, in order.
func (f *FakeToolkit) Presented() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.presented...)
}

// Outstanding returns the number of prepared handles not yet released.
func (f *FakeToolkit) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prepared - f.released
}
