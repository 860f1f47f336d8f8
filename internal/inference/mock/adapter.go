// Package mock provides an inference adapter for testing and local
// development without a model or cloud credentials.
package mock

import (
	"context"
	"sync"
	"time"

	"live-transcription-service/internal/audio"
)

// DefaultFragments simulate the output of consecutive overlapping windows:
// each fragment re-transcribes the tail of the previous one, which is what a
// real backend produces when windows share an overlap span.
var DefaultFragments = []string{
	"the quick brown",
	"brown fox jumps over",
	"over the lazy dog",
	"lazy dog and runs away",
}

// Adapter returns scripted fragments in order, cycling when exhausted.
type Adapter struct {
	mu          sync.Mutex
	fragments   []string
	next        int
	calls       int
	errs        map[int]error // call index -> injected error
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

// New creates an adapter serving DefaultFragments.
func New() *Adapter {
	return &Adapter{fragments: DefaultFragments}
}

// NewScripted creates an adapter serving the given fragments.
func NewScripted(fragments []string) *Adapter {
	return &Adapter{fragments: fragments}
}

// FailOn injects an error for the nth Transcribe call (zero-based). The
// scripted fragment sequence does not advance on a failed call.
func (a *Adapter) FailOn(call int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.errs == nil {
		a.errs = make(map[int]error)
	}
	a.errs[call] = err
}

// SetDelay makes each Transcribe call take at least d, so tests can hold a
// call open and observe concurrency.
func (a *Adapter) SetDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}

// Transcribe returns the next scripted fragment.
func (a *Adapter) Transcribe(ctx context.Context, pcm []byte, format audio.Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.inFlight++
	if a.inFlight > a.maxInFlight {
		a.maxInFlight = a.inFlight
	}
	call := a.calls
	a.calls++
	injected := a.errs[call]
	delay := a.delay
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			a.mu.Lock()
			a.inFlight--
			a.mu.Unlock()
			return "", ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight--
	if injected != nil {
		return "", injected
	}
	if len(a.fragments) == 0 || len(pcm) == 0 {
		return "", nil
	}
	text := a.fragments[a.next%len(a.fragments)]
	a.next++
	return text, nil
}

// SupportsFormat accepts 16-bit PCM at any rate.
func (a *Adapter) SupportsFormat(f audio.Format) bool {
	return f.Encoding == audio.EncodingLinear16
}

// Calls returns how many Transcribe calls the adapter has served.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// MaxInFlight returns the highest number of Transcribe calls that were ever
// active at the same time.
func (a *Adapter) MaxInFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxInFlight
}
