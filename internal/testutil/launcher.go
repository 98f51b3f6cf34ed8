package testutil

import "sync"

// HeldLauncher captures background work instead of starting it.
//
// The editor launches every network request through a launcher. Holding the
// requests lets tests observe the in-flight state and decide when (and in
// which order) responses arrive.
type HeldLauncher struct {
	mu   sync.Mutex
	held []func()
}

// Launch records f without running it.
func (l *HeldLauncher) Launch(f func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = append(l.held, f)
}

// Held returns the number of captured functions.
func (l *HeldLauncher) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Release runs every captured function in launch order on the caller's
// goroutine and returns how many ran. Functions launched while releasing are
// held for the next call.
func (l *HeldLauncher) Release() int {
	l.mu.Lock()
	held := l.held
	l.held = nil
	l.mu.Unlock()
	for _, f := range held {
		f()
	}
	return len(held)
}

// Inline runs f immediately on the caller's goroutine.
func Inline(f func()) {
	f()
}
