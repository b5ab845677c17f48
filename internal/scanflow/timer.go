package scanflow

import (
	"sync"
	"time"
)

// Default processing timer thresholds. The server enforces its own 20 s
// deadline; the two are advisory duplicates and the first to fire wins.
const (
	DefaultWarningAfter = 15 * time.Second
	DefaultTimeoutAfter = 20 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// ProcessingTimer tracks wall-clock time while the extraction request is in
// flight. It fires a warning callback once when processing is taking longer
// than usual and a timeout callback exactly once when the local deadline
// passes. Firing the timeout does not cancel the server request; a late
// result is simply ignored by the caller.
type ProcessingTimer struct {
	warningAfter time.Duration
	timeoutAfter time.Duration
	pollInterval time.Duration
	onWarning    func()
	onTimeout    func()
	now          func() time.Time

	mu       sync.Mutex
	started  time.Time
	warned   bool
	timedOut bool
	stopCh   chan struct{}
}

func NewProcessingTimer(warningAfter, timeoutAfter time.Duration, onWarning, onTimeout func()) *ProcessingTimer {
	if warningAfter <= 0 {
		warningAfter = DefaultWarningAfter
	}
	if timeoutAfter <= 0 {
		timeoutAfter = DefaultTimeoutAfter
	}
	return &ProcessingTimer{
		warningAfter: warningAfter,
		timeoutAfter: timeoutAfter,
		pollInterval: DefaultPollInterval,
		onWarning:    onWarning,
		onTimeout:    onTimeout,
		now:          time.Now,
	}
}

// Start records the processing start time and begins polling. Stop must be
// called unless the timeout fires first.
func (t *ProcessingTimer) Start() {
	t.mu.Lock()
	t.started = t.now()
	t.stopCh = make(chan struct{})
	stopCh := t.stopCh
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if t.Check() {
					return
				}
			}
		}
	}()
}

// Stop ends polling. Safe to call more than once.
func (t *ProcessingTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh != nil {
		select {
		case <-t.stopCh:
		default:
			close(t.stopCh)
		}
	}
}

// Elapsed returns the wall-clock time since Start.
func (t *ProcessingTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.IsZero() {
		return 0
	}
	return t.now().Sub(t.started)
}

// Warned reports whether the taking-longer-than-usual warning has fired.
func (t *ProcessingTimer) Warned() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.warned
}

// Check evaluates elapsed time against the thresholds and fires callbacks at
// most once each. It returns true once the timeout has fired.
func (t *ProcessingTimer) Check() bool {
	t.mu.Lock()
	if t.started.IsZero() {
		t.mu.Unlock()
		return false
	}
	elapsed := t.now().Sub(t.started)

	fireWarning := !t.warned && elapsed >= t.warningAfter
	if fireWarning {
		t.warned = true
	}
	fireTimeout := !t.timedOut && elapsed >= t.timeoutAfter
	if fireTimeout {
		t.timedOut = true
	}
	done := t.timedOut
	t.mu.Unlock()

	if fireWarning && t.onWarning != nil {
		t.onWarning()
	}
	if fireTimeout && t.onTimeout != nil {
		t.onTimeout()
	}
	return done
}
