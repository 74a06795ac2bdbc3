package quiz

import (
	"errors"
	"sync"
	"time"

	"timed_quiz/internal/models"
)

var ErrClosed = errors.New("session closed")

// Observer receives the rendered session after every change. Callbacks run
// while the runner holds its lock: they must not block or call back into the
// runner.
type Observer struct {
	OnChange func(models.SessionView)
	// OnFinish fires once each time the session reaches its results.
	OnFinish func(models.Result)
	// OnAnswer fires for every accepted selection.
	OnAnswer func(index int, correct bool)
	// OnTimeout fires when the countdown advances the session.
	OnTimeout func(index int)
}

// Runner drives a live Session: it owns the countdown and serialises player
// actions with timer ticks.
type Runner struct {
	mu        sync.Mutex
	session   *Session
	countdown *Countdown
	observer  Observer
	gen       uint64
	started   bool
	closed    bool
}

// NewRunner wraps session. tickInterval is the length of one countdown second.
func NewRunner(session *Session, tickInterval time.Duration, observer Observer) *Runner {
	return &Runner{
		session:   session,
		countdown: NewCountdown(tickInterval),
		observer:  observer,
	}
}

// Start publishes the initial view and starts the countdown.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.started {
		return nil
	}
	r.started = true
	r.scheduleLocked()
	r.changedLocked()
	return nil
}

func (r *Runner) Select(option int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}
	correct, err := r.session.Select(option)
	if err != nil {
		return false, err
	}
	if r.observer.OnAnswer != nil {
		r.observer.OnAnswer(r.session.Index(), correct)
	}
	r.changedLocked()
	return correct, nil
}

func (r *Runner) Next() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if err := r.session.Next(); err != nil {
		return err
	}
	r.advancedLocked()
	return nil
}

// Restart returns the session to the first question with a fresh countdown.
func (r *Runner) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.session.Restart()
	r.started = true
	r.scheduleLocked()
	r.changedLocked()
	return nil
}

func (r *Runner) View() models.SessionView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.View()
}

func (r *Runner) Result() models.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Result()
}

// Close stops the countdown. The runner rejects every action afterwards.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.gen++
	r.countdown.Stop()
}

func (r *Runner) tick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A tick from a replaced countdown may already be waiting on the lock.
	if r.closed || gen != r.gen {
		return
	}
	index := r.session.Index()
	if !r.session.Tick() {
		r.changedLocked()
		return
	}
	if r.observer.OnTimeout != nil {
		r.observer.OnTimeout(index)
	}
	r.advancedLocked()
}

func (r *Runner) advancedLocked() {
	if r.session.Finished() {
		r.gen++
		r.countdown.Stop()
		r.changedLocked()
		if r.observer.OnFinish != nil {
			r.observer.OnFinish(r.session.Result())
		}
		return
	}
	r.scheduleLocked()
	r.changedLocked()
}

func (r *Runner) scheduleLocked() {
	r.gen++
	gen := r.gen
	r.countdown.Start(func() { r.tick(gen) })
}

func (r *Runner) changedLocked() {
	if r.observer.OnChange != nil {
		r.observer.OnChange(r.session.View())
	}
}
