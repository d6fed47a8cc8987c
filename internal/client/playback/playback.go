// Package playback drives a tour presentation: the current step, manual
// navigation and timed autoplay.
//
//	Loading → Ready(index, playing) | Error
//
// At most one autoplay timer is outstanding. Every navigation cancels it and
// a generation counter discards callbacks that were already in flight.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/demotours/tour-builder/internal/client/api"
)

// DefaultStepDuration applies to steps without a positive duration.
const DefaultStepDuration = 3000 * time.Millisecond

var (
	ErrNoSteps     = errors.New("tour has no steps")
	ErrNotReady    = errors.New("player is not ready")
	ErrOutOfBounds = errors.New("step index out of bounds")
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Snapshot is a consistent view of the player.
type Snapshot struct {
	State   State
	Title   string
	Index   int
	Total   int
	Playing bool
	Step    api.Step
	Err     error
}

// Fetcher loads the tour to present, e.g. Client.GetTour or Client.PublicTour.
type Fetcher func(ctx context.Context) (*api.Tour, error)

type Player struct {
	mu sync.Mutex

	sched    Scheduler
	onChange func(Snapshot)

	state   State
	title   string
	steps   []api.Step
	index   int
	playing bool
	err     error

	timer Timer
	gen   uint64
}

type Option func(*Player)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(p *Player) { p.sched = s }
}

// WithOnChange registers a callback invoked after every state change,
// outside the player's lock.
func WithOnChange(f func(Snapshot)) Option {
	return func(p *Player) { p.onChange = f }
}

func New(opts ...Option) *Player {
	p := &Player{sched: realScheduler{}, state: StateLoading}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load fetches the tour and moves to Ready at step 0, or to Error when the
// fetch fails or the tour has no steps.
func (p *Player) Load(ctx context.Context, fetch Fetcher) error {
	p.mu.Lock()
	p.cancelLocked()
	p.state = StateLoading
	p.playing = false
	p.mu.Unlock()

	tour, err := fetch(ctx)
	if err == nil && len(tour.Steps) == 0 {
		err = ErrNoSteps
	}

	p.mu.Lock()
	if err != nil {
		p.state = StateError
		p.err = err
		p.steps = nil
	} else {
		p.state = StateReady
		p.err = nil
		p.title = tour.Title
		p.steps = append([]api.Step(nil), tour.Steps...)
		p.index = 0
	}
	p.unlockAndNotify()
	return err
}

// Snapshot returns the current state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() Snapshot {
	s := Snapshot{
		State:   p.state,
		Title:   p.title,
		Index:   p.index,
		Total:   len(p.steps),
		Playing: p.playing,
		Err:     p.err,
	}
	if p.state == StateReady {
		s.Step = p.steps[p.index]
	}
	return s
}

// Next moves one step forward. At the last step it only ends autoplay.
func (p *Player) Next() {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	if p.index < len(p.steps)-1 {
		p.index++
		p.rescheduleLocked()
	} else {
		p.playing = false
	}
	p.unlockAndNotify()
}

// Prev moves one step back; a no-op at the first step.
func (p *Player) Prev() {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	if p.index > 0 {
		p.index--
	}
	p.rescheduleLocked()
	p.unlockAndNotify()
}

// GoTo jumps to step i.
func (p *Player) GoTo(i int) error {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return ErrNotReady
	}
	if i < 0 || i >= len(p.steps) {
		p.mu.Unlock()
		return ErrOutOfBounds
	}
	p.cancelLocked()
	p.index = i
	p.rescheduleLocked()
	p.unlockAndNotify()
	return nil
}

// ToggleAutoplay starts or stops timed advancing from the current step.
func (p *Player) ToggleAutoplay() {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	p.playing = !p.playing
	p.rescheduleLocked()
	p.unlockAndNotify()
}

// Close cancels any pending advance.
func (p *Player) Close() {
	p.mu.Lock()
	p.cancelLocked()
	p.playing = false
	p.mu.Unlock()
}

func (p *Player) cancelLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) rescheduleLocked() {
	if !p.playing {
		return
	}
	gen := p.gen
	p.timer = p.sched.AfterFunc(stepDuration(p.steps[p.index]), func() { p.advance(gen) })
}

func (p *Player) advance(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || !p.playing || p.state != StateReady {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	if p.index < len(p.steps)-1 {
		p.index++
		p.rescheduleLocked()
	} else {
		p.playing = false
	}
	p.unlockAndNotify()
}

func (p *Player) unlockAndNotify() {
	snap := p.snapshotLocked()
	f := p.onChange
	p.mu.Unlock()
	if f != nil {
		f(snap)
	}
}

func stepDuration(s api.Step) time.Duration {
	if s.Duration <= 0 {
		return DefaultStepDuration
	}
	return time.Duration(s.Duration) * time.Millisecond
}
