package game

import (
	"math"
	"sync"
	"time"
)

// EnginePhase is the internal phase of the multi-pointer timer, distinct
// from the session's game Phase.
type EnginePhase string

const (
	EngineWaiting   EnginePhase = "waiting"
	EngineAllDown   EnginePhase = "allDown"
	EngineCountdown EnginePhase = "countdown"
	EngineTracking  EnginePhase = "tracking"
	EngineDone      EnginePhase = "done"
)

// MaxWaitMs is the tracking ceiling. Streams still held this long after
// tracking starts are force-recorded at the ceiling so a turn always
// terminates.
const MaxWaitMs = 15000

// posEdgeMargin keeps dragged buttons fully on screen; positions are
// normalized to the container, so the margin is the button's half extent
// plus a little padding.
const posEdgeMargin = 0.08

// Position is a normalized button center within the touch container.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EngineCallbacks is the closed set of events the engine reports. All
// callbacks are optional and are invoked without the engine lock held.
type EngineCallbacks struct {
	OnAllFingersDown            func()
	OnFingerLift                func(touchID int, liftTimeMs float64)
	OnAllFingersLifted          func(results []FingerResult)
	OnFingerLostDuringCountdown func()
	OnPositionChange            func(index int, pos Position)
}

// Engine tracks N simultaneous press-and-hold input streams through a
// rendezvous (all buttons held), a caller-run countdown, and a release
// timing phase. Each on-screen button maps to one guessing-player index;
// the host input layer feeds Press/Move/Release with transient pointer
// ids and the engine resolves them back to button indices.
//
// The engine owns all of its mutable state. Callers observe it through
// the callbacks and accessor snapshots only.
type Engine struct {
	mu       sync.Mutex
	expected int
	cb       EngineCallbacks

	phase         EnginePhase
	held          map[int]struct{}   // button indices currently held
	pointers      map[int64]int      // pointer id -> button index
	grabOffsets   map[int64]Position // pointer id -> button center minus press point
	lifted        map[int]struct{}   // indices recorded during tracking
	results       []FingerResult
	trackingStart time.Time
	positions     map[int]Position

	timeout *time.Timer

	// injectable for tests
	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
}

// NewEngine creates an engine expecting the given number of simultaneous
// streams (the guessing-player count, always >= 1 in play).
func NewEngine(expectedFingerCount int, cb EngineCallbacks) *Engine {
	return &Engine{
		expected:    expectedFingerCount,
		cb:          cb,
		phase:       EngineWaiting,
		held:        make(map[int]struct{}),
		pointers:    make(map[int64]int),
		grabOffsets: make(map[int64]Position),
		lifted:      make(map[int]struct{}),
		positions:   make(map[int]Position),
		now:         time.Now,
		afterFunc:   time.AfterFunc,
	}
}

// Press registers a pointer against a button index at the given
// normalized contact point. When the count of held buttons reaches the
// expected stream count while still waiting, the engine reports the
// rendezvous exactly once. Pressing an already held button only
// re-captures the pointer id (the host input system may reassign ids
// mid-hold). Presses for indices outside the button range are ignored.
func (e *Engine) Press(pointerID int64, buttonIndex int, x, y float64) {
	if buttonIndex < 0 || buttonIndex >= e.expected {
		return
	}
	e.mu.Lock()
	if e.phase == EngineDone {
		e.mu.Unlock()
		return
	}
	e.pointers[pointerID] = buttonIndex
	e.held[buttonIndex] = struct{}{}
	// grab offset keeps the button under the same spot of the finger
	// while dragging instead of snapping its center to the contact point
	if pos, ok := e.positions[buttonIndex]; ok {
		e.grabOffsets[pointerID] = Position{X: pos.X - x, Y: pos.Y - y}
	} else {
		e.grabOffsets[pointerID] = Position{}
	}

	allDown := e.phase == EngineWaiting && len(e.held) >= e.expected
	if allDown {
		e.phase = EngineAllDown
	}
	e.mu.Unlock()

	if allDown && e.cb.OnAllFingersDown != nil {
		e.cb.OnAllFingersDown()
	}
}

// Move updates the dragged position of a held button. Positions are
// normalized to the container and clamped to an edge margin. Once
// tracking begins positions are frozen.
func (e *Engine) Move(pointerID int64, x, y float64) {
	e.mu.Lock()
	idx, ok := e.pointers[pointerID]
	if !ok || e.phase == EngineTracking || e.phase == EngineDone {
		e.mu.Unlock()
		return
	}
	if _, holding := e.held[idx]; !holding {
		e.mu.Unlock()
		return
	}
	off := e.grabOffsets[pointerID]
	pos := Position{
		X: clamp(x+off.X, posEdgeMargin, 1-posEdgeMargin),
		Y: clamp(y+off.Y, posEdgeMargin, 1-posEdgeMargin),
	}
	e.positions[idx] = pos
	e.mu.Unlock()

	if e.cb.OnPositionChange != nil {
		e.cb.OnPositionChange(idx, pos)
	}
}

// Release handles a pointer lifting. A cancel event from the host input
// system is handled identically. Releases for unknown pointers, or for
// buttons already recorded, are ignored.
func (e *Engine) Release(pointerID int64) {
	e.mu.Lock()
	idx, ok := e.pointers[pointerID]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.pointers, pointerID)
	delete(e.grabOffsets, pointerID)

	switch e.phase {
	case EngineTracking:
		if _, already := e.lifted[idx]; already {
			e.mu.Unlock()
			return
		}
		e.lifted[idx] = struct{}{}
		delete(e.held, idx)
		liftMs := float64(e.now().Sub(e.trackingStart)) / float64(time.Millisecond)
		e.results = append(e.results, FingerResult{TouchID: idx, LiftTimeMs: liftMs})

		finished := len(e.lifted) >= e.expected
		var results []FingerResult
		if finished {
			e.stopTimeoutLocked()
			e.phase = EngineDone
			results = append([]FingerResult(nil), e.results...)
		}
		e.mu.Unlock()

		if e.cb.OnFingerLift != nil {
			e.cb.OnFingerLift(idx, liftMs)
		}
		if finished && e.cb.OnAllFingersLifted != nil {
			e.cb.OnAllFingersLifted(results)
		}

	case EngineAllDown, EngineCountdown:
		// false start: drop every held stream so a fresh full set of
		// presses is required, then let the caller re-run its countdown
		e.held = make(map[int]struct{})
		e.pointers = make(map[int64]int)
		e.grabOffsets = make(map[int64]Position)
		e.phase = EngineWaiting
		e.mu.Unlock()

		if e.cb.OnFingerLostDuringCountdown != nil {
			e.cb.OnFingerLostDuringCountdown()
		}

	default:
		delete(e.held, idx)
		e.mu.Unlock()
	}
}

// BeginCountdown acknowledges the rendezvous: the caller has started its
// visual countdown. A release before StartTracking still counts as a
// false start.
func (e *Engine) BeginCountdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == EngineAllDown {
		e.phase = EngineCountdown
	}
}

// StartTracking is called by the owner of the countdown UI exactly once
// when the countdown completes. It records the tracking start from the
// monotonic clock, clears prior per-turn results, and arms the safety
// timeout.
func (e *Engine) StartTracking() {
	e.mu.Lock()
	e.phase = EngineTracking
	e.trackingStart = e.now()
	e.results = nil
	e.lifted = make(map[int]struct{})
	e.stopTimeoutLocked()
	e.timeout = e.afterFunc(MaxWaitMs*time.Millisecond, e.forceComplete)
	e.mu.Unlock()
}

// forceComplete fires when the safety timeout elapses: every still-held
// button is recorded at the ceiling and the aggregate is reported.
func (e *Engine) forceComplete() {
	e.mu.Lock()
	if e.phase != EngineTracking {
		e.mu.Unlock()
		return
	}
	var forced []int
	for idx := range e.held {
		if _, done := e.lifted[idx]; !done {
			forced = append(forced, idx)
		}
	}
	// deterministic order for the forced tail
	for i := 0; i < len(forced); i++ {
		for j := i + 1; j < len(forced); j++ {
			if forced[j] < forced[i] {
				forced[i], forced[j] = forced[j], forced[i]
			}
		}
	}
	for _, idx := range forced {
		e.lifted[idx] = struct{}{}
		e.results = append(e.results, FingerResult{TouchID: idx, LiftTimeMs: MaxWaitMs})
	}
	e.phase = EngineDone
	results := append([]FingerResult(nil), e.results...)
	e.mu.Unlock()

	if e.cb.OnFingerLift != nil {
		for _, idx := range forced {
			e.cb.OnFingerLift(idx, MaxWaitMs)
		}
	}
	if e.cb.OnAllFingersLifted != nil {
		e.cb.OnAllFingersLifted(results)
	}
}

// Reset returns the engine to waiting and clears all tracked state,
// including the pending timeout and button positions. Safe to call from
// any phase; disabling the touch surface maps to a reset.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimeoutLocked()
	e.phase = EngineWaiting
	e.held = make(map[int]struct{})
	e.pointers = make(map[int64]int)
	e.grabOffsets = make(map[int64]Position)
	e.lifted = make(map[int]struct{})
	e.results = nil
	e.trackingStart = time.Time{}
	e.positions = make(map[int]Position)
}

func (e *Engine) stopTimeoutLocked() {
	if e.timeout != nil {
		e.timeout.Stop()
		e.timeout = nil
	}
}

// InitPositions lays the n buttons out in a circle around the container
// center. Called once when the touch surface appears; drags move the
// buttons from there.
func (e *Engine) InitPositions(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions = make(map[int]Position)
	if n <= 0 {
		return
	}
	if n == 1 {
		e.positions[0] = Position{X: 0.5, Y: 0.5}
		return
	}
	const radius = 0.32
	for i := 0; i < n; i++ {
		angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		e.positions[i] = Position{
			X: clamp(0.5+radius*math.Cos(angle), posEdgeMargin, 1-posEdgeMargin),
			Y: clamp(0.5+radius*math.Sin(angle), posEdgeMargin, 1-posEdgeMargin),
		}
	}
}

// Phase returns the engine's current phase.
func (e *Engine) Phase() EnginePhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// HeldCount returns the number of buttons currently held.
func (e *Engine) HeldCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.held)
}

// LiftedCount returns the number of lifts recorded this tracking phase.
func (e *Engine) LiftedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lifted)
}

// Expected returns the stream count the engine rendezvouses on.
func (e *Engine) Expected() int {
	return e.expected
}

// Positions returns a snapshot of the normalized button positions.
func (e *Engine) Positions() map[int]Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]Position, len(e.positions))
	for k, v := range e.positions {
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
