package game

import (
	"math"
	"testing"
	"time"
)

// testEngine wires an engine with a manual clock, a capturable timeout
// and counters for every callback.
type testEngine struct {
	engine *Engine

	now     time.Time
	timeout func()

	allDown   int
	lifts     []FingerResult
	aggregate [][]FingerResult
	lost      int
	moved     int
}

func newTestEngine(t *testing.T, expected int) *testEngine {
	t.Helper()
	te := &testEngine{now: time.Unix(1000, 0)}
	te.engine = NewEngine(expected, EngineCallbacks{
		OnAllFingersDown: func() { te.allDown++ },
		OnFingerLift: func(touchID int, liftTimeMs float64) {
			te.lifts = append(te.lifts, FingerResult{TouchID: touchID, LiftTimeMs: liftTimeMs})
		},
		OnAllFingersLifted: func(results []FingerResult) {
			te.aggregate = append(te.aggregate, results)
		},
		OnFingerLostDuringCountdown: func() { te.lost++ },
		OnPositionChange:            func(int, Position) { te.moved++ },
	})
	te.engine.now = func() time.Time { return te.now }
	te.engine.afterFunc = func(d time.Duration, f func()) *time.Timer {
		te.timeout = f
		return time.NewTimer(time.Hour)
	}
	return te
}

func (te *testEngine) advance(d time.Duration) { te.now = te.now.Add(d) }

func TestEngineRendezvousFiresOnce(t *testing.T) {
	te := newTestEngine(t, 3)
	e := te.engine

	e.Press(10, 0, 0.5, 0.5)
	e.Press(11, 1, 0.5, 0.5)
	if te.allDown != 0 {
		t.Fatalf("rendezvous fired with only 2 of 3 held")
	}
	e.Press(12, 2, 0.5, 0.5)
	if te.allDown != 1 {
		t.Fatalf("expected rendezvous to fire once, got %d", te.allDown)
	}
	if e.Phase() != EngineAllDown {
		t.Fatalf("expected allDown phase, got %s", e.Phase())
	}

	// a re-press of a held button re-captures the pointer id only
	e.Press(99, 2, 0.5, 0.5)
	if te.allDown != 1 {
		t.Fatalf("rendezvous must not re-fire, got %d", te.allDown)
	}
}

func TestEngineFalseStartRequiresFreshPresses(t *testing.T) {
	te := newTestEngine(t, 2)
	e := te.engine

	e.Press(1, 0, 0.5, 0.5)
	e.Press(2, 1, 0.5, 0.5)
	e.BeginCountdown()

	e.Release(2)
	if te.lost != 1 {
		t.Fatalf("expected finger-lost notification, got %d", te.lost)
	}
	if e.Phase() != EngineWaiting {
		t.Fatalf("expected waiting after false start, got %s", e.Phase())
	}
	if e.HeldCount() != 0 {
		t.Fatalf("expected held state cleared after false start, got %d", e.HeldCount())
	}

	// a single press must not re-trigger the rendezvous
	e.Press(3, 1, 0.5, 0.5)
	if te.allDown != 1 {
		t.Fatalf("rendezvous re-fired without a full set: %d", te.allDown)
	}
	e.Press(4, 0, 0.5, 0.5)
	if te.allDown != 2 {
		t.Fatalf("expected second rendezvous after full re-press, got %d", te.allDown)
	}
}

func TestEngineTrackingLiftsAndAggregate(t *testing.T) {
	te := newTestEngine(t, 3)
	e := te.engine

	e.Press(1, 0, 0.5, 0.5)
	e.Press(2, 1, 0.5, 0.5)
	e.Press(3, 2, 0.5, 0.5)
	e.BeginCountdown()
	e.StartTracking()

	te.advance(3 * time.Second)
	e.Release(2) // button 1 at 3000ms

	te.advance(2 * time.Second)
	e.Release(1) // button 0 at 5000ms

	if len(te.lifts) != 2 {
		t.Fatalf("expected 2 individual lifts, got %d", len(te.lifts))
	}
	if te.lifts[0].TouchID != 1 || te.lifts[0].LiftTimeMs != 3000 {
		t.Fatalf("unexpected first lift: %+v", te.lifts[0])
	}
	if len(te.aggregate) != 0 {
		t.Fatalf("aggregate fired before final lift")
	}

	te.advance(1500 * time.Millisecond)
	e.Release(3) // button 2 at 6500ms

	if len(te.aggregate) != 1 {
		t.Fatalf("expected aggregate exactly once, got %d", len(te.aggregate))
	}
	results := te.aggregate[0]
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// ordered by arrival
	if results[0].TouchID != 1 || results[1].TouchID != 0 || results[2].TouchID != 2 {
		t.Fatalf("results not in arrival order: %+v", results)
	}
	if results[2].LiftTimeMs != 6500 {
		t.Fatalf("expected final lift at 6500ms, got %v", results[2].LiftTimeMs)
	}
	if e.Phase() != EngineDone {
		t.Fatalf("expected done, got %s", e.Phase())
	}
}

func TestEngineDuplicateAndOrphanReleases(t *testing.T) {
	te := newTestEngine(t, 2)
	e := te.engine

	e.Press(1, 0, 0.5, 0.5)
	e.Press(2, 1, 0.5, 0.5)
	e.BeginCountdown()
	e.StartTracking()

	te.advance(time.Second)
	e.Release(1)
	e.Release(1) // duplicate: pointer already gone
	e.Release(7) // orphan: never pressed

	if len(te.lifts) != 1 {
		t.Fatalf("expected a single recorded lift, got %d", len(te.lifts))
	}
	if len(te.aggregate) != 0 {
		t.Fatalf("aggregate must wait for the second distinct lift")
	}

	// same button, re-captured pointer, already lifted: ignored
	e.Press(8, 0, 0.5, 0.5)
	e.Release(8)
	if len(te.lifts) != 1 {
		t.Fatalf("already-lifted button must not record again, got %d lifts", len(te.lifts))
	}

	te.advance(time.Second)
	e.Release(2)
	if len(te.aggregate) != 1 || len(te.aggregate[0]) != 2 {
		t.Fatalf("expected aggregate with 2 results")
	}
}

func TestEngineIgnoresOutOfRangeIndices(t *testing.T) {
	te := newTestEngine(t, 2)
	e := te.engine

	// an out-of-range index must not count toward the rendezvous
	e.Press(1, 0, 0.5, 0.5)
	e.Press(9, 7, 0.5, 0.5)
	e.Press(10, -1, 0.5, 0.5)
	if te.allDown != 0 {
		t.Fatalf("rendezvous fired with an out-of-range index, allDown=%d", te.allDown)
	}
	if e.HeldCount() != 1 {
		t.Fatalf("expected 1 held button, got %d", e.HeldCount())
	}

	e.Press(2, 1, 0.5, 0.5)
	e.BeginCountdown()
	e.StartTracking()

	// a bogus press+release during tracking must not record a lift or
	// complete the turn in place of a real player's
	e.Press(11, 7, 0.5, 0.5)
	e.Release(11)
	if len(te.lifts) != 0 {
		t.Fatalf("bogus index recorded a lift: %+v", te.lifts)
	}

	te.advance(3 * time.Second)
	e.Release(1)
	if len(te.aggregate) != 0 {
		t.Fatal("aggregate fired before the second real lift")
	}
	te.advance(time.Second)
	e.Release(2)
	if len(te.aggregate) != 1 {
		t.Fatalf("expected aggregate once, got %d", len(te.aggregate))
	}
	results := te.aggregate[0]
	if len(results) != 2 || results[0].TouchID != 0 || results[1].TouchID != 1 {
		t.Fatalf("expected lifts for buttons 0 and 1, got %+v", results)
	}
}

func TestEngineTimeoutForcesCompletion(t *testing.T) {
	te := newTestEngine(t, 3)
	e := te.engine

	e.Press(1, 0, 0.5, 0.5)
	e.Press(2, 1, 0.5, 0.5)
	e.Press(3, 2, 0.5, 0.5)
	e.BeginCountdown()
	e.StartTracking()
	if te.timeout == nil {
		t.Fatal("safety timeout not armed")
	}

	te.advance(4 * time.Second)
	e.Release(2)

	te.advance(11 * time.Second)
	te.timeout() // ceiling reached with buttons 0 and 2 still held

	if len(te.aggregate) != 1 {
		t.Fatalf("expected aggregate after timeout, got %d", len(te.aggregate))
	}
	results := te.aggregate[0]
	if len(results) != 3 {
		t.Fatalf("expected 3 results including forced ones, got %d", len(results))
	}
	forced := results[1:]
	for _, r := range forced {
		if r.LiftTimeMs != MaxWaitMs {
			t.Fatalf("expected ceiling value %d for forced lift, got %v", MaxWaitMs, r.LiftTimeMs)
		}
	}
	if forced[0].TouchID != 0 || forced[1].TouchID != 2 {
		t.Fatalf("forced results not in index order: %+v", forced)
	}
	if e.Phase() != EngineDone {
		t.Fatalf("expected done after timeout, got %s", e.Phase())
	}

	// events after done are ignored
	e.Press(9, 0, 0.5, 0.5)
	e.Release(9)
	if len(te.aggregate) != 1 || len(te.lifts) != 3 {
		t.Fatal("engine accepted events after done")
	}
}

func TestEngineTimeoutAfterCompletionIsNoop(t *testing.T) {
	te := newTestEngine(t, 2)
	e := te.engine

	e.Press(1, 0, 0.5, 0.5)
	e.Press(2, 1, 0.5, 0.5)
	e.BeginCountdown()
	e.StartTracking()
	te.advance(2 * time.Second)
	e.Release(1)
	e.Release(2)

	if len(te.aggregate) != 1 {
		t.Fatalf("expected completion, got %d aggregates", len(te.aggregate))
	}
	te.timeout()
	if len(te.aggregate) != 1 {
		t.Fatal("timeout after completion must be a no-op")
	}
}

func TestEngineReset(t *testing.T) {
	te := newTestEngine(t, 2)
	e := te.engine

	e.InitPositions(2)
	e.Press(1, 0, 0.5, 0.5)
	e.Press(2, 1, 0.5, 0.5)
	e.BeginCountdown()
	e.StartTracking()
	e.Reset()

	if e.Phase() != EngineWaiting {
		t.Fatalf("expected waiting after reset, got %s", e.Phase())
	}
	if e.HeldCount() != 0 || e.LiftedCount() != 0 {
		t.Fatal("reset must clear held and lifted state")
	}
	if len(e.Positions()) != 0 {
		t.Fatal("reset must clear positions")
	}

	// a full cycle works again after reset
	e.Press(3, 0, 0.5, 0.5)
	e.Press(4, 1, 0.5, 0.5)
	if te.allDown != 2 {
		t.Fatalf("expected rendezvous after reset, got %d", te.allDown)
	}
}

func TestEngineDragClampAndFreeze(t *testing.T) {
	te := newTestEngine(t, 2)
	e := te.engine
	e.InitPositions(2)

	e.Press(1, 0, 0.5, 0.18)
	e.Move(1, -0.5, 1.7)
	pos := e.Positions()[0]
	if pos.X != posEdgeMargin || pos.Y != 1-posEdgeMargin {
		t.Fatalf("expected clamped position, got %+v", pos)
	}
	if te.moved != 1 {
		t.Fatalf("expected one position notification, got %d", te.moved)
	}

	// unheld pointer moves are ignored
	e.Move(99, 0.5, 0.5)
	if te.moved != 1 {
		t.Fatal("move for unknown pointer must be ignored")
	}

	// positions freeze once tracking begins
	e.Press(2, 1, 0.5, 0.82)
	e.BeginCountdown()
	e.StartTracking()
	e.Move(1, 0.4, 0.4)
	if got := e.Positions()[0]; got != pos {
		t.Fatalf("position changed during tracking: %+v", got)
	}
	if te.moved != 1 {
		t.Fatal("position notification fired during tracking")
	}
}

func TestEngineDragKeepsGrabOffset(t *testing.T) {
	te := newTestEngine(t, 2)
	e := te.engine
	e.InitPositions(2)

	// grab button 0 left of its center, drag: the button keeps the
	// same spot under the finger instead of snapping to it
	e.Press(1, 0, 0.4, 0.18)
	e.Move(1, 0.5, 0.5)
	pos := e.Positions()[0]
	if math.Abs(pos.X-0.6) > 1e-9 || math.Abs(pos.Y-0.5) > 1e-9 {
		t.Fatalf("expected button to keep grab offset, got %+v", pos)
	}

	// releasing forgets the offset, a new press re-grabs at its point
	e.Release(1)
	e.Press(2, 0, pos.X, pos.Y)
	e.Move(2, 0.3, 0.3)
	got := e.Positions()[0]
	if math.Abs(got.X-0.3) > 1e-9 || math.Abs(got.Y-0.3) > 1e-9 {
		t.Fatalf("expected button centered on new grab point, got %+v", got)
	}
}

func TestEngineInitPositionsWithinBounds(t *testing.T) {
	te := newTestEngine(t, 5)
	e := te.engine
	e.InitPositions(5)
	positions := e.Positions()
	if len(positions) != 5 {
		t.Fatalf("expected 5 positions, got %d", len(positions))
	}
	for i, p := range positions {
		if p.X < posEdgeMargin || p.X > 1-posEdgeMargin || p.Y < posEdgeMargin || p.Y > 1-posEdgeMargin {
			t.Fatalf("position %d out of bounds: %+v", i, p)
		}
	}
}
