package game

import (
	"testing"
)

func TestCalculateScoresExactMatchAndSides(t *testing.T) {
	inputs := []ScoringInput{
		{PlayerID: "A", PlayerName: "Alice", LiftTimeMs: 3000, TargetTimeMs: 5000},
		{PlayerID: "B", PlayerName: "Bob", LiftTimeMs: 5000, TargetTimeMs: 5000},
		{PlayerID: "C", PlayerName: "Charlie", LiftTimeMs: 9000, TargetTimeMs: 5000},
	}

	results := CalculateScores(inputs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byPlayer := make(map[string]TurnResult)
	for _, r := range results {
		byPlayer[r.PlayerID] = r
	}

	// B hit the target exactly: 3 points
	if byPlayer["B"].PointsEarned != 3 {
		t.Fatalf("expected B to earn 3 points, got %d", byPlayer["B"].PointsEarned)
	}
	// A is 2000ms off but on the correct side (both <= 5000): 1 point
	if byPlayer["A"].PointsEarned != 1 {
		t.Fatalf("expected A to earn 1 point, got %d", byPlayer["A"].PointsEarned)
	}
	// C is 4000ms off and on the wrong side: 0 points
	if byPlayer["C"].PointsEarned != 0 {
		t.Fatalf("expected C to earn 0 points, got %d", byPlayer["C"].PointsEarned)
	}
}

func TestCalculateScoresTiedClosest(t *testing.T) {
	inputs := []ScoringInput{
		{PlayerID: "A", LiftTimeMs: 4600, TargetTimeMs: 5000},
		{PlayerID: "B", LiftTimeMs: 5400, TargetTimeMs: 5000},
	}

	results := CalculateScores(inputs)
	for _, r := range results {
		if r.AbsDeltaMs != 400 {
			t.Fatalf("expected abs delta 400 for %s, got %v", r.PlayerID, r.AbsDeltaMs)
		}
		if r.PointsEarned != 3 {
			t.Fatalf("expected %s to earn 3 points on a tie, got %d", r.PlayerID, r.PointsEarned)
		}
	}
}

func TestCalculateScoresWithin500ms(t *testing.T) {
	inputs := []ScoringInput{
		{PlayerID: "A", LiftTimeMs: 7000, TargetTimeMs: 7000},
		{PlayerID: "B", LiftTimeMs: 7400, TargetTimeMs: 7000},
		{PlayerID: "C", LiftTimeMs: 7800, TargetTimeMs: 7000},
	}

	results := CalculateScores(inputs)
	byPlayer := make(map[string]int)
	for _, r := range results {
		byPlayer[r.PlayerID] = r.PointsEarned
	}
	if byPlayer["A"] != 3 {
		t.Fatalf("expected A to earn 3, got %d", byPlayer["A"])
	}
	if byPlayer["B"] != 2 {
		t.Fatalf("expected B to earn 2 (within 500ms), got %d", byPlayer["B"])
	}
	// C is 800ms off but both lift and target are on the high side
	if byPlayer["C"] != 1 {
		t.Fatalf("expected C to earn 1 (correct side), got %d", byPlayer["C"])
	}
}

func TestCalculateScoresOrderedByDelta(t *testing.T) {
	inputs := []ScoringInput{
		{PlayerID: "far", LiftTimeMs: 9000, TargetTimeMs: 4000},
		{PlayerID: "near", LiftTimeMs: 4100, TargetTimeMs: 4000},
		{PlayerID: "mid", LiftTimeMs: 5000, TargetTimeMs: 4000},
	}

	results := CalculateScores(inputs)
	order := []string{results[0].PlayerID, results[1].PlayerID, results[2].PlayerID}
	want := []string{"near", "mid", "far"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected result order %v, got %v", want, order)
		}
	}
}

func TestCalculateScoresCeilingValue(t *testing.T) {
	// A timed-out stream is recorded at the ceiling and scored normally.
	inputs := []ScoringInput{
		{PlayerID: "A", LiftTimeMs: 8000, TargetTimeMs: 8000},
		{PlayerID: "B", LiftTimeMs: MaxWaitMs, TargetTimeMs: 8000},
	}
	results := CalculateScores(inputs)
	byPlayer := make(map[string]int)
	for _, r := range results {
		byPlayer[r.PlayerID] = r.PointsEarned
	}
	// 7000ms off, but both on the high side
	if byPlayer["B"] != 1 {
		t.Fatalf("expected timed-out B to earn 1, got %d", byPlayer["B"])
	}
}

func TestCalculateScoresEmptyInput(t *testing.T) {
	results := CalculateScores(nil)
	if len(results) != 0 {
		t.Fatalf("expected empty results for empty input, got %d", len(results))
	}
}

func TestCanPlaceCube(t *testing.T) {
	if !CanPlaceCube(3, 2) {
		t.Fatal("player with 3 cubes and points should be able to place")
	}
	if CanPlaceCube(4, 2) {
		t.Fatal("player with 4 cubes should not place another")
	}
	if CanPlaceCube(0, 0) {
		t.Fatal("player with no points should not place")
	}
}

func TestNextActivePlayerIndexRotation(t *testing.T) {
	// counter-clockwise for 4 players starting at 0
	want := []int{3, 2, 1, 0, 3}
	idx := 0
	for i, w := range want {
		idx = NextActivePlayerIndex(idx, 4)
		if idx != w {
			t.Fatalf("rotation step %d: expected %d, got %d", i, w, idx)
		}
	}
}

func TestAutoMapFingerResults(t *testing.T) {
	players := []*Player{
		{ID: "p0", Name: "Zero", SeatOrder: 0},
		{ID: "p1", Name: "One", SeatOrder: 1},
		{ID: "p2", Name: "Two", SeatOrder: 2},
	}
	results := []FingerResult{
		{TouchID: 1, LiftTimeMs: 4000},
		{TouchID: 0, LiftTimeMs: 6000},
	}

	// active player is seat 1, so guessing players are p0 (touch 0) and p2 (touch 1)
	inputs := AutoMapFingerResults(results, players, 1, 5)
	if len(inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(inputs))
	}
	if inputs[0].PlayerID != "p2" || inputs[0].LiftTimeMs != 4000 {
		t.Fatalf("expected touch 1 to map to p2, got %+v", inputs[0])
	}
	if inputs[1].PlayerID != "p0" || inputs[1].LiftTimeMs != 6000 {
		t.Fatalf("expected touch 0 to map to p0, got %+v", inputs[1])
	}
	if inputs[0].TargetTimeMs != 5000 {
		t.Fatalf("expected target 5000ms, got %v", inputs[0].TargetTimeMs)
	}
}

func TestMapAssignmentsToScoring(t *testing.T) {
	players := []*Player{
		{ID: "p0", Name: "Zero"},
		{ID: "p1", Name: "One"},
	}
	assignments := map[string]FingerResult{
		"p1": {TouchID: 0, LiftTimeMs: 3200},
	}
	inputs := MapAssignmentsToScoring(assignments, players, 3)
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}
	if inputs[0].PlayerID != "p1" || inputs[0].TargetTimeMs != 3000 {
		t.Fatalf("unexpected mapping: %+v", inputs[0])
	}
}
