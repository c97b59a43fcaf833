package game

import (
	"math"
	"sort"
)

// ScoringInput is one guessing player's timing for a turn.
type ScoringInput struct {
	PlayerID     string
	PlayerName   string
	PlayerColor  Color
	LiftTimeMs   float64
	TargetTimeMs float64
}

// CalculateScores converts lift timings into ranked point awards:
//   - closest to the target time: 3 points (all ties at the minimum)
//   - within 500ms of the target: 2 points
//   - correct side (1-5 vs 6-10): 1 point
//   - everyone else: 0 points
//
// Results are ordered by ascending absolute delta, ties keeping input
// order. An empty input yields an empty result.
func CalculateScores(inputs []ScoringInput) []TurnResult {
	results := make([]TurnResult, 0, len(inputs))
	for _, in := range inputs {
		delta := in.LiftTimeMs - in.TargetTimeMs
		results = append(results, TurnResult{
			PlayerID:     in.PlayerID,
			PlayerName:   in.PlayerName,
			PlayerColor:  in.PlayerColor,
			LiftTimeMs:   in.LiftTimeMs,
			TargetTimeMs: in.TargetTimeMs,
			DeltaMs:      delta,
			AbsDeltaMs:   math.Abs(delta),
		})
	}
	if len(results) == 0 {
		return results
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AbsDeltaMs < results[j].AbsDeltaMs
	})
	closest := results[0].AbsDeltaMs

	for i := range results {
		r := &results[i]
		switch {
		case math.Abs(r.AbsDeltaMs-closest) < 1:
			r.PointsEarned = 3
		case r.AbsDeltaMs <= 500:
			r.PointsEarned = 2
		case sideOf(r.TargetTimeMs) == sideOf(r.LiftTimeMs):
			r.PointsEarned = 1
		default:
			r.PointsEarned = 0
		}
	}
	return results
}

// sideOf splits the 1-10 range at 5 seconds: lifts and targets at or
// under 5000ms are "low", everything above is "high".
func sideOf(ms float64) string {
	if ms <= 5000 {
		return "low"
	}
	return "high"
}

// CanPlaceCube reports whether a player may convert this turn's points
// into a cube placement.
func CanPlaceCube(cubesPlaced, pointsEarned int) bool {
	return pointsEarned > 0 && cubesPlaced < 4
}

// CheckWinner returns the first player holding all four cubes, or nil.
func CheckWinner(players []*Player) *Player {
	for _, p := range players {
		if p.CubesPlaced >= 4 {
			return p
		}
	}
	return nil
}

// NextActivePlayerIndex rotates the active player counter-clockwise.
func NextActivePlayerIndex(current, playerCount int) int {
	return (current - 1 + playerCount) % playerCount
}

// GuessingPlayers returns every player except the active one, preserving
// seat order. FingerResult.TouchID indexes into this slice.
func GuessingPlayers(players []*Player, activeIndex int) []*Player {
	out := make([]*Player, 0, len(players))
	for i, p := range players {
		if i != activeIndex {
			out = append(out, p)
		}
	}
	return out
}

// AutoMapFingerResults maps recorded lifts onto the guessing players by
// button index. Results with an out-of-range TouchID are skipped; the
// host assigns one button per guessing player so this only happens on a
// malformed event.
func AutoMapFingerResults(results []FingerResult, players []*Player, activeIndex, chosenNumber int) []ScoringInput {
	guessing := GuessingPlayers(players, activeIndex)
	target := float64(chosenNumber) * 1000

	inputs := make([]ScoringInput, 0, len(results))
	for _, r := range results {
		if r.TouchID < 0 || r.TouchID >= len(guessing) {
			continue
		}
		p := guessing[r.TouchID]
		inputs = append(inputs, ScoringInput{
			PlayerID:     p.ID,
			PlayerName:   p.Name,
			PlayerColor:  p.Color,
			LiftTimeMs:   r.LiftTimeMs,
			TargetTimeMs: target,
		})
	}
	return inputs
}

// MapAssignmentsToScoring converts manually claimed results (playerID ->
// FingerResult) into scoring inputs. Used by the fallback assignment
// path when lifts could not be auto-mapped.
func MapAssignmentsToScoring(assignments map[string]FingerResult, players []*Player, chosenNumber int) []ScoringInput {
	target := float64(chosenNumber) * 1000

	inputs := make([]ScoringInput, 0, len(assignments))
	for _, p := range players {
		r, ok := assignments[p.ID]
		if !ok {
			continue
		}
		inputs = append(inputs, ScoringInput{
			PlayerID:     p.ID,
			PlayerName:   p.Name,
			PlayerColor:  p.Color,
			LiftTimeMs:   r.LiftTimeMs,
			TargetTimeMs: target,
		})
	}
	return inputs
}
