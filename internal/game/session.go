package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidPhase     = errors.New("invalid phase for action")
	ErrInvalidNumber    = errors.New("number must be between 1 and 10")
	ErrInvalidPlayers   = errors.New("need 2-8 players with unique colors")
	ErrNoScenario       = errors.New("no scenario available")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrCubeNotAllowed   = errors.New("cube placement not allowed")
	ErrResultClaimed    = errors.New("result already claimed")
	ErrPlayerClaimed    = errors.New("player already claimed a result")
	ErrUnclaimedResults = errors.New("not every player has claimed a result")
	ErrNumberNotChosen  = errors.New("no number chosen")
)

// PlayerSpec is the setup-time description of one seat.
type PlayerSpec struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// Session is the authoritative state for one game on one shared device.
// All mutation goes through phase-guarded methods; an event arriving in
// a phase that cannot accept it returns an error and leaves the state
// untouched.
type Session struct {
	Code      string
	CreatedAt time.Time

	mu sync.Mutex

	gameID            string
	phase             Phase
	players           []*Player
	scenarios         []Scenario
	used              map[string]struct{}
	currentRound      int
	activePlayerIndex int
	currentScenario   *Scenario
	chosenNumber      int // 0 = not chosen
	turnResults       []TurnResult
	fingerResults     []FingerResult
	countdownStart    time.Time
	expectedFingers   int
	assignments       map[string]FingerResult // playerID -> claimed result
	placedThisTurn    map[string]struct{}
	winnerID          string

	rng *rand.Rand
}

func newSession(code string, scenarios []Scenario, rng *rand.Rand) *Session {
	return &Session{
		Code:      code,
		CreatedAt: time.Now().UTC(),
		phase:     PhaseHome,
		scenarios: scenarios,
		used:      make(map[string]struct{}),
		rng:       rng,
	}
}

// StartSetup begins a new game, keeping the loaded scenario pool but
// clearing everything else.
func (s *Session) StartSetup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.phase = PhaseSetup
}

// SetPlayers fixes the seat order for the game. Requires 2-8 players
// with distinct palette colors.
func (s *Session) SetPlayers(specs []PlayerSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSetup {
		return ErrInvalidPhase
	}
	if len(specs) < 2 || len(specs) > len(ColorOrder) {
		return ErrInvalidPlayers
	}
	seen := make(map[Color]struct{}, len(specs))
	players := make([]*Player, 0, len(specs))
	for i, spec := range specs {
		if spec.Name == "" || !spec.Color.Valid() {
			return ErrInvalidPlayers
		}
		if _, dup := seen[spec.Color]; dup {
			return ErrInvalidPlayers
		}
		seen[spec.Color] = struct{}{}
		players = append(players, &Player{
			ID:        uuid.NewString(),
			Name:      spec.Name,
			Color:     spec.Color,
			SeatOrder: i,
		})
	}
	s.players = players
	return nil
}

// Start leaves setup and begins the first turn.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSetup {
		return ErrInvalidPhase
	}
	if len(s.players) < 2 {
		return ErrInvalidPlayers
	}
	s.gameID = uuid.NewString()
	return s.beginTurnLocked()
}

// beginTurnLocked selects an unused scenario, advances the round counter
// and resets all per-turn fields.
func (s *Session) beginTurnLocked() error {
	scenario, ok := pickScenario(s.rng, s.scenarios, s.used)
	if !ok {
		return ErrNoScenario
	}
	s.used[scenario.ID] = struct{}{}
	s.currentRound++
	s.currentScenario = &scenario
	s.chosenNumber = 0
	s.turnResults = nil
	s.fingerResults = nil
	s.countdownStart = time.Time{}
	s.assignments = make(map[string]FingerResult)
	s.placedThisTurn = make(map[string]struct{})
	s.expectedFingers = len(s.players) - 1
	s.phase = PhaseActivePlayerRating
	return nil
}

// ChooseNumber records the active player's secret rating. It does not
// advance the phase; the active player confirms separately.
func (s *Session) ChooseNumber(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActivePlayerRating {
		return ErrInvalidPhase
	}
	if n < 1 || n > 10 {
		return ErrInvalidNumber
	}
	s.chosenNumber = n
	return nil
}

// ConfirmNumber advances to the ready screen once a number is chosen.
func (s *Session) ConfirmNumber() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActivePlayerRating || s.chosenNumber == 0 {
		return ErrInvalidPhase
	}
	s.phase = PhaseActivePlayerReady
	return nil
}

// StartGuessing shows the scenario to the guessing players.
func (s *Session) StartGuessing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActivePlayerReady {
		return ErrInvalidPhase
	}
	s.phase = PhaseGuessingDisplay
	return nil
}

// StartTouchPhase moves to the shared touch surface where every guessing
// player holds a button.
func (s *Session) StartTouchPhase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseGuessingDisplay {
		return ErrInvalidPhase
	}
	s.phase = PhaseTouchWaiting
	return nil
}

// StartCountdown is driven by the engine's rendezvous: all expected
// buttons are held.
func (s *Session) StartCountdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseTouchWaiting {
		return ErrInvalidPhase
	}
	s.phase = PhaseCountdown
	s.countdownStart = time.Now()
	return nil
}

// CancelCountdown handles a finger lost during the countdown; the touch
// surface goes back to waiting for a full set of presses.
func (s *Session) CancelCountdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCountdown {
		return ErrInvalidPhase
	}
	s.phase = PhaseTouchWaiting
	s.countdownStart = time.Time{}
	return nil
}

// BeginTracking marks the end of the visual countdown; lift times are
// now being measured.
func (s *Session) BeginTracking() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCountdown {
		return ErrInvalidPhase
	}
	s.phase = PhaseFingerTracking
	return nil
}

// RecordFingerLift stores one lift as it is reported by the engine.
func (s *Session) RecordFingerLift(touchID int, liftTimeMs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseFingerTracking {
		return ErrInvalidPhase
	}
	if len(s.fingerResults) >= s.expectedFingers {
		return nil
	}
	s.fingerResults = append(s.fingerResults, FingerResult{TouchID: touchID, LiftTimeMs: liftTimeMs})
	return nil
}

// CompleteTracking consumes the engine's aggregate result. With a chosen
// number present each result maps to the guessing player at its button
// index and scoring runs immediately; without one the anonymous results
// fall back to the manual claim flow.
func (s *Session) CompleteTracking(results []FingerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseFingerTracking {
		return ErrInvalidPhase
	}
	s.fingerResults = append([]FingerResult(nil), results...)
	if s.chosenNumber == 0 {
		s.phase = PhaseResultAssignment
		return nil
	}
	inputs := AutoMapFingerResults(results, s.players, s.activePlayerIndex, s.chosenNumber)
	s.turnResults = CalculateScores(inputs)
	s.phase = PhaseScoring
	return nil
}

// ClaimResult assigns an anonymous timing result to a player during the
// manual assignment fallback. Each result can be claimed by exactly one
// player and vice versa.
func (s *Session) ClaimResult(playerID string, touchID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResultAssignment {
		return ErrInvalidPhase
	}
	idx := s.playerIndexLocked(playerID)
	if idx < 0 || idx == s.activePlayerIndex {
		return ErrUnknownPlayer
	}
	if _, ok := s.assignments[playerID]; ok {
		return ErrPlayerClaimed
	}
	var claimed *FingerResult
	for i := range s.fingerResults {
		if s.fingerResults[i].TouchID == touchID {
			claimed = &s.fingerResults[i]
			break
		}
	}
	if claimed == nil {
		return ErrUnknownPlayer
	}
	for _, r := range s.assignments {
		if r.TouchID == touchID {
			return ErrResultClaimed
		}
	}
	s.assignments[playerID] = *claimed
	return nil
}

// UnclaimResult releases a player's claim so it can be corrected.
func (s *Session) UnclaimResult(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResultAssignment {
		return ErrInvalidPhase
	}
	delete(s.assignments, playerID)
	return nil
}

// ConfirmAssignments completes the manual flow once every guessing
// player holds exactly one claimed result, then runs scoring.
func (s *Session) ConfirmAssignments() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResultAssignment {
		return ErrInvalidPhase
	}
	if len(s.assignments) != s.expectedFingers {
		return ErrUnclaimedResults
	}
	if s.chosenNumber == 0 {
		return ErrNumberNotChosen
	}
	inputs := MapAssignmentsToScoring(s.assignments, s.players, s.chosenNumber)
	s.turnResults = CalculateScores(inputs)
	s.phase = PhaseScoring
	return nil
}

// PlaceCube converts a player's points from this turn into a cube, at
// most once per player per turn and only while they hold fewer than
// four. Points not converted are lost when the turn ends.
func (s *Session) PlaceCube(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseScoring {
		return ErrInvalidPhase
	}
	idx := s.playerIndexLocked(playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	if _, done := s.placedThisTurn[playerID]; done {
		return ErrCubeNotAllowed
	}
	var result *TurnResult
	for i := range s.turnResults {
		if s.turnResults[i].PlayerID == playerID {
			result = &s.turnResults[i]
			break
		}
	}
	if result == nil || !CanPlaceCube(s.players[idx].CubesPlaced, result.PointsEarned) {
		return ErrCubeNotAllowed
	}
	s.players[idx].CubesPlaced++
	s.players[idx].Score += result.PointsEarned
	s.placedThisTurn[playerID] = struct{}{}
	return nil
}

// EndTurn finishes scoring. Any player with four cubes ends the game
// immediately; otherwise the active player rotates counter-clockwise
// and the next turn begins.
func (s *Session) EndTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseScoring {
		return ErrInvalidPhase
	}
	if winner := CheckWinner(s.players); winner != nil {
		s.winnerID = winner.ID
		s.phase = PhaseGameOver
		return nil
	}
	s.activePlayerIndex = NextActivePlayerIndex(s.activePlayerIndex, len(s.players))
	return s.beginTurnLocked()
}

// Reset restores the session to its initial state, keeping only the
// loaded scenario pool.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.gameID = ""
	s.phase = PhaseHome
	s.players = nil
	s.used = make(map[string]struct{})
	s.currentRound = 0
	s.activePlayerIndex = 0
	s.currentScenario = nil
	s.chosenNumber = 0
	s.turnResults = nil
	s.fingerResults = nil
	s.countdownStart = time.Time{}
	s.expectedFingers = 0
	s.assignments = make(map[string]FingerResult)
	s.placedThisTurn = make(map[string]struct{})
	s.winnerID = ""
}

func (s *Session) playerIndexLocked(playerID string) int {
	for i, p := range s.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// TurnRecordForExport builds the fire-and-forget persistence payload for
// the just-scored turn.
func (s *Session) TurnRecordForExport() (TurnRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.turnResults) == 0 || s.currentScenario == nil {
		return TurnRecord{}, false
	}
	active := ""
	if s.activePlayerIndex >= 0 && s.activePlayerIndex < len(s.players) {
		active = s.players[s.activePlayerIndex].Name
	}
	return TurnRecord{
		Round:        s.currentRound,
		ActivePlayer: active,
		ScenarioID:   s.currentScenario.ID,
		ScenarioText: s.currentScenario.Text,
		ChosenNumber: s.chosenNumber,
		Results:      append([]TurnResult(nil), s.turnResults...),
	}, true
}
