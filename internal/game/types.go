package game

// Phase is the authoritative game phase. Transitions are driven by the
// session in session.go; events arriving in a phase that cannot accept
// them leave the state unchanged.
type Phase string

const (
	PhaseHome               Phase = "home"
	PhaseSetup              Phase = "setup"
	PhaseActivePlayerRating Phase = "activePlayerRating"
	PhaseActivePlayerReady  Phase = "activePlayerReady"
	PhaseGuessingDisplay    Phase = "guessingDisplay"
	PhaseTouchWaiting       Phase = "touchWaiting"
	PhaseCountdown          Phase = "countdown"
	PhaseFingerTracking     Phase = "fingerTracking"
	PhaseResultAssignment   Phase = "resultAssignment"
	PhaseScoring            Phase = "scoring"
	PhaseGameOver           Phase = "gameOver"
)

// Player is one seat at the table. Identity fields are fixed at setup;
// Score and CubesPlaced are mutated only by the session's cube placement.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       Color  `json:"color"`
	SeatOrder   int    `json:"seatOrder"`
	Score       int    `json:"score"`
	CubesPlaced int    `json:"cubesPlaced"` // 0-4, wins at 4
}

// Scenario is one prompt the active player rates 1-10.
type Scenario struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// FingerResult is one recorded lift during the tracking phase. TouchID is
// the zero-based index of the stream among the guessing players, in seat
// order with the active player skipped.
type FingerResult struct {
	TouchID    int     `json:"touchId"`
	LiftTimeMs float64 `json:"liftTimeMs"`
}

// TurnResult is one guessing player's scored outcome for a turn.
type TurnResult struct {
	PlayerID     string  `json:"playerId"`
	PlayerName   string  `json:"playerName"`
	PlayerColor  Color   `json:"playerColor"`
	LiftTimeMs   float64 `json:"liftTimeMs"`
	TargetTimeMs float64 `json:"targetTimeMs"`
	DeltaMs      float64 `json:"deltaMs"`
	AbsDeltaMs   float64 `json:"absDeltaMs"`
	PointsEarned int     `json:"pointsEarned"`
}

// TurnRecord is the payload handed to the persistence sink after a turn
// has been scored. The sink is fire-and-forget; see export.go.
type TurnRecord struct {
	Round        int          `json:"round"`
	ActivePlayer string       `json:"activePlayer"`
	ScenarioID   string       `json:"scenarioId"`
	ScenarioText string       `json:"scenarioText"`
	ChosenNumber int          `json:"chosenNumber"`
	Results      []TurnResult `json:"results"`
}
