package game

import (
	"math/rand"
	"sync"
	"time"
)

// Manager holds the sessions known to this server. The companion runs on
// one shared device, so in single-session mode the most recently created
// session is the active one.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	active    string
	scenarios []Scenario
}

// NewManager creates a manager whose sessions draw from the given
// scenario pool.
func NewManager(scenarios []Scenario) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		scenarios: scenarios,
	}
}

// CreateSession registers a new session and makes it active.
func (m *Manager) CreateSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := randomCode(5)
	for m.sessions[code] != nil {
		code = randomCode(5)
	}
	s := newSession(code, m.scenarios, rand.New(rand.NewSource(time.Now().UnixNano())))
	m.sessions[code] = s
	m.active = code
	return s
}

// Get returns a session by code.
func (m *Manager) Get(code string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[code]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Active returns the active session code and session, if any.
func (m *Manager) Active() (string, *Session) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return "", nil
	}
	return m.active, m.sessions[m.active]
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// Accessor snapshots. Callers never see the session's internal slices.

// Phase returns the current game phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// GameID returns the id assigned when the game started.
func (s *Session) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

// Players returns a copy of the seats in order.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	return out
}

// Round returns the current round number.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRound
}

// ActivePlayerIndex returns the seat index of the rating player.
func (s *Session) ActivePlayerIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePlayerIndex
}

// CurrentScenario returns the scenario in play, if any.
func (s *Session) CurrentScenario() (Scenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentScenario == nil {
		return Scenario{}, false
	}
	return *s.currentScenario, true
}

// ChosenNumber returns the active player's rating, 0 when not chosen.
func (s *Session) ChosenNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chosenNumber
}

// ExpectedFingerCount returns the guessing-player count for the turn.
func (s *Session) ExpectedFingerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expectedFingers
}

// TurnResults returns this turn's scored results, closest first.
func (s *Session) TurnResults() []TurnResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TurnResult(nil), s.turnResults...)
}

// FingerResults returns the raw lifts recorded this turn.
func (s *Session) FingerResults() []FingerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FingerResult(nil), s.fingerResults...)
}

// Assignments returns the manual-claim state: playerID -> claimed result.
func (s *Session) Assignments() map[string]FingerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]FingerResult, len(s.assignments))
	for k, v := range s.assignments {
		out[k] = v
	}
	return out
}

// Winner returns the winning player once the game is over.
func (s *Session) Winner() (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winnerID == "" {
		return Player{}, false
	}
	for _, p := range s.players {
		if p.ID == s.winnerID {
			return *p, true
		}
	}
	return Player{}, false
}
