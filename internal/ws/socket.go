package ws

import (
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/opinionatedgame/opinionated/internal/config"
	"github.com/opinionatedgame/opinionated/internal/game"
)

type ConnCtx struct {
	Code string
}

// Server bridges the shared-device client and the game core: pointer
// events flow into the touch engine, session transitions and engine
// events flow back out as socket events.
type Server struct {
	M      *game.Manager
	config config.Config

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
	engines map[string]*game.Engine             // sessionCode -> touch engine
}

func New(m *game.Manager, cfg config.Config) *Server {
	return &Server{
		M:       m,
		config:  cfg,
		members: make(map[string]map[string]socketio.Conn),
		engines: make(map[string]*game.Engine),
	}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// game:create
	io.OnEvent("/", "game:create", func(s socketio.Conn) map[string]any {
		sess := srv.M.CreateSession()
		s.SetContext(&ConnCtx{Code: sess.Code})
		s.Join(sess.Code)
		srv.addMember(sess.Code, s)
		log.Info().Str("sid", s.ID()).Str("code", sess.Code).Msg("game:create")
		srv.emitStateTo(sess.Code)
		return map[string]any{"sessionCode": sess.Code}
	})

	// game:join (reconnect of the shared device)
	io.OnEvent("/", "game:join", func(s socketio.Conn, payload struct {
		SessionCode string `json:"sessionCode"`
	}) map[string]any {
		sess, err := srv.M.Get(payload.SessionCode)
		if err != nil {
			return srv.err(s, "session_not_found", "Session not found")
		}
		s.SetContext(&ConnCtx{Code: sess.Code})
		s.Join(sess.Code)
		srv.addMember(sess.Code, s)
		log.Info().Str("sid", s.ID()).Str("code", sess.Code).Msg("game:join")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	// game:setup
	io.OnEvent("/", "game:setup", func(s socketio.Conn) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		sess.StartSetup()
		srv.dropEngine(sess.Code)
		log.Info().Str("code", sess.Code).Msg("game:setup")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	// game:players
	io.OnEvent("/", "game:players", func(s socketio.Conn, payload struct {
		Players []game.PlayerSpec `json:"players"`
	}) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.SetPlayers(payload.Players); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("code", sess.Code).Int("count", len(payload.Players)).Msg("game:players")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	// game:start
	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.Start(); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("code", sess.Code).Str("gameId", sess.GameID()).Msg("game:start")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	// turn:number (active player's secret rating)
	io.OnEvent("/", "turn:number", func(s socketio.Conn, payload struct {
		Number int `json:"number"`
	}) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.ChooseNumber(payload.Number); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		// not broadcast: the rating stays secret until scoring
		return map[string]any{"ok": true}
	})

	// turn:confirm
	io.OnEvent("/", "turn:confirm", func(s socketio.Conn) map[string]any {
		return srv.transition(s, "turn:confirm", func(sess *game.Session) error {
			return sess.ConfirmNumber()
		})
	})

	// turn:showScenario
	io.OnEvent("/", "turn:showScenario", func(s socketio.Conn) map[string]any {
		return srv.transition(s, "turn:showScenario", func(sess *game.Session) error {
			return sess.StartGuessing()
		})
	})

	// turn:touch enters the touch surface and arms a fresh engine
	io.OnEvent("/", "turn:touch", func(s socketio.Conn) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.StartTouchPhase(); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		engine := srv.armEngine(sess)
		log.Info().Str("code", sess.Code).Int("expected", engine.Expected()).Msg("turn:touch")
		srv.emitStateTo(sess.Code)
		srv.broadcast(sess.Code, "touch:positions", map[string]any{"positions": engine.Positions()})
		return map[string]any{"ok": true}
	})

	// pointer:down
	io.OnEvent("/", "pointer:down", func(s socketio.Conn, payload struct {
		PointerID   int64   `json:"pointerId"`
		ButtonIndex int     `json:"buttonIndex"`
		X           float64 `json:"x"`
		Y           float64 `json:"y"`
	}) {
		if engine, ok := srv.engineFor(s); ok {
			engine.Press(payload.PointerID, payload.ButtonIndex, payload.X, payload.Y)
			srv.emitHeld(s)
		}
	})

	// pointer:move (drag-to-reposition, normalized coordinates)
	io.OnEvent("/", "pointer:move", func(s socketio.Conn, payload struct {
		PointerID int64   `json:"pointerId"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
	}) {
		if engine, ok := srv.engineFor(s); ok {
			engine.Move(payload.PointerID, payload.X, payload.Y)
		}
	})

	// pointer:up and pointer:cancel are the same release path
	release := func(s socketio.Conn, payload struct {
		PointerID int64 `json:"pointerId"`
	}) {
		if engine, ok := srv.engineFor(s); ok {
			engine.Release(payload.PointerID)
			srv.emitHeld(s)
		}
	}
	io.OnEvent("/", "pointer:up", release)
	io.OnEvent("/", "pointer:cancel", release)

	// countdown:done, fired by the client that owns the 3-2-1-GO duration
	io.OnEvent("/", "countdown:done", func(s socketio.Conn) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.BeginTracking(); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		if engine, ok := srv.engineFor(s); ok {
			engine.StartTracking()
		}
		log.Info().Str("code", sess.Code).Msg("countdown:done, tracking")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	// result:claim / result:unclaim / result:confirm (manual fallback)
	io.OnEvent("/", "result:claim", func(s socketio.Conn, payload struct {
		PlayerID string `json:"playerId"`
		TouchID  int    `json:"touchId"`
	}) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.ClaimResult(payload.PlayerID, payload.TouchID); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		srv.broadcast(sess.Code, "result:assignments", map[string]any{"assignments": sess.Assignments()})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "result:unclaim", func(s socketio.Conn, payload struct {
		PlayerID string `json:"playerId"`
	}) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.UnclaimResult(payload.PlayerID); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		srv.broadcast(sess.Code, "result:assignments", map[string]any{"assignments": sess.Assignments()})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "result:confirm", func(s socketio.Conn) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.ConfirmAssignments(); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		srv.finishScoring(sess)
		return map[string]any{"ok": true}
	})

	// cube:place
	io.OnEvent("/", "cube:place", func(s socketio.Conn, payload struct {
		PlayerID string `json:"playerId"`
	}) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.PlaceCube(payload.PlayerID); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("code", sess.Code).Str("playerId", payload.PlayerID).Msg("cube:place")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	// turn:next
	io.OnEvent("/", "turn:next", func(s socketio.Conn) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		if err := sess.EndTurn(); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		srv.dropEngine(sess.Code)
		phase := sess.Phase()
		log.Info().Str("code", sess.Code).Str("phase", string(phase)).Msg("turn:next")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	// game:reset
	io.OnEvent("/", "game:reset", func(s socketio.Conn) map[string]any {
		sess, ok := srv.session(s)
		if !ok {
			return srv.err(s, "session_not_found", "Session not found")
		}
		sess.Reset()
		srv.dropEngine(sess.Code)
		log.Info().Str("code", sess.Code).Msg("game:reset")
		srv.emitStateTo(sess.Code)
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	return io
}

// transition runs a simple phase transition and broadcasts state.
func (srv *Server) transition(s socketio.Conn, name string, fn func(*game.Session) error) map[string]any {
	sess, ok := srv.session(s)
	if !ok {
		return srv.err(s, "session_not_found", "Session not found")
	}
	if err := fn(sess); err != nil {
		return srv.err(s, "bad_request", err.Error())
	}
	log.Info().Str("code", sess.Code).Str("phase", string(sess.Phase())).Msg(name)
	srv.emitStateTo(sess.Code)
	return map[string]any{"ok": true}
}

// armEngine creates a fresh touch engine for the session's turn and
// wires its events back into the session and out to the room.
func (srv *Server) armEngine(sess *game.Session) *game.Engine {
	code := sess.Code
	expected := sess.ExpectedFingerCount()

	var engine *game.Engine
	engine = game.NewEngine(expected, game.EngineCallbacks{
		OnAllFingersDown: func() {
			if err := sess.StartCountdown(); err != nil {
				log.Debug().Str("code", code).Err(err).Msg("countdown start rejected")
				return
			}
			engine.BeginCountdown()
			srv.broadcast(code, "touch:allDown", map[string]any{})
			srv.emitStateTo(code)
		},
		OnFingerLift: func(touchID int, liftTimeMs float64) {
			if err := sess.RecordFingerLift(touchID, liftTimeMs); err != nil {
				log.Debug().Str("code", code).Err(err).Msg("lift rejected")
			}
			srv.broadcast(code, "touch:lift", map[string]any{"touchId": touchID, "liftTimeMs": liftTimeMs})
		},
		OnAllFingersLifted: func(results []game.FingerResult) {
			if err := sess.CompleteTracking(results); err != nil {
				log.Debug().Str("code", code).Err(err).Msg("tracking completion rejected")
				return
			}
			srv.broadcast(code, "touch:done", map[string]any{"results": results})
			if sess.Phase() == game.PhaseScoring {
				srv.finishScoring(sess)
			} else {
				srv.emitStateTo(code)
			}
		},
		OnFingerLostDuringCountdown: func() {
			if err := sess.CancelCountdown(); err != nil {
				log.Debug().Str("code", code).Err(err).Msg("countdown cancel rejected")
			}
			srv.broadcast(code, "touch:lost", map[string]any{})
			srv.emitStateTo(code)
		},
		OnPositionChange: func(index int, pos game.Position) {
			srv.broadcast(code, "touch:position", map[string]any{"index": index, "position": pos})
		},
	})
	engine.InitPositions(expected)

	srv.mu.Lock()
	srv.engines[code] = engine
	srv.mu.Unlock()
	return engine
}

// finishScoring broadcasts results and hands the turn record to the
// persistence sink without waiting on it.
func (srv *Server) finishScoring(sess *game.Session) {
	code := sess.Code
	srv.dropEngine(code)
	srv.broadcast(code, "turn:results", map[string]any{
		"results":      sess.TurnResults(),
		"chosenNumber": sess.ChosenNumber(),
	})
	srv.emitStateTo(code)

	if srv.config.ExportEnabled {
		record, ok := sess.TurnRecordForExport()
		if !ok {
			return
		}
		go func() {
			if err := game.ExportTurn(sess, record, srv.config.ExportFile); err != nil {
				log.Error().Err(err).Str("code", code).Msg("failed to export turn")
			}
		}()
	}
}

func (srv *Server) session(s socketio.Conn) (*game.Session, bool) {
	ctx, ok := s.Context().(*ConnCtx)
	if !ok || ctx.Code == "" {
		return nil, false
	}
	sess, err := srv.M.Get(ctx.Code)
	if err != nil {
		return nil, false
	}
	return sess, true
}

func (srv *Server) engineFor(s socketio.Conn) (*game.Engine, bool) {
	ctx, ok := s.Context().(*ConnCtx)
	if !ok || ctx.Code == "" {
		return nil, false
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	engine, ok := srv.engines[ctx.Code]
	return engine, ok
}

func (srv *Server) dropEngine(code string) {
	srv.mu.Lock()
	engine := srv.engines[code]
	delete(srv.engines, code)
	srv.mu.Unlock()
	if engine != nil {
		engine.Reset()
	}
}

func (srv *Server) emitHeld(s socketio.Conn) {
	ctx, ok := s.Context().(*ConnCtx)
	if !ok || ctx.Code == "" {
		return
	}
	if engine, found := srv.engineFor(s); found {
		srv.broadcast(ctx.Code, "touch:held", map[string]any{
			"held":     engine.HeldCount(),
			"expected": engine.Expected(),
		})
	}
}

func (srv *Server) addMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
	}
}

func (srv *Server) broadcast(code, event string, payload map[string]any) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[code]))
	for _, c := range srv.members[code] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		c.Emit(event, payload)
	}
}

func (srv *Server) emitStateTo(code string) {
	sess, err := srv.M.Get(code)
	if err != nil {
		return
	}
	scenario, _ := sess.CurrentScenario()
	payload := map[string]any{
		"phase":             string(sess.Phase()),
		"players":           sess.Players(),
		"round":             sess.Round(),
		"activePlayerIndex": sess.ActivePlayerIndex(),
		"scenario":          scenario,
		"numberChosen":      sess.ChosenNumber() != 0,
		"expectedFingers":   sess.ExpectedFingerCount(),
		"sessionCode":       code,
	}
	if sess.Phase() == game.PhaseScoring || sess.Phase() == game.PhaseGameOver {
		payload["chosenNumber"] = sess.ChosenNumber()
		payload["turnResults"] = sess.TurnResults()
	}
	if winner, ok := sess.Winner(); ok {
		payload["winner"] = winner
	}
	srv.broadcast(code, "game:state", payload)
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}
