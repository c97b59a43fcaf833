package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportTurn appends one scored turn to a plain-text results file. The
// caller invokes this fire-and-forget after scoring; a failure here must
// never affect the in-memory game.
func ExportTurn(s *Session, record TurnRecord, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder

	if !fileExists || record.Round == 1 {
		if fileExists {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("Opinionated Game Results - Session %s\n", s.Code))
		sb.WriteString(fmt.Sprintf("Started: %s\n", time.Now().Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")

		sb.WriteString("Players:\n")
		for _, p := range s.Players() {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", p.Name, p.Color))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Round %d: %q (rated by %s: %d)\n",
		record.Round, record.ScenarioText, record.ActivePlayer, record.ChosenNumber))
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	for _, r := range record.Results {
		sb.WriteString(fmt.Sprintf("- %s: lifted at %.0fms (target %.0fms, off by %.0fms) -> %d point(s)\n",
			r.PlayerName, r.LiftTimeMs, r.TargetTimeMs, r.AbsDeltaMs, r.PointsEarned))
	}

	sb.WriteString("\nStandings after this round:\n")
	players := s.Players()
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			if players[j].Score > players[i].Score {
				players[i], players[j] = players[j], players[i]
			}
		}
	}
	for _, p := range players {
		sb.WriteString(fmt.Sprintf("- %s: %d points, %d cube(s)\n", p.Name, p.Score, p.CubesPlaced))
	}
	sb.WriteString("\n")

	if winner, ok := s.Winner(); ok {
		sb.WriteString(fmt.Sprintf("Game won by %s at %s\n", winner.Name, time.Now().Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n")
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}
