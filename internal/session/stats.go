package session

import (
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/game"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/match"
)

// Summary is the record kept for each finished game of a session.
type Summary struct {
	GameNumber      int          `json:"game_number"`
	Winner          game.Result  `json:"winner"`
	DurationSeconds int          `json:"duration_seconds"`
	MoveCount       int          `json:"move_count"`
	Reason          match.Reason `json:"reason"`
	MatchID         string       `json:"match_id"`
}

// Aggregate counts wins per side and draws.
type Aggregate struct {
	X    int `json:"x"`
	O    int `json:"o"`
	Draw int `json:"draw"`
}

// Stats is the session view handed to collaborators.
type Stats struct {
	SessionID       string      `json:"session_id"`
	MaxGames        int         `json:"max_games"`
	GamesPlayed     int         `json:"games_played"`
	Aggregate       Aggregate   `json:"aggregate"`
	History         []Summary   `json:"history"`
	FastestWin      *Summary    `json:"fastest_win,omitempty"`
	LongestGame     *Summary    `json:"longest_game,omitempty"`
	AverageDuration float64     `json:"average_duration"`
	TotalMoves      int         `json:"total_moves"`
	Finished        bool        `json:"finished"`
	Stopped         bool        `json:"stopped"`
	Overall         game.Result `json:"overall,omitempty"`
}

// computeStats derives every aggregate from the history. Fastest win only
// counts decisive games; ties keep the earlier game.
func computeStats(id string, maxGames int, history []Summary) Stats {
	st := Stats{
		SessionID:   id,
		MaxGames:    maxGames,
		GamesPlayed: len(history),
		History:     append([]Summary(nil), history...),
	}
	total := 0
	for i := range st.History {
		g := &st.History[i]
		switch g.Winner {
		case game.WinX:
			st.Aggregate.X++
		case game.WinO:
			st.Aggregate.O++
		default:
			st.Aggregate.Draw++
		}
		total += g.DurationSeconds
		st.TotalMoves += g.MoveCount
		if g.Winner != game.Draw && (st.FastestWin == nil || g.DurationSeconds < st.FastestWin.DurationSeconds) {
			st.FastestWin = g
		}
		if st.LongestGame == nil || g.DurationSeconds > st.LongestGame.DurationSeconds {
			st.LongestGame = g
		}
	}
	if n := len(st.History); n > 0 {
		st.AverageDuration = float64(total) / float64(n)
	}
	return st
}

// overallWinner is whichever side won strictly more games, otherwise a draw.
func overallWinner(a Aggregate) game.Result {
	switch {
	case a.X > a.O:
		return game.WinX
	case a.O > a.X:
		return game.WinO
	default:
		return game.Draw
	}
}
