package core

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/gametracker/internal/database"
)

// DBTX is the interface for database operations.
// Satisfied by pgx.Tx, *pgx.Conn and *session.Session.
type DBTX = database.DBTX

// Source column names. Matching is case-insensitive.
var (
	PlayerColumns = []string{"player_id", "username", "email", "registration_date", "country", "level"}
	ScoreColumns  = []string{"score_id", "player_id", "game", "score", "duration_minutes", "played_at", "platform"}
)

// Player is one cleaned player profile. Valid=false means NULL.
type Player struct {
	PlayerID         pgtype.Text
	Username         pgtype.Text
	Email            pgtype.Text
	RegistrationDate pgtype.Date
	Country          pgtype.Text
	Level            pgtype.Numeric
}

// Score is one cleaned game session.
type Score struct {
	ScoreID         pgtype.Text
	PlayerID        pgtype.Text
	Game            pgtype.Text
	Score           pgtype.Numeric
	DurationMinutes pgtype.Numeric
	PlayedAt        pgtype.Timestamp
	Platform        pgtype.Text
}

// PlayerIDSet is the set of player ids accepted by the current run.
type PlayerIDSet map[string]struct{}

// Contains reports whether id is in the set.
func (s PlayerIDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// PlayerResult is the outcome of CleanPlayers.
type PlayerResult struct {
	Players  []Player
	Retained int

	DuplicatesRemoved int // rows sharing an earlier row's player_id
	MissingIDs        int // rows without a player_id
	InvalidEmails     int // non-empty emails without '@', nulled
	InvalidDates      int // non-empty registration dates that did not parse, nulled
}

// AcceptedIDs returns the ids of the retained players. A player without an
// id contributes nothing.
func (r PlayerResult) AcceptedIDs() PlayerIDSet {
	ids := make(PlayerIDSet, len(r.Players))
	for _, p := range r.Players {
		if p.PlayerID.Valid {
			ids[p.PlayerID.String] = struct{}{}
		}
	}
	return ids
}

// ScoreResult is the outcome of CleanScores.
type ScoreResult struct {
	Scores   []Score
	Retained int
	Orphans  int // player_id not among the accepted players

	DuplicatesRemoved int
	MissingIDs        int // rows without a score_id
	NonPositive       int // score missing, unparseable or <= 0
	MissingPlayer     int // player_id missing
}

// LoadSummary reports what a pipeline run did.
type LoadSummary struct {
	RunID   string
	Players PlayerResult
	Scores  ScoreResult

	PlayersAffected int64
	ScoresAffected  int64
}
