package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/gametracker/internal/database"
	"github.com/JonMunkholm/gametracker/internal/logging"
)

// DefaultCopyThreshold is the batch size from which rows are loaded with
// COPY into a staging table instead of a single unnest statement.
const DefaultCopyThreshold = 1000

// Upserter writes cleaned entities. It never opens a transaction of its own;
// atomicity comes from the DBTX it is given.
type Upserter struct {
	// CopyThreshold selects the COPY path for batches of at least this many
	// rows. Zero or less disables it.
	CopyThreshold int
}

// UpsertPlayers inserts new players and updates username, email, country
// and level of existing ones. registration_date is never overwritten.
// Returns the number of rows inserted or changed; replaying the same batch
// returns 0.
func (u Upserter) UpsertPlayers(ctx context.Context, db DBTX, players []Player) (int64, error) {
	if len(players) == 0 {
		return 0, nil
	}

	q := database.New(db)
	var (
		n   int64
		err error
	)
	if u.useCopy(len(players)) {
		n, err = q.CopyPlayers(ctx, playerCopyRows(players))
	} else {
		n, err = q.UpsertPlayers(ctx, playerParams(players))
	}
	if err != nil {
		return 0, fmt.Errorf("upsert players: %w", err)
	}

	logging.FromContext(ctx).Info("players upserted", "rows", len(players), "affected", n)
	return n, nil
}

// UpsertScores inserts new scores and updates score, duration_minutes and
// platform of existing ones. Every score must reference a player that exists
// in the store or in the same transaction.
func (u Upserter) UpsertScores(ctx context.Context, db DBTX, scores []Score) (int64, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	q := database.New(db)
	var (
		n   int64
		err error
	)
	if u.useCopy(len(scores)) {
		n, err = q.CopyScores(ctx, scoreCopyRows(scores))
	} else {
		n, err = q.UpsertScores(ctx, scoreParams(scores))
	}
	if err != nil {
		return 0, fmt.Errorf("upsert scores: %w", err)
	}

	logging.FromContext(ctx).Info("scores upserted", "rows", len(scores), "affected", n)
	return n, nil
}

// UpsertPlayers is Upserter.UpsertPlayers with the default COPY threshold.
func UpsertPlayers(ctx context.Context, db DBTX, players []Player) (int64, error) {
	return Upserter{CopyThreshold: DefaultCopyThreshold}.UpsertPlayers(ctx, db, players)
}

// UpsertScores is Upserter.UpsertScores with the default COPY threshold.
func UpsertScores(ctx context.Context, db DBTX, scores []Score) (int64, error) {
	return Upserter{CopyThreshold: DefaultCopyThreshold}.UpsertScores(ctx, db, scores)
}

func (u Upserter) useCopy(rows int) bool {
	return u.CopyThreshold > 0 && rows >= u.CopyThreshold
}

func playerParams(players []Player) database.UpsertPlayersParams {
	p := database.UpsertPlayersParams{
		PlayerIDs:         make([]pgtype.Text, 0, len(players)),
		Usernames:         make([]pgtype.Text, 0, len(players)),
		Emails:            make([]pgtype.Text, 0, len(players)),
		RegistrationDates: make([]pgtype.Date, 0, len(players)),
		Countries:         make([]pgtype.Text, 0, len(players)),
		Levels:            make([]pgtype.Numeric, 0, len(players)),
	}
	for _, pl := range players {
		p.PlayerIDs = append(p.PlayerIDs, pl.PlayerID)
		p.Usernames = append(p.Usernames, pl.Username)
		p.Emails = append(p.Emails, pl.Email)
		p.RegistrationDates = append(p.RegistrationDates, pl.RegistrationDate)
		p.Countries = append(p.Countries, pl.Country)
		p.Levels = append(p.Levels, pl.Level)
	}
	return p
}

func scoreParams(scores []Score) database.UpsertScoresParams {
	p := database.UpsertScoresParams{
		ScoreIDs:        make([]pgtype.Text, 0, len(scores)),
		PlayerIDs:       make([]pgtype.Text, 0, len(scores)),
		Games:           make([]pgtype.Text, 0, len(scores)),
		Scores:          make([]pgtype.Numeric, 0, len(scores)),
		DurationMinutes: make([]pgtype.Numeric, 0, len(scores)),
		PlayedAts:       make([]pgtype.Timestamp, 0, len(scores)),
		Platforms:       make([]pgtype.Text, 0, len(scores)),
	}
	for _, s := range scores {
		p.ScoreIDs = append(p.ScoreIDs, s.ScoreID)
		p.PlayerIDs = append(p.PlayerIDs, s.PlayerID)
		p.Games = append(p.Games, s.Game)
		p.Scores = append(p.Scores, s.Score)
		p.DurationMinutes = append(p.DurationMinutes, s.DurationMinutes)
		p.PlayedAts = append(p.PlayedAts, s.PlayedAt)
		p.Platforms = append(p.Platforms, s.Platform)
	}
	return p
}

// Copy rows follow database.PlayerColumns / database.ScoreColumns.

func playerCopyRows(players []Player) [][]any {
	rows := make([][]any, len(players))
	for i, p := range players {
		rows[i] = []any{p.PlayerID, p.Username, p.Email, p.RegistrationDate, p.Country, p.Level}
	}
	return rows
}

func scoreCopyRows(scores []Score) [][]any {
	rows := make([][]any, len(scores))
	for i, s := range scores {
		rows[i] = []any{s.ScoreID, s.PlayerID, s.Game, s.Score, s.DurationMinutes, s.PlayedAt, s.Platform}
	}
	return rows
}
