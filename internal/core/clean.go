package core

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/gametracker/internal/extract"
)

// CleanPlayers applies the player rules to table, in order:
//
//  1. rows without a player_id are dropped, then rows repeating an earlier
//     player_id (first occurrence wins)
//  2. username is trimmed
//  3. registration_date is parsed; unparseable dates become NULL
//  4. email must contain '@'; otherwise it becomes NULL
//  5. missing markers in any column become NULL
//
// Ids are normalized with NormalizeKey before comparison. Nothing here is
// an error: bad cells are nulled and counted in the result.
//
// Dropping rows without a player_id is stricter than keeping them for the
// insert to reject: the primary key would abort the whole load, so such
// rows are counted in MissingIDs instead.
func CleanPlayers(table *extract.Table) PlayerResult {
	var res PlayerResult
	seen := make(map[string]struct{}, table.Len())

	for i := 0; i < table.Len(); i++ {
		id := NormalizeKey(table.Cell(i, "player_id"))
		if !id.Valid {
			res.MissingIDs++
			continue
		}
		if _, dup := seen[id.String]; dup {
			res.DuplicatesRemoved++
			continue
		}
		seen[id.String] = struct{}{}

		rawDate := table.Cell(i, "registration_date")
		date := ToPgDate(rawDate)
		if !date.Valid && !IsMissing(rawDate) {
			res.InvalidDates++
		}

		email := ToPgText(table.Cell(i, "email"))
		if email.Valid && !strings.Contains(email.String, "@") {
			res.InvalidEmails++
			email = pgtype.Text{}
		}

		res.Players = append(res.Players, Player{
			PlayerID:         id,
			Username:         ToPgText(table.Cell(i, "username")),
			Email:            email,
			RegistrationDate: date,
			Country:          ToPgText(table.Cell(i, "country")),
			Level:            ToPgNumeric(table.Cell(i, "level")),
		})
	}

	res.Retained = len(res.Players)
	return res
}

// CleanScores applies the score rules to table, each step seeing only the
// survivors of the previous one:
//
//  1. rows without a score_id are dropped, then repeated score_ids (first
//     occurrence wins)
//  2. score and duration_minutes are coerced to numbers; failures become NULL
//  3. played_at is parsed; failures become NULL
//  4. rows whose score is NULL or <= 0 are dropped
//  5. rows without a player_id are dropped
//  6. rows whose player_id is not in accepted are dropped and counted as
//     orphans
//  7. missing markers in the remaining columns become NULL
//
// accepted holds only the players of the current run; a score referring to
// a player stored by an earlier run is treated as an orphan.
func CleanScores(table *extract.Table, accepted PlayerIDSet) ScoreResult {
	var res ScoreResult
	seen := make(map[string]struct{}, table.Len())

	for i := 0; i < table.Len(); i++ {
		id := NormalizeKey(table.Cell(i, "score_id"))
		if !id.Valid {
			res.MissingIDs++
			continue
		}
		if _, dup := seen[id.String]; dup {
			res.DuplicatesRemoved++
			continue
		}
		seen[id.String] = struct{}{}

		score := ToPgNumeric(table.Cell(i, "score"))
		duration := ToPgNumeric(table.Cell(i, "duration_minutes"))
		playedAt := ToPgTimestamp(table.Cell(i, "played_at"))

		if !NumericPositive(score) {
			res.NonPositive++
			continue
		}

		playerID := NormalizeKey(table.Cell(i, "player_id"))
		if !playerID.Valid {
			res.MissingPlayer++
			continue
		}
		if !accepted.Contains(playerID.String) {
			res.Orphans++
			continue
		}

		res.Scores = append(res.Scores, Score{
			ScoreID:         id,
			PlayerID:        playerID,
			Game:            ToPgText(table.Cell(i, "game")),
			Score:           score,
			DurationMinutes: duration,
			PlayedAt:        playedAt,
			Platform:        ToPgText(table.Cell(i, "platform")),
		})
	}

	res.Retained = len(res.Scores)
	return res
}
