package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// PlayerColumns is the column order shared by the upsert, staging and COPY paths.
var PlayerColumns = []string{"player_id", "username", "email", "registration_date", "country", "level"}

// registration_date is absent from the update list: the first stored value
// is kept forever. The WHERE clause skips rows whose mutable columns are
// already equal, so replaying a load touches nothing.
const playerConflictClause = `
ON CONFLICT (player_id) DO UPDATE SET
    username = EXCLUDED.username,
    email    = EXCLUDED.email,
    country  = EXCLUDED.country,
    level    = EXCLUDED.level
WHERE (players.username, players.email, players.country, players.level)
    IS DISTINCT FROM (EXCLUDED.username, EXCLUDED.email, EXCLUDED.country, EXCLUDED.level)`

const UpsertPlayers = `-- name: UpsertPlayers :execrows
INSERT INTO players (player_id, username, email, registration_date, country, level)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::date[], $5::text[], $6::numeric[])` +
	playerConflictClause

// UpsertPlayersParams holds one column slice per player column; all slices
// have the same length.
type UpsertPlayersParams struct {
	PlayerIDs         []pgtype.Text
	Usernames         []pgtype.Text
	Emails            []pgtype.Text
	RegistrationDates []pgtype.Date
	Countries         []pgtype.Text
	Levels            []pgtype.Numeric
}

func (q *Queries) UpsertPlayers(ctx context.Context, arg UpsertPlayersParams) (int64, error) {
	tag, err := q.db.Exec(ctx, UpsertPlayers,
		arg.PlayerIDs,
		arg.Usernames,
		arg.Emails,
		arg.RegistrationDates,
		arg.Countries,
		arg.Levels,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const CreatePlayersStage = `-- name: CreatePlayersStage :exec
DROP TABLE IF EXISTS pg_temp.players_stage;
CREATE TEMP TABLE players_stage (LIKE players INCLUDING DEFAULTS) ON COMMIT DROP`

const MergePlayersStage = `-- name: MergePlayersStage :execrows
INSERT INTO players (player_id, username, email, registration_date, country, level)
SELECT player_id, username, email, registration_date, country, level FROM pg_temp.players_stage` +
	playerConflictClause

// CopyPlayers stages rows with COPY and merges them into players using the
// same conflict rules as UpsertPlayers. Rows must follow PlayerColumns.
func (q *Queries) CopyPlayers(ctx context.Context, rows [][]any) (int64, error) {
	if _, err := q.db.Exec(ctx, CreatePlayersStage); err != nil {
		return 0, err
	}
	if _, err := q.db.CopyFrom(ctx, pgx.Identifier{"pg_temp", "players_stage"}, PlayerColumns, pgx.CopyFromRows(rows)); err != nil {
		return 0, err
	}
	tag, err := q.db.Exec(ctx, MergePlayersStage)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
