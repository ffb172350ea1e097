package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ScoreColumns is the column order shared by the upsert, staging and COPY paths.
var ScoreColumns = []string{"score_id", "player_id", "game", "score", "duration_minutes", "played_at", "platform"}

// player_id, game and played_at are fixed once a score exists.
const scoreConflictClause = `
ON CONFLICT (score_id) DO UPDATE SET
    score            = EXCLUDED.score,
    duration_minutes = EXCLUDED.duration_minutes,
    platform         = EXCLUDED.platform
WHERE (scores.score, scores.duration_minutes, scores.platform)
    IS DISTINCT FROM (EXCLUDED.score, EXCLUDED.duration_minutes, EXCLUDED.platform)`

const UpsertScores = `-- name: UpsertScores :execrows
INSERT INTO scores (score_id, player_id, game, score, duration_minutes, played_at, platform)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::numeric[], $5::numeric[], $6::timestamp[], $7::text[])` +
	scoreConflictClause

// UpsertScoresParams holds one column slice per score column; all slices
// have the same length.
type UpsertScoresParams struct {
	ScoreIDs        []pgtype.Text
	PlayerIDs       []pgtype.Text
	Games           []pgtype.Text
	Scores          []pgtype.Numeric
	DurationMinutes []pgtype.Numeric
	PlayedAts       []pgtype.Timestamp
	Platforms       []pgtype.Text
}

func (q *Queries) UpsertScores(ctx context.Context, arg UpsertScoresParams) (int64, error) {
	tag, err := q.db.Exec(ctx, UpsertScores,
		arg.ScoreIDs,
		arg.PlayerIDs,
		arg.Games,
		arg.Scores,
		arg.DurationMinutes,
		arg.PlayedAts,
		arg.Platforms,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const CreateScoresStage = `-- name: CreateScoresStage :exec
DROP TABLE IF EXISTS pg_temp.scores_stage;
CREATE TEMP TABLE scores_stage (LIKE scores INCLUDING DEFAULTS) ON COMMIT DROP`

const MergeScoresStage = `-- name: MergeScoresStage :execrows
INSERT INTO scores (score_id, player_id, game, score, duration_minutes, played_at, platform)
SELECT score_id, player_id, game, score, duration_minutes, played_at, platform FROM pg_temp.scores_stage` +
	scoreConflictClause

// CopyScores stages rows with COPY and merges them into scores using the
// same conflict rules as UpsertScores. Rows must follow ScoreColumns.
func (q *Queries) CopyScores(ctx context.Context, rows [][]any) (int64, error) {
	if _, err := q.db.Exec(ctx, CreateScoresStage); err != nil {
		return 0, err
	}
	if _, err := q.db.CopyFrom(ctx, pgx.Identifier{"pg_temp", "scores_stage"}, ScoreColumns, pgx.CopyFromRows(rows)); err != nil {
		return 0, err
	}
	tag, err := q.db.Exec(ctx, MergeScoresStage)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
