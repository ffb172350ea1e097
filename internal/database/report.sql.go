package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const CountPlayers = `-- name: CountPlayers :one
SELECT COUNT(*) FROM players`

func (q *Queries) CountPlayers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, CountPlayers).Scan(&n)
	return n, err
}

const CountScores = `-- name: CountScores :one
SELECT COUNT(*) FROM scores`

func (q *Queries) CountScores(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, CountScores).Scan(&n)
	return n, err
}

const CountDistinctGames = `-- name: CountDistinctGames :one
SELECT COUNT(DISTINCT game) FROM scores`

func (q *Queries) CountDistinctGames(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, CountDistinctGames).Scan(&n)
	return n, err
}

// Ties on score are ordered by score_id so the ranking is stable across runs.
const TopScores = `-- name: TopScores :many
SELECT p.username, s.game, s.score::float8
FROM scores s
JOIN players p ON p.player_id = s.player_id
ORDER BY s.score DESC, s.score_id
LIMIT $1`

type TopScoresRow struct {
	Username pgtype.Text
	Game     pgtype.Text
	Score    float64
}

func (q *Queries) TopScores(ctx context.Context, limit int32) ([]TopScoresRow, error) {
	rows, err := q.db.Query(ctx, TopScores, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopScoresRow, error) {
		var r TopScoresRow
		err := row.Scan(&r.Username, &r.Game, &r.Score)
		return r, err
	})
}

const AverageScoreByGame = `-- name: AverageScoreByGame :many
SELECT game, AVG(score)::float8
FROM scores
GROUP BY game
ORDER BY game NULLS LAST`

type AverageScoreByGameRow struct {
	Game    pgtype.Text
	Average float64
}

func (q *Queries) AverageScoreByGame(ctx context.Context) ([]AverageScoreByGameRow, error) {
	rows, err := q.db.Query(ctx, AverageScoreByGame)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AverageScoreByGameRow, error) {
		var r AverageScoreByGameRow
		err := row.Scan(&r.Game, &r.Average)
		return r, err
	})
}

// LabelCountRow is a nullable grouping key with its row count.
type LabelCountRow struct {
	Label pgtype.Text
	Count int64
}

const PlayersByCountry = `-- name: PlayersByCountry :many
SELECT country, COUNT(*)
FROM players
GROUP BY country
ORDER BY COUNT(*) DESC, country NULLS LAST`

func (q *Queries) PlayersByCountry(ctx context.Context) ([]LabelCountRow, error) {
	return q.labelCounts(ctx, PlayersByCountry)
}

const SessionsByPlatform = `-- name: SessionsByPlatform :many
SELECT platform, COUNT(*)
FROM scores
GROUP BY platform
ORDER BY COUNT(*) DESC, platform NULLS LAST`

func (q *Queries) SessionsByPlatform(ctx context.Context) ([]LabelCountRow, error) {
	return q.labelCounts(ctx, SessionsByPlatform)
}

func (q *Queries) labelCounts(ctx context.Context, sql string) ([]LabelCountRow, error) {
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LabelCountRow, error) {
		var r LabelCountRow
		err := row.Scan(&r.Label, &r.Count)
		return r, err
	})
}
