package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/gametracker/internal/database"
	"github.com/JonMunkholm/gametracker/internal/extract"
	"github.com/JonMunkholm/gametracker/internal/session"
)

// ============================================================================
// In-memory store
// ============================================================================

// memStore mimics the players/scores tables and the conflict rules of the
// upsert statements. Writes go to a memTx and become visible on commit.
type memStore struct {
	players map[string]Player
	scores  map[string]Score

	// failOn makes Exec fail for the given statement.
	failOn map[string]error

	execs  []string
	copies int
}

func newMemStore() *memStore {
	return &memStore{
		players: map[string]Player{},
		scores:  map[string]Score{},
		failOn:  map[string]error{},
	}
}

func (m *memStore) begin() *memTx {
	tx := &memTx{store: m, players: map[string]Player{}, scores: map[string]Score{}}
	for k, v := range m.players {
		tx.players[k] = v
	}
	for k, v := range m.scores {
		tx.scores[k] = v
	}
	return tx
}

type memTx struct {
	pgx.Tx // unimplemented methods panic

	store   *memStore
	players map[string]Player
	scores  map[string]Score

	stagePlayers []Player
	stageScores  []Score

	committed  bool
	rolledBack bool
}

func (tx *memTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.store.execs = append(tx.store.execs, sql)
	if err := tx.store.failOn[sql]; err != nil {
		return pgconn.CommandTag{}, err
	}

	var n int64
	var err error
	switch sql {
	case database.Schema:
	case database.UpsertPlayers:
		n, err = tx.mergePlayers(playersFromParams(args))
	case database.UpsertScores:
		n, err = tx.mergeScores(scoresFromParams(args))
	case database.CreatePlayersStage:
		tx.stagePlayers = nil
	case database.CreateScoresStage:
		tx.stageScores = nil
	case database.MergePlayersStage:
		n, err = tx.mergePlayers(tx.stagePlayers)
	case database.MergeScoresStage:
		n, err = tx.mergeScores(tx.stageScores)
	default:
		return pgconn.CommandTag{}, fmt.Errorf("memStore: unexpected statement %q", sql)
	}
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", n)), nil
}

func (tx *memTx) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	tx.store.copies++
	var n int64
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			return n, err
		}
		switch table[len(table)-1] {
		case "players_stage":
			tx.stagePlayers = append(tx.stagePlayers, Player{
				PlayerID: v[0].(pgtype.Text), Username: v[1].(pgtype.Text), Email: v[2].(pgtype.Text),
				RegistrationDate: v[3].(pgtype.Date), Country: v[4].(pgtype.Text), Level: v[5].(pgtype.Numeric),
			})
		case "scores_stage":
			tx.stageScores = append(tx.stageScores, Score{
				ScoreID: v[0].(pgtype.Text), PlayerID: v[1].(pgtype.Text), Game: v[2].(pgtype.Text),
				Score: v[3].(pgtype.Numeric), DurationMinutes: v[4].(pgtype.Numeric),
				PlayedAt: v[5].(pgtype.Timestamp), Platform: v[6].(pgtype.Text),
			})
		default:
			return n, fmt.Errorf("memStore: unexpected copy target %v", table)
		}
		n++
	}
	return n, src.Err()
}

func (tx *memTx) Commit(context.Context) error {
	tx.committed = true
	tx.store.players = tx.players
	tx.store.scores = tx.scores
	return nil
}

func (tx *memTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

func (tx *memTx) mergePlayers(rows []Player) (int64, error) {
	var n int64
	for _, p := range rows {
		if !p.PlayerID.Valid {
			return n, &pgconn.PgError{Code: "23502", Message: "null value in column \"player_id\""}
		}
		old, ok := tx.players[p.PlayerID.String]
		if !ok {
			tx.players[p.PlayerID.String] = p
			n++
			continue
		}
		if old.Username == p.Username && old.Email == p.Email && old.Country == p.Country && numericEqual(old.Level, p.Level) {
			continue
		}
		old.Username, old.Email, old.Country, old.Level = p.Username, p.Email, p.Country, p.Level
		tx.players[p.PlayerID.String] = old
		n++
	}
	return n, nil
}

func (tx *memTx) mergeScores(rows []Score) (int64, error) {
	var n int64
	for _, s := range rows {
		if _, ok := tx.players[s.PlayerID.String]; !ok {
			return n, &pgconn.PgError{Code: "23503", Message: "insert or update on table \"scores\" violates foreign key constraint"}
		}
		if !NumericPositive(s.Score) {
			return n, &pgconn.PgError{Code: "23514", Message: "violates check constraint"}
		}
		old, ok := tx.scores[s.ScoreID.String]
		if !ok {
			tx.scores[s.ScoreID.String] = s
			n++
			continue
		}
		if numericEqual(old.Score, s.Score) && numericEqual(old.DurationMinutes, s.DurationMinutes) && old.Platform == s.Platform {
			continue
		}
		old.Score, old.DurationMinutes, old.Platform = s.Score, s.DurationMinutes, s.Platform
		tx.scores[s.ScoreID.String] = old
		n++
	}
	return n, nil
}

func numericEqual(a, b pgtype.Numeric) bool {
	fa, okA := NumericFloat(a)
	fb, okB := NumericFloat(b)
	return okA == okB && fa == fb
}

func playersFromParams(args []any) []Player {
	ids := args[0].([]pgtype.Text)
	rows := make([]Player, len(ids))
	for i := range ids {
		rows[i] = Player{
			PlayerID:         ids[i],
			Username:         args[1].([]pgtype.Text)[i],
			Email:            args[2].([]pgtype.Text)[i],
			RegistrationDate: args[3].([]pgtype.Date)[i],
			Country:          args[4].([]pgtype.Text)[i],
			Level:            args[5].([]pgtype.Numeric)[i],
		}
	}
	return rows
}

func scoresFromParams(args []any) []Score {
	ids := args[0].([]pgtype.Text)
	rows := make([]Score, len(ids))
	for i := range ids {
		rows[i] = Score{
			ScoreID:         ids[i],
			PlayerID:        args[1].([]pgtype.Text)[i],
			Game:            args[2].([]pgtype.Text)[i],
			Score:           args[3].([]pgtype.Numeric)[i],
			DurationMinutes: args[4].([]pgtype.Numeric)[i],
			PlayedAt:        args[5].([]pgtype.Timestamp)[i],
			Platform:        args[6].([]pgtype.Text)[i],
		}
	}
	return rows
}

// ============================================================================
// Session plumbing
// ============================================================================

type memConn struct {
	store *memStore
	last  *memTx
}

func (c *memConn) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	c.last = c.store.begin()
	return c.last, nil
}

func (c *memConn) Ping(context.Context) error  { return nil }
func (c *memConn) Close(context.Context) error { return nil }

func newMemManager(store *memStore) (*session.Manager, *memConn) {
	conn := &memConn{store: store}
	mgr := session.New(func(context.Context) (session.Conn, error) {
		return conn, nil
	}, session.Options{MaxAttempts: 1, Delay: time.Millisecond})
	return mgr, conn
}

// ============================================================================
// Table helpers
// ============================================================================

func table(header string, rows ...string) *extract.Table {
	split := func(s string) []string { return strings.Split(s, ",") }
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = split(r)
	}
	return extract.NewTable(split(header), out)
}

const (
	playersHeader = "player_id,username,email,registration_date,country,level"
	scoresHeader  = "score_id,player_id,game,score,duration_minutes,played_at,platform"
)

func writeCSV(t *testing.T, dir, name, header string, rows ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := header + "\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

type recordingReporter struct {
	calls int
	err   error
}

func (r *recordingReporter) Generate(context.Context) error {
	r.calls++
	return r.err
}

var errBoom = errors.New("boom")
