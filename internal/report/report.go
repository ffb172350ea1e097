// Package report summarizes the committed store into a text file.
//
// The report is built from read-only queries in its own transaction, after
// the load has committed, and replaces the previous file atomically.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/gametracker/internal/database"
	"github.com/JonMunkholm/gametracker/internal/logging"
	"github.com/JonMunkholm/gametracker/internal/session"
)

// TopN is the length of the leaderboard.
const TopN = 5

// Labels for NULL grouping keys.
const (
	UnspecifiedCountry = "unspecified"
	UnknownPlatform    = "unknown"
	UnknownGame        = "unknown"
	UnknownPlayer      = "unknown"
)

// Source is the set of queries a report is built from. *database.Queries
// satisfies it.
type Source interface {
	CountPlayers(ctx context.Context) (int64, error)
	CountScores(ctx context.Context) (int64, error)
	CountDistinctGames(ctx context.Context) (int64, error)
	TopScores(ctx context.Context, limit int32) ([]database.TopScoresRow, error)
	AverageScoreByGame(ctx context.Context) ([]database.AverageScoreByGameRow, error)
	PlayersByCountry(ctx context.Context) ([]database.LabelCountRow, error)
	SessionsByPlatform(ctx context.Context) ([]database.LabelCountRow, error)
}

// Entry is one leaderboard line.
type Entry struct {
	Rank     int
	Username string
	Game     string
	Score    float64
}

// GameAverage is the mean score of one game.
type GameAverage struct {
	Game    string
	Average float64
}

// LabelCount is a grouping label with its row count.
type LabelCount struct {
	Label string
	Count int64
}

// Report is the content of one report file.
type Report struct {
	GeneratedAt time.Time
	RunID       string

	Players int64
	Scores  int64
	Games   int64

	Leaderboard []Entry
	Averages    []GameAverage
	Countries   []LabelCount
	Platforms   []LabelCount
}

// Build runs the report queries against src.
func Build(ctx context.Context, src Source) (Report, error) {
	r := Report{RunID: logging.RunID(ctx)}
	var err error

	if r.Players, err = src.CountPlayers(ctx); err != nil {
		return r, fmt.Errorf("count players: %w", err)
	}
	if r.Scores, err = src.CountScores(ctx); err != nil {
		return r, fmt.Errorf("count scores: %w", err)
	}
	if r.Games, err = src.CountDistinctGames(ctx); err != nil {
		return r, fmt.Errorf("count games: %w", err)
	}

	top, err := src.TopScores(ctx, TopN)
	if err != nil {
		return r, fmt.Errorf("top scores: %w", err)
	}
	for i, row := range top {
		r.Leaderboard = append(r.Leaderboard, Entry{
			Rank:     i + 1,
			Username: label(row.Username, UnknownPlayer),
			Game:     label(row.Game, UnknownGame),
			Score:    row.Score,
		})
	}

	avgs, err := src.AverageScoreByGame(ctx)
	if err != nil {
		return r, fmt.Errorf("average by game: %w", err)
	}
	for _, row := range avgs {
		r.Averages = append(r.Averages, GameAverage{Game: label(row.Game, UnknownGame), Average: row.Average})
	}

	countries, err := src.PlayersByCountry(ctx)
	if err != nil {
		return r, fmt.Errorf("players by country: %w", err)
	}
	r.Countries = labelCounts(countries, UnspecifiedCountry)

	platforms, err := src.SessionsByPlatform(ctx)
	if err != nil {
		return r, fmt.Errorf("sessions by platform: %w", err)
	}
	r.Platforms = labelCounts(platforms, UnknownPlatform)

	return r, nil
}

func label(t pgtype.Text, null string) string {
	if !t.Valid || t.String == "" {
		return null
	}
	return t.String
}

func labelCounts(rows []database.LabelCountRow, null string) []LabelCount {
	out := make([]LabelCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, LabelCount{Label: label(row.Label, null), Count: row.Count})
	}
	return out
}

// WriteFile renders r to path, creating parent directories. The previous
// file is replaced only once the new one is fully written.
func WriteFile(path string, r Report) error {
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	// Atomic write: temp file + rename
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write report: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// ReadOnlySessions opens read-only units of work. *session.Manager
// satisfies it.
type ReadOnlySessions interface {
	ReadOnlyScope(ctx context.Context, fn func(ctx context.Context, s *session.Session) error) error
}

// Generator builds and writes the report in its own read-only session.
type Generator struct {
	Sessions ReadOnlySessions
	Path     string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Generate implements core.Reporter.
func (g *Generator) Generate(ctx context.Context) error {
	log := logging.FromContext(ctx)
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	var r Report
	err := g.Sessions.ReadOnlyScope(ctx, func(ctx context.Context, s *session.Session) error {
		var err error
		r, err = Build(ctx, database.New(s))
		return err
	})
	if err != nil {
		return err
	}
	r.GeneratedAt = now()

	if err := WriteFile(g.Path, r); err != nil {
		return err
	}
	log.Info("report written", "path", g.Path, "players", r.Players, "scores", r.Scores)
	return nil
}
