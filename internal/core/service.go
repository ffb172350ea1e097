package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/gametracker/internal/database"
	"github.com/JonMunkholm/gametracker/internal/extract"
	"github.com/JonMunkholm/gametracker/internal/logging"
	"github.com/JonMunkholm/gametracker/internal/session"
)

// Sessions opens scoped units of work. *session.Manager satisfies it.
type Sessions interface {
	Scope(ctx context.Context, fn func(ctx context.Context, s *session.Session) error) error
}

// Reporter produces the post-load report. It runs only after the load
// transaction has committed.
type Reporter interface {
	Generate(ctx context.Context) error
}

// ServiceConfig locates the extracts and tunes the load.
type ServiceConfig struct {
	PlayersPath     string
	ScoresPath      string
	BootstrapSchema bool
	CopyThreshold   int
}

// Service runs the extract, clean, load and report pipeline.
type Service struct {
	sessions Sessions
	reporter Reporter
	cfg      ServiceConfig
	upserter Upserter
}

// NewService creates a Service. reporter may be nil to skip reporting.
func NewService(sessions Sessions, reporter Reporter, cfg ServiceConfig) *Service {
	return &Service{
		sessions: sessions,
		reporter: reporter,
		cfg:      cfg,
		upserter: Upserter{CopyThreshold: cfg.CopyThreshold},
	}
}

// Run executes one pipeline run. Both extracts are read before any database
// work starts. Players and scores are loaded in a single transaction, so a
// failure at any point leaves the store untouched. Every returned error is a
// *StageError.
func (s *Service) Run(ctx context.Context) (LoadSummary, error) {
	log := logging.FromContext(ctx)
	start := time.Now()
	summary := LoadSummary{RunID: logging.RunID(ctx)}

	log.Info("pipeline started", "players_file", s.cfg.PlayersPath, "scores_file", s.cfg.ScoresPath)

	players, err := extract.ReadTable(s.cfg.PlayersPath, PlayerColumns)
	if err != nil {
		return summary, &StageError{Stage: StageExtractPlayers, Err: err}
	}
	scores, err := extract.ReadTable(s.cfg.ScoresPath, ScoreColumns)
	if err != nil {
		return summary, &StageError{Stage: StageExtractScores, Err: err}
	}
	log.Info("extracts read", "player_rows", players.Len(), "score_rows", scores.Len())

	err = s.sessions.Scope(ctx, func(ctx context.Context, tx *session.Session) error {
		return s.load(ctx, tx, players, scores, &summary)
	})
	if err != nil {
		return summary, scopeError(err)
	}
	log.Info("load committed",
		"players_affected", summary.PlayersAffected,
		"scores_affected", summary.ScoresAffected,
	)

	if s.reporter != nil {
		if err := s.reporter.Generate(ctx); err != nil {
			return summary, &StageError{Stage: StageReport, Err: err}
		}
	}

	log.Info("pipeline finished", "duration", time.Since(start))
	return summary, nil
}

// load is the body of the load transaction.
func (s *Service) load(ctx context.Context, db DBTX, players, scores *extract.Table, summary *LoadSummary) error {
	if s.cfg.BootstrapSchema {
		if err := database.New(db).EnsureSchema(ctx); err != nil {
			return &StageError{Stage: StageSchema, Err: err}
		}
	}

	pr := CleanPlayers(players)
	summary.Players = pr
	logging.WithFields(ctx, "stage", StageLoadPlayers).Info("players cleaned",
		"retained", pr.Retained,
		"duplicates", pr.DuplicatesRemoved,
		"missing_ids", pr.MissingIDs,
		"invalid_emails", pr.InvalidEmails,
		"invalid_dates", pr.InvalidDates,
	)

	n, err := s.upserter.UpsertPlayers(ctx, db, pr.Players)
	if err != nil {
		return &StageError{Stage: StageLoadPlayers, Err: err}
	}
	summary.PlayersAffected = n

	sr := CleanScores(scores, pr.AcceptedIDs())
	summary.Scores = sr
	log := logging.WithFields(ctx, "stage", StageLoadScores)
	log.Info("scores cleaned",
		"retained", sr.Retained,
		"duplicates", sr.DuplicatesRemoved,
		"missing_ids", sr.MissingIDs,
		"non_positive", sr.NonPositive,
		"missing_player", sr.MissingPlayer,
	)
	if sr.Orphans > 0 {
		log.Warn("scores dropped for unknown player", "orphans", sr.Orphans)
	}

	n, err = s.upserter.UpsertScores(ctx, db, sr.Scores)
	if err != nil {
		return &StageError{Stage: StageLoadScores, Err: err}
	}
	summary.ScoresAffected = n
	return nil
}

// scopeError attaches a stage to errors raised by the session manager
// itself; errors from the load body already carry one.
func scopeError(err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	var txErr *session.TransactionError
	if errors.As(err, &txErr) {
		switch txErr.Op {
		case "commit":
			return &StageError{Stage: StageCommit, Err: err}
		case "begin":
			return &StageError{Stage: StageBegin, Err: err}
		}
	}
	return &StageError{Stage: StageConnect, Err: err}
}
