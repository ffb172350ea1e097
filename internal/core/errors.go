package core

// Diagnostic codes printed when a run fails:
//
//	DB001 - Duplicate key inside one statement
//	DB002 - Not-null constraint violated
//	DB003 - Foreign key: score refers to a player that is not stored
//	DB004 - Database unreachable after the retry bound
//	DB005 - Check constraint violated (for example score <= 0)
//	DB006 - Commit or begin failed
//	SRC001 - Source file missing or unreadable
//	SRC002 - Source file lacks a required column
//	SRC003 - Source file is empty or not CSV
//	RUN001 - Run cancelled (SIGINT/SIGTERM)
//	RUN002 - Report could not be written
//	ERR000 - Anything else

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/gametracker/internal/extract"
	"github.com/JonMunkholm/gametracker/internal/session"
)

// Pipeline stages, in execution order.
const (
	StageExtractPlayers = "extract players"
	StageExtractScores  = "extract scores"
	StageConnect        = "connect"
	StageBegin          = "begin transaction"
	StageSchema         = "bootstrap schema"
	StageLoadPlayers    = "load players"
	StageLoadScores     = "load scores"
	StageCommit         = "commit"
	StageReport         = "report"
)

// StageError names the pipeline stage a failure happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, or "" if none.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Diagnostic is the operator-facing description of a failure.
type Diagnostic struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Reference code
}

// PostgreSQL SQLSTATE codes mapped to diagnostics.
var pgCodes = map[string]Diagnostic{
	"23505": {Message: "A key appears twice in the same batch", Action: "Check the extract for duplicate ids with different spellings", Code: "DB001"},
	"23502": {Message: "A required column is empty", Action: "Check the extract for rows without an id", Code: "DB002"},
	"23503": {Message: "A score refers to a player that is not stored", Action: "Load the player before its scores", Code: "DB003"},
	"23514": {Message: "A value violates a table constraint", Action: "Check the extract for out-of-range values", Code: "DB005"},
}

type errorPattern struct {
	pattern string
	diag    Diagnostic
}

// Fallback when no typed error matches.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		diag:    Diagnostic{Message: "Unable to connect to database", Action: "Check DB_HOST and DB_PORT and that the server is running", Code: "DB004"},
	},
	{
		pattern: "password authentication failed",
		diag:    Diagnostic{Message: "Database rejected the credentials", Action: "Check DB_USER and DB_PASSWORD", Code: "DB004"},
	},
	{
		pattern: "file is empty",
		diag:    Diagnostic{Message: "Source file has no header row", Action: "Export the extract again", Code: "SRC003"},
	},
	{
		pattern: "parse csv",
		diag:    Diagnostic{Message: "Source file is not valid CSV", Action: "Export the extract again as comma-separated UTF-8", Code: "SRC003"},
	},
}

var defaultDiagnostic = Diagnostic{
	Message: "An unexpected error occurred",
	Action:  "See the log for details",
	Code:    "ERR000",
}

// Diagnose maps err to an operator-facing Diagnostic. A nil error gives the
// zero Diagnostic.
func Diagnose(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}

	var pgErr *pgconn.PgError
	var txErr *session.TransactionError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Diagnostic{Message: "Run was interrupted", Action: "Start the run again", Code: "RUN001"}
	case errors.Is(err, session.ErrConnectionExhausted):
		return Diagnostic{Message: "Database unreachable after all connection attempts", Action: "Check that the database is up, or raise DB_CONNECT_MAX_ATTEMPTS", Code: "DB004"}
	case errors.As(err, &pgErr):
		if d, ok := pgCodes[pgErr.Code]; ok {
			return d
		}
	case errors.As(err, &txErr):
		return Diagnostic{Message: fmt.Sprintf("Transaction %s failed; nothing was written", txErr.Op), Action: "Start the run again", Code: "DB006"}
	case errors.Is(err, extract.ErrMissingColumns):
		return Diagnostic{Message: "Source file lacks a required column", Action: "Compare the header with the expected column list", Code: "SRC002"}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return Diagnostic{Message: "Source file is missing or unreadable", Action: "Check DATA_DIR, PLAYERS_FILE and SCORES_FILE", Code: "SRC001"}
	case FailedStage(err) == StageReport:
		return Diagnostic{Message: "Data was loaded but the report could not be written", Action: "Check REPORT_PATH", Code: "RUN002"}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.diag
		}
	}
	return defaultDiagnostic
}

// FormatDiagnostic renders err as a one-line message naming the failed
// stage, the reference code and the suggested action.
func FormatDiagnostic(err error) string {
	d := Diagnose(err)
	if d.Message == "" {
		return ""
	}
	if stage := FailedStage(err); stage != "" {
		return fmt.Sprintf("%s failed: %s (Code: %s). %s", stage, d.Message, d.Code, d.Action)
	}
	return fmt.Sprintf("%s (Code: %s). %s", d.Message, d.Code, d.Action)
}
