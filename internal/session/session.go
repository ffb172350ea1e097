package session

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/gametracker/internal/logging"
)

// Session is the transaction handed to a scope's unit of work. It exposes
// the statement methods of pgx.Tx and refuses all of them once the scope
// has exited. A Session is not safe for concurrent use.
type Session struct {
	tx       pgx.Tx
	state    State
	attempts int
	released bool
	observe  func(from, to State)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Attempts returns how many connection attempts the session needed.
func (s *Session) Attempts() int {
	return s.attempts
}

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	if s.observe != nil {
		s.observe(from, to)
	}
}

func (s *Session) usable() bool {
	return s.state == Connected && s.tx != nil
}

// Exec runs a statement in the session's transaction.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if !s.usable() {
		return pgconn.CommandTag{}, ErrSessionClosed
	}
	return s.tx.Exec(ctx, sql, args...)
}

// Query runs a query in the session's transaction.
func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if !s.usable() {
		return nil, ErrSessionClosed
	}
	return s.tx.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query in the session's transaction.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if !s.usable() {
		return errRow{err: ErrSessionClosed}
	}
	return s.tx.QueryRow(ctx, sql, args...)
}

// CopyFrom bulk-loads rows with the COPY protocol.
func (s *Session) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if !s.usable() {
		return 0, ErrSessionClosed
	}
	return s.tx.CopyFrom(ctx, table, columns, src)
}

func (s *Session) commit(ctx context.Context) error {
	s.transition(Committing)
	return s.tx.Commit(ctx)
}

// rollback aborts the transaction. A rollback failure is logged and
// swallowed so that cause, the error that triggered it, reaches the caller.
func (s *Session) rollback(ctx context.Context, cause error) {
	if s.state != Connected {
		return
	}
	s.transition(RollingBack)

	log := logging.FromContext(ctx)
	if err := s.tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		log.Error("transaction rollback failed", "error", err, "cause", cause)
		return
	}
	log.Warn("transaction rolled back", "cause", cause)
}

// release closes the connection. It runs exactly once per scope regardless
// of how the scope ended.
func (s *Session) release(ctx context.Context, conn Conn) {
	if s.released {
		return
	}
	s.released = true
	s.transition(Closed)

	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		logging.FromContext(ctx).Warn("closing database connection", "error", err)
	}
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
