// Package session owns database connectivity for a pipeline run.
//
// A Manager acquires one exclusive connection with a bounded number of
// attempts and wraps a unit of work in a transaction that commits on
// success, rolls back on error and always releases the connection.
//
//	mgr := session.New(session.PoolConnector(pool), session.Options{
//	    MaxAttempts: 30,
//	    Delay:       2 * time.Second,
//	})
//	err := mgr.Scope(ctx, func(ctx context.Context, s *session.Session) error {
//	    _, err := s.Exec(ctx, "...")
//	    return err
//	})
//
// Only connection acquisition is retried. Statement failures inside a scope
// trigger a rollback and are returned to the caller untouched.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gametracker/internal/logging"
)

// Conn is one exclusive database connection. *pgx.Conn satisfies it, as
// does a pooled connection whose Close returns it to the pool.
type Conn interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Connector opens a new connection.
type Connector func(ctx context.Context) (Conn, error)

// PoolConnector returns a Connector that checks a connection out of pool.
// Closing the returned Conn hands it back to the pool.
func PoolConnector(pool *pgxpool.Pool) Connector {
	return func(ctx context.Context) (Conn, error) {
		c, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return pooledConn{c}, nil
	}
}

type pooledConn struct {
	*pgxpool.Conn
}

func (c pooledConn) Close(context.Context) error {
	c.Release()
	return nil
}

// Default acquisition bound, matching a database container that needs up
// to a minute to accept connections.
const (
	DefaultMaxAttempts = 30
	DefaultDelay       = 2 * time.Second
)

// Options bounds connection acquisition.
type Options struct {
	MaxAttempts int
	Delay       time.Duration

	// OnTransition, if set, is called on every session state change.
	OnTransition func(from, to State)
}

// Manager hands out scoped sessions. It holds no connection between scopes
// and is intended to be created once per process and passed to whoever
// needs database access.
type Manager struct {
	connect Connector
	opts    Options
}

// New creates a Manager. Non-positive MaxAttempts falls back to
// DefaultMaxAttempts; a negative Delay is treated as zero.
func New(connect Connector, opts Options) *Manager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	return &Manager{connect: connect, opts: opts}
}

// Acquire returns a live connection, trying up to MaxAttempts times and
// sleeping Delay between failures. After the last failed attempt it returns
// a *ConnectionExhaustedError. The caller owns the connection and must
// Close it.
func (m *Manager) Acquire(ctx context.Context) (Conn, error) {
	s := m.newSession()
	return m.acquire(ctx, s)
}

// Scope runs fn inside a read/write transaction on a freshly acquired
// connection.
//
// If fn returns nil the transaction is committed; a commit failure is
// returned as a *TransactionError. If fn returns an error (or panics) the
// transaction is rolled back and that same error is returned (or the panic
// resumed). The connection is closed exactly once on every path. The
// Session must not be used after Scope returns.
func (m *Manager) Scope(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	return m.scope(ctx, pgx.TxOptions{}, fn)
}

// ReadOnlyScope is Scope with a read-only transaction.
func (m *Manager) ReadOnlyScope(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	return m.scope(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (m *Manager) newSession() *Session {
	return &Session{state: Disconnected, observe: m.opts.OnTransition}
}

func (m *Manager) scope(ctx context.Context, txOpts pgx.TxOptions, fn func(ctx context.Context, s *Session) error) (err error) {
	s := m.newSession()

	conn, err := m.acquire(ctx, s)
	if err != nil {
		return err
	}
	defer s.release(ctx, conn)

	tx, err := conn.BeginTx(ctx, txOpts)
	if err != nil {
		return &TransactionError{Op: "begin", Err: err}
	}
	s.tx = tx

	defer func() {
		if r := recover(); r != nil {
			s.rollback(ctx, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	if err := fn(ctx, s); err != nil {
		s.rollback(ctx, err)
		return err
	}

	if err := s.commit(ctx); err != nil {
		return &TransactionError{Op: "commit", Err: err}
	}
	return nil
}

func (m *Manager) acquire(ctx context.Context, s *Session) (Conn, error) {
	log := logging.FromContext(ctx)
	maxAttempts := m.opts.MaxAttempts

	var conn Conn
	attempt := 0

	operation := func() error {
		attempt++
		s.attempts = attempt
		s.transition(Connecting)

		c, err := m.connect(ctx)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx); err != nil {
			_ = c.Close(context.WithoutCancel(ctx))
			return err
		}
		conn = c
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("database not ready, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"retry_in", wait,
			"error", err,
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.opts.Delay), uint64(maxAttempts-1)),
		ctx,
	)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		s.transition(Failed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("acquire connection: %w", ctxErr)
		}
		log.Error("database unreachable", "attempts", attempt, "error", err)
		return nil, &ConnectionExhaustedError{Attempts: attempt, Err: err}
	}

	s.transition(Connected)
	log.Debug("database connection established", "attempts", attempt)
	return conn, nil
}
