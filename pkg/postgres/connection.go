// Package postgres implements the four pgmonkey connection state machines
// (normal, pool, async, async_pool) behind one capability interface, plus
// the factory that builds them from a configuration tree.
//
// All variants share the same lifecycle: Disconnected --Connect--> Connected
// --Disconnect--> Disconnected, with both transitions idempotent. Session
// settings are applied exactly once, immediately after the native handshake
// succeeds.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/RexBytes/pgmonkey/pkg/pgmonkeyerrors"
)

// Type identifies a connection mode.
type Type string

const (
	TypeNormal    Type = "normal"
	TypePool      Type = "pool"
	TypeAsync     Type = "async"
	TypeAsyncPool Type = "async_pool"
)

// ParseType validates a connection type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeNormal, TypePool, TypeAsync, TypeAsyncPool:
		return Type(s), nil
	default:
		return "", pgmonkeyerrors.Newf(pgmonkeyerrors.ErrorTypeConfig,
			"unsupported connection type: '%s' (valid types: normal, pool, async, async_pool)", s)
	}
}

// Errors returned when operations are attempted outside a connected state
// or an acquisition scope.
var (
	ErrNoConnection = pgmonkeyerrors.New(pgmonkeyerrors.ErrorTypeConnection,
		"no active connection (call Connect first)")
	ErrNoPool = pgmonkeyerrors.New(pgmonkeyerrors.ErrorTypeConnection,
		"no active pool (call Connect first)")
)

// Querier is the statement-execution surface shared by *pgx.Conn, pgx.Tx,
// and pooled connections.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connection is the capability interface implemented by all four connection
// modes. Call sites are uniform regardless of mode.
type Connection interface {
	// Connect establishes the native connection or pool. Idempotent.
	Connect(ctx context.Context) error

	// Disconnect tears the native resource down. Idempotent.
	Disconnect(ctx context.Context) error

	// Commit commits the current transaction, if one is open. No-op
	// otherwise.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction, if one is open. No-op
	// otherwise.
	Rollback(ctx context.Context) error

	// Cursor returns a statement-execution handle bound to the current
	// connection, transaction, or pooled borrow. Fails if not connected.
	Cursor(ctx context.Context) (*Cursor, error)

	// Transaction runs fn inside a transaction scope on the owning
	// connection. Commits on success, rolls back on error. Never
	// disconnects: connection lifetime belongs to the outer scope.
	Transaction(ctx context.Context, fn func(context.Context) error) error

	// Session is the top-level scoped acquisition. For direct connections
	// it connects, runs fn, commits on clean exit (rolls back on error),
	// and always disconnects afterward. For pooled connections it borrows
	// a connection for the duration of fn and returns it to the pool;
	// the pool itself stays open.
	Session(ctx context.Context, fn func(context.Context) error) error

	// TestConnection runs a SELECT 1 smoke check and reports the result.
	TestConnection(ctx context.Context) error

	// Type reports the connection mode.
	Type() Type
}

// Cursor is a thin statement-execution handle. For pooled connections
// obtained outside an acquisition scope, the cursor owns a one-shot borrow
// that Close returns to the pool.
type Cursor struct {
	q       Querier
	release func()
}

// Exec executes a statement that returns no rows.
func (c *Cursor) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.q.Exec(ctx, sql, args...)
}

// Query executes a query that returns rows. The caller must close the
// returned rows.
func (c *Cursor) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.q.Query(ctx, sql, args...)
}

// QueryRow executes a query expected to return at most one row.
func (c *Cursor) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.q.QueryRow(ctx, sql, args...)
}

// Close releases the cursor's one-shot pooled borrow, if it holds one.
// Cursors created inside a Session or Transaction scope share the scope's
// connection and Close is a no-op for them.
func (c *Cursor) Close() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}
