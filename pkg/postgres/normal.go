package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/RexBytes/pgmonkey/pkg/logger"
)

// connectConfig is a package-private seam so lifecycle tests can force
// deterministic connect failures without a live server.
var connectConfig = pgx.ConnectConfig

// NormalConnection owns a single native connection. With autocommit off
// (the default) statements run inside a lazily opened transaction that
// Commit/Rollback close.
type NormalConnection struct {
	connConfig *pgx.ConnConfig
	settings   map[string]any // sync_settings GUCs
	autocommit bool

	mu   sync.Mutex
	conn *pgx.Conn
	tx   pgx.Tx
}

var _ Connection = (*NormalConnection)(nil)

// Type reports the connection mode.
func (c *NormalConnection) Type() Type { return TypeNormal }

// Connect opens the native connection and applies session settings once.
// No-op if already connected. Native errors are surfaced unchanged.
func (c *NormalConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	conn, err := connectConfig(ctx, c.connConfig)
	if err != nil {
		return err
	}
	c.conn = conn
	c.tx = nil
	applySessionSettings(ctx, conn, c.settings)
	return nil
}

// Disconnect closes the connection. No-op if already disconnected. An open
// transaction is rolled back best-effort first.
func (c *NormalConnection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	if c.tx != nil {
		_ = c.tx.Rollback(ctx)
		c.tx = nil
	}
	err := c.conn.Close(ctx)
	c.conn = nil
	return err
}

// Commit commits the current transaction, if one is open.
func (c *NormalConnection) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit(ctx)
	c.tx = nil
	return err
}

// Rollback rolls back the current transaction, if one is open.
func (c *NormalConnection) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback(ctx)
	c.tx = nil
	return err
}

// Cursor returns a statement handle on the connection. With autocommit off,
// a transaction is opened on first use so Commit/Rollback have something to
// act on.
func (c *NormalConnection) Cursor(ctx context.Context) (*Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNoConnection
	}
	if c.autocommit {
		return &Cursor{q: c.conn}, nil
	}
	if c.tx == nil {
		tx, err := c.conn.Begin(ctx)
		if err != nil {
			return nil, err
		}
		c.tx = tx
	}
	return &Cursor{q: c.tx}, nil
}

// Transaction runs fn inside a transaction scope. Commits on success, rolls
// back on error. Does not disconnect: connection lifetime belongs to the
// outer scope.
func (c *NormalConnection) Transaction(ctx context.Context, fn func(context.Context) error) error {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return ErrNoConnection
	}
	if c.tx == nil {
		tx, err := c.conn.Begin(ctx)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.tx = tx
	}
	c.mu.Unlock()

	if err := fn(ctx); err != nil {
		_ = c.Rollback(context.WithoutCancel(ctx))
		return err
	}
	return c.Commit(ctx)
}

// Session connects, runs fn, commits on clean exit (rolls back on error),
// and always disconnects afterward, even when commit or rollback fail.
func (c *NormalConnection) Session(ctx context.Context, fn func(context.Context) error) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Disconnect(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("session disconnect failed", zap.Error(err))
		}
	}()

	if err := fn(ctx); err != nil {
		_ = c.Rollback(context.WithoutCancel(ctx))
		return err
	}
	return c.Commit(ctx)
}

// TestConnection runs a SELECT 1 smoke check and reports the result.
func (c *NormalConnection) TestConnection(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNoConnection
	}

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		logger.Error("connection test failed", zap.Error(err))
		return err
	}
	logger.Info("connection successful")
	return nil
}
