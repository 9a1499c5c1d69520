package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/RexBytes/pgmonkey/pkg/logger"
)

// AsyncPoolConnection is the async-mode counterpart of PoolConnection. Its
// pool applies async_settings to every new physical connection through the
// pool's configure hook, where statements run directly on the raw
// connection outside any transaction so the settings take session-wide
// effect.
type AsyncPoolConnection struct {
	poolConfig *pgxpool.Config
	minSize    int32
	maxSize    int32
	autocommit bool

	mu   sync.Mutex
	pool *pgxpool.Pool
}

var _ Connection = (*AsyncPoolConnection)(nil)

// Type reports the connection mode.
func (p *AsyncPoolConnection) Type() Type { return TypeAsyncPool }

// Connect creates the pool and verifies it with a ping. No-op if the pool
// already exists.
func (p *AsyncPoolConnection) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool != nil {
		return nil
	}

	pool, err := newPoolWithConfig(ctx, p.poolConfig)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return err
	}
	p.pool = pool
	return nil
}

// Disconnect closes the whole pool. No-op if already disconnected.
func (p *AsyncPoolConnection) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool == nil {
		return nil
	}
	p.pool.Close()
	p.pool = nil
	return nil
}

func (p *AsyncPoolConnection) getPool() (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return nil, ErrNoPool
	}
	return p.pool, nil
}

// Commit commits the transaction on this caller's borrowed connection, if
// any.
func (p *AsyncPoolConnection) Commit(ctx context.Context) error {
	if b, ok := activeBorrow(ctx, p); ok {
		return b.commit(ctx)
	}
	return nil
}

// Rollback rolls back the transaction on this caller's borrowed connection,
// if any.
func (p *AsyncPoolConnection) Rollback(ctx context.Context) error {
	if b, ok := activeBorrow(ctx, p); ok {
		return b.rollback(ctx)
	}
	return nil
}

// Cursor returns a statement handle, reusing this caller's borrow inside an
// acquisition scope and borrowing one-shot outside of one.
func (p *AsyncPoolConnection) Cursor(ctx context.Context) (*Cursor, error) {
	if b, ok := activeBorrow(ctx, p); ok {
		q, err := b.querier(ctx)
		if err != nil {
			return nil, err
		}
		return &Cursor{q: q}, nil
	}

	pool, err := p.getPool()
	if err != nil {
		return nil, err
	}
	pc, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Cursor{q: pc, release: pc.Release}, nil
}

// Transaction runs fn inside a transaction on this caller's borrowed
// connection, borrowing one for the duration when called standalone.
func (p *AsyncPoolConnection) Transaction(ctx context.Context, fn func(context.Context) error) error {
	if b, ok := activeBorrow(ctx, p); ok {
		if err := b.beginTx(ctx); err != nil {
			return err
		}
		if err := fn(ctx); err != nil {
			_ = b.rollback(context.WithoutCancel(ctx))
			return err
		}
		return b.commit(ctx)
	}

	pool, err := p.getPool()
	if err != nil {
		return err
	}
	pc, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pc.Release()

	b := &borrow{conn: pc, autocommit: p.autocommit}
	if err := b.beginTx(ctx); err != nil {
		return err
	}
	if err := fn(withBorrow(ctx, p, b)); err != nil {
		_ = b.rollback(context.WithoutCancel(ctx))
		return err
	}
	return b.commit(ctx)
}

// Session borrows one connection for the duration of fn and returns it to
// the pool afterward. The pool stays open.
func (p *AsyncPoolConnection) Session(ctx context.Context, fn func(context.Context) error) error {
	if err := p.Connect(ctx); err != nil {
		return err
	}
	pool, err := p.getPool()
	if err != nil {
		return err
	}

	pc, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pc.Release()

	b := &borrow{conn: pc, autocommit: p.autocommit}
	if err := fn(withBorrow(ctx, p, b)); err != nil {
		_ = b.rollback(context.WithoutCancel(ctx))
		return err
	}
	return b.commit(ctx)
}

// TestConnection smoke-checks one borrowed connection from the async pool.
func (p *AsyncPoolConnection) TestConnection(ctx context.Context) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		logger.Error("async pool connection test failed", zap.Error(err))
		return err
	}
	logger.Info("async pool connection successful", zap.Int32("max_size", p.maxSize))
	return nil
}
