package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/RexBytes/pgmonkey/pkg/logger"
)

// newPoolWithConfig is a package-private seam so lifecycle tests can force
// deterministic pool-construction failures without a live server.
var newPoolWithConfig = pgxpool.NewWithConfig

// PoolConnection owns a native connection pool. The connection borrowed by
// a caller inside a Session or Transaction scope travels in that caller's
// context, so concurrent callers sharing one PoolConnection never see each
// other's borrows.
type PoolConnection struct {
	poolConfig *pgxpool.Config
	minSize    int32
	maxSize    int32
	autocommit bool

	mu   sync.Mutex
	pool *pgxpool.Pool
}

var _ Connection = (*PoolConnection)(nil)

// Type reports the connection mode.
func (p *PoolConnection) Type() Type { return TypePool }

// Connect creates the pool and verifies it with a ping. No-op if the pool
// already exists. A pool that fails its initial ping is closed, never
// cached half-built.
func (p *PoolConnection) Connect(ctx context.Context) error {
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
func (p *PoolConnection) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool == nil {
		return nil
	}
	p.pool.Close()
	p.pool = nil
	return nil
}

// getPool returns the live pool or ErrNoPool.
func (p *PoolConnection) getPool() (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return nil, ErrNoPool
	}
	return p.pool, nil
}

// Commit commits the transaction on this caller's borrowed connection, if
// any. No-op outside an acquisition scope.
func (p *PoolConnection) Commit(ctx context.Context) error {
	if b, ok := activeBorrow(ctx, p); ok {
		return b.commit(ctx)
	}
	return nil
}

// Rollback rolls back the transaction on this caller's borrowed connection,
// if any. No-op outside an acquisition scope.
func (p *PoolConnection) Rollback(ctx context.Context) error {
	if b, ok := activeBorrow(ctx, p); ok {
		return b.rollback(ctx)
	}
	return nil
}

// Cursor returns a statement handle. Inside an acquisition scope it reuses
// this caller's borrowed connection; outside one it borrows a connection
// for the cursor's lifetime, returned to the pool by Cursor.Close.
func (p *PoolConnection) Cursor(ctx context.Context) (*Cursor, error) {
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
// connection, borrowing one for the duration when called outside a Session
// scope. The pool is never closed by a transaction scope.
func (p *PoolConnection) Transaction(ctx context.Context, fn func(context.Context) error) error {
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

// Session borrows one connection from the pool for the duration of fn,
// commits on clean exit (rolls back on error), and returns the connection
// to the pool through the pool's own release path. The pool stays open.
func (p *PoolConnection) Session(ctx context.Context, fn func(context.Context) error) error {
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

// TestConnection smoke-checks a single borrowed connection, then exercises
// pooling by holding min(max_size, min_size+1) connections concurrently.
func (p *PoolConnection) TestConnection(ctx context.Context) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		logger.Error("pool connection test failed", zap.Error(err))
		return err
	}

	n := int(p.minSize) + 1
	if max := int(p.maxSize); max > 0 && n > max {
		n = max
	}
	held := make([]*pgxpool.Conn, 0, n)
	defer func() {
		for _, pc := range held {
			pc.Release()
		}
	}()
	for i := 0; i < n; i++ {
		pc, err := pool.Acquire(ctx)
		if err != nil {
			logger.Error("pooling test failed", zap.Int("held", len(held)), zap.Error(err))
			return err
		}
		held = append(held, pc)
	}

	logger.Info("pool connection successful",
		zap.Int("held_concurrently", len(held)),
		zap.Int32("max_size", p.maxSize))
	return nil
}
