package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// borrow tracks one connection checked out of a pool, together with the
// lazily opened transaction driving the autocommit-off behavior. A borrow
// belongs to exactly one caller for the duration of an acquisition scope,
// so it needs no locking.
type borrow struct {
	conn       *pgxpool.Conn
	tx         pgx.Tx
	autocommit bool
}

// borrowKey scopes the context binding to one pool instance, so two pool
// connections sharing a context never see each other's borrows.
type borrowKey struct{ owner any }

// withBorrow binds b to ctx for the given pool instance. The binding dies
// with the derived context, which is what clears it on scope exit.
func withBorrow(ctx context.Context, owner any, b *borrow) context.Context {
	return context.WithValue(ctx, borrowKey{owner: owner}, b)
}

// activeBorrow returns the borrow bound to ctx for the given pool instance.
func activeBorrow(ctx context.Context, owner any) (*borrow, bool) {
	b, ok := ctx.Value(borrowKey{owner: owner}).(*borrow)
	return b, ok
}

// querier returns the statement-execution surface for this borrow. With
// autocommit off, a transaction is opened on first use.
func (b *borrow) querier(ctx context.Context) (Querier, error) {
	if b.tx != nil {
		return b.tx, nil
	}
	if b.autocommit {
		return b.conn, nil
	}
	tx, err := b.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	b.tx = tx
	return b.tx, nil
}

// beginTx opens a transaction on the borrow regardless of the autocommit
// mode. Used by explicit Transaction scopes.
func (b *borrow) beginTx(ctx context.Context) error {
	if b.tx != nil {
		return nil
	}
	tx, err := b.conn.Begin(ctx)
	if err != nil {
		return err
	}
	b.tx = tx
	return nil
}

func (b *borrow) commit(ctx context.Context) error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Commit(ctx)
	b.tx = nil
	return err
}

func (b *borrow) rollback(ctx context.Context) error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Rollback(ctx)
	b.tx = nil
	return err
}
