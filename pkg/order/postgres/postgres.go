package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"orderqueue/pkg/order"
)

// Schema creates the tables used by Repository. Orders are keyed by their
// list position so a client snapshot with repeated ids is stored as given.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	position INT PRIMARY KEY,
	id       INT NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
	position INT  NOT NULL REFERENCES orders(position) ON DELETE CASCADE,
	idx      INT  NOT NULL,
	name     TEXT NOT NULL,
	status   TEXT NOT NULL,
	PRIMARY KEY (position, idx)
);`

// Repository persists orders in PostgreSQL.
type Repository struct {
	db   *sql.DB
	seed []order.Order
}

// New creates a PostgreSQL repository. A nil seed uses order.Seed.
func New(db *sql.DB, seed []order.Order) *Repository {
	if seed == nil {
		seed = order.Seed()
	}
	return &Repository{db: db, seed: order.CloneAll(seed)}
}

// Init creates the schema and loads the seed into an empty database.
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&n); err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if n > 0 {
		return nil
	}
	return r.Replace(ctx, r.seed)
}

// List fetches all orders in list order.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT position,id FROM orders ORDER BY position")
	if err != nil {
		return nil, err
	}
	orders := []order.Order{}
	byPos := make(map[int]int)
	for rows.Next() {
		var pos int
		var o order.Order
		if err := rows.Scan(&pos, &o.ID); err != nil {
			rows.Close()
			return nil, err
		}
		o.Items = []order.Item{}
		byPos[pos] = len(orders)
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, "SELECT position,name,status FROM order_items ORDER BY position,idx")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pos int
		var it order.Item
		if err := rows.Scan(&pos, &it.Name, &it.Status); err != nil {
			return nil, err
		}
		if i, ok := byPos[pos]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return orders, rows.Err()
}

// SetItemStatus updates one item on the first order with orderID.
func (r *Repository) SetItemStatus(ctx context.Context, orderID, itemIndex int, status order.Status) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE order_items SET status=$3 WHERE idx=$2 AND position=(SELECT MIN(position) FROM orders WHERE id=$1)",
		orderID, itemIndex, string(status))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)", orderID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return order.ErrOrderNotFound
	}
	return order.ErrItemNotFound
}

// Replace overwrites every order inside one transaction.
func (r *Repository) Replace(ctx context.Context, orders []order.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM orders"); err != nil {
		return err
	}
	for pos, o := range orders {
		if _, err := tx.ExecContext(ctx, "INSERT INTO orders (position,id) VALUES ($1,$2)", pos, o.ID); err != nil {
			return fmt.Errorf("insert order %d: %w", o.ID, err)
		}
		for idx, it := range o.Items {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO order_items (position,idx,name,status) VALUES ($1,$2,$3,$4)",
				pos, idx, it.Name, string(it.Status)); err != nil {
				return fmt.Errorf("insert item %d/%d: %w", o.ID, idx, err)
			}
		}
	}
	return tx.Commit()
}

// Reset replaces the stored orders with the seed.
func (r *Repository) Reset(ctx context.Context) error {
	return r.Replace(ctx, r.seed)
}
