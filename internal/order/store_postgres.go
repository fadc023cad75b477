package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
)

type db interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists orders, their lines and line selections.
type PostgresStore struct {
	DB db
}

var selectionColumns = []string{
	"order_line_id", "position", "kind", "ref_id", "name", "group_name",
	"section", "intensity", "quantity", "amount", "included",
}

// CreateOrder inserts the order header and all of its lines in one transaction.
func (s *PostgresStore) CreateOrder(ctx context.Context, o Order) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, cart_id, status, customer_name, notes, currency, tax_bps, subtotal, tax, total, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		o.ID, o.CartID, o.Status, o.CustomerName, o.Notes, o.Currency, o.TaxBps,
		int64(o.Subtotal), int64(o.Tax), int64(o.Total), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if err := insertLines(ctx, tx, o.Lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AppendLines locks the order row, inserts lines after the existing ones and
// recomputes the order totals. Either every line is stored or none is.
func (s *PostgresStore) AppendLines(ctx context.Context, orderID string, lines []Line) (Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var taxBps int64
	var currency string
	err = tx.QueryRow(ctx, `SELECT tax_bps, currency FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&taxBps, &currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("lock order: %w", err)
	}
	var last int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) FROM order_lines WHERE order_id = $1`, orderID).Scan(&last); err != nil {
		return Order{}, fmt.Errorf("read line positions: %w", err)
	}
	for i := range lines {
		lines[i].OrderID = orderID
		lines[i].Position = last + i + 1
	}
	if err := insertLines(ctx, tx, lines); err != nil {
		return Order{}, err
	}

	var subtotal int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(total_price), 0) FROM order_lines WHERE order_id = $1`, orderID).Scan(&subtotal); err != nil {
		return Order{}, fmt.Errorf("sum order lines: %w", err)
	}
	summary := pricing.Summarize(money.Money(subtotal), taxBps, currency)
	_, err = tx.Exec(ctx, `UPDATE orders SET subtotal = $2, tax = $3, total = $4, updated_at = now() WHERE id = $1`,
		orderID, int64(summary.Subtotal), int64(summary.Tax), int64(summary.Total))
	if err != nil {
		return Order{}, fmt.Errorf("update order totals: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return s.Get(ctx, orderID)
}

// Get loads an order with its lines and selections.
func (s *PostgresStore) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	var subtotal, tax, total int64
	err := s.DB.QueryRow(ctx, `
		SELECT id::text, COALESCE(cart_id, ''), status, customer_name, notes, currency, tax_bps, subtotal, tax, total, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CartID, &o.Status, &o.CustomerName, &o.Notes, &o.Currency, &o.TaxBps, &subtotal, &tax, &total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	o.Subtotal, o.Tax, o.Total = money.Money(subtotal), money.Money(tax), money.Money(total)

	rows, err := s.DB.Query(ctx, `
		SELECT id::text, position, kind, name, configuration, quantity, unit_price, total_price, notes, created_at
		FROM order_lines WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return Order{}, fmt.Errorf("list order lines: %w", err)
	}
	index := map[string]int{}
	for rows.Next() {
		var l Line
		var kind string
		var raw []byte
		var unit, lineTotal int64
		if err := rows.Scan(&l.ID, &l.Position, &kind, &l.Name, &raw, &l.Quantity, &unit, &lineTotal, &l.Notes, &l.CreatedAt); err != nil {
			rows.Close()
			return Order{}, fmt.Errorf("scan order line: %w", err)
		}
		if err := json.Unmarshal(raw, &l.Item); err != nil {
			rows.Close()
			return Order{}, fmt.Errorf("decode order line %s: %w", l.ID, err)
		}
		l.OrderID = id
		l.Kind = configurator.Kind(kind)
		l.UnitPriceSnapshot, l.TotalPrice = money.Money(unit), money.Money(lineTotal)
		index[l.ID] = len(o.Lines)
		o.Lines = append(o.Lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("list order lines: %w", err)
	}
	if len(o.Lines) == 0 {
		return o, nil
	}

	rows, err = s.DB.Query(ctx, `
		SELECT sel.order_line_id::text, sel.kind, sel.ref_id, sel.name, sel.group_name, sel.section, sel.intensity, sel.quantity, sel.amount, sel.included
		FROM order_line_selections sel
		JOIN order_lines l ON l.id = sel.order_line_id
		WHERE l.order_id = $1
		ORDER BY l.position, sel.position`, id)
	if err != nil {
		return Order{}, fmt.Errorf("list order selections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lineID string
		var sel Selection
		var amount int64
		if err := rows.Scan(&lineID, &sel.Kind, &sel.RefID, &sel.Name, &sel.GroupName, &sel.Section, &sel.Intensity, &sel.Quantity, &amount, &sel.Included); err != nil {
			return Order{}, fmt.Errorf("scan order selection: %w", err)
		}
		sel.Amount = money.Money(amount)
		if i, ok := index[lineID]; ok {
			o.Lines[i].Selections = append(o.Lines[i].Selections, sel)
		}
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("list order selections: %w", err)
	}
	return o, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, lines []Line) error {
	var selRows [][]any
	for _, l := range lines {
		cfg, err := json.Marshal(l.Item)
		if err != nil {
			return fmt.Errorf("encode order line: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines (id, order_id, position, kind, name, configuration, quantity, unit_price, total_price, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			l.ID, l.OrderID, l.Position, string(l.Kind), l.Name, cfg, l.Quantity,
			int64(l.UnitPriceSnapshot), int64(l.TotalPrice), l.Notes, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
		for i, sel := range l.Selections {
			selRows = append(selRows, []any{
				l.ID, i + 1, sel.Kind, sel.RefID, sel.Name, sel.GroupName,
				sel.Section, sel.Intensity, sel.Quantity, int64(sel.Amount), sel.Included,
			})
		}
	}
	if len(selRows) == 0 {
		return nil
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"order_line_selections"}, selectionColumns, pgx.CopyFromRows(selRows)); err != nil {
		return fmt.Errorf("copy order selections: %w", err)
	}
	return nil
}
