// Package sqlite stores the ledger in the SQLite transactions table. Amounts
// are kept as integer cents and dates as YYYY-MM-DD text.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dompet/internal/core"
	applog "dompet/internal/log"
)

type Ledger struct {
	db     *sql.DB
	logger *applog.Logger
}

// New expects a database already migrated by storage.OpenSQLite.
func New(db *sql.DB, logger *applog.Logger) *Ledger {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Ledger{db: db, logger: logger.WithComponent(applog.ComponentLedger)}
}

func (l *Ledger) Append(ctx context.Context, txs ...core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(user_id, posted_date, description, amount_cents, category, account_type, source_document)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		t = t.Normalize()
		_, err := stmt.ExecContext(ctx,
			t.UserID,
			t.PostedDate.String(),
			t.Description,
			core.ToCents(t.Amount),
			t.Category,
			t.AccountType,
			t.SourceDocument,
		)
		if err != nil {
			l.logger.ErrorContext(ctx, "Failed to insert transaction",
				applog.FieldUserID, t.UserID,
				applog.FieldError, err)
			return fmt.Errorf("insert transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}
	l.logger.DebugContext(ctx, "Transactions saved to SQLite", applog.FieldCount, len(txs))
	return nil
}

func (l *Ledger) TransactionsFor(ctx context.Context, userID string, start, end *core.Date) ([]core.Transaction, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if start != nil {
		where = append(where, "posted_date >= ?")
		args = append(args, start.String())
	}
	if end != nil {
		where = append(where, "posted_date <= ?")
		args = append(args, end.String())
	}

	query := `SELECT id, user_id, posted_date, description, amount_cents, category, account_type, source_document
		FROM transactions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to query transactions",
			applog.FieldUserID, userID,
			applog.FieldError, err)
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t     core.Transaction
			day   string
			cents int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &day, &t.Description, &cents, &t.Category, &t.AccountType, &t.SourceDocument); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.PostedDate, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		t.Amount = core.FromCents(cents)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
