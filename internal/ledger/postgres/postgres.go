// Package postgres stores the ledger in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dompet/internal/core"
	applog "dompet/internal/log"
)

type Ledger struct {
	pool   *pgxpool.Pool
	logger *applog.Logger
}

func New(ctx context.Context, databaseURL string, logger *applog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Ledger{pool: pool, logger: logger.WithComponent(applog.ComponentLedger)}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			posted_date DATE NOT NULL,
			description TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			category TEXT NOT NULL DEFAULT 'uncategorised',
			account_type TEXT NOT NULL DEFAULT 'unknown',
			source_document TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions (user_id, posted_date);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init ledger schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (l *Ledger) Append(ctx context.Context, txs ...core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range txs {
		t = t.Normalize()
		batch.Queue(`INSERT INTO transactions
			(user_id, posted_date, description, amount, category, account_type, source_document)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.UserID,
			t.PostedDate.Time,
			t.Description,
			decimal.NewFromFloat(t.Amount).Round(2).String(),
			t.Category,
			t.AccountType,
			t.SourceDocument,
		)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		l.logger.ErrorContext(ctx, "Failed to insert transactions", applog.FieldError, err)
		return fmt.Errorf("insert transactions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}
	return nil
}

func (l *Ledger) TransactionsFor(ctx context.Context, userID string, start, end *core.Date) ([]core.Transaction, error) {
	var startArg, endArg any
	if start != nil {
		startArg = start.Time
	}
	if end != nil {
		endArg = end.Time
	}

	rows, err := l.pool.Query(ctx, `SELECT id, user_id, posted_date, description, amount::text,
			category, account_type, source_document
		FROM transactions
		WHERE user_id = $1
		  AND ($2::date IS NULL OR posted_date >= $2::date)
		  AND ($3::date IS NULL OR posted_date <= $3::date)
		ORDER BY id`, userID, startArg, endArg)
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
			t      core.Transaction
			amount string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.PostedDate.Time, &t.Description, &amount,
			&t.Category, &t.AccountType, &t.SourceDocument); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount of %d: %w", t.ID, err)
		}
		t.Amount = d.InexactFloat64()
		t.PostedDate = core.NewDate(t.PostedDate.Year(), int(t.PostedDate.Month()), t.PostedDate.Day())
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *Ledger) Close() {
	l.pool.Close()
}
