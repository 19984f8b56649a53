package store

import (
	"database/sql"

	"github.com/dukerupert/nestmate/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(sc scanner) (model.BudgetTransaction, error) {
	var tx model.BudgetTransaction
	err := sc.Scan(&tx.ID, &tx.Title, &tx.Amount, &tx.Category, &tx.PayerID, &tx.Date)
	return tx, err
}

func (s *TransactionStore) List() ([]model.BudgetTransaction, error) {
	return listAll(s.db, "transactions",
		`SELECT id, title, amount, category, payer_id, date FROM transactions ORDER BY position`,
		scanTransaction)
}

func (s *TransactionStore) ReplaceAll(txs []model.BudgetTransaction) error {
	return replaceAll(s.db, "transactions",
		`INSERT INTO transactions (id, title, amount, category, payer_id, date, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txs, func(i int, tx model.BudgetTransaction) ([]any, error) {
			return []any{tx.ID, tx.Title, tx.Amount, tx.Category, tx.PayerID, tx.Date, i}, nil
		})
}

type FixedExpenseStore struct {
	db *sql.DB
}

func NewFixedExpenseStore(db *sql.DB) *FixedExpenseStore {
	return &FixedExpenseStore{db: db}
}

func scanFixedExpense(sc scanner) (model.FixedExpense, error) {
	var f model.FixedExpense
	err := sc.Scan(&f.ID, &f.Title, &f.Amount, &f.Day)
	return f, err
}

func (s *FixedExpenseStore) List() ([]model.FixedExpense, error) {
	return listAll(s.db, "fixed_expenses",
		`SELECT id, title, amount, day FROM fixed_expenses ORDER BY position`,
		scanFixedExpense)
}

func (s *FixedExpenseStore) ReplaceAll(fixed []model.FixedExpense) error {
	return replaceAll(s.db, "fixed_expenses",
		`INSERT INTO fixed_expenses (id, title, amount, day, position) VALUES (?, ?, ?, ?, ?)`,
		fixed, func(i int, f model.FixedExpense) ([]any, error) {
			return []any{f.ID, f.Title, f.Amount, f.Day, i}, nil
		})
}
