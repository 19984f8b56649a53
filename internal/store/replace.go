package store

import (
	"database/sql"
	"fmt"
)

type scanner interface{ Scan(...any) error }

// replaceAll swaps the whole contents of table for items in one transaction.
// args returns the insert arguments for the item at position i.
func replaceAll[T any](db *sql.DB, table, insert string, items []T, args func(i int, item T) ([]any, error)) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", table, err)
	}
	defer stmt.Close()

	for i, item := range items {
		a, err := args(i, item)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", table, err)
		}
		if _, err := stmt.Exec(a...); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", table, err)
	}
	return nil
}

func listAll[T any](db *sql.DB, table, query string, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
