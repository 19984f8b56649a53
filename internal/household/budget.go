package household

import (
	"time"

	"github.com/dukerupert/nestmate/internal/model"
)

// Summary is the budget overview for a set of transactions.
type Summary struct {
	BudgetGoal int64
	TotalSpent int64
	Remaining  int64
	ByCategory map[model.Category]int64
	ByPayer    map[int64]int64
}

// Summarize totals txs against budgetGoal. Remaining goes negative when overspent.
func Summarize(budgetGoal int64, txs []model.BudgetTransaction) Summary {
	s := Summary{
		BudgetGoal: budgetGoal,
		ByCategory: make(map[model.Category]int64),
		ByPayer:    make(map[int64]int64),
	}
	for _, tx := range txs {
		s.TotalSpent += tx.Amount
		s.ByCategory[tx.Category] += tx.Amount
		s.ByPayer[tx.PayerID] += tx.Amount
	}
	s.Remaining = budgetGoal - s.TotalSpent
	return s
}

// InMonth returns the transactions dated in the given year and month.
func InMonth(txs []model.BudgetTransaction, year int, month time.Month) []model.BudgetTransaction {
	var out []model.BudgetTransaction
	for _, tx := range txs {
		d, err := ParseDate(tx.Date)
		if err != nil {
			continue
		}
		if d.Year() == year && d.Month() == month {
			out = append(out, tx)
		}
	}
	return out
}

// FixedTotal sums the monthly amount of all fixed expenses.
func FixedTotal(fixed []model.FixedExpense) int64 {
	var total int64
	for _, f := range fixed {
		total += f.Amount
	}
	return total
}

// NextDue returns the next date on or after now's day when f is charged.
// Days past the end of a short month fall on its last day.
func NextDue(f model.FixedExpense, now time.Time) time.Time {
	today := startOfDay(now)
	due := dueInMonth(f.Day, today.Year(), today.Month(), today.Location())
	if due.Before(today) {
		next := today.AddDate(0, 0, -today.Day()+1).AddDate(0, 1, 0)
		due = dueInMonth(f.Day, next.Year(), next.Month(), today.Location())
	}
	return due
}

func dueInMonth(day, year int, month time.Month, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
