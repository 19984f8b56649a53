package household

import (
	"testing"
	"time"

	"github.com/dukerupert/nestmate/internal/model"
)

func TestSummarize(t *testing.T) {
	txs := []model.BudgetTransaction{
		{ID: 1, Amount: 12000, Category: model.CategoryFood, PayerID: 1},
		{ID: 2, Amount: 50000, Category: model.CategoryHousing, PayerID: 2},
		{ID: 3, Amount: 3000, Category: model.CategoryFood, PayerID: 2},
	}

	s := Summarize(100000, txs)
	if s.TotalSpent != 65000 {
		t.Errorf("total spent = %d, want 65000", s.TotalSpent)
	}
	if s.Remaining != 35000 {
		t.Errorf("remaining = %d, want 35000", s.Remaining)
	}
	if s.ByCategory[model.CategoryFood] != 15000 {
		t.Errorf("food = %d, want 15000", s.ByCategory[model.CategoryFood])
	}
	if s.ByPayer[2] != 53000 {
		t.Errorf("payer 2 = %d, want 53000", s.ByPayer[2])
	}
}

func TestSummarizeOverspent(t *testing.T) {
	txs := []model.BudgetTransaction{{ID: 1, Amount: 150}}
	s := Summarize(100, txs)
	if s.Remaining != -50 {
		t.Errorf("remaining = %d, want -50", s.Remaining)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(500, nil)
	if s.TotalSpent != 0 || s.Remaining != 500 {
		t.Errorf("summary = %+v, want spent 0 remaining 500", s)
	}
}

func TestInMonth(t *testing.T) {
	txs := []model.BudgetTransaction{
		{ID: 1, Date: "2026-03-01"},
		{ID: 2, Date: "2026-03-31"},
		{ID: 3, Date: "2026-04-01"},
		{ID: 4, Date: "garbage"},
	}
	got := InMonth(txs, 2026, time.March)
	if len(got) != 2 {
		t.Errorf("transactions in March = %d, want 2", len(got))
	}
}

func TestFixedTotal(t *testing.T) {
	fixed := []model.FixedExpense{{Amount: 500000}, {Amount: 45000}}
	if got := FixedTotal(fixed); got != 545000 {
		t.Errorf("fixed total = %d, want 545000", got)
	}
}

func TestNextDue(t *testing.T) {
	tests := []struct {
		name string
		day  int
		now  time.Time
		want time.Time
	}{
		{"later this month", 25, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)},
		{"today", 10, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"next month", 5, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)},
		{"clamp short month", 31, time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"clamp after month end", 31, time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC), time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"year rollover", 1, time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDue(model.FixedExpense{Day: tt.day}, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextDue = %v, want %v", got, tt.want)
			}
		})
	}
}
