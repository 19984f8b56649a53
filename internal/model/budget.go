package model

type Category string

const (
	CategoryFood      Category = "food"
	CategoryHousing   Category = "housing"
	CategoryLiving    Category = "living"
	CategoryTransport Category = "transport"
	CategoryEtc       Category = "etc"
)

// Categories lists every spending category in display order.
var Categories = []Category{CategoryFood, CategoryHousing, CategoryLiving, CategoryTransport, CategoryEtc}

// BudgetTransaction amounts are in currency minor units.
type BudgetTransaction struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Amount   int64    `json:"amount"`
	Category Category `json:"category"`
	PayerID  int64    `json:"payer_id"`
	Date     string   `json:"date"`
}

type FixedExpense struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
	Day    int    `json:"day"`
}

type Budget struct {
	BudgetGoal int64 `json:"budget_goal"`
}
