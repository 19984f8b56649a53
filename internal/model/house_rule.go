package model

type HouseRule struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	RuleType    string `json:"rule_type"`
	Priority    int    `json:"priority"`
}
