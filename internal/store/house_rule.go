package store

import (
	"database/sql"

	"github.com/dukerupert/nestmate/internal/model"
)

type HouseRuleStore struct {
	db *sql.DB
}

func NewHouseRuleStore(db *sql.DB) *HouseRuleStore {
	return &HouseRuleStore{db: db}
}

func scanHouseRule(sc scanner) (model.HouseRule, error) {
	var r model.HouseRule
	err := sc.Scan(&r.ID, &r.Title, &r.Description, &r.RuleType, &r.Priority)
	return r, err
}

func (s *HouseRuleStore) List() ([]model.HouseRule, error) {
	return listAll(s.db, "house_rules",
		`SELECT id, title, description, rule_type, priority FROM house_rules ORDER BY position`,
		scanHouseRule)
}

func (s *HouseRuleStore) ReplaceAll(rules []model.HouseRule) error {
	return replaceAll(s.db, "house_rules",
		`INSERT INTO house_rules (id, title, description, rule_type, priority, position) VALUES (?, ?, ?, ?, ?, ?)`,
		rules, func(i int, r model.HouseRule) ([]any, error) {
			return []any{r.ID, r.Title, r.Description, r.RuleType, r.Priority, i}, nil
		})
}
