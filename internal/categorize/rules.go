package categorize

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// Rule maps merchant/description keywords to a category. Rules are evaluated
// in file order; the first match wins.
type Rule struct {
	CategoryID    string   `yaml:"category_id"`
	FinancialType string   `yaml:"financial_type,omitempty"`
	Keywords      []string `yaml:"keywords"`
}

// RuleTable is the first, cheapest categorization stage: a static keyword
// lookup loaded from a YAML file at startup.
type RuleTable struct {
	rules []Rule
}

// Assignment is the outcome of a successful categorization stage.
type Assignment struct {
	CategoryID    string
	FinancialType domain.FinancialCategory
}

// LoadRules reads a rule table from a YAML file.
func LoadRules(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRules: reading %s: %w", path, err)
	}
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("LoadRules: parsing %s: %w", path, err)
	}
	for i, r := range doc.Rules {
		if r.CategoryID == "" {
			return nil, fmt.Errorf("LoadRules: rule %d has no category_id", i)
		}
	}
	return NewRuleTable(doc.Rules), nil
}

// NewRuleTable builds a rule table from an in-memory rule list.
func NewRuleTable(rules []Rule) *RuleTable {
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		nr := r
		nr.Keywords = make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				nr.Keywords = append(nr.Keywords, kw)
			}
		}
		normalized[i] = nr
	}
	return &RuleTable{rules: normalized}
}

// Match returns the first rule whose keywords appear in the transaction's
// store name or description.
func (t *RuleTable) Match(tx *domain.Transaction) (Assignment, bool) {
	haystack := strings.ToLower(tx.Store + " " + tx.Description)
	for _, rule := range t.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				a := Assignment{CategoryID: rule.CategoryID}
				if rule.FinancialType != "" {
					a.FinancialType = domain.FinancialCategory(rule.FinancialType)
				}
				return a, true
			}
		}
	}
	return Assignment{}, false
}

// Len returns the number of loaded rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}
