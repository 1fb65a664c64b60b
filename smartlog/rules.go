package smartlog

import (
	"sort"
	"strings"
)

// Wildcard is the rule key consulted when a category has no rule of its own.
const Wildcard = "*"

// Rule decides whether messages of one category are emitted.
type Rule struct {
	Enabled     bool     `json:"enabled"`
	MinSeverity Severity `json:"minSeverity"`
}

// DefaultRule applies when neither a specific nor a wildcard rule exists.
var DefaultRule = Rule{Enabled: true, MinSeverity: Debug}

// Allows reports whether a message at sev passes the rule.
func (r Rule) Allows(sev Severity) bool {
	return r.Enabled && sev >= r.MinSeverity
}

// RuleStore maps category keys to rules. It is not safe for concurrent
// use; Engine serializes access to its store.
type RuleStore struct {
	rules map[string]Rule
}

// NewRuleStore returns an empty store.
func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]Rule)}
}

// ParseRules builds a store from a rule string.
func ParseRules(text string) *RuleStore {
	rs := NewRuleStore()
	rs.Apply(text)
	return rs
}

// Apply merges semicolon-separated clauses into the store.
//
// A clause is "key=value" or a bare "key". Keys starting with "*" address
// the wildcard rule; anything after "*." in such a key is read like a
// value. A value is a dot-separated list of tokens: "true"/"false" set
// Enabled, a severity word sets MinSeverity, and other tokens are ignored.
// Fields not mentioned keep their current value for that key.
func (rs *RuleStore) Apply(text string) {
	for _, clause := range strings.Split(text, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		key, value, _ := strings.Cut(clause, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var keyTokens string
		if strings.HasPrefix(key, Wildcard) {
			keyTokens = strings.TrimPrefix(strings.TrimPrefix(key, Wildcard), ".")
			key = Wildcard
		}
		if key == "" {
			continue
		}

		rule, ok := rs.rules[key]
		if !ok {
			rule = DefaultRule
		}
		rule = applyTokens(rule, keyTokens)
		rule = applyTokens(rule, value)
		rs.rules[key] = rule
	}
}

func applyTokens(rule Rule, value string) Rule {
	if value == "" {
		return rule
	}
	for _, tok := range strings.Split(value, ".") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		switch tok {
		case "true":
			rule.Enabled = true
		case "false":
			rule.Enabled = false
		default:
			if sev, ok := ParseSeverity(tok); ok {
				rule.MinSeverity = sev
			}
		}
	}
	return rule
}

// Set replaces the rule for key.
func (rs *RuleStore) Set(key string, rule Rule) {
	rs.rules[key] = rule
}

// Get returns the rule stored for key, without wildcard fallback.
func (rs *RuleStore) Get(key string) (Rule, bool) {
	r, ok := rs.rules[key]
	return r, ok
}

// Delete removes the rule for key.
func (rs *RuleStore) Delete(key string) {
	delete(rs.rules, key)
}

// Resolve returns the effective rule for category: its own rule, else the
// wildcard, else DefaultRule.
func (rs *RuleStore) Resolve(category string) Rule {
	if r, ok := rs.rules[category]; ok {
		return r
	}
	if r, ok := rs.rules[Wildcard]; ok {
		return r
	}
	return DefaultRule
}

// Allows is the filtering decision for one message.
func (rs *RuleStore) Allows(category string, sev Severity) bool {
	return rs.Resolve(category).Allows(sev)
}

// Rules returns a copy of the stored rules.
func (rs *RuleStore) Rules() map[string]Rule {
	out := make(map[string]Rule, len(rs.rules))
	for k, v := range rs.rules {
		out[k] = v
	}
	return out
}

// Len returns the number of stored rules.
func (rs *RuleStore) Len() int { return len(rs.rules) }

// Reset removes every rule.
func (rs *RuleStore) Reset() {
	rs.rules = make(map[string]Rule)
}

// String renders the store in the grammar accepted by Apply, one clause
// per key in key order:
//
//	key            enabled at debug
//	key=<level>    enabled above debug
//	key=false      disabled at debug
//	key=false.<level>
func (rs *RuleStore) String() string {
	keys := make([]string, 0, len(rs.rules))
	for k := range rs.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, renderClause(k, rs.rules[k]))
	}
	return strings.Join(clauses, "; ")
}

func renderClause(key string, r Rule) string {
	switch {
	case !r.Enabled && r.MinSeverity == Debug:
		return key + "=false"
	case !r.Enabled:
		return key + "=false." + r.MinSeverity.String()
	case r.MinSeverity != Debug:
		return key + "=" + r.MinSeverity.String()
	default:
		return key
	}
}
