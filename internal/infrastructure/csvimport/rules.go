package csvimport

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Rule validates one column
type Rule struct {
	Column    string
	Required  bool
	MaxLength int
	Email     bool
	Unique    bool
	Check     func(value string) error
}

// RuleBuilder builds a Rule fluently
type RuleBuilder struct {
	rule Rule
}

// Column starts a rule for a column
func Column(name string) *RuleBuilder {
	return &RuleBuilder{rule: Rule{Column: name}}
}

// Required rejects blank values
func (b *RuleBuilder) Required() *RuleBuilder {
	b.rule.Required = true
	return b
}

// MaxLength limits the value length in runes
func (b *RuleBuilder) MaxLength(n int) *RuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Email requires a single address
func (b *RuleBuilder) Email() *RuleBuilder {
	b.rule.Email = true
	return b
}

// Unique rejects a value seen on an earlier row of the same file
func (b *RuleBuilder) Unique() *RuleBuilder {
	b.rule.Unique = true
	return b
}

// Check adds a custom check; its error message becomes the row error
func (b *RuleBuilder) Check(fn func(value string) error) *RuleBuilder {
	b.rule.Check = fn
	return b
}

// Build returns the rule
func (b *RuleBuilder) Build() Rule {
	return b.rule
}

// Validator applies rules to rows and remembers values of unique columns
type Validator struct {
	rules  []Rule
	seen   map[string]map[string]int
	errors *ErrorCollection
}

// NewValidator creates a validator sharing the given error collection
func NewValidator(rules []Rule, errs *ErrorCollection) *Validator {
	return &Validator{
		rules:  rules,
		seen:   make(map[string]map[string]int),
		errors: errs,
	}
}

// Validate checks a row and reports whether it passed every rule
func (v *Validator) Validate(row *Row) bool {
	ok := true
	for _, r := range v.rules {
		value := row.Get(r.Column)
		if value == "" {
			if r.Required {
				v.errors.Add(RowError{Row: row.Line, Column: r.Column, Code: ErrCodeRequired,
					Message: fmt.Sprintf("field '%s' is required", r.Column)})
				ok = false
			}
			continue
		}
		if r.MaxLength > 0 && utf8.RuneCountInString(value) > r.MaxLength {
			v.errors.Add(RowError{Row: row.Line, Column: r.Column, Code: ErrCodeInvalidLength,
				Message: fmt.Sprintf("length must be at most %d", r.MaxLength)})
			ok = false
			continue
		}
		if r.Email {
			if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
				v.errors.Add(RowError{Row: row.Line, Column: r.Column, Code: ErrCodeInvalidFormat,
					Message: "invalid format, expected email", Value: value})
				ok = false
				continue
			}
		}
		if r.Check != nil {
			if err := r.Check(value); err != nil {
				v.errors.Add(RowError{Row: row.Line, Column: r.Column, Code: ErrCodeInvalidFormat,
					Message: err.Error(), Value: value})
				ok = false
				continue
			}
		}
		if r.Unique {
			key := strings.ToUpper(value)
			if v.seen[r.Column] == nil {
				v.seen[r.Column] = make(map[string]int)
			}
			if first, dup := v.seen[r.Column][key]; dup {
				v.errors.Add(RowError{Row: row.Line, Column: r.Column, Code: ErrCodeDuplicate,
					Message: fmt.Sprintf("duplicate value, first seen on row %d", first), Value: value})
				ok = false
				continue
			}
			v.seen[r.Column][key] = row.Line
		}
	}
	return ok
}
