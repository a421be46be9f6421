package validation

import (
	"context"
	"net/mail"
)

// FieldError is one failed check on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// A check inspects one field value and returns a failure message, or "" when
// the value passes. present reports whether the field appeared in the body at
// all.
type check func(ctx context.Context, value any, present bool) string

// Rule is an ordered chain of checks bound to a named field.
type Rule struct {
	field  string
	checks []check
}

func Field(name string, checks ...check) Rule {
	return Rule{field: name, checks: checks}
}

// Apply runs every rule against body and returns the failures in rule order.
// Evaluation stops at the first failing check per field so a missing value
// reports "required" once instead of cascading through the rest of its chain.
func Apply(ctx context.Context, body map[string]any, rules ...Rule) []FieldError {
	var errs []FieldError
	for _, rule := range rules {
		value, present := body[rule.field]
		for _, c := range rule.checks {
			if msg := c(ctx, value, present); msg != "" {
				errs = append(errs, FieldError{Field: rule.field, Message: msg})
				break
			}
		}
	}
	return errs
}

func Required(msg string) check {
	return func(_ context.Context, _ any, present bool) string {
		if !present {
			return msg
		}
		return ""
	}
}

func MinLen(n int, msg string) check {
	return func(_ context.Context, value any, present bool) string {
		s, ok := value.(string)
		if !present || !ok || len(s) < n {
			return msg
		}
		return ""
	}
}

func MaxLen(n int, msg string) check {
	return func(_ context.Context, value any, present bool) string {
		s, ok := value.(string)
		if !present || !ok || len(s) > n {
			return msg
		}
		return ""
	}
}

func Email(msg string) check {
	return func(_ context.Context, value any, present bool) string {
		s, ok := value.(string)
		if !present || !ok {
			return msg
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return msg
		}
		return ""
	}
}

func OneOf(allowed []string, msg string) check {
	return func(_ context.Context, value any, present bool) string {
		s, ok := value.(string)
		if !present || !ok {
			return msg
		}
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		return msg
	}
}

// MinItems checks that a list field holds at least n elements.
func MinItems(n int, msg string) check {
	return func(_ context.Context, value any, present bool) string {
		items, ok := value.([]any)
		if !present || !ok || len(items) < n {
			return msg
		}
		return ""
	}
}

// EachString checks that every element of a list field is a string.
func EachString(msg string) check {
	return func(_ context.Context, value any, present bool) string {
		items, ok := value.([]any)
		if !present || !ok {
			return msg
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return msg
			}
		}
		return ""
	}
}

// Lookup reports whether any stored record already uses value for a field.
type Lookup func(ctx context.Context, value string) (bool, error)

// Unique fails when the lookup finds any existing match. A lookup error also
// fails the check rather than letting a possibly duplicate value through.
func Unique(lookup Lookup, msg string) check {
	return func(ctx context.Context, value any, present bool) string {
		s, ok := value.(string)
		if !present || !ok {
			return msg
		}
		inUse, err := lookup(ctx, s)
		if err != nil || inUse {
			return msg
		}
		return ""
	}
}
