package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/variables"
)

// Condition is a parsed decide condition.
//
// Grammar:
//
//	condition := operand [ op literal ]
//	operand   := "context." key | key | "{{" key "}}"
//	op        := "==" | "!=" | "<" | "<=" | ">" | ">=" | "contains"
//	literal   := quoted string | number | true | false | bare word
//
// A bare operand is true when the variable is set, non-empty and not one of
// "false", "0" or "no". Comparisons are numeric when both sides parse as
// numbers; ordering operators on non-numbers fail. Literals are substituted
// before comparison.
type Condition struct {
	Key     string
	Op      string
	Literal string
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true, "contains": true,
}

// ParseCondition parses src.
func ParseCondition(src string) (Condition, error) {
	s := strings.TrimSpace(src)
	if s == "" {
		return Condition{}, fmt.Errorf("%w: empty condition", domain.ErrInputInvalid)
	}

	i := 0
	for i < len(s) && isOperandChar(s[i]) {
		i++
	}
	key := normalizeOperand(s[:i])
	if key == "" {
		return Condition{}, fmt.Errorf("%w: condition %q has no operand", domain.ErrInputInvalid, src)
	}

	rest := strings.TrimSpace(s[i:])
	if rest == "" {
		return Condition{Key: key}, nil
	}

	var op string
	if strings.HasPrefix(rest, "contains") {
		op = "contains"
	} else {
		j := 0
		for j < len(rest) && strings.ContainsRune("=!<>", rune(rest[j])) {
			j++
		}
		op = rest[:j]
	}
	if !comparisonOps[op] {
		return Condition{}, fmt.Errorf("%w: condition %q has unknown operator", domain.ErrInputInvalid, src)
	}

	lit := strings.TrimSpace(rest[len(op):])
	if lit == "" {
		return Condition{}, fmt.Errorf("%w: condition %q has no literal", domain.ErrInputInvalid, src)
	}
	if unq, ok := unquote(lit); ok {
		lit = unq
	}
	return Condition{Key: key, Op: op, Literal: lit}, nil
}

// Eval evaluates the condition against vars.
func (c Condition) Eval(vars *variables.Context) (bool, error) {
	value, set := vars.Get(c.Key)
	if c.Op == "" {
		return set && truthy(value), nil
	}

	lit := vars.Substitute(c.Literal)
	if c.Op == "contains" {
		return strings.Contains(value, lit), nil
	}

	lv, lerr := strconv.ParseFloat(strings.TrimSpace(value), 64)
	rv, rerr := strconv.ParseFloat(strings.TrimSpace(lit), 64)
	numeric := set && lerr == nil && rerr == nil

	switch c.Op {
	case "==":
		if numeric {
			return lv == rv, nil
		}
		return value == lit, nil
	case "!=":
		if numeric {
			return lv != rv, nil
		}
		return value != lit, nil
	}

	if !numeric {
		return false, fmt.Errorf("%w: '%s %s %s' needs numeric operands (got %q)", domain.ErrInputInvalid, c.Key, c.Op, c.Literal, value)
	}
	switch c.Op {
	case "<":
		return lv < rv, nil
	case "<=":
		return lv <= rv, nil
	case ">":
		return lv > rv, nil
	default:
		return lv >= rv, nil
	}
}

func isOperandChar(b byte) bool {
	return b == '_' || b == '.' || b == '-' || b == '{' || b == '}' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func normalizeOperand(op string) string {
	if strings.HasPrefix(op, "{{") && strings.HasSuffix(op, "}}") {
		op = op[2 : len(op)-2]
	}
	return strings.TrimPrefix(op, "context.")
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return s, false
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no":
		return false
	}
	return true
}
