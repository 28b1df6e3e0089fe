package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMode resolves a command-line mode string into a Mode. Class-targeted
// modes take the form "has:NAME", "missing:NAME", "only:NAME", where NAME is
// looked up in the ordered class-name list. Anything else that is not a
// built-in mode name is parsed as a custom query.
func ParseMode(s string, classNames []string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "":
		return Mode{Kind: All}, nil
	case "unannotated":
		return Mode{Kind: Unannotated}, nil
	case "overlapping":
		return Mode{Kind: Overlapping}, nil
	case "suspicious":
		return Mode{Kind: Suspicious}, nil
	}

	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		class, err := resolveClass(strings.TrimSpace(rest), classNames)
		if err != nil {
			return Mode{}, err
		}
		switch strings.ToLower(strings.TrimSpace(prefix)) {
		case "has":
			return Mode{Kind: HasClass, Class: class}, nil
		case "missing":
			return Mode{Kind: MissingClass, Class: class}, nil
		case "only":
			return Mode{Kind: OnlyClass, Class: class}, nil
		}
	}

	conds, err := ParseQuery(s, classNames)
	if err != nil {
		return Mode{}, err
	}
	return Mode{Kind: Query, Conditions: conds}, nil
}

// ParseQuery parses a condition list like "cat>=1 and dog=0". Conditions and
// the AND/OR keywords between them are whitespace separated; each condition
// is NAME, an operator (=, !=, <, >, <=, >=), and a count.
func ParseQuery(s string, classNames []string) ([]Condition, error) {
	tokens := strings.Fields(s)
	var conds []Condition
	logic := LogicAnd
	for i, tok := range tokens {
		if i%2 == 1 {
			switch strings.ToLower(tok) {
			case "and":
				logic = LogicAnd
			case "or":
				logic = LogicOr
			default:
				return nil, fmt.Errorf("expected AND or OR, got %q", tok)
			}
			continue
		}
		cond, err := parseCondition(tok, classNames)
		if err != nil {
			return nil, err
		}
		cond.Logic = logic
		conds = append(conds, cond)
	}
	if len(tokens)%2 == 0 && len(tokens) > 0 {
		return nil, fmt.Errorf("query ends with a dangling %q", tokens[len(tokens)-1])
	}
	return conds, nil
}

func parseCondition(tok string, classNames []string) (Condition, error) {
	opAt := strings.IndexAny(tok, "=!<>")
	if opAt <= 0 {
		return Condition{}, fmt.Errorf("condition %q has no operator", tok)
	}
	name := tok[:opAt]
	rest := tok[opAt:]

	var op Op
	var countStr string
	switch {
	case strings.HasPrefix(rest, "!="):
		op, countStr = OpNe, rest[2:]
	case strings.HasPrefix(rest, "<="):
		op, countStr = OpLe, rest[2:]
	case strings.HasPrefix(rest, ">="):
		op, countStr = OpGe, rest[2:]
	case strings.HasPrefix(rest, "="):
		op, countStr = OpEq, rest[1:]
	case strings.HasPrefix(rest, "<"):
		op, countStr = OpLt, rest[1:]
	case strings.HasPrefix(rest, ">"):
		op, countStr = OpGt, rest[1:]
	default:
		return Condition{}, fmt.Errorf("condition %q has an unknown operator", tok)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return Condition{}, fmt.Errorf("condition %q needs a non-negative count", tok)
	}
	class, err := resolveClass(name, classNames)
	if err != nil {
		return Condition{}, err
	}
	return Condition{Class: class, Op: op, Count: count}, nil
}

// resolveClass accepts either a class name from the manifest or a raw
// numeric class ID.
func resolveClass(name string, classNames []string) (int, error) {
	for i, n := range classNames {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	if id, err := strconv.Atoi(name); err == nil && id >= 0 {
		return id, nil
	}
	return 0, fmt.Errorf("unknown class %q", name)
}
