// Package fixture builds types.Script values from a small line-oriented
// text format. It stands in for the tokenizer/parser the core assumes is
// available upstream (out of scope per the runtime's own boundaries): it
// has no error recovery and is not part of the runtime's public contract,
// only test and CLI scaffolding sufficient to express the fragment/
// statement shapes types.Fragment and types.Statement define.
//
// Format: one statement per line, nested by two-space indentation. All of
// a parent's immediate children (contiguous lines one indent level
// deeper) form its single ChildGroups entry; the fixture format has no
// syntax for a statement with more than one child group. A line is a
// whitespace-separated list of tokens; each token is either "Kind:value"
// (sets a fragment) or "+hint" (sets a boolean hint consumed by the
// strategy package). A line starting with "#" is a comment and is
// skipped.
//
//	Rounds:3
//	  Effort:"Push-ups" Rep:10
//	  Timer:30s
package fixture

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// Parse builds a types.Script from source. Returns a non-blocking
// types.ParseError for recoverable issues (unknown fragment kind) and a
// blocking one for structural problems (a first statement that is not at
// indent 0, more than one root). Indentation that is not a multiple of
// two spaces is returned as an error, with no Script.
func Parse(source string) (*types.Script, error) {
	lines, err := scanLines(source)
	if err != nil {
		return nil, err
	}

	script := &types.Script{
		Source:     source,
		Statements: make(map[types.StatementID]*types.Statement),
	}

	// stack of (indent, id) tracks the open ancestor chain; childGroup
	// accumulates each parent's single run of immediate children.
	type frame struct {
		indent int
		id     types.StatementID
	}
	var stack []frame
	childGroup := make(map[types.StatementID][]types.StatementID)

	for i, ln := range lines {
		id := types.StatementID(i)
		fragments, hints, parseErr := parseTokens(ln.tokens)
		if parseErr != nil {
			script.Errors = append(script.Errors, types.ParseError{
				Line:     ln.lineNo,
				Message:  parseErr.Error(),
				Blocking: false,
			})
		}

		for len(stack) > 0 && stack[len(stack)-1].indent >= ln.indent {
			stack = stack[:len(stack)-1]
		}

		stmt := &types.Statement{
			ID:        id,
			Fragments: fragments,
			Hints:     hints,
			IsLeaf:    true,
			Meta:      types.StatementMeta{Line: ln.lineNo},
		}

		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parentID := parent.id
			stmt.ParentID = &parentID

			parentStmt := script.Statements[parentID]
			parentStmt.IsLeaf = false
			childGroup[parentID] = append(childGroup[parentID], id)
		} else if ln.indent != 0 {
			script.Errors = append(script.Errors, types.ParseError{
				Line:     ln.lineNo,
				Message:  "first statement must be at indent 0",
				Blocking: true,
			})
		}

		script.Statements[id] = stmt
		stack = append(stack, frame{indent: ln.indent, id: id})
	}

	for parentID, group := range childGroup {
		script.Statements[parentID].ChildGroups = [][]types.StatementID{group}
	}

	if _, ok := script.Root(); !ok && len(script.Statements) > 0 {
		script.Errors = append(script.Errors, types.ParseError{
			Line:     0,
			Message:  "script must have exactly one root statement",
			Blocking: true,
		})
	}

	return script, nil
}

type rawLine struct {
	lineNo int
	indent int
	tokens []string
}

// scanLines strips comments/blank lines, computes each line's indent
// level (two spaces per level; a non-multiple-of-two indent is rejected),
// and tokenizes the remainder respecting double-quoted strings.
func scanLines(source string) ([]rawLine, error) {
	var out []rawLine
	scanner := bufio.NewScanner(strings.NewReader(source))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		trimmed := strings.TrimRight(raw, " \t")
		content := strings.TrimLeft(trimmed, " ")
		if content == "" || strings.HasPrefix(content, "#") {
			continue
		}

		leading := len(trimmed) - len(content)
		if leading%2 != 0 {
			return nil, fmt.Errorf("fixture: line %d: indentation must be a multiple of two spaces", lineNo)
		}

		out = append(out, rawLine{
			lineNo: lineNo,
			indent: leading / 2,
			tokens: tokenize(content),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fixture: scan source: %w", err)
	}
	return out, nil
}

// tokenize splits on whitespace but keeps double-quoted substrings intact.
func tokenize(content string) []string {
	var tokens []string
	var b strings.Builder
	inQuotes := false
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range content {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ' ' && !inQuotes:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// parseTokens converts a line's tokens into fragments and hints. Unknown
// fragment kinds are reported as non-blocking errors and skipped, so a
// single malformed line doesn't prevent parsing the rest of the fixture.
func parseTokens(tokens []string) ([]types.Fragment, map[string]bool, error) {
	var fragments []types.Fragment
	var hints map[string]bool
	var firstErr error

	for _, tok := range tokens {
		if strings.HasPrefix(tok, "+") {
			if hints == nil {
				hints = make(map[string]bool)
			}
			hints[strings.TrimPrefix(tok, "+")] = true
			continue
		}

		kind, value, ok := strings.Cut(tok, ":")
		frag, err := parseFragment(kind, value, ok)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fragments = append(fragments, frag)
	}
	return fragments, hints, firstErr
}

func parseFragment(kind, value string, hasValue bool) (types.Fragment, error) {
	switch types.FragmentKind(kind) {
	case types.FragmentTimer:
		durMs, err := parseDurationToken(value)
		if err != nil {
			return types.Fragment{}, fmt.Errorf("Timer: %w", err)
		}
		direction := types.DirectionDown
		if strings.HasPrefix(value, "+") {
			direction = types.DirectionUp
		}
		return types.Fragment{
			Kind:  types.FragmentTimer,
			Image: value,
			Value: types.TimerValue{DurationMs: durMs, Direction: direction},
		}, nil

	case types.FragmentRep:
		n, err := strconv.Atoi(value)
		if err != nil {
			return types.Fragment{}, fmt.Errorf("Rep: %q is not an integer", value)
		}
		return types.Fragment{Kind: types.FragmentRep, Image: value, Value: float64(n), Behavior: types.BehaviorDefined}, nil

	case types.FragmentEffort:
		return types.Fragment{Kind: types.FragmentEffort, Image: unquote(value), Value: unquote(value)}, nil

	case types.FragmentDistance, types.FragmentResistance:
		amount, unit, err := parseAmountToken(value)
		if err != nil {
			return types.Fragment{}, err
		}
		return types.Fragment{
			Kind:  types.FragmentKind(kind),
			Image: value,
			Value: types.AmountValue{Amount: amount, Unit: unit},
		}, nil

	case types.FragmentRounds:
		rv, err := parseRoundsToken(value)
		if err != nil {
			return types.Fragment{}, err
		}
		return types.Fragment{Kind: types.FragmentRounds, Image: value, Value: rv}, nil

	case types.FragmentAction:
		return types.Fragment{
			Kind:  types.FragmentAction,
			Image: value,
			Value: types.ActionValue{Name: value, Raw: value},
		}, nil

	case types.FragmentIncrement:
		return types.Fragment{Kind: types.FragmentIncrement, Image: value}, nil

	case types.FragmentLap:
		return types.Fragment{Kind: types.FragmentLap, Image: value}, nil

	case types.FragmentText:
		return types.Fragment{Kind: types.FragmentText, Image: unquote(value), Value: unquote(value)}, nil

	default:
		if !hasValue {
			return types.Fragment{Kind: types.FragmentText, Image: kind, Value: kind}, nil
		}
		return types.Fragment{}, fmt.Errorf("unknown fragment kind %q", kind)
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseDurationToken parses "20s", "90s", "5m", or "mm:ss" into milliseconds.
func parseDurationToken(value string) (int64, error) {
	value = strings.TrimPrefix(value, "+")
	if strings.Contains(value, ":") {
		parts := strings.Split(value, ":")
		if len(parts) != 2 {
			return 0, fmt.Errorf("expected mm:ss, got %q", value)
		}
		mins, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("bad minutes in %q", value)
		}
		secs, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("bad seconds in %q", value)
		}
		return int64(mins*60+secs) * 1000, nil
	}

	if strings.HasSuffix(value, "ms") {
		n, err := strconv.Atoi(strings.TrimSuffix(value, "ms"))
		if err != nil {
			return 0, fmt.Errorf("bad duration %q", value)
		}
		return int64(n), nil
	}
	if strings.HasSuffix(value, "m") {
		n, err := strconv.Atoi(strings.TrimSuffix(value, "m"))
		if err != nil {
			return 0, fmt.Errorf("bad duration %q", value)
		}
		return int64(n) * 60 * 1000, nil
	}
	if strings.HasSuffix(value, "s") {
		n, err := strconv.Atoi(strings.TrimSuffix(value, "s"))
		if err != nil {
			return 0, fmt.Errorf("bad duration %q", value)
		}
		return int64(n) * 1000, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q", value)
	}
	return int64(n) * 1000, nil
}

func parseAmountToken(value string) (amount float64, unit string, err error) {
	i := 0
	for i < len(value) && (value[i] == '.' || value[i] == '-' || (value[i] >= '0' && value[i] <= '9')) {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("bad amount %q", value)
	}
	amount, err = strconv.ParseFloat(value[:i], 64)
	if err != nil {
		return 0, "", fmt.Errorf("bad amount %q", value)
	}
	return amount, value[i:], nil
}

func parseRoundsToken(value string) (types.RoundsValue, error) {
	if strings.Contains(value, "-") {
		parts := strings.Split(value, "-")
		scheme := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return types.RoundsValue{}, fmt.Errorf("bad rep scheme %q", value)
			}
			scheme = append(scheme, n)
		}
		return types.RoundsValue{RepScheme: scheme}, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return types.RoundsValue{}, fmt.Errorf("bad rounds count %q", value)
	}
	return types.RoundsValue{Count: &n}, nil
}
