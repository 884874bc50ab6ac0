package types

// StatementID is the source line number identifying a statement.
// Distinct from BlockKey: an id is a parse-time source position, a key
// is a runtime-unique block identity. See DESIGN.md "Ids vs. keys".
type StatementID int

// Statement is an immutable node of the parsed statement tree.
// ChildGroups is an ordered sequence of groups, each group an ordered
// set of child statement ids (e.g. a round's list of exercises).
type Statement struct {
	ID          StatementID     `json:"id"`
	ParentID    *StatementID    `json:"parentId,omitempty"`
	ChildGroups [][]StatementID `json:"childGroups,omitempty"`
	Fragments   []Fragment      `json:"fragments"`
	IsLeaf      bool            `json:"isLeaf"`
	Hints       map[string]bool `json:"hints,omitempty"`
	Meta        StatementMeta   `json:"meta"`
}

// StatementMeta carries source-position metadata for a Statement.
type StatementMeta struct {
	Line int `json:"line"`
}

// HasHint reports whether the statement carries the named hint.
func (s *Statement) HasHint(hint string) bool {
	if s == nil {
		return false
	}
	return s.Hints[hint]
}

// FindFragment returns the first fragment of the given kind satisfying
// predicate (if non-nil), and whether one was found. The only sanctioned
// access path to a statement's fragments per §4.5.
func (s *Statement) FindFragment(kind FragmentKind, predicate func(Fragment) bool) (Fragment, bool) {
	if s == nil {
		return Fragment{}, false
	}
	for _, f := range s.Fragments {
		if f.Kind != kind {
			continue
		}
		if predicate == nil || predicate(f) {
			return f, true
		}
	}
	return Fragment{}, false
}

// FilterFragments returns every fragment of the given kind, in order.
func (s *Statement) FilterFragments(kind FragmentKind) []Fragment {
	if s == nil {
		return nil
	}
	var out []Fragment
	for _, f := range s.Fragments {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// HasFragment reports whether the statement carries a fragment of the given kind.
func (s *Statement) HasFragment(kind FragmentKind) bool {
	_, ok := s.FindFragment(kind, nil)
	return ok
}

// ChildIDs flattens ChildGroups into a single ordered slice of ids.
func (s *Statement) ChildIDs() []StatementID {
	if s == nil {
		return nil
	}
	var out []StatementID
	for _, group := range s.ChildGroups {
		out = append(out, group...)
	}
	return out
}

// ParseError describes a single error surfaced by the upstream parser.
// The core never originates a ParseError; it only reads Script.Errors
// to decide whether to refuse compilation (§7).
type ParseError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
	Blocking bool  `json:"blocking"`
}

// Script is the read-only, parsed representation of a workout source
// handed to the Script Runtime.
type Script struct {
	Source     string                     `json:"source"`
	Statements map[StatementID]*Statement `json:"statements"`
	Errors     []ParseError               `json:"errors,omitempty"`
}

// HasBlockingErrors reports whether any parse error is blocking, in
// which case the runtime must refuse to execute the script (§6, §7).
func (s *Script) HasBlockingErrors() bool {
	if s == nil {
		return false
	}
	for _, e := range s.Errors {
		if e.Blocking {
			return true
		}
	}
	return false
}

// Root returns the root statement: the one with no parent. Returns nil,
// false if the script has zero or more than one root (ambiguous).
func (s *Script) Root() (*Statement, bool) {
	if s == nil {
		return nil, false
	}
	var root *Statement
	for _, stmt := range s.Statements {
		if stmt.ParentID == nil {
			if root != nil {
				return nil, false
			}
			root = stmt
		}
	}
	if root == nil {
		return nil, false
	}
	return root, true
}
