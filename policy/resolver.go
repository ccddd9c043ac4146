package policy

import "strings"

// Match is the result of a successful [Resolver.Resolve].
type Match struct {
	Group  string
	Policy Policy
}

// Resolver maps a full method name or route to the best matching group.
type Resolver struct {
	groups []*GroupBuilder
}

// NewResolver creates a Resolver over groups.
func NewResolver(groups ...*GroupBuilder) *Resolver {
	return &Resolver{groups: groups}
}

// Resolve returns the group whose rule matches name best: exact before prefix
// before regex, then the longest match, then the earliest registered group.
// A nil Resolver matches nothing.
func (res *Resolver) Resolve(name string) (Match, bool) {
	if res == nil {
		return Match{}, false
	}

	var (
		best     Match
		found    bool
		bestKind matchKind
		bestLen  int
	)
	for _, g := range res.groups {
		for _, r := range g.rules {
			n, ok := r.match(name)
			if !ok {
				continue
			}
			if !found || r.kind < bestKind || (r.kind == bestKind && n > bestLen) {
				best = Match{Group: g.name, Policy: g.policy}
				bestKind, bestLen, found = r.kind, n, true
			}
		}
	}
	return best, found
}

// match returns the length of the matched portion of name.
func (r *rule) match(name string) (int, bool) {
	switch r.kind {
	case kindExact:
		if name == r.pattern {
			return len(r.pattern), true
		}
	case kindPrefix:
		if strings.HasPrefix(name, r.pattern) {
			return len(r.pattern), true
		}
	case kindRegex:
		if loc := r.re.FindStringIndex(name); loc != nil {
			return loc[1] - loc[0], true
		}
	}
	return 0, false
}
