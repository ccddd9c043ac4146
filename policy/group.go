// Package policy assigns per-call settings (rate limit, timeout, required
// scope) to groups of gRPC methods or HTTP routes.
//
//	res := policy.NewResolver(
//		policy.Group("admin").Prefix("/routecache.Admin/").
//			Policy(policy.Policy{AuthRequired: true, Scope: "admin"}),
//		policy.Group("lookup").Prefix("/routecache.Lookup/").
//			Policy(policy.Policy{Timeout: 15 * time.Second}),
//	)
package policy

import (
	"regexp"
	"time"
)

// RateLimitRule allows Rate calls per Window.
type RateLimitRule struct {
	Rate   int
	Window time.Duration
}

// PerSecond converts the rule to a token refill rate.
func (r RateLimitRule) PerSecond() float64 {
	if r.Window <= 0 {
		return float64(r.Rate)
	}
	return float64(r.Rate) / r.Window.Seconds()
}

// Policy is the configuration applied to every call in a group.
type Policy struct {
	RateLimit *RateLimitRule
	Timeout   time.Duration

	// AuthRequired rejects calls without an authenticated actor.
	AuthRequired bool

	// Scope, when set, must be held by the actor.
	Scope string
}

type matchKind int

// Lower kinds take priority.
const (
	kindExact matchKind = iota
	kindPrefix
	kindRegex
)

type rule struct {
	kind    matchKind
	pattern string
	re      *regexp.Regexp
}

// GroupBuilder collects the matching rules and policy of one group.
type GroupBuilder struct {
	name   string
	rules  []rule
	policy Policy
}

// Group starts a group called name.
func Group(name string) *GroupBuilder {
	return &GroupBuilder{name: name}
}

// Exact matches the full method or route verbatim.
func (g *GroupBuilder) Exact(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindExact, pattern: pattern})
	return g
}

// Prefix matches methods or routes starting with pattern.
func (g *GroupBuilder) Prefix(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindPrefix, pattern: pattern})
	return g
}

// Regex matches with a regular expression. It panics if pattern does not
// compile.
func (g *GroupBuilder) Regex(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindRegex, pattern: pattern, re: regexp.MustCompile(pattern)})
	return g
}

// Policy sets the group's policy.
func (g *GroupBuilder) Policy(p Policy) *GroupBuilder {
	g.policy = p
	return g
}
