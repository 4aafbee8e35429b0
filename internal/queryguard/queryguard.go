// Package queryguard decides whether an untrusted query expression may be
// forwarded to the executor. Two independent passes must both accept:
// a default-deny allowlist over every verb invocation in the string, and a
// denylist of known-dangerous patterns that are not verb-shaped (raw SQL,
// schema and connection access, interpolation markers, process execution).
//
// Both passes are pure and deterministic and run on every execution
// attempt. Results are never cached: the same string is re-validated at
// call time, there is no trust-on-first-use.
package queryguard

import (
	"fmt"
	"regexp"
	"strings"
)

// allowedVerbs is the fixed set of read-only query operations. Anything
// not listed here is rejected.
var allowedVerbs = map[string]bool{
	// filtering
	"where":        true,
	"orwhere":      true,
	"wherein":      true,
	"wherenotin":   true,
	"wherenull":    true,
	"wherenotnull": true,
	"wherebetween": true,

	// ordering
	"orderby":     true,
	"orderbydesc": true,
	"latest":      true,
	"oldest":      true,

	// limiting
	"limit":  true,
	"take":   true,
	"offset": true,
	"skip":   true,

	// field selection
	"select":   true,
	"distinct": true,

	// aggregation
	"count": true,
	"sum":   true,
	"avg":   true,
	"min":   true,
	"max":   true,

	// terminal fetch operations
	"get":    true,
	"first":  true,
	"find":   true,
	"pluck":  true,
	"value":  true,
	"exists": true,
}

// verbInvocation recognizes a verb syntactically: an identifier
// immediately followed by an opening parenthesis.
var verbInvocation = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// denyPatterns are case-insensitive signals of mutation, raw SQL, schema
// or connection access, interpolation, and process execution. Defense in
// depth behind the allowlist: they catch dangerous spellings that are not
// verb-shaped invocations.
var denyPatterns = []struct {
	re     *regexp.Regexp
	detail string
}{
	{regexp.MustCompile(`(?i)\binsert\s+into\b`), "raw INSERT statement"},
	{regexp.MustCompile(`(?i)\bupdate\s+\S+\s+set\b`), "raw UPDATE statement"},
	{regexp.MustCompile(`(?i)\bdelete\s+from\b`), "raw DELETE statement"},
	{regexp.MustCompile(`(?i)\b(drop|alter|truncate|create)\s+(table|index|view|database|schema)\b`), "raw DDL statement"},
	{regexp.MustCompile(`(?i)\bunion\b.*\bselect\b`), "UNION SELECT injection"},
	{regexp.MustCompile(`(?i)\b\w+raw\s*\(`), "raw statement escape"},
	{regexp.MustCompile(`(?i)\b(statement|unprepared|query)\s*\(`), "raw statement execution"},
	{regexp.MustCompile(`(?i)\b(schema|connection|pdo|getpdo|db)\s*::`), "schema or connection access"},
	{regexp.MustCompile(`#\{`), "interpolation marker"},
	{regexp.MustCompile(`\$\{`), "interpolation marker"},
	{regexp.MustCompile(`(?i)\b(system|exec|shell_exec|passthru|popen|proc_open|eval|fork|spawn)\b`), "process execution primitive"},
	{regexp.MustCompile("`"), "backtick command execution"},
	{regexp.MustCompile(`;`), "statement separator"},
}

// Result is the outcome of one validation call. Not persisted.
type Result struct {
	Accepted      bool
	DeniedVerb    string
	DeniedPattern string
}

// Err converts a rejecting Result into its typed error. Nil for accepted
// results.
func (r Result) Err() error {
	if r.Accepted {
		return nil
	}
	if r.DeniedVerb != "" {
		return &DisallowedVerbError{Verb: r.DeniedVerb}
	}
	return &DisallowedPatternError{Pattern: r.DeniedPattern}
}

// Validate checks an untrusted expression string against both passes.
//
// The allowlist pass runs first so that a forbidden verb invocation is
// reported as a verb rejection; the denylist then catches dangerous
// strings that never take verb shape. A string with zero verb invocations
// passes the allowlist trivially but still faces the denylist.
func Validate(expr string) Result {
	for _, m := range verbInvocation.FindAllStringSubmatch(expr, -1) {
		verb := strings.ToLower(m[1])
		if !allowedVerbs[verb] {
			return Result{DeniedVerb: m[1]}
		}
	}

	for _, p := range denyPatterns {
		if p.re.MatchString(expr) {
			return Result{DeniedPattern: p.detail}
		}
	}

	return Result{Accepted: true}
}

// DisallowedVerbError reports a verb invocation outside the read-only
// allowlist.
type DisallowedVerbError struct {
	Verb string
}

func (e *DisallowedVerbError) Error() string {
	return fmt.Sprintf("disallowed verb: %s", e.Verb)
}

// DisallowedPatternError reports a match against the danger denylist.
type DisallowedPatternError struct {
	Pattern string
}

func (e *DisallowedPatternError) Error() string {
	return fmt.Sprintf("disallowed pattern: %s", e.Pattern)
}
