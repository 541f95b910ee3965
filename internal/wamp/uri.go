package wamp

import (
	"fmt"
	"strings"

	"github.com/nmxmxh/battlerealm/pkg/errors"
)

// MatchStyle describes how a pattern URI is compared to a published or
// called URI (spec.md §4.3, §9 "Match style").
type MatchStyle int

const (
	// MatchExact requires the URIs to be identical.
	MatchExact MatchStyle = iota
	// MatchPrefix matches when the subscribed URI is a dot-separated
	// prefix of the published URI.
	MatchPrefix
	// MatchWildcard matches wildcard URIs, where empty segments act as
	// a "any single segment" placeholder.
	MatchWildcard
)

// URI is a dot-separated reverse-domain token sequence (spec.md §3, §6).
//
// A strict URI forbids wildcards and placeholders. A wildcard URI
// allows empty segments for prefix/wildcard match. A pattern URI
// additionally allows `{name}` segments that bind values on match.
type URI string

// validSegment validates a single dot-separated URI segment. An empty
// segment is only legal under wildcard matching; callers decide that.
func validSegment(seg string) bool {
	if seg == "" {
		return true
	}
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && len(seg) > 2 {
		return true
	}
	for _, r := range seg {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return true
}

// ValidateStrict checks that u is a strict URI: non-empty segments,
// lowercase alphanumeric/underscore only, no placeholders.
func (u URI) ValidateStrict() error {
	s := string(u)
	if s == "" {
		return fmt.Errorf("%w: empty uri", errors.ErrMalformedURI)
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in strict uri %q", errors.ErrMalformedURI, s)
		}
		if strings.HasPrefix(seg, "{") {
			return fmt.Errorf("%w: placeholder not allowed in strict uri %q", errors.ErrMalformedURI, s)
		}
		if !validSegment(seg) {
			return fmt.Errorf("%w: invalid segment %q in uri %q", errors.ErrMalformedURI, seg, s)
		}
	}
	return nil
}

// ValidateWildcard checks that u is syntactically legal under wildcard
// or pattern matching: segments may be empty or `{name}` placeholders.
func (u URI) ValidateWildcard() error {
	s := string(u)
	if s == "" {
		return fmt.Errorf("%w: empty uri", errors.ErrMalformedURI)
	}
	for _, seg := range strings.Split(s, ".") {
		if !validSegment(seg) {
			return fmt.Errorf("%w: invalid segment %q in uri %q", errors.ErrMalformedURI, seg, s)
		}
	}
	return nil
}

// IsPatternMatched reports whether u contains any `{name}` placeholder
// segment.
func (u URI) IsPatternMatched() bool {
	for _, seg := range strings.Split(string(u), ".") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			return true
		}
	}
	return false
}

// Matches reports whether the concrete URI `candidate` matches the
// registered pattern `u` under the given match style, and if so
// returns the placeholder bindings for any `{name}` segments.
func (u URI) Matches(candidate URI, style MatchStyle) (bool, map[string]string) {
	patternSegs := strings.Split(string(u), ".")
	candSegs := strings.Split(string(candidate), ".")

	switch style {
	case MatchExact:
		if len(patternSegs) != len(candSegs) {
			return false, nil
		}
	case MatchPrefix:
		if len(patternSegs) > len(candSegs) {
			return false, nil
		}
		candSegs = candSegs[:len(patternSegs)]
	case MatchWildcard:
		if len(patternSegs) != len(candSegs) {
			return false, nil
		}
	}

	bindings := make(map[string]string)
	for i, pseg := range patternSegs {
		cseg := candSegs[i]
		switch {
		case strings.HasPrefix(pseg, "{") && strings.HasSuffix(pseg, "}"):
			name := pseg[1 : len(pseg)-1]
			if cseg == "" {
				return false, nil
			}
			bindings[name] = cseg
		case pseg == "":
			// wildcard empty segment: matches anything, including empty.
			continue
		default:
			if pseg != cseg {
				return false, nil
			}
		}
	}
	return true, bindings
}
