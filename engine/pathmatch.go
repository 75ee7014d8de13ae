package engine

import "strings"

// Path patterns are glob-style and anchored at both ends: "*" matches
// exactly one path segment, "**" matches zero or more segments. Patterns are
// compiled once into a small segment matcher rather than translated into
// regular expressions, so the wildcard semantics stay precise and testable
// in isolation.

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentOne                 // *
	segmentAnyDepth            // **
)

type patternSegment struct {
	kind    segmentKind
	literal string
}

// PathPattern is one compiled include/exclude pattern.
type PathPattern struct {
	raw      string
	segments []patternSegment
}

// CompilePathPattern compiles a glob-style path pattern.
func CompilePathPattern(pattern string) PathPattern {
	parts := splitPath(pattern)
	segments := make([]patternSegment, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "**":
			segments = append(segments, patternSegment{kind: segmentAnyDepth})
		case "*":
			segments = append(segments, patternSegment{kind: segmentOne})
		default:
			segments = append(segments, patternSegment{kind: segmentLiteral, literal: part})
		}
	}
	return PathPattern{raw: pattern, segments: segments}
}

func (p PathPattern) String() string {
	return p.raw
}

// Match reports whether path matches the pattern.
func (p PathPattern) Match(path string) bool {
	return matchSegments(p.segments, splitPath(path))
}

func matchSegments(pattern []patternSegment, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	switch head := pattern[0]; head.kind {
	case segmentAnyDepth:
		for skip := 0; skip <= len(segments); skip++ {
			if matchSegments(pattern[1:], segments[skip:]) {
				return true
			}
		}
		return false
	case segmentOne:
		return len(segments) > 0 && matchSegments(pattern[1:], segments[1:])
	default:
		return len(segments) > 0 &&
			segments[0] == head.literal &&
			matchSegments(pattern[1:], segments[1:])
	}
}

// MatchAnyPath reports whether path matches at least one of the patterns.
func MatchAnyPath(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if CompilePathPattern(pattern).Match(path) {
			return true
		}
	}
	return false
}

// normalizePath strips query and fragment noise so matching only ever sees
// the path component.
func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path
}
