// Package selection parses free-form index selections like "1-5,8,12-15"
// into validated sets of 1-based positions.
package selection

import (
	"fmt"
	"strconv"
	"strings"
)

// Set holds unique 1-based indices.
type Set map[int]struct{}

// Contains reports whether i is in the set.
func (s Set) Contains(i int) bool {
	_, ok := s[i]
	return ok
}

// Parse parses a comma-separated expression of single integers and
// hyphenated ranges into a Set. Every returned index lies in [1, upperBound].
//
// Malformed tokens and out-of-range single values are skipped rather than
// failing the parse; each skip is reported in the returned warnings. A range
// contributes its intersection with [1, upperBound], which may be nothing.
// An upperBound below 1 yields an empty set regardless of input.
func Parse(expression string, upperBound int) (Set, []string) {
	set := make(Set)
	if upperBound < 1 {
		return set, nil
	}

	var warnings []string
	for _, token := range strings.Split(expression, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if strings.Contains(token, "-") {
			parts := strings.SplitN(token, "-", 2)
			start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 != nil || err2 != nil {
				warnings = append(warnings, fmt.Sprintf("invalid range %q", token))
				continue
			}
			// Intersect the range with [1, upperBound]; a range that falls
			// entirely outside contributes nothing.
			if start < 1 {
				start = 1
			}
			if end > upperBound {
				end = upperBound
			}
			for i := start; i <= end; i++ {
				set[i] = struct{}{}
			}
			continue
		}

		value, err := strconv.Atoi(token)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid index %q", token))
			continue
		}
		if value < 1 || value > upperBound {
			warnings = append(warnings, fmt.Sprintf("index %d is out of range", value))
			continue
		}
		set[value] = struct{}{}
	}

	return set, warnings
}

type mode int

const (
	modeAll mode = iota
	modeNone
	modeSubset
)

// Selection is the result of interpreting a selection input string. It keeps
// "no input" (select everything), the explicit word "none" (select nothing),
// and an explicit index subset as distinct states.
type Selection struct {
	mode mode
	set  Set
}

// All selects every candidate.
func All() Selection { return Selection{mode: modeAll} }

// None selects no candidates.
func None() Selection { return Selection{mode: modeNone} }

// Subset selects the candidates whose 1-based positions are in set.
func Subset(set Set) Selection { return Selection{mode: modeSubset, set: set} }

// IsAll reports whether every candidate is selected.
func (s Selection) IsAll() bool { return s.mode == modeAll }

// IsEmpty reports whether no candidate can be selected.
func (s Selection) IsEmpty() bool {
	return s.mode == modeNone || (s.mode == modeSubset && len(s.set) == 0)
}

// Includes reports whether the 1-based position i is selected.
func (s Selection) Includes(i int) bool {
	switch s.mode {
	case modeAll:
		return true
	case modeNone:
		return false
	default:
		return s.set.Contains(i)
	}
}

// ParseSelection interprets a raw selection input string. A blank string
// means "all", the word "none" (case-insensitive) means "none", and anything
// else is parsed as an index expression via Parse.
func ParseSelection(input string, upperBound int) (Selection, []string) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return All(), nil
	case strings.EqualFold(input, "none"):
		return None(), nil
	}
	set, warnings := Parse(input, upperBound)
	return Subset(set), warnings
}
