package grading

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/takeda-juku/tensaku/constants"
)

// Classify maps a score against its maximum to a display mark:
// full circle, zero check, anything in between triangle.
func Classify(score float64, max int) constants.Mark {
	switch {
	case max > 0 && score >= float64(max):
		return constants.MarkCircle
	case score <= 0:
		return constants.MarkCheck
	default:
		return constants.MarkTriangle
	}
}

// FormatScore renders "score／max" with a full-width slash, dropping a
// trailing .0 so integral scores print as integers.
func FormatScore(score float64, max int) string {
	return fmt.Sprintf("%s／%d", trimFloat(score), max)
}

func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

// Totals sums scores and maxima across every question of a result.
func Totals(r *Result) (score float64, max int) {
	for _, q := range r.Questions {
		score += q.Score
		max += q.Max
	}
	return score, max
}

// deductionRe matches a signed deduction amount like "-3" or "-1.5".
var deductionRe = regexp.MustCompile(`-(\d+(?:\.\d+)?)`)

// effectiveDeduction reads the points actually taken off by one
// correction line. The convention is a trailing parenthesized group
// whose LAST "-N" is authoritative, so a capped line such as
// "...(-3、区分内上限のため-1)" counts as 1, not 4.
func effectiveDeduction(correction string) float64 {
	group := trailingParenGroup(correction)
	if group == "" {
		group = correction
	}
	matches := deductionRe.FindAllStringSubmatch(group, -1)
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1][1]
	v, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0
	}
	return v
}

func trailingParenGroup(s string) string {
	s = strings.TrimRight(s, " 　")
	closers := map[rune]rune{')': '(', '）': '（'}
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	open, ok := closers[runes[len(runes)-1]]
	if !ok {
		return ""
	}
	for i := len(runes) - 2; i >= 0; i-- {
		if runes[i] == open {
			return string(runes[i+1 : len(runes)-1])
		}
	}
	return ""
}

// ValidateDeductions cross-checks each question's corrections against
// its score. It never rewrites a result; mismatches come back as
// warnings for the log so an over- or under-deducted sheet can be
// reviewed by hand.
func ValidateDeductions(r *Result) []string {
	var warnings []string
	keys := make([]string, 0, len(r.Questions))
	for k := range r.Questions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q := r.Questions[k]
		var deducted float64
		for _, c := range q.Corrections {
			deducted += effectiveDeduction(c)
		}
		expected := float64(q.Max) - deducted
		if expected < 0 {
			expected = 0
		}
		if expected != q.Score {
			warnings = append(warnings, fmt.Sprintf(
				"question %s: corrections deduct %s from %d (expect %s) but score is %s",
				k, trimFloat(deducted), q.Max, trimFloat(expected), trimFloat(q.Score)))
		}
	}
	return warnings
}
