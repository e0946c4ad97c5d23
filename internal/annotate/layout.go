// Package annotate writes grading results onto the source PDF as
// editable free-text annotations at template-defined coordinates.
package annotate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/takeda-juku/tensaku/constants"
	"github.com/takeda-juku/tensaku/internal/grading"
)

// Alignment selects the quadding of an annotation box.
type Alignment int

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
)

// QuestionText renders the feedback body for one question: the details
// text (or joined corrections when details are absent), plus a
// reviewer-check line listing each sub-result as 〇 or ✖.
func QuestionText(q grading.QuestionResult) string {
	text := q.DetailsText
	if text == "" && len(q.Corrections) > 0 {
		text = strings.Join(q.Corrections, "\n")
	}
	if len(q.SubResults) > 0 {
		keys := make([]string, 0, len(q.SubResults))
		for k := range q.SubResults {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+":"+checkSymbol(q.SubResults[k]))
		}
		text = text + "\n【確認用】" + strings.Join(parts, " ")
	}
	return text
}

func checkSymbol(m constants.Mark) string {
	if m == constants.MarkCircle {
		return "〇"
	}
	return "✖"
}

// QuestionScore renders "score／max" for one question.
func QuestionScore(q grading.QuestionResult) string {
	return grading.FormatScore(q.Score, q.Max)
}

// Comment renders the closing comment block from its three parts.
func Comment(p grading.CommentParts) string {
	return fmt.Sprintf("【コメント】\n%s\n%s\n%s", p.Praise, p.Advice, p.Closing)
}
