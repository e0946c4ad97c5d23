// Package capture implements the interactive coordinate-capture flow:
// the ordered step plan, the wizard state machine, and the conversion
// from on-screen drags to page-point rectangles. The canvas, file picker
// and page navigation belong to the front end; this package only owns
// the state.
package capture

import (
	"fmt"
	"strings"

	"github.com/takeda-juku/tensaku/constants"
	"github.com/takeda-juku/tensaku/internal/schema"
)

// QuestionSpec is one question in operator-entered order.
type QuestionSpec struct {
	Key  string
	Type constants.QuestionType
}

// PlanConfig describes the sheet being captured.
type PlanConfig struct {
	MasterID    string
	ScoreField2 bool
	Questions   []QuestionSpec
}

// Step is one prompt in the capture sequence.
type Step struct {
	Prompt string
	Path   schema.FieldPath
}

// BuildPlan emits the fixed capture order: total_score, grader_name,
// score_field_2 when enabled, then each question in configuration order
// (free response captures score and text, multiple choice score only),
// then comment_box.
func BuildPlan(cfg PlanConfig) ([]Step, error) {
	if strings.TrimSpace(cfg.MasterID) == "" {
		return nil, fmt.Errorf("build plan: master id is required")
	}
	steps := []Step{
		{Prompt: "合計点欄をドラッグしてください", Path: schema.TopLevelPath(schema.FieldTotalScore)},
		{Prompt: "採点者名欄をドラッグしてください", Path: schema.TopLevelPath(schema.FieldGraderName)},
	}
	if cfg.ScoreField2 {
		steps = append(steps, Step{
			Prompt: "2枚目の得点欄 (score_field_2) をドラッグしてください",
			Path:   schema.TopLevelPath(schema.FieldScoreField2),
		})
	}
	for _, q := range cfg.Questions {
		if strings.TrimSpace(q.Key) == "" {
			return nil, fmt.Errorf("build plan: empty question key")
		}
		steps = append(steps, Step{
			Prompt: fmt.Sprintf("設問 %s の小計欄 (score) をドラッグしてください", q.Key),
			Path:   schema.QuestionPath(q.Key, schema.QuestionScore),
		})
		if q.Type == constants.FreeResponse {
			steps = append(steps, Step{
				Prompt: fmt.Sprintf("設問 %s のテキスト欄 (text) をドラッグしてください", q.Key),
				Path:   schema.QuestionPath(q.Key, schema.QuestionText),
			})
		}
	}
	steps = append(steps, Step{
		Prompt: "コメント欄 (comment_box) をドラッグしてください",
		Path:   schema.TopLevelPath(schema.FieldCommentBox),
	})
	return steps, nil
}
