// Package grading builds grading-service requests, recovers structured
// results from noisy replies, and enforces score-consistency invariants
// on what comes back.
package grading

import (
	"context"

	"github.com/takeda-juku/tensaku/constants"
)

// ContentBlock is one segment of the request payload. Blocks are emitted
// in a fixed order with stable content per master, so the transport can
// mark the shared prefix (rubric, criteria) reusable across the many
// students graded against one template.
type ContentBlock struct {
	Text  string
	Cache bool
}

// QuestionResult is the graded outcome for one question.
type QuestionResult struct {
	Max            int                       `json:"max"`
	GradingProcess string                    `json:"grading_process"`
	Score          float64                   `json:"score"`
	Mark           constants.Mark            `json:"mark"`
	Corrections    []string                  `json:"corrections"`
	DetailsText    string                    `json:"details_text"`
	SubResults     map[string]constants.Mark `json:"sub_results,omitempty"`
}

// CommentParts is the three-part closing comment.
type CommentParts struct {
	Praise  string `json:"praise"`
	Advice  string `json:"advice"`
	Closing string `json:"closing"`
}

// Result is the structured per-sheet output of the grading service.
type Result struct {
	StudentID    string                    `json:"student_id"`
	Questions    map[string]QuestionResult `json:"questions"`
	CommentParts CommentParts              `json:"comment_parts"`
}

// Caller performs one attempt against the grading service and returns
// the raw textual reply.
type Caller interface {
	Complete(ctx context.Context, blocks []ContentBlock) (string, error)
}
