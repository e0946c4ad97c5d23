// Package schema models the per-template coordinate schema: the mapping
// from named answer-sheet fields to page-relative rectangles that the
// capture wizard produces and the PDF field writer consumes.
package schema

import (
	"encoding/json"
	"fmt"
)

// FieldRect is one captured rectangle in unscaled PDF page points,
// relative to a zero crop origin. Invariants: Page >= 0, coordinates
// non-negative, X0<=X1, Y0<=Y1.
type FieldRect struct {
	Page int
	X0   float64
	Y0   float64
	X1   float64
	Y1   float64
}

// Normalized reports whether the rectangle satisfies the stored-form
// invariants.
func (r FieldRect) Normalized() bool {
	return r.Page >= 0 &&
		r.X0 >= 0 && r.Y0 >= 0 &&
		r.X0 <= r.X1 && r.Y0 <= r.Y1
}

// On disk a rectangle is the 5-element array [page, x0, y0, x1, y1] the
// capture tool has always written.
func (r FieldRect) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]float64{float64(r.Page), r.X0, r.Y0, r.X1, r.Y1})
}

func (r *FieldRect) UnmarshalJSON(b []byte) error {
	var arr []float64
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) != 5 {
		return fmt.Errorf("field rect: want 5 elements, got %d", len(arr))
	}
	r.Page = int(arr[0])
	r.X0, r.Y0, r.X1, r.Y1 = arr[1], arr[2], arr[3], arr[4]
	return nil
}

// QuestionRects holds the captured rectangles for one question. Text is
// nil for multiple-choice questions.
type QuestionRects struct {
	Score *FieldRect `json:"score,omitempty"`
	Text  *FieldRect `json:"text,omitempty"`
}

// Schema is the per-master coordinate record.
type Schema struct {
	MasterID    string                   `json:"master_id"`
	TotalScore  *FieldRect               `json:"total_score,omitempty"`
	GraderName  *FieldRect               `json:"grader_name,omitempty"`
	CommentBox  *FieldRect               `json:"comment_box,omitempty"`
	ScoreField2 *FieldRect               `json:"score_field_2,omitempty"`
	Questions   map[string]QuestionRects `json:"questions,omitempty"`
}

// QuestionFieldKind selects the score or text rectangle of a question.
type QuestionFieldKind string

const (
	QuestionScore QuestionFieldKind = "score"
	QuestionText  QuestionFieldKind = "text"
)

// FieldPath addresses one rectangle in a Schema. The two constructors
// are the only way to build one, so invalid paths are unrepresentable.
type FieldPath struct {
	top  string
	key  string
	kind QuestionFieldKind
}

// Top-level field names.
const (
	FieldTotalScore  = "total_score"
	FieldGraderName  = "grader_name"
	FieldCommentBox  = "comment_box"
	FieldScoreField2 = "score_field_2"
)

// TopLevelPath addresses total_score, grader_name, comment_box or
// score_field_2.
func TopLevelPath(name string) FieldPath { return FieldPath{top: name} }

// QuestionPath addresses a question's score or text rectangle.
func QuestionPath(key string, kind QuestionFieldKind) FieldPath {
	return FieldPath{key: key, kind: kind}
}

// IsQuestion reports whether the path addresses a question field, and
// which one.
func (p FieldPath) IsQuestion() (key string, kind QuestionFieldKind, ok bool) {
	if p.key == "" {
		return "", "", false
	}
	return p.key, p.kind, true
}

func (p FieldPath) String() string {
	if p.key != "" {
		return fmt.Sprintf("q:%s:%s", p.key, p.kind)
	}
	return p.top
}

// Merge stores rect at path, creating question entries as needed.
func (s *Schema) Merge(path FieldPath, rect FieldRect) error {
	if !rect.Normalized() {
		return fmt.Errorf("merge %s: rectangle not normalized", path)
	}
	if key, kind, ok := path.IsQuestion(); ok {
		if s.Questions == nil {
			s.Questions = make(map[string]QuestionRects)
		}
		q := s.Questions[key]
		switch kind {
		case QuestionScore:
			q.Score = &rect
		case QuestionText:
			q.Text = &rect
		default:
			return fmt.Errorf("merge: unknown question field kind %q", kind)
		}
		s.Questions[key] = q
		return nil
	}
	switch path.top {
	case FieldTotalScore:
		s.TotalScore = &rect
	case FieldGraderName:
		s.GraderName = &rect
	case FieldCommentBox:
		s.CommentBox = &rect
	case FieldScoreField2:
		s.ScoreField2 = &rect
	default:
		return fmt.Errorf("merge: unknown field %q", path.top)
	}
	return nil
}

// Delete removes the rectangle at path, if any. Deleting an absent field
// is a no-op.
func (s *Schema) Delete(path FieldPath) {
	if key, kind, ok := path.IsQuestion(); ok {
		q, present := s.Questions[key]
		if !present {
			return
		}
		switch kind {
		case QuestionScore:
			q.Score = nil
		case QuestionText:
			q.Text = nil
		}
		if q.Score == nil && q.Text == nil {
			delete(s.Questions, key)
		} else {
			s.Questions[key] = q
		}
		return
	}
	switch path.top {
	case FieldTotalScore:
		s.TotalScore = nil
	case FieldGraderName:
		s.GraderName = nil
	case FieldCommentBox:
		s.CommentBox = nil
	case FieldScoreField2:
		s.ScoreField2 = nil
	}
}

// Lookup returns the rectangle at path, or nil.
func (s *Schema) Lookup(path FieldPath) *FieldRect {
	if key, kind, ok := path.IsQuestion(); ok {
		q, present := s.Questions[key]
		if !present {
			return nil
		}
		if kind == QuestionScore {
			return q.Score
		}
		return q.Text
	}
	switch path.top {
	case FieldTotalScore:
		return s.TotalScore
	case FieldGraderName:
		return s.GraderName
	case FieldCommentBox:
		return s.CommentBox
	case FieldScoreField2:
		return s.ScoreField2
	}
	return nil
}

// Validate checks that every stored rectangle is normalized and refers
// to a page inside the source document.
func (s *Schema) Validate(pageCount int) error {
	check := func(name string, r *FieldRect) error {
		if r == nil {
			return nil
		}
		if !r.Normalized() {
			return fmt.Errorf("%s %s: rectangle not normalized", s.MasterID, name)
		}
		if r.Page >= pageCount {
			return fmt.Errorf("%s %s: page %d out of range (document has %d pages)", s.MasterID, name, r.Page, pageCount)
		}
		return nil
	}
	if err := check(FieldTotalScore, s.TotalScore); err != nil {
		return err
	}
	if err := check(FieldGraderName, s.GraderName); err != nil {
		return err
	}
	if err := check(FieldCommentBox, s.CommentBox); err != nil {
		return err
	}
	if err := check(FieldScoreField2, s.ScoreField2); err != nil {
		return err
	}
	for key, q := range s.Questions {
		if err := check("q:"+key+":score", q.Score); err != nil {
			return err
		}
		if err := check("q:"+key+":text", q.Text); err != nil {
			return err
		}
	}
	return nil
}
