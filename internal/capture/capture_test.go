package capture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takeda-juku/tensaku/constants"
	"github.com/takeda-juku/tensaku/internal/capture"
	"github.com/takeda-juku/tensaku/internal/schema"
)

type memSaver struct {
	saved *schema.Schema
}

func (m *memSaver) Save(sc *schema.Schema) error {
	cp := *sc
	m.saved = &cp
	return nil
}

func planConfig(scoreField2 bool) capture.PlanConfig {
	return capture.PlanConfig{
		MasterID:    "2024_4_2",
		ScoreField2: scoreField2,
		Questions: []capture.QuestionSpec{
			{Key: "A", Type: constants.FreeResponse},
			{Key: "B", Type: constants.FreeResponse},
			{Key: "27", Type: constants.MultipleChoice},
		},
	}
}

func TestBuildPlanOrderAndLength(t *testing.T) {
	steps, err := capture.BuildPlan(planConfig(false))
	require.NoError(t, err)

	// total_score, grader_name, 2 per free response, 1 per multiple
	// choice, comment_box
	require.Len(t, steps, 2+2*2+1+1)
	assert.Equal(t, "total_score", steps[0].Path.String())
	assert.Equal(t, "grader_name", steps[1].Path.String())
	assert.Equal(t, "q:A:score", steps[2].Path.String())
	assert.Equal(t, "q:A:text", steps[3].Path.String())
	assert.Equal(t, "q:B:score", steps[4].Path.String())
	assert.Equal(t, "q:B:text", steps[5].Path.String())
	assert.Equal(t, "q:27:score", steps[6].Path.String())
	assert.Equal(t, "comment_box", steps[7].Path.String())
}

func TestBuildPlanWithScoreField2(t *testing.T) {
	steps, err := capture.BuildPlan(planConfig(true))
	require.NoError(t, err)

	require.Len(t, steps, 2+1+2*2+1+1)
	assert.Equal(t, "score_field_2", steps[2].Path.String())
	assert.Equal(t, "q:A:score", steps[3].Path.String())
}

func TestBuildPlanRejectsBadConfig(t *testing.T) {
	_, err := capture.BuildPlan(capture.PlanConfig{})
	assert.Error(t, err)

	_, err = capture.BuildPlan(capture.PlanConfig{
		MasterID:  "m",
		Questions: []capture.QuestionSpec{{Key: "  "}},
	})
	assert.Error(t, err)
}

func TestViewportRect(t *testing.T) {
	vp := capture.Viewport{Page: 0, Zoom: 2.0}
	d := capture.Drag{StartX: 50, StartY: 80, EndX: 10, EndY: 20}

	r := vp.Rect(d)
	assert.Equal(t, schema.FieldRect{Page: 0, X0: 5, Y0: 10, X1: 25, Y1: 40}, r)
}

func TestViewportRectClampsNegatives(t *testing.T) {
	vp := capture.Viewport{Page: 1, Zoom: 1.0, OffsetX: 100, OffsetY: 100}
	d := capture.Drag{StartX: 40, StartY: 60, EndX: 160, EndY: 180}

	r := vp.Rect(d)
	assert.Equal(t, schema.FieldRect{Page: 1, X0: 0, Y0: 0, X1: 60, Y1: 80}, r)
}

func TestWizardFullRun(t *testing.T) {
	saver := &memSaver{}
	w, err := capture.NewWizard(planConfig(false), 2, saver, nil)
	require.NoError(t, err)

	rect := schema.FieldRect{Page: 0, X0: 1, Y0: 2, X1: 3, Y1: 4}
	for !w.Done() {
		require.NoError(t, w.SubmitRect(rect))
	}

	require.NotNil(t, saver.saved)
	assert.Equal(t, "2024_4_2", saver.saved.MasterID)
	assert.NotNil(t, saver.saved.TotalScore)
	assert.NotNil(t, saver.saved.CommentBox)
	assert.NotNil(t, saver.saved.Questions["A"].Text)
	assert.Nil(t, saver.saved.Questions["27"].Text)

	assert.Error(t, w.SubmitRect(rect))
}

func TestWizardRedoDiscardsPreviousField(t *testing.T) {
	w, err := capture.NewWizard(planConfig(false), 1, &memSaver{}, nil)
	require.NoError(t, err)

	rect := schema.FieldRect{Page: 0, X0: 1, Y0: 2, X1: 3, Y1: 4}
	require.NoError(t, w.SubmitRect(rect)) // total_score
	require.NoError(t, w.SubmitRect(rect)) // grader_name
	require.Equal(t, 2, w.StepIndex())

	w.Redo()
	assert.Equal(t, 1, w.StepIndex())
	sc := w.Schema()
	assert.Nil(t, sc.GraderName)
	assert.NotNil(t, sc.TotalScore)

	w.Redo()
	w.Redo() // at the first step, position stays put
	assert.Equal(t, 0, w.StepIndex())
}

func TestWizardSkipLeavesFieldUnset(t *testing.T) {
	saver := &memSaver{}
	w, err := capture.NewWizard(capture.PlanConfig{MasterID: "m"}, 1, saver, nil)
	require.NoError(t, err)

	rect := schema.FieldRect{Page: 0, X0: 1, Y0: 2, X1: 3, Y1: 4}
	require.NoError(t, w.SubmitRect(rect)) // total_score
	require.NoError(t, w.Skip())           // grader_name
	require.NoError(t, w.Skip())           // comment_box, end of plan

	require.True(t, w.Done())
	require.NotNil(t, saver.saved)
	assert.Nil(t, saver.saved.GraderName)
	assert.NotNil(t, saver.saved.TotalScore)
}

func TestWizardRejectsOutOfRangePage(t *testing.T) {
	w, err := capture.NewWizard(capture.PlanConfig{MasterID: "m"}, 1, nil, nil)
	require.NoError(t, err)

	err = w.SubmitRect(schema.FieldRect{Page: 1, X0: 1, Y0: 2, X1: 3, Y1: 4})
	assert.Error(t, err)
	assert.Equal(t, 0, w.StepIndex())
}

func TestWizardReleaseWithoutPressIsNoop(t *testing.T) {
	w, err := capture.NewWizard(capture.PlanConfig{MasterID: "m"}, 1, nil, nil)
	require.NoError(t, err)

	require.NoError(t, w.Release(10, 10, capture.Viewport{Zoom: 1}))
	assert.Equal(t, 0, w.StepIndex())

	w.Press(50, 80)
	require.NoError(t, w.Release(10, 20, capture.Viewport{Zoom: 2}))
	assert.Equal(t, 1, w.StepIndex())
	got := w.Schema().TotalScore
	require.NotNil(t, got)
	assert.Equal(t, schema.FieldRect{Page: 0, X0: 5, Y0: 10, X1: 25, Y1: 40}, *got)
}
