package grading_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takeda-juku/tensaku/constants"
	"github.com/takeda-juku/tensaku/internal/common"
	"github.com/takeda-juku/tensaku/internal/grading"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", "結果は以下です。\n{\"a\":1}\nよろしくお願いします。", `{"a":1}`},
		{"fence with prose before", "説明\n```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := grading.ExtractJSON(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := grading.ExtractJSON("すみません、採点できませんでした。")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

const sampleReply = "```json\n" + `{
  "student_id": "55615210",
  "questions": {
    "A": {
      "max": 12,
      "grading_process": "12 - 2 - 1 = 9",
      "score": 9,
      "mark": "triangle",
      "corrections": [
        "①「inconvinient」のスペルは「inconvenient」が正しいです。(-1)",
        "②解答が45語で、指定の50〜60語に対して不足しています。(-2)"
      ],
      "details_text": "",
      "sub_results": {"27": "circle"}
    }
  },
  "comment_parts": {
    "praise": "要点を押さえて書くことができています。",
    "advice": "語数管理を意識できると良いですね。",
    "closing": "これからも頑張ってください。応援しています。"
  }
}` + "\n```"

func TestParseResult(t *testing.T) {
	res, err := grading.ParseResult(sampleReply)
	require.NoError(t, err)

	assert.Equal(t, "55615210", res.StudentID)
	require.Contains(t, res.Questions, "A")
	q := res.Questions["A"]
	assert.Equal(t, 12, q.Max)
	assert.Equal(t, 9.0, q.Score)
	assert.Equal(t, constants.MarkTriangle, q.Mark)
	assert.Len(t, q.Corrections, 2)
	assert.Equal(t, constants.MarkCircle, q.SubResults["27"])
	assert.Equal(t, "これからも頑張ってください。応援しています。", res.CommentParts.Closing)
}

func TestParseResultRejectsBadShape(t *testing.T) {
	cases := map[string]string{
		"no questions":  `{"student_id":"1"}`,
		"empty object":  `{"questions":{}}`,
		"bad mark":      `{"questions":{"A":{"max":10,"score":5,"mark":"star"}}}`,
		"missing score": `{"questions":{"A":{"max":10,"mark":"circle"}}}`,
		"not json":      "no object here",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := grading.ParseResult(raw)
			assert.ErrorIs(t, err, common.ErrMalformedResponse)
		})
	}
}
