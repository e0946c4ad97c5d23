package annotate_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/pdfkit/ir/raw"
	"github.com/wudi/pdfkit/ir/semantic"
	"github.com/wudi/pdfkit/parser"
	"github.com/wudi/pdfkit/writer"

	"github.com/takeda-juku/tensaku/constants"
	"github.com/takeda-juku/tensaku/internal/annotate"
	"github.com/takeda-juku/tensaku/internal/grading"
	"github.com/takeda-juku/tensaku/internal/schema"
)

// writeBlankSheet writes a one-page PDF whose crop box is offset from
// the media box, the shape scanned answer sheets come in.
func writeBlankSheet(t *testing.T, path string) {
	t.Helper()
	doc := &semantic.Document{
		Pages: []*semantic.Page{
			{
				MediaBox: semantic.Rectangle{URX: 612, URY: 792},
				CropBox:  semantic.Rectangle{LLX: 10, LLY: 30, URX: 600, URY: 770},
				Contents: []semantic.ContentStream{{RawBytes: []byte("BT ET")}},
			},
		},
	}
	var buf bytes.Buffer
	w := (&writer.WriterBuilder{}).Build()
	require.NoError(t, w.Write(context.Background(), doc, &buf, writer.Config{Deterministic: true}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

type placedAnnot struct {
	rect [4]float64
	q    int
}

// readFreeTexts parses an annotated PDF and returns every FreeText
// annotation keyed by its contents string.
func readFreeTexts(t *testing.T, path string) map[string]placedAnnot {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := parser.NewDocumentParser(parser.Config{}).Parse(context.Background(), bytes.NewReader(b))
	require.NoError(t, err)

	found := map[string]placedAnnot{}
	for _, obj := range doc.Objects {
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			continue
		}
		sub, ok := dict.Get(raw.NameLiteral("Subtype"))
		if !ok {
			continue
		}
		if n, ok := sub.(raw.NameObj); !ok || n.Value() != "FreeText" {
			continue
		}
		var pa placedAnnot
		rect, ok := dict.Get(raw.NameLiteral("Rect"))
		require.True(t, ok, "FreeText missing Rect")
		arr, ok := rect.(*raw.ArrayObj)
		require.True(t, ok)
		require.Equal(t, 4, arr.Len())
		for i := 0; i < 4; i++ {
			o, _ := arr.Get(i)
			pa.rect[i] = o.(raw.NumberObj).Float()
		}
		if q, ok := dict.Get(raw.NameLiteral("Q")); ok {
			pa.q = int(q.(raw.NumberObj).Int())
		}
		contents, ok := dict.Get(raw.NameLiteral("Contents"))
		require.True(t, ok, "FreeText missing Contents")
		found[string(contents.(raw.StringObj).Value())] = pa
	}
	return found
}

func TestAnnotatePlacesResultFields(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan001.pdf")
	dst := filepath.Join(dir, "scan001_out.pdf")
	writeBlankSheet(t, src)

	sc := &schema.Schema{
		MasterID:   "2024_4_2",
		TotalScore: &schema.FieldRect{Page: 0, X0: 100, Y0: 40, X1: 200, Y1: 60},
		GraderName: &schema.FieldRect{Page: 0, X0: 300, Y0: 40, X1: 380, Y1: 60},
		CommentBox: &schema.FieldRect{Page: 0, X0: 50, Y0: 600, X1: 500, Y1: 700},
		// A stale capture pointing past the last page must be skipped.
		ScoreField2: &schema.FieldRect{Page: 7, X0: 100, Y0: 40, X1: 200, Y1: 60},
		Questions: map[string]schema.QuestionRects{
			"1": {
				Score: &schema.FieldRect{Page: 0, X0: 420, Y0: 100, X1: 470, Y1: 120},
				Text:  &schema.FieldRect{Page: 0, X0: 50, Y0: 100, X1: 400, Y1: 200},
			},
			"27": {
				Score: &schema.FieldRect{Page: 0, X0: 420, Y0: 300, X1: 470, Y1: 320},
				Text:  &schema.FieldRect{Page: 0, X0: 50, Y0: 300, X1: 400, Y1: 360},
			},
		},
	}
	res := &grading.Result{
		StudentID: "55615210",
		Questions: map[string]grading.QuestionResult{
			"1": {
				Max:   10,
				Score: 7,
				Mark:  constants.MarkTriangle,
				Corrections: []string{
					"①「There is」は「There are」が正しいです。(-2)",
					"②解答が18語で、指定の20〜30語に対して不足しています。(-1)",
				},
			},
			"27": {
				Max:         2,
				Score:       2,
				Mark:        constants.MarkCircle,
				DetailsText: "27 各2点 1/1\n合計 2/2",
				SubResults:  map[string]constants.Mark{"27": constants.MarkCircle},
			},
		},
		CommentParts: grading.CommentParts{
			Praise:  "要点を的確に捉えることができています。",
			Advice:  "語数配分も意識できると良いですね。",
			Closing: "これからも頑張ってください。応援しています。",
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := annotate.NewWriter("採点太郎", logger)
	require.NoError(t, w.Annotate(context.Background(), src, dst, sc, res))

	annots := readFreeTexts(t, dst)
	// grader name, total, two question scores, two question texts,
	// comment; the out-of-range score_field_2 is dropped.
	assert.Len(t, annots, 7)

	total, ok := annots["9／12"]
	require.True(t, ok, "total score annotation missing")
	assert.Equal(t, 1, total.q)
	// Crop box runs (10,30)-(600,770): stored x shifts by the crop
	// left edge, stored y flips against the crop top edge.
	assert.InDelta(t, 110.0, total.rect[0], 0.01)
	assert.InDelta(t, 710.0, total.rect[1], 0.01)
	assert.InDelta(t, 210.0, total.rect[2], 0.01)
	assert.InDelta(t, 730.0, total.rect[3], 0.01)

	grader, ok := annots["採点太郎"]
	require.True(t, ok, "grader name annotation missing")
	assert.Equal(t, 1, grader.q)

	q1Score, ok := annots["7／10"]
	require.True(t, ok, "question 1 score annotation missing")
	assert.Equal(t, 1, q1Score.q)

	q1Text, ok := annots[annotate.QuestionText(res.Questions["1"])]
	require.True(t, ok, "question 1 text annotation missing")
	assert.Equal(t, 0, q1Text.q)

	q27Text, ok := annots["27 各2点 1/1\n合計 2/2\n【確認用】27:〇"]
	require.True(t, ok, "question 27 confirmation line missing")
	assert.Equal(t, 0, q27Text.q)

	_, ok = annots["2／2"]
	assert.True(t, ok, "question 27 score annotation missing")

	comment, ok := annots[annotate.Comment(res.CommentParts)]
	require.True(t, ok, "comment annotation missing")
	assert.Equal(t, 0, comment.q)
}
