package annotate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wudi/pdfkit/ir"
	"github.com/wudi/pdfkit/ir/semantic"
	"github.com/wudi/pdfkit/writer"

	"github.com/takeda-juku/tensaku/internal/grading"
	"github.com/takeda-juku/tensaku/internal/schema"
)

// red is the annotation text color.
var red = []float64{1, 0, 0}

const defaultAppearance = "/Helv 10 Tf 1 0 0 rg"

// Writer stamps grading results onto a source PDF using the template's
// coordinate schema.
type Writer struct {
	grader string
	log    *slog.Logger
}

func NewWriter(graderName string, log *slog.Logger) *Writer {
	return &Writer{grader: graderName, log: log}
}

// Annotate reads srcPath, places every result the schema has a
// coordinate for, and writes the annotated PDF to dstPath. Fields the
// schema omits are skipped without error; a field whose page is out of
// range is skipped with a warning.
func (w *Writer) Annotate(ctx context.Context, srcPath, dstPath string, sc *schema.Schema, res *grading.Result) error {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source pdf: %w", err)
	}
	doc, err := ir.NewDefault().Parse(ctx, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse pdf: %w", err)
	}

	w.place(doc, sc.Lookup(schema.TopLevelPath(schema.FieldGraderName)), w.grader, AlignCenter)

	score, max := grading.Totals(res)
	total := grading.FormatScore(score, max)
	w.place(doc, sc.Lookup(schema.TopLevelPath(schema.FieldTotalScore)), total, AlignCenter)
	w.place(doc, sc.Lookup(schema.TopLevelPath(schema.FieldScoreField2)), total, AlignCenter)

	for key, q := range res.Questions {
		w.place(doc, sc.Lookup(schema.QuestionPath(key, schema.QuestionScore)), QuestionScore(q), AlignCenter)
		w.place(doc, sc.Lookup(schema.QuestionPath(key, schema.QuestionText)), QuestionText(q), AlignLeft)
	}

	w.place(doc, sc.Lookup(schema.TopLevelPath(schema.FieldCommentBox)), Comment(res.CommentParts), AlignLeft)

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create output pdf: %w", err)
	}
	defer func() { _ = out.Close() }()

	if err := (&writer.WriterBuilder{}).Build().Write(ctx, doc, out, writer.Config{}); err != nil {
		return fmt.Errorf("write annotated pdf: %w", err)
	}
	return nil
}

func (w *Writer) place(doc *semantic.Document, r *schema.FieldRect, text string, align Alignment) {
	if r == nil || text == "" {
		return
	}
	if r.Page < 0 || r.Page >= len(doc.Pages) {
		w.log.Warn("annotate.page_out_of_range", "page", r.Page, "pages", len(doc.Pages))
		return
	}
	page := doc.Pages[r.Page]
	page.Annotations = append(page.Annotations, &semantic.FreeTextAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype:  "FreeText",
			RectVal:  pageRect(page, r),
			Contents: text,
			Color:    red,
			Dirty:    true,
		},
		DA: defaultAppearance,
		Q:  int(align),
	})
	page.Dirty = true
}

// pageRect converts a stored rect (top-left origin, relative to the
// crop box) into the PDF's bottom-left coordinate space.
func pageRect(page *semantic.Page, r *schema.FieldRect) semantic.Rectangle {
	dx := page.CropBox.LLX
	top := page.CropBox.URY
	return semantic.Rectangle{
		LLX: r.X0 + dx,
		LLY: top - r.Y1,
		URX: r.X1 + dx,
		URY: top - r.Y0,
	}
}
