// Package pipeline drives the two batch runs: extraction of scanned
// answer sheets into draft texts, and grading of draft texts into
// annotated PDFs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/takeda-juku/tensaku/constants"
	"github.com/takeda-juku/tensaku/internal/annotate"
	"github.com/takeda-juku/tensaku/internal/common"
	"github.com/takeda-juku/tensaku/internal/export"
	"github.com/takeda-juku/tensaku/internal/extract"
	"github.com/takeda-juku/tensaku/internal/grading"
	"github.com/takeda-juku/tensaku/internal/progress"
	"github.com/takeda-juku/tensaku/internal/schema"
	"github.com/takeda-juku/tensaku/internal/stage"
	"github.com/takeda-juku/tensaku/internal/template"
)

// Pipeline wires the staging controller, the two model services, the
// template library and the PDF annotator.
type Pipeline struct {
	cfg       *common.Config
	stages    *stage.Controller
	extractor extract.TextExtractor
	grader    *grading.Grader
	annotator *annotate.Writer
	schemas   *schema.Store
	exporter  *export.Service
	emit      *progress.Emitter
	log       *slog.Logger
}

func New(
	cfg *common.Config,
	stages *stage.Controller,
	extractor extract.TextExtractor,
	grader *grading.Grader,
	annotator *annotate.Writer,
	schemas *schema.Store,
	exporter *export.Service,
	emit *progress.Emitter,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		stages:    stages,
		extractor: extractor,
		grader:    grader,
		annotator: annotator,
		schemas:   schemas,
		exporter:  exporter,
		emit:      emit,
		log:       log,
	}
}

// ExtractBatch transcribes every input PDF into a draft text file.
// Sheets are processed one at a time; a failed sheet is logged and the
// batch continues. The run fails only when no sheet succeeds.
func (p *Pipeline) ExtractBatch(ctx context.Context) error {
	masters, err := template.LoadAll(p.cfg.Library.MasterDir, p.log)
	if err != nil {
		return err
	}
	if len(masters) == 0 {
		p.emit.Line("⚠️ マスターIDが取得できませんでした。%s を確認してください。", p.cfg.Library.MasterDir)
		return fmt.Errorf("%w: no masters loaded", common.ErrInvalidInput)
	}
	candidates := template.IDs(masters)

	if err := p.stages.ArchivePriorOutputs(); err != nil {
		return err
	}

	pairs, err := p.stages.Pairs()
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		p.emit.Line("PDFが見つかりません。")
		return fmt.Errorf("%w: no input pdfs", common.ErrInvalidInput)
	}

	if err := os.MkdirAll(p.cfg.Stages.TextDir, 0o755); err != nil {
		return fmt.Errorf("create text dir: %w", err)
	}

	p.emit.Line("📄 %d件のファイルを処理します（モデル: %s）...", len(pairs), p.cfg.Extract.Model)
	p.emit.Bar(0, len(pairs), "Start")

	success := 0
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf, err := os.ReadFile(pair.PDFPath)
		if err != nil {
			p.log.Error("extract.read_failed", "file", pair.Filename, "error", err)
			p.emit.Bar(i+1, len(pairs), "Error ("+pair.Filename+")")
			continue
		}
		text, err := p.extractor.Extract(ctx, pdf, candidates)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Error("extract.sheet_failed", "file", pair.Filename, "error", err)
			p.emit.Bar(i+1, len(pairs), "Error ("+pair.Filename+")")
			continue
		}
		if err := os.WriteFile(pair.TxtPath, []byte(text), 0o644); err != nil {
			p.log.Error("extract.write_failed", "file", pair.TxtPath, "error", err)
			p.emit.Bar(i+1, len(pairs), "Error ("+pair.Filename+")")
			continue
		}
		success++
		p.emit.Bar(i+1, len(pairs), "Done ("+pair.Filename+")")
	}

	p.emit.Line("🎉 抽出完了: %d/%d件", success, len(pairs))
	if success == 0 {
		return fmt.Errorf("extraction produced no transcripts")
	}
	return nil
}

// GradeBatch grades every draft text, annotates the source PDFs and
// archives the processed inputs. Per-sheet failures are logged and
// skipped; the run fails only when no sheet succeeds.
func (p *Pipeline) GradeBatch(ctx context.Context) error {
	masters, err := template.LoadAll(p.cfg.Library.MasterDir, p.log)
	if err != nil {
		return err
	}
	if len(masters) == 0 {
		p.emit.Line("❌ マスターデータが見つかりません。%s を確認してください。", p.cfg.Library.MasterDir)
		return fmt.Errorf("%w: no masters loaded", common.ErrInvalidInput)
	}

	drafts, err := filepath.Glob(filepath.Join(p.cfg.Stages.TextDir, "*"+constants.DraftSuffix))
	if err != nil {
		return fmt.Errorf("list drafts: %w", err)
	}
	if len(drafts) == 0 {
		p.emit.Line("❌ 抽出済みテキストが見つかりません。")
		return fmt.Errorf("%w: no draft texts", common.ErrInvalidInput)
	}

	if err := os.MkdirAll(p.cfg.Stages.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p.emit.Line("🚀 %d件の答案を処理します（モデル: %s）...", len(drafts), p.cfg.Grading.Model)
	p.emit.Bar(0, len(drafts), "Start")

	success, skipped, failed := 0, 0, 0
	var summary []export.Row
	for i, txtPath := range drafts {
		if err := ctx.Err(); err != nil {
			return err
		}
		filename := filepath.Base(txtPath)
		baseName := strings.TrimSuffix(filename, constants.DraftSuffix)

		row, err := p.gradeSheet(ctx, txtPath, baseName, masters)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errorIsSkip(err) {
				skipped++
				p.emit.Bar(i+1, len(drafts), "Skip ("+filename+")")
			} else {
				failed++
				p.log.Error("grade.sheet_failed", "file", filename, "error", err)
				p.emit.Bar(i+1, len(drafts), "Error ("+filename+")")
			}
			continue
		}
		success++
		summary = append(summary, *row)
		p.emit.Bar(i+1, len(drafts), "Done ("+filename+")")
	}

	p.emit.Line("🎉 採点完了: 成功 %d件 / スキップ %d件 / 失敗 %d件", success, skipped, failed)
	if success == 0 {
		return fmt.Errorf("grading produced no annotated pdfs")
	}

	if p.exporter != nil {
		if b, err := p.exporter.SummaryXLSX(summary); err != nil {
			p.log.Warn("grade.summary_export_failed", "error", err)
		} else {
			path := filepath.Join(p.cfg.Stages.OutputDir, "results.xlsx")
			if err := os.WriteFile(path, b, 0o644); err != nil {
				p.log.Warn("grade.summary_write_failed", "path", path, "error", err)
			}
		}
	}
	return p.stages.ArchiveProcessed()
}

func (p *Pipeline) gradeSheet(ctx context.Context, txtPath, baseName string, masters []*template.Master) (*export.Row, error) {
	raw, err := os.ReadFile(txtPath)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	studentText := string(raw)

	master := template.Match(studentText, masters)
	if master == nil {
		p.log.Warn("grade.no_matching_template",
			"file", filepath.Base(txtPath),
			"first_line", template.FirstLine(studentText),
			"known_ids", strings.Join(template.IDs(masters), ", "))
		return nil, common.ErrNoMatchingTemplate
	}

	srcPDF := filepath.Join(p.cfg.Stages.InputDir, baseName+".pdf")
	if _, err := os.Stat(srcPDF); err != nil {
		p.log.Warn("grade.missing_source_pdf", "file", baseName+".pdf")
		return nil, common.ErrMissingSourcePDF
	}

	sc, err := p.schemas.Load(master.Meta.ID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		p.log.Warn("grade.no_coordinate_schema", "master_id", master.Meta.ID)
		return nil, common.ErrNoCoordinateSchema
	}

	rubric, err := template.RubricText(p.cfg.Library.RubricDir, master.Meta.ID)
	if err != nil {
		return nil, err
	}

	blocks, err := grading.BuildContent(master, studentText, rubric)
	if err != nil {
		return nil, err
	}
	result, err := p.grader.Grade(ctx, blocks)
	if err != nil {
		return nil, err
	}
	warnings := grading.ValidateDeductions(result)
	for _, w := range warnings {
		p.log.Warn("grade.deduction_mismatch", "file", baseName, "detail", w)
	}

	dstPDF := filepath.Join(p.cfg.Stages.OutputDir, baseName+".pdf")
	if err := p.annotator.Annotate(ctx, srcPDF, dstPDF, sc, result); err != nil {
		return nil, err
	}
	return &export.Row{
		Filename:  baseName + ".pdf",
		MasterID:  master.Meta.ID,
		StudentID: result.StudentID,
		Result:    result,
		Warnings:  len(warnings),
	}, nil
}

// errorIsSkip reports whether a sheet failure is a data problem that
// should be skipped quietly rather than counted as a grading failure.
func errorIsSkip(err error) bool {
	return errors.Is(err, common.ErrNoMatchingTemplate) ||
		errors.Is(err, common.ErrMissingSourcePDF) ||
		errors.Is(err, common.ErrNoCoordinateSchema)
}
