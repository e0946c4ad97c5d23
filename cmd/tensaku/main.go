package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/takeda-juku/tensaku/internal/annotate"
	"github.com/takeda-juku/tensaku/internal/common"
	"github.com/takeda-juku/tensaku/internal/export"
	"github.com/takeda-juku/tensaku/internal/extract/gemini"
	"github.com/takeda-juku/tensaku/internal/grading"
	"github.com/takeda-juku/tensaku/internal/grading/anthropic"
	"github.com/takeda-juku/tensaku/internal/pipeline"
	"github.com/takeda-juku/tensaku/internal/progress"
	"github.com/takeda-juku/tensaku/internal/schema"
	"github.com/takeda-juku/tensaku/internal/stage"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to config.json")
		runExtract   = flag.Bool("extract", false, "transcribe input PDFs into draft texts")
		runGrade     = flag.Bool("grade", false, "grade draft texts and annotate PDFs")
		restoreDate  = flag.String("restore", "", "restore a done/YYYYMMDD archive into the staging dirs")
		listDates    = flag.Bool("dates", false, "list restorable archive dates")
		watch        = flag.Bool("watch", false, "keep running and extract PDFs as they arrive")
		cleanExtract = flag.Bool("clean-extract", false, "remove input PDFs and draft texts")
		cleanGrade   = flag.Bool("clean-grade", false, "remove annotated output PDFs")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stages := stage.NewController(cfg.Stages, logger)
	emit := progress.NewEmitter(os.Stdout, progress.PathFilter([]string{
		cfg.Stages.InputDir,
		cfg.Stages.TextDir,
		cfg.Stages.OutputDir,
		cfg.Stages.DoneDir,
		cfg.Library.MasterDir,
		cfg.Library.RubricDir,
	}))
	schemas := schema.NewStore(cfg.Library.CoordDir, logger)
	grader := grading.NewGrader(anthropic.NewClient(cfg.Grading, logger), logger)
	annotator := annotate.NewWriter(cfg.GraderName, logger)
	exporter := export.NewService(logger)
	p := pipeline.New(cfg, stages, gemini.NewClient(cfg.Extract, logger), grader, annotator, schemas, exporter, emit, logger)

	switch {
	case *listDates:
		dates, err := stages.DoneDates()
		if err != nil {
			fail(logger, "list archive dates", err)
		}
		for _, d := range dates {
			emit.Line("%s (%d件)", d.Label, d.Count)
		}
	case *restoreDate != "":
		if err := stages.Restore(*restoreDate); err != nil {
			fail(logger, "restore archive", err)
		}
	case *cleanExtract:
		if err := stages.CleanupExtraction(); err != nil {
			fail(logger, "cleanup extraction", err)
		}
	case *cleanGrade:
		if err := stages.CleanupGrading(); err != nil {
			fail(logger, "cleanup grading", err)
		}
	case *watch:
		if err := watchAndExtract(ctx, cfg, p, logger); err != nil && ctx.Err() == nil {
			fail(logger, "watch", err)
		}
	case *runExtract && *runGrade:
		if err := p.ExtractBatch(ctx); err != nil {
			cancelCleanup(ctx, stages.CleanupExtraction, logger)
			fail(logger, "extract", err)
		}
		if err := p.GradeBatch(ctx); err != nil {
			cancelCleanup(ctx, stages.CleanupGrading, logger)
			fail(logger, "grade", err)
		}
	case *runExtract:
		if err := p.ExtractBatch(ctx); err != nil {
			cancelCleanup(ctx, stages.CleanupExtraction, logger)
			fail(logger, "extract", err)
		}
	case *runGrade:
		if err := p.GradeBatch(ctx); err != nil {
			cancelCleanup(ctx, stages.CleanupGrading, logger)
			fail(logger, "grade", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// watchAndExtract runs an extraction batch whenever new PDFs settle in
// the input directory.
func watchAndExtract(ctx context.Context, cfg *common.Config, p *pipeline.Pipeline, logger *slog.Logger) error {
	events, errs, err := stage.WatchInputs(ctx, stage.WatchConfig{
		Dir:         cfg.Stages.InputDir,
		InitialScan: true,
		Debounce:    2 * time.Second,
	}, logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				logger.Error("watch error", "error", err)
			}
		case _, ok := <-events:
			if !ok {
				return nil
			}
			drainEvents(events)
			if err := p.ExtractBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("extract batch failed", "error", err)
			}
		}
	}
}

// drainEvents consumes events already queued so one settled batch does
// not trigger repeated runs.
func drainEvents(events <-chan string) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

// cancelCleanup runs the stage's cancellation cleanup when the batch
// ended because of an interrupt; ordinary failures leave the staging
// directories alone for inspection.
func cancelCleanup(ctx context.Context, clean func() error, logger *slog.Logger) {
	if ctx.Err() == nil {
		return
	}
	if err := clean(); err != nil {
		logger.Error("cancel cleanup failed", "error", err)
	}
}

func fail(logger *slog.Logger, what string, err error) {
	logger.Error(what+" failed", "error", err)
	os.Exit(1)
}
