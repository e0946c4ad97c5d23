package capture

import (
	"fmt"
	"log/slog"

	"github.com/takeda-juku/tensaku/internal/schema"
)

// Saver persists a finished schema. *schema.Store satisfies it.
type Saver interface {
	Save(*schema.Schema) error
}

// Wizard walks an operator through the capture plan one rectangle at a
// time. It is either awaiting input for steps[index] or done. Fields are
// written only by SubmitRect and removed only by Redo; the wizard never
// infers a default rectangle.
type Wizard struct {
	steps     []Step
	index     int
	sc        schema.Schema
	pageCount int
	saver     Saver
	logger    *slog.Logger

	drag *Drag // active press, nil between gestures
}

func NewWizard(cfg PlanConfig, pageCount int, saver Saver, logger *slog.Logger) (*Wizard, error) {
	steps, err := BuildPlan(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Wizard{
		steps:     steps,
		sc:        schema.Schema{MasterID: cfg.MasterID},
		pageCount: pageCount,
		saver:     saver,
		logger:    logger,
	}, nil
}

// Done reports whether every step has been consumed.
func (w *Wizard) Done() bool { return w.index >= len(w.steps) }

// StepIndex returns the zero-based index of the current step.
func (w *Wizard) StepIndex() int { return w.index }

// Steps returns the full plan, for prompt display.
func (w *Wizard) Steps() []Step { return w.steps }

// Current returns the step awaiting input.
func (w *Wizard) Current() (Step, bool) {
	if w.Done() {
		return Step{}, false
	}
	return w.steps[w.index], true
}

// Schema returns a snapshot of the captured fields so far.
func (w *Wizard) Schema() schema.Schema { return w.sc }

// Press records the start of a drag in canvas pixels.
func (w *Wizard) Press(x, y float64) {
	w.drag = &Drag{StartX: x, StartY: y, EndX: x, EndY: y}
}

// Release completes the active drag and submits the resulting rectangle.
// A release with no matching press is a no-op.
func (w *Wizard) Release(x, y float64, vp Viewport) error {
	if w.drag == nil || w.Done() {
		return nil
	}
	d := *w.drag
	w.drag = nil
	d.EndX, d.EndY = x, y
	return w.SubmitRect(vp.Rect(d))
}

// SubmitRect stores rect at the current step's field path and advances.
// Reaching the end persists the schema.
func (w *Wizard) SubmitRect(rect schema.FieldRect) error {
	if w.Done() {
		return fmt.Errorf("submit: wizard already done")
	}
	if rect.Page < 0 || rect.Page >= w.pageCount {
		return fmt.Errorf("submit: page %d out of range (document has %d pages)", rect.Page, w.pageCount)
	}
	step := w.steps[w.index]
	if err := w.sc.Merge(step.Path, rect); err != nil {
		return err
	}
	w.index++
	w.logger.Info("capture.step", "master_id", w.sc.MasterID, "field", step.Path.String(), "step", w.index, "of", len(w.steps))
	if w.Done() {
		return w.persist()
	}
	return nil
}

// Redo steps back to the previous prompt and discards whatever was
// stored for it. Redo at the first step, or after a skipped step,
// changes nothing but the position.
func (w *Wizard) Redo() {
	if w.index == 0 {
		return
	}
	w.index--
	w.sc.Delete(w.steps[w.index].Path)
}

// Skip advances without storing a rectangle. Skipping the last step
// persists the (possibly incomplete) schema.
func (w *Wizard) Skip() error {
	if w.Done() {
		return nil
	}
	w.index++
	if w.Done() {
		return w.persist()
	}
	return nil
}

func (w *Wizard) persist() error {
	if w.saver == nil {
		return nil
	}
	if err := w.saver.Save(&w.sc); err != nil {
		return fmt.Errorf("persist schema: %w", err)
	}
	w.logger.Info("capture.done", "master_id", w.sc.MasterID, "steps", len(w.steps))
	return nil
}
