// Package stage manages the staging directories of the pipeline:
// inputs, extracted texts, annotated outputs, and dated done archives.
package stage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/takeda-juku/tensaku/constants"
	"github.com/takeda-juku/tensaku/internal/common"
)

// Pair links an input PDF with its extracted draft text. TxtPath is
// where the draft lives or will live; it may not exist yet.
type Pair struct {
	PDFPath  string
	TxtPath  string
	Filename string
}

// DoneDate describes one restorable archive folder.
type DoneDate struct {
	Key   string // YYYYMMDD
	Label string // YYYY/MM/DD
	Count int    // archived PDFs
}

// Controller performs all staging-directory operations.
type Controller struct {
	cfg common.StageConfig
	log *slog.Logger
	now func() time.Time
}

func NewController(cfg common.StageConfig, log *slog.Logger) *Controller {
	return &Controller{cfg: cfg, log: log, now: time.Now}
}

// Pairs lists input PDFs in name order with their draft-text paths.
func (c *Controller) Pairs() ([]Pair, error) {
	pdfs, err := sortedGlob(c.cfg.InputDir, "*.pdf")
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, len(pdfs))
	for _, pdf := range pdfs {
		name := filepath.Base(pdf)
		base := strings.TrimSuffix(name, filepath.Ext(name))
		pairs = append(pairs, Pair{
			PDFPath:  pdf,
			TxtPath:  filepath.Join(c.cfg.TextDir, base+constants.DraftSuffix),
			Filename: name,
		})
	}
	return pairs, nil
}

// ArchivePriorOutputs moves leftover annotated PDFs out of the output
// directory into done/YYYYMMDD_output before a new extraction run.
func (c *Controller) ArchivePriorOutputs() error {
	pdfs, err := sortedGlob(c.cfg.OutputDir, "*.pdf")
	if err != nil || len(pdfs) == 0 {
		return err
	}
	folder := filepath.Join(c.cfg.DoneDir, c.dateKey()+constants.OutputArchiveSuffix)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	for _, pdf := range pdfs {
		if err := moveFile(pdf, filepath.Join(folder, filepath.Base(pdf))); err != nil {
			return err
		}
	}
	c.log.Info("stage.outputs_archived", "dir", folder, "count", len(pdfs))
	return nil
}

// ArchiveProcessed moves input PDFs and draft texts into done/YYYYMMDD
// after a successful grading run.
func (c *Controller) ArchiveProcessed() error {
	folder := filepath.Join(c.cfg.DoneDir, c.dateKey())
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create done dir: %w", err)
	}
	pdfs, err := sortedGlob(c.cfg.InputDir, "*.pdf")
	if err != nil {
		return err
	}
	txts, err := sortedGlob(c.cfg.TextDir, "*"+constants.DraftSuffix)
	if err != nil {
		return err
	}
	for _, f := range append(pdfs, txts...) {
		if err := moveFile(f, filepath.Join(folder, filepath.Base(f))); err != nil {
			return err
		}
	}
	c.log.Info("stage.archived", "dir", folder, "pdfs", len(pdfs), "texts", len(txts))
	return nil
}

// DoneDates lists restorable archive folders, newest first. Folders
// without PDFs and the _output archives are omitted.
func (c *Controller) DoneDates() ([]DoneDate, error) {
	entries, err := os.ReadDir(c.cfg.DoneDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read done dir: %w", err)
	}
	var dates []DoneDate
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !isDateKey(name) {
			continue
		}
		pdfs, err := sortedGlob(filepath.Join(c.cfg.DoneDir, name), "*.pdf")
		if err != nil || len(pdfs) == 0 {
			continue
		}
		dates = append(dates, DoneDate{
			Key:   name,
			Label: fmt.Sprintf("%s/%s/%s", name[:4], name[4:6], name[6:]),
			Count: len(pdfs),
		})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Key > dates[j].Key })
	return dates, nil
}

// Restore copies a done/YYYYMMDD archive back into the input and text
// directories, overwriting files already there.
func (c *Controller) Restore(dateKey string) error {
	folder := filepath.Join(c.cfg.DoneDir, dateKey)
	if fi, err := os.Stat(folder); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: no archive for %s", common.ErrInvalidInput, dateKey)
	}
	if err := os.MkdirAll(c.cfg.InputDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(c.cfg.TextDir, 0o755); err != nil {
		return err
	}
	pdfs, err := sortedGlob(folder, "*.pdf")
	if err != nil {
		return err
	}
	for _, pdf := range pdfs {
		if err := copyFile(pdf, filepath.Join(c.cfg.InputDir, filepath.Base(pdf))); err != nil {
			return err
		}
	}
	txts, err := sortedGlob(folder, "*"+constants.DraftSuffix)
	if err != nil {
		return err
	}
	for _, txt := range txts {
		if err := copyFile(txt, filepath.Join(c.cfg.TextDir, filepath.Base(txt))); err != nil {
			return err
		}
	}
	c.log.Info("stage.restored", "date", dateKey, "pdfs", len(pdfs), "texts", len(txts))
	return nil
}

// CleanupExtraction removes input PDFs and draft texts after a
// cancelled extraction run.
func (c *Controller) CleanupExtraction() error {
	if err := removeGlob(c.cfg.InputDir, "*.pdf"); err != nil {
		return err
	}
	if err := removeGlob(c.cfg.TextDir, "*"+constants.DraftSuffix); err != nil {
		return err
	}
	c.log.Info("stage.extraction_cleaned")
	return nil
}

// CleanupGrading removes annotated outputs after a cancelled grading
// run. Inputs and drafts are kept so the run can be repeated.
func (c *Controller) CleanupGrading() error {
	if err := removeGlob(c.cfg.OutputDir, "*.pdf"); err != nil {
		return err
	}
	c.log.Info("stage.grading_cleaned")
	return nil
}

func (c *Controller) dateKey() string {
	return c.now().Format(constants.ArchiveDateLayout)
}

func isDateKey(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sortedGlob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func removeGlob(dir, pattern string) error {
	matches, err := sortedGlob(dir, pattern)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return nil
}

// moveFile renames src to dst, falling back to copy+remove when the
// rename crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
